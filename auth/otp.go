package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/smtp"
	"os"
	"time"

	"meridia/db"
	"meridia/rdx"
	"meridia/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
)

const otpTTL = 10 * time.Minute

func GenerateOTP(length int) string {
	return utils.GenerateRandomDigitString(length)
}

// SendEmailOTP mails a verification code. SMTP settings come from the
// environment; a missing host falls back to a local relay for dev setups.
func SendEmailOTP(toEmail, otp string) error {
	from := os.Getenv("SMTP_FROM")
	pass := os.Getenv("SMTP_PASSWORD")
	smtpHost := os.Getenv("SMTP_HOST")
	smtpPort := os.Getenv("SMTP_PORT")
	if smtpHost == "" {
		smtpHost = "localhost"
	}
	if smtpPort == "" {
		smtpPort = "587"
	}

	msg := []byte("Subject: Email Verification\n\nYour verification code is: " + otp)

	auth := smtp.PlainAuth("", from, pass, smtpHost)
	return smtp.SendMail(smtpHost+":"+smtpPort, auth, from, []string{toEmail}, msg)
}

func storeOTP(email, otp string) error {
	return rdx.SetWithExpiry("otp:"+email, otp, otpTTL)
}

// VerifyOTPHandler marks the account's email verified when the submitted code
// matches the stored one.
func VerifyOTPHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var input struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.Email == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	storedOTP, err := rdx.RdxGet("otp:" + input.Email)
	if err != nil || storedOTP == "" || storedOTP != input.OTP {
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid or expired OTP")
		return
	}

	_, err = db.UserCollection.UpdateOne(ctx,
		bson.M{"email": input.Email},
		bson.M{"$set": bson.M{"email_verified": true}})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to verify user")
		return
	}

	rdx.RdxDel("otp:" + input.Email)
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Email verified"})
}
