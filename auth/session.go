package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"meridia/db"
	"meridia/models"
	"meridia/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
)

// Me returns the authenticated user plus the derived profile state so clients
// can route on it instead of guessing from missing fields.
func Me(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var user models.User
	if err := db.UserCollection.FindOne(ctx, bson.M{"userid": userID}).Decode(&user); err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]any{
		"user":         user,
		"profileState": user.ProfileState(),
	})
}

// CompleteProfile fills the contact/credential fields that move a user from
// profile_incomplete to profile_complete.
func CompleteProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var input struct {
		FirstName     string `json:"firstName"`
		LastName      string `json:"lastName"`
		PhoneNumber   string `json:"phoneNumber"`
		Address       string `json:"address"`
		Organization  string `json:"organization"`
		LicenseNumber string `json:"licenseNumber"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}
	if input.FirstName == "" || input.PhoneNumber == "" {
		http.Error(w, "firstName and phoneNumber are required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	update := bson.M{
		"first_name":   input.FirstName,
		"last_name":    input.LastName,
		"name":         input.FirstName + " " + input.LastName,
		"phone_number": input.PhoneNumber,
		"updated_at":   time.Now(),
	}
	if input.Address != "" {
		update["address"] = input.Address
	}
	if input.Organization != "" {
		update["organization"] = input.Organization
	}
	if input.LicenseNumber != "" {
		update["license_number"] = input.LicenseNumber
	}

	if _, err := db.UserCollection.UpdateOne(ctx, bson.M{"userid": userID}, bson.M{"$set": update}); err != nil {
		http.Error(w, "Failed to update profile", http.StatusInternalServerError)
		return
	}

	var user models.User
	if err := db.UserCollection.FindOne(ctx, bson.M{"userid": userID}).Decode(&user); err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]any{
		"user":         user,
		"profileState": user.ProfileState(),
	})
}
