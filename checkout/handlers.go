package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"meridia/cart"
	"meridia/db"
	"meridia/models"
	"meridia/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
)

// StartCheckout rebuilds draft orders from the live cart and opens a fresh
// session on the summary step. Any previous session is replaced.
func StartCheckout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var buyer models.User
	if err := db.UserCollection.FindOne(ctx, bson.M{"userid": userID}).Decode(&buyer); err != nil {
		http.Error(w, "User not found", http.StatusUnauthorized)
		return
	}
	if buyer.ProfileState() != models.ProfileComplete {
		http.Error(w, "Complete your profile before checkout", http.StatusForbidden)
		return
	}

	items, err := cart.ItemsForUser(ctx, userID)
	if err != nil {
		log.Println("StartCheckout cart error:", err)
		http.Error(w, "Could not retrieve cart", http.StatusInternalServerError)
		return
	}
	if len(items) == 0 {
		http.Error(w, "Cart is empty", http.StatusBadRequest)
		return
	}

	drafts := Aggregate(items, buyer, time.Now())
	session := NewSession(userID, drafts)
	if err := SaveSession(session); err != nil {
		log.Println("StartCheckout save session error:", err)
		http.Error(w, "Could not start checkout", http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, session)
}

// GetCheckout returns the current session.
func GetCheckout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	session, err := LoadSession(userID)
	if err != nil {
		http.Error(w, "No active checkout", http.StatusNotFound)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, session)
}

// SetPickupDate sets the pickup date on one draft while still on the summary
// step.
func SetPickupDate(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var input struct {
		DraftID    string `json:"draftId"`
		PickupDate string `json:"pickupDate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.DraftID == "" || input.PickupDate == "" {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if _, err := time.Parse("2006-01-02", input.PickupDate); err != nil {
		http.Error(w, "pickupDate must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	session, err := LoadSession(userID)
	if err != nil {
		http.Error(w, "No active checkout", http.StatusNotFound)
		return
	}

	if err := session.SetPickupDate(models.PendingOrderID(input.DraftID), input.PickupDate); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := SaveSession(session); err != nil {
		http.Error(w, "Could not save checkout", http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, session)
}

// AdvanceStep moves the session between summary, payment and confirmation.
// Forward gates return 409 so clients can surface what is still missing.
func AdvanceStep(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var input struct {
		Step string `json:"step"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.Step == "" {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	session, err := LoadSession(userID)
	if err != nil {
		http.Error(w, "No active checkout", http.StatusNotFound)
		return
	}

	if err := session.Advance(input.Step); err != nil {
		status := http.StatusConflict
		if errors.Is(err, ErrUnknownStep) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}
	if err := SaveSession(session); err != nil {
		http.Error(w, "Could not save checkout", http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, session)
}

// CancelCheckout drops the session without touching the cart.
func CancelCheckout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	DeleteSession(userID)
	w.WriteHeader(http.StatusNoContent)
}
