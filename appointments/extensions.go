package appointments

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"meridia/db"
	"meridia/models"
	"meridia/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const maxExtensionMinutes = 60

// RequestExtension asks the other participant for extra minutes. Only valid
// while the consultation is running.
func RequestExtension(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)

	var input struct {
		ExtraMinutes int `json:"extraMinutes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.ExtraMinutes <= 0 {
		http.Error(w, "extraMinutes must be positive", http.StatusBadRequest)
		return
	}
	if input.ExtraMinutes > maxExtensionMinutes {
		http.Error(w, "extraMinutes exceeds the allowed maximum", http.StatusBadRequest)
		return
	}

	appt, err := loadForParticipant(ctx, userID, ps.ByName("appointmentid"))
	if err != nil {
		http.Error(w, "Appointment not found", http.StatusNotFound)
		return
	}
	if appt.Status != models.AppointmentInProgress {
		http.Error(w, "Extensions only apply to a running consultation", http.StatusConflict)
		return
	}

	// One open request at a time per appointment.
	count, err := db.ExtensionsCollection.CountDocuments(ctx, bson.M{
		"appointmentId": appt.ID,
		"status":        models.ExtensionRequested,
	})
	if err == nil && count > 0 {
		http.Error(w, "An extension request is already pending", http.StatusConflict)
		return
	}

	ext := models.ExtensionRequest{
		ID:            "x" + utils.GenerateRandomString(12),
		AppointmentID: appt.ID,
		RequestedBy:   userID,
		ExtraMinutes:  input.ExtraMinutes,
		Status:        models.ExtensionRequested,
		CreatedAt:     time.Now(),
	}
	if _, err := db.ExtensionsCollection.InsertOne(ctx, ext); err != nil {
		log.Println("RequestExtension InsertOne error:", err)
		http.Error(w, "Failed to create extension request", http.StatusInternalServerError)
		return
	}

	notifyRoom(appt.ID, map[string]any{
		"event":        "extension-requested",
		"extensionId":  ext.ID,
		"extraMinutes": ext.ExtraMinutes,
		"requestedBy":  ext.RequestedBy,
	})
	utils.RespondWithJSON(w, http.StatusCreated, ext)
}

// DecideExtension accepts or declines a pending request. Only the participant
// who did not raise it may decide; accepting stretches the appointment.
func DecideExtension(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)

	var input struct {
		Accept bool `json:"accept"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	var ext models.ExtensionRequest
	if err := db.ExtensionsCollection.FindOne(ctx, bson.M{"id": ps.ByName("extensionid")}).Decode(&ext); err != nil {
		http.Error(w, "Extension request not found", http.StatusNotFound)
		return
	}
	if ext.Status != models.ExtensionRequested {
		http.Error(w, "Extension request already decided", http.StatusConflict)
		return
	}

	appt, err := loadForParticipant(ctx, userID, ext.AppointmentID)
	if err != nil {
		http.Error(w, "Appointment not found", http.StatusNotFound)
		return
	}
	if ext.RequestedBy == userID {
		http.Error(w, "You cannot decide your own request", http.StatusForbidden)
		return
	}

	status := models.ExtensionDeclined
	if input.Accept {
		status = models.ExtensionAccepted
	}

	if _, err := db.ExtensionsCollection.UpdateOne(ctx,
		bson.M{"id": ext.ID},
		bson.M{"$set": bson.M{"status": status, "decidedBy": userID, "decidedAt": time.Now()}}); err != nil {
		http.Error(w, "Failed to update extension request", http.StatusInternalServerError)
		return
	}

	if input.Accept {
		if _, err := db.AppointmentsCollection.UpdateOne(ctx,
			bson.M{"id": appt.ID},
			bson.M{"$inc": bson.M{"durationMin": ext.ExtraMinutes},
				"$set": bson.M{"updatedAt": time.Now()}}); err != nil {
			log.Println("DecideExtension stretch error:", err)
		}
	}

	notifyRoom(appt.ID, map[string]any{
		"event":       "extension-decided",
		"extensionId": ext.ID,
		"status":      status,
	})
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": status})
}

// ListExtensions returns an appointment's extension history.
func ListExtensions(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	appt, err := loadForParticipant(ctx, utils.GetUserIDFromRequest(r), ps.ByName("appointmentid"))
	if err != nil {
		http.Error(w, "Appointment not found", http.StatusNotFound)
		return
	}

	cursor, err := db.ExtensionsCollection.Find(ctx, bson.M{"appointmentId": appt.ID},
		options.Find().SetSort(bson.M{"createdAt": 1}))
	if err != nil {
		http.Error(w, "Could not retrieve extensions", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(ctx)

	var exts []models.ExtensionRequest
	if err := cursor.All(ctx, &exts); err != nil {
		http.Error(w, "Error reading extension data", http.StatusInternalServerError)
		return
	}
	if len(exts) == 0 {
		exts = []models.ExtensionRequest{}
	}

	utils.RespondWithJSON(w, http.StatusOK, exts)
}
