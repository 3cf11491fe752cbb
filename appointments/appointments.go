package appointments

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"meridia/db"
	"meridia/models"
	"meridia/mq"
	"meridia/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Notify pushes appointment updates into the live chat room for the visit.
// Wired at startup; nil is fine for tests and workers.
var Notify func(room string, payload any)

func notifyRoom(appointmentID string, payload any) {
	if Notify != nil {
		Notify("appointment:"+appointmentID, payload)
	}
}

// legal forward moves in the appointment lifecycle
var transitions = map[string][]string{
	models.AppointmentPending:    {models.AppointmentConfirmed, models.AppointmentCancelled},
	models.AppointmentConfirmed:  {models.AppointmentInProgress, models.AppointmentCancelled},
	models.AppointmentInProgress: {models.AppointmentCompleted},
}

func canTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Book reserves a seat in a slot and creates a pending appointment for the
// authenticated patient.
func Book(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	patientID := utils.GetUserIDFromRequest(r)

	var input struct {
		SlotID      string `json:"slotId"`
		DurationMin int    `json:"durationMin"`
		Reason      string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.SlotID == "" {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if input.DurationMin <= 0 {
		input.DurationMin = 30
	}

	slot, reserved, err := reserveSlot(ctx, input.SlotID)
	if err != nil {
		log.Println("Book reserveSlot error:", err)
		http.Error(w, "Failed to book appointment", http.StatusInternalServerError)
		return
	}
	if !reserved {
		http.Error(w, "Slot is no longer available", http.StatusConflict)
		return
	}

	var patient, doctor models.User
	if err := db.UserCollection.FindOne(ctx, bson.M{"userid": patientID}).Decode(&patient); err != nil {
		http.Error(w, "User not found", http.StatusUnauthorized)
		return
	}
	if err := db.UserCollection.FindOne(ctx, bson.M{"userid": slot.DoctorID}).Decode(&doctor); err != nil {
		http.Error(w, "Doctor not found", http.StatusNotFound)
		return
	}

	now := time.Now()
	appt := models.Appointment{
		ID:          "a" + utils.GenerateRandomString(12),
		SlotID:      slot.ID,
		DoctorID:    doctor.UserID,
		DoctorName:  doctor.Name,
		PatientID:   patient.UserID,
		PatientName: patient.Name,
		Date:        slot.Date,
		Start:       slot.Start,
		DurationMin: input.DurationMin,
		Reason:      input.Reason,
		Status:      models.AppointmentPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := db.AppointmentsCollection.InsertOne(ctx, appt); err != nil {
		log.Println("Book InsertOne error:", err)
		http.Error(w, "Failed to book appointment", http.StatusInternalServerError)
		return
	}

	mq.Emit(ctx, "appointment-booked", models.Index{EntityType: "appointment", EntityId: appt.ID, Method: "POST"})
	utils.RespondWithJSON(w, http.StatusCreated, appt)
}

// List returns the caller's appointments, doctor or patient side.
func List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)

	filter := bson.M{"$or": []bson.M{
		{"doctorId": userID},
		{"patientId": userID},
	}}
	if status := r.URL.Query().Get("status"); status != "" {
		filter["status"] = status
	}

	cursor, err := db.AppointmentsCollection.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "start", Value: 1}}))
	if err != nil {
		http.Error(w, "Could not retrieve appointments", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(ctx)

	var appts []models.Appointment
	if err := cursor.All(ctx, &appts); err != nil {
		http.Error(w, "Error reading appointment data", http.StatusInternalServerError)
		return
	}
	if len(appts) == 0 {
		appts = []models.Appointment{}
	}

	utils.RespondWithJSON(w, http.StatusOK, appts)
}

// Get returns one appointment for a participant.
func Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	appt, err := loadForParticipant(ctx, utils.GetUserIDFromRequest(r), ps.ByName("appointmentid"))
	if err != nil {
		http.Error(w, "Appointment not found", http.StatusNotFound)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, appt)
}

// UpdateStatus walks the lifecycle. Doctors confirm, start and complete;
// either side may cancel before the visit starts.
func UpdateStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)

	var input struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.Status == "" {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	appt, err := loadForParticipant(ctx, userID, ps.ByName("appointmentid"))
	if err != nil {
		http.Error(w, "Appointment not found", http.StatusNotFound)
		return
	}

	if !canTransition(appt.Status, input.Status) {
		http.Error(w, "Illegal status transition", http.StatusConflict)
		return
	}

	switch input.Status {
	case models.AppointmentConfirmed, models.AppointmentInProgress, models.AppointmentCompleted:
		if appt.DoctorID != userID {
			http.Error(w, "Only the doctor can do that", http.StatusForbidden)
			return
		}
	}

	if _, err := db.AppointmentsCollection.UpdateOne(ctx,
		bson.M{"id": appt.ID},
		bson.M{"$set": bson.M{"status": input.Status, "updatedAt": time.Now()}}); err != nil {
		http.Error(w, "Failed to update appointment", http.StatusInternalServerError)
		return
	}

	notifyRoom(appt.ID, map[string]string{"event": "status", "status": input.Status})
	mq.Emit(ctx, "appointment-status-changed", models.Index{EntityType: "appointment", EntityId: appt.ID, Method: "PATCH"})
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": input.Status})
}

func loadForParticipant(ctx context.Context, userID, appointmentID string) (models.Appointment, error) {
	var appt models.Appointment
	err := db.AppointmentsCollection.FindOne(ctx, bson.M{
		"id": appointmentID,
		"$or": []bson.M{
			{"doctorId": userID},
			{"patientId": userID},
		},
	}).Decode(&appt)
	return appt, err
}
