package appointments

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"meridia/db"
	"meridia/models"
	"meridia/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CreateSlot publishes a bookable window for the authenticated doctor.
func CreateSlot(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	doctorID := utils.GetUserIDFromRequest(r)

	var slot models.Slot
	if err := json.NewDecoder(r.Body).Decode(&slot); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if slot.Date == "" || slot.Start == "" {
		http.Error(w, "date and start are required", http.StatusBadRequest)
		return
	}
	if _, err := time.Parse("2006-01-02", slot.Date); err != nil {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	if slot.Capacity <= 0 {
		slot.Capacity = 1
	}

	slot.ID = "s" + utils.GenerateRandomString(12)
	slot.DoctorID = doctorID
	slot.CreatedAt = time.Now().UnixMilli()

	if _, err := db.SlotCollection.InsertOne(ctx, slot); err != nil {
		log.Println("CreateSlot InsertOne error:", err)
		http.Error(w, "Failed to create slot", http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, slot)
}

// GetSlots lists a doctor's open windows from a given date on.
func GetSlots(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	filter := bson.M{"doctorId": ps.ByName("doctorid")}
	from := r.URL.Query().Get("from")
	if from == "" {
		from = time.Now().Format("2006-01-02")
	}
	filter["date"] = bson.M{"$gte": from}

	cursor, err := db.SlotCollection.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "start", Value: 1}}))
	if err != nil {
		http.Error(w, "Could not retrieve slots", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(ctx)

	var slots []models.Slot
	if err := cursor.All(ctx, &slots); err != nil {
		http.Error(w, "Error reading slot data", http.StatusInternalServerError)
		return
	}
	if len(slots) == 0 {
		slots = []models.Slot{}
	}

	utils.RespondWithJSON(w, http.StatusOK, slots)
}

// DeleteSlot removes one of the caller's windows.
func DeleteSlot(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	doctorID := utils.GetUserIDFromRequest(r)

	res, err := db.SlotCollection.DeleteOne(ctx, bson.M{"id": ps.ByName("slotid"), "doctorId": doctorID})
	if err != nil {
		http.Error(w, "Failed to delete slot", http.StatusInternalServerError)
		return
	}
	if res.DeletedCount == 0 {
		http.Error(w, "Slot not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// reserveSlot atomically takes one seat; false means the window filled up.
func reserveSlot(ctx context.Context, slotID string) (models.Slot, bool, error) {
	var slot models.Slot
	err := db.SlotCollection.FindOneAndUpdate(ctx,
		bson.M{"id": slotID, "capacity": bson.M{"$gt": 0}},
		bson.M{"$inc": bson.M{"capacity": -1}}).Decode(&slot)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Slot{}, false, nil
		}
		return models.Slot{}, false, err
	}
	return slot, true, nil
}
