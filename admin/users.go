package admin

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

var assignableRoles = map[string]bool{
	models.RoleImporter: true,
	models.RoleSupplier: true,
	models.RoleFacility: true,
	models.RoleDoctor:   true,
	models.RolePatient:  true,
	models.RoleAdmin:    true,
}

// ListUsers pages through accounts, filterable by role and verification.
func ListUsers(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	filter := bson.M{}
	if role := r.URL.Query().Get("role"); role != "" {
		filter["role"] = role
	}
	if r.URL.Query().Get("unverified") == "true" {
		filter["is_verified"] = false
	}

	cursor, err := db.UserCollection.Find(ctx, filter,
		options.Find().SetSort(bson.M{"created_at": -1}).SetLimit(200))
	if err != nil {
		log.Println("ListUsers Find error:", err)
		http.Error(w, "Could not retrieve users", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		http.Error(w, "Error reading user data", http.StatusInternalServerError)
		return
	}
	if len(users) == 0 {
		users = []models.User{}
	}

	utils.RespondWithJSON(w, http.StatusOK, users)
}

// SetRoles replaces a user's role set.
func SetRoles(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	targetID := ps.ByName("userid")

	var input struct {
		Roles []string `json:"roles"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || len(input.Roles) == 0 {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	for _, role := range input.Roles {
		if !assignableRoles[role] {
			http.Error(w, "Unknown role: "+role, http.StatusBadRequest)
			return
		}
	}

	res, err := db.UserCollection.UpdateOne(ctx,
		bson.M{"userid": targetID},
		bson.M{"$set": bson.M{"role": input.Roles, "updated_at": time.Now()}})
	if err != nil {
		http.Error(w, "Failed to update user", http.StatusInternalServerError)
		return
	}
	if res.MatchedCount == 0 {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	mq.Emit(ctx, "user-roles-changed", models.Index{EntityType: "user", EntityId: targetID, Method: "PATCH"})
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// VerifyUser approves a seller or doctor account after credential review.
func VerifyUser(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	targetID := ps.ByName("userid")

	res, err := db.UserCollection.UpdateOne(ctx,
		bson.M{"userid": targetID},
		bson.M{"$set": bson.M{"is_verified": true, "updated_at": time.Now()}})
	if err != nil {
		http.Error(w, "Failed to update user", http.StatusInternalServerError)
		return
	}
	if res.MatchedCount == 0 {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	mq.Emit(ctx, "user-verified", models.Index{EntityType: "user", EntityId: targetID, Method: "PATCH"})
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}
