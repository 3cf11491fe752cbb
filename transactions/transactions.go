package transactions

import (
	"context"
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

// ListMine returns the caller's transactions, newest first.
func ListMine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	list, err := find(ctx, bson.M{"userid": userID})
	if err != nil {
		log.Println("ListMine transactions error:", err)
		http.Error(w, "Could not retrieve transactions", http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, list)
}

// ListAll is the admin reconciliation view, filterable by state and user.
func ListAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	filter := bson.M{}
	if state := r.URL.Query().Get("state"); state != "" {
		filter["state"] = state
	}
	if userID := r.URL.Query().Get("userId"); userID != "" {
		filter["userid"] = userID
	}

	list, err := find(ctx, filter)
	if err != nil {
		log.Println("ListAll transactions error:", err)
		http.Error(w, "Could not retrieve transactions", http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, list)
}

// Get returns one transaction by txRef, owner or admin only (route-scoped).
func Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	txRef := ps.ByName("txref")

	var txn models.Transaction
	if err := db.TransactionCollection.FindOne(ctx, bson.M{"txref": txRef, "userid": userID}).Decode(&txn); err != nil {
		http.Error(w, "Transaction not found", http.StatusNotFound)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, txn)
}

func find(ctx context.Context, filter bson.M) ([]models.Transaction, error) {
	cursor, err := db.TransactionCollection.Find(ctx, filter,
		options.Find().SetSort(bson.M{"created_at": -1}).SetLimit(200))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var list []models.Transaction
	if err := cursor.All(ctx, &list); err != nil {
		return nil, err
	}
	if len(list) == 0 {
		list = []models.Transaction{}
	}
	return list, nil
}
