package inventory

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

// purchasableBatches returns batches with stock left and an expiry in the
// future. Expired lots stay in the collection for audit but never in listings.
func purchasableBatches(ctx context.Context, productID string) ([]models.Batch, error) {
	cursor, err := db.BatchesCollection.Find(ctx, bson.M{
		"productId":  productID,
		"quantity":   bson.M{"$gt": 0},
		"expiryDate": bson.M{"$gt": time.Now()},
	}, options.Find().SetSort(bson.M{"expiryDate": 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var batches []models.Batch
	if err := cursor.All(ctx, &batches); err != nil {
		return nil, err
	}
	if len(batches) == 0 {
		batches = []models.Batch{}
	}
	return batches, nil
}

// CreateBatch adds a lot to one of the seller's products.
func CreateBatch(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	productID := ps.ByName("productid")

	var batch models.Batch
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if batch.Quantity <= 0 || batch.UnitPrice <= 0 || batch.ExpiryDate.IsZero() {
		http.Error(w, "Missing or invalid fields", http.StatusBadRequest)
		return
	}
	if batch.Expired(time.Now()) {
		http.Error(w, "Expiry date is in the past", http.StatusBadRequest)
		return
	}

	// The product must exist and belong to the caller.
	var product models.Product
	err := db.ProductsCollection.FindOne(ctx, bson.M{"productId": productID, "sellerId": userID}).Decode(&product)
	if err != nil {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}

	batch.BatchID = "b" + utils.GenerateRandomString(12)
	batch.ProductID = productID
	batch.SellerID = userID
	batch.CreatedAt = time.Now()

	if _, err := db.BatchesCollection.InsertOne(ctx, batch); err != nil {
		log.Println("CreateBatch InsertOne error:", err)
		http.Error(w, "Failed to create batch", http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, batch)
}

// GetBatches lists all batches of a product (seller view, expired included).
func GetBatches(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	productID := ps.ByName("productid")

	cursor, err := db.BatchesCollection.Find(ctx, bson.M{"productId": productID},
		options.Find().SetSort(bson.M{"expiryDate": 1}))
	if err != nil {
		http.Error(w, "Could not retrieve batches", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(ctx)

	var batches []models.Batch
	if err := cursor.All(ctx, &batches); err != nil {
		http.Error(w, "Error reading batch data", http.StatusInternalServerError)
		return
	}
	if len(batches) == 0 {
		batches = []models.Batch{}
	}

	utils.RespondWithJSON(w, http.StatusOK, batches)
}

// EditBatch adjusts quantity or price on a lot; owner only.
func EditBatch(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	batchID := ps.ByName("batchid")

	var input struct {
		Quantity  *int     `json:"quantity"`
		UnitPrice *float64 `json:"unitPrice"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	update := bson.M{}
	if input.Quantity != nil {
		if *input.Quantity < 0 {
			http.Error(w, "Quantity cannot be negative", http.StatusBadRequest)
			return
		}
		update["quantity"] = *input.Quantity
	}
	if input.UnitPrice != nil {
		if *input.UnitPrice <= 0 {
			http.Error(w, "Price must be positive", http.StatusBadRequest)
			return
		}
		update["unitPrice"] = *input.UnitPrice
	}
	if len(update) == 0 {
		http.Error(w, "Nothing to update", http.StatusBadRequest)
		return
	}

	res, err := db.BatchesCollection.UpdateOne(ctx,
		bson.M{"batchId": batchID, "sellerId": userID},
		bson.M{"$set": update})
	if err != nil {
		http.Error(w, "Failed to update batch", http.StatusInternalServerError)
		return
	}
	if res.MatchedCount == 0 {
		http.Error(w, "Batch not found", http.StatusNotFound)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// DeleteBatch removes a lot; owner only.
func DeleteBatch(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	batchID := ps.ByName("batchid")

	res, err := db.BatchesCollection.DeleteOne(ctx, bson.M{"batchId": batchID, "sellerId": userID})
	if err != nil {
		http.Error(w, "Failed to delete batch", http.StatusInternalServerError)
		return
	}
	if res.DeletedCount == 0 {
		http.Error(w, "Batch not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DecrementStock reduces a batch's quantity after a sale. It refuses to go
// negative; callers treat a false return as sold out.
func DecrementStock(ctx context.Context, batchID string, qty int) (bool, error) {
	res, err := db.BatchesCollection.UpdateOne(ctx,
		bson.M{"batchId": batchID, "quantity": bson.M{"$gte": qty}},
		bson.M{"$inc": bson.M{"quantity": -qty}})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}
