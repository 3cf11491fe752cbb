package cart

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
	"go.mongodb.org/mongo-driver/mongo"
)

// AddToCart merges a batch line into the user's cart. If the product line
// exists the batch quantity is incremented (or the batch appended); otherwise
// a new product line is inserted.
func AddToCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var input struct {
		ProductID   string           `json:"productId"`
		ProductName string           `json:"productName"`
		ProductType string           `json:"productType"`
		Batch       models.BatchItem `json:"batch"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		log.Println("AddToCart decode error:", err)
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if input.ProductID == "" || input.Batch.BatchID == "" || input.Batch.Quantity <= 0 || input.Batch.UnitPrice <= 0 {
		http.Error(w, "Missing or invalid fields", http.StatusBadRequest)
		return
	}
	if input.Batch.SellerID == "" {
		http.Error(w, "Batch is missing seller identity", http.StatusBadRequest)
		return
	}

	var item models.CartItem
	err := db.CartCollection.FindOne(ctx, bson.M{"userId": userID, "productId": input.ProductID}).Decode(&item)
	switch {
	case err == mongo.ErrNoDocuments:
		item = models.CartItem{
			UserID:      userID,
			ProductID:   input.ProductID,
			ProductName: input.ProductName,
			ProductType: input.ProductType,
			BatchItems:  []models.BatchItem{input.Batch},
			AddedAt:     time.Now(),
		}
		if _, err := db.CartCollection.InsertOne(ctx, item); err != nil {
			log.Println("AddToCart InsertOne error:", err)
			http.Error(w, "Failed to add to cart", http.StatusInternalServerError)
			return
		}
	case err != nil:
		log.Println("AddToCart FindOne error:", err)
		http.Error(w, "Failed to add to cart", http.StatusInternalServerError)
		return
	default:
		merged := false
		for i := range item.BatchItems {
			if item.BatchItems[i].BatchID == input.Batch.BatchID {
				item.BatchItems[i].Quantity += input.Batch.Quantity
				merged = true
				break
			}
		}
		if !merged {
			item.BatchItems = append(item.BatchItems, input.Batch)
		}
		if _, err := db.CartCollection.UpdateOne(ctx,
			bson.M{"userId": userID, "productId": input.ProductID},
			bson.M{"$set": bson.M{"batchItems": item.BatchItems}}); err != nil {
			log.Println("AddToCart UpdateOne error:", err)
			http.Error(w, "Failed to add to cart", http.StatusInternalServerError)
			return
		}
	}

	utils.RespondWithJSON(w, http.StatusCreated, map[string]string{"status": "added"})
}

// GetCart returns all cart lines for the user.
func GetCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	items, err := ItemsForUser(ctx, userID)
	if err != nil {
		log.Println("GetCart error:", err)
		http.Error(w, "Could not retrieve cart", http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, items)
}

// UpdateBatchQuantity sets the quantity on one batch line; zero removes it,
// and removing the last batch drops the product line.
func UpdateBatchQuantity(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var input struct {
		ProductID string `json:"productId"`
		BatchID   string `json:"batchId"`
		Quantity  int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.ProductID == "" || input.BatchID == "" || input.Quantity < 0 {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	var item models.CartItem
	if err := db.CartCollection.FindOne(ctx, bson.M{"userId": userID, "productId": input.ProductID}).Decode(&item); err != nil {
		http.Error(w, "Cart item not found", http.StatusNotFound)
		return
	}

	kept := item.BatchItems[:0]
	for _, b := range item.BatchItems {
		if b.BatchID == input.BatchID {
			if input.Quantity == 0 {
				continue
			}
			b.Quantity = input.Quantity
		}
		kept = append(kept, b)
	}

	if len(kept) == 0 {
		if _, err := db.CartCollection.DeleteOne(ctx, bson.M{"userId": userID, "productId": input.ProductID}); err != nil {
			http.Error(w, "Failed to update cart", http.StatusInternalServerError)
			return
		}
	} else {
		if _, err := db.CartCollection.UpdateOne(ctx,
			bson.M{"userId": userID, "productId": input.ProductID},
			bson.M{"$set": bson.M{"batchItems": kept}}); err != nil {
			http.Error(w, "Failed to update cart", http.StatusInternalServerError)
			return
		}
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// RemoveProduct drops one product line from the cart.
func RemoveProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := RemoveProductForUser(ctx, userID, ps.ByName("productid")); err != nil {
		log.Println("RemoveProduct error:", err)
		http.Error(w, "Failed to remove product", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ItemsForUser loads the user's cart lines.
func ItemsForUser(ctx context.Context, userID string) ([]models.CartItem, error) {
	cursor, err := db.CartCollection.Find(ctx, bson.M{"userId": userID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var items []models.CartItem
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		items = []models.CartItem{}
	}
	return items, nil
}

// RemoveProductForUser is the cleanup unit used after an order materializes:
// one call per distinct product id.
func RemoveProductForUser(ctx context.Context, userID, productID string) error {
	_, err := db.CartCollection.DeleteOne(ctx, bson.M{"userId": userID, "productId": productID})
	return err
}
