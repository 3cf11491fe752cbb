package inventory

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"meridia/db"
	"meridia/filemgr"
	"meridia/models"
	"meridia/mq"
	"meridia/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
)

// CreateProduct lists a new supply under the authenticated seller.
func CreateProduct(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var product models.Product
	if err := json.NewDecoder(r.Body).Decode(&product); err != nil {
		log.Println("CreateProduct decode error:", err)
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if product.Name == "" || product.ProductType == "" {
		http.Error(w, "Missing or invalid fields", http.StatusBadRequest)
		return
	}

	var seller models.User
	if err := db.UserCollection.FindOne(ctx, bson.M{"userid": userID}).Decode(&seller); err != nil {
		http.Error(w, "Seller not found", http.StatusUnauthorized)
		return
	}

	product.ProductID = "p" + utils.GenerateRandomString(12)
	product.SellerID = userID
	product.SellerName = seller.Name
	if product.SellerName == "" {
		product.SellerName = seller.Username
	}
	product.CreatedAt = time.Now()
	product.UpdatedAt = product.CreatedAt

	if _, err := db.ProductsCollection.InsertOne(ctx, product); err != nil {
		log.Println("CreateProduct InsertOne error:", err)
		http.Error(w, "Failed to create product", http.StatusInternalServerError)
		return
	}

	mq.Emit(ctx, "product-created", models.Index{EntityType: "product", EntityId: product.ProductID, Method: "POST"})

	utils.RespondWithJSON(w, http.StatusCreated, product)
}

// GetProducts lists products, optional ?sellerId=, ?type= and ?tags= filters.
func GetProducts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	filter := bson.M{}
	if sellerID := r.URL.Query().Get("sellerId"); sellerID != "" {
		filter["sellerId"] = sellerID
	}
	if ptype := r.URL.Query().Get("type"); ptype != "" {
		filter["productType"] = ptype
	}
	if tags := utils.SplitTags(r.URL.Query().Get("tags")); len(tags) > 0 {
		filter["tags"] = bson.M{"$all": tags}
	}

	cursor, err := db.ProductsCollection.Find(ctx, filter)
	if err != nil {
		log.Println("GetProducts Find error:", err)
		http.Error(w, "Could not retrieve products", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(ctx)

	var products []models.Product
	if err := cursor.All(ctx, &products); err != nil {
		http.Error(w, "Error reading product data", http.StatusInternalServerError)
		return
	}
	if len(products) == 0 {
		products = []models.Product{}
	}

	utils.RespondWithJSON(w, http.StatusOK, products)
}

// GetProduct returns one product with its purchasable (non-expired) batches.
func GetProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	productID := ps.ByName("productid")

	var product models.Product
	if err := db.ProductsCollection.FindOne(ctx, bson.M{"productId": productID}).Decode(&product); err != nil {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}

	batches, err := purchasableBatches(ctx, productID)
	if err != nil {
		log.Println("GetProduct batches error:", err)
		http.Error(w, "Could not retrieve batches", http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]any{
		"product": product,
		"batches": batches,
	})
}

// EditProduct updates mutable fields; only the owning seller may edit.
func EditProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	productID := ps.ByName("productid")

	var input struct {
		Name        string   `json:"name"`
		Description string   `json:"description"`
		Unit        string   `json:"unit"`
		Tags        []string `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	update := bson.M{"updatedAt": time.Now()}
	if input.Name != "" {
		update["name"] = input.Name
	}
	if input.Description != "" {
		update["description"] = input.Description
	}
	if input.Unit != "" {
		update["unit"] = input.Unit
	}
	if input.Tags != nil {
		update["tags"] = input.Tags
	}

	res, err := db.ProductsCollection.UpdateOne(ctx,
		bson.M{"productId": productID, "sellerId": userID},
		bson.M{"$set": update})
	if err != nil {
		http.Error(w, "Failed to update product", http.StatusInternalServerError)
		return
	}
	if res.MatchedCount == 0 {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}

	mq.Emit(ctx, "product-updated", models.Index{EntityType: "product", EntityId: productID, Method: "PUT"})
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// DeleteProduct removes a product and its batches; owner only.
func DeleteProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	productID := ps.ByName("productid")

	res, err := db.ProductsCollection.DeleteOne(ctx, bson.M{"productId": productID, "sellerId": userID})
	if err != nil {
		http.Error(w, "Failed to delete product", http.StatusInternalServerError)
		return
	}
	if res.DeletedCount == 0 {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}

	if _, err := db.BatchesCollection.DeleteMany(ctx, bson.M{"productId": productID}); err != nil {
		log.Println("DeleteProduct batch cleanup error:", err)
	}

	mq.Emit(ctx, "product-deleted", models.Index{EntityType: "product", EntityId: productID, Method: "DELETE"})
	w.WriteHeader(http.StatusNoContent)
}

// UploadProductPhoto stores the product image and a thumbnail.
func UploadProductPhoto(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	productID := ps.ByName("productid")

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}
	files := r.MultipartForm.File["photo"]
	if len(files) == 0 {
		http.Error(w, "Missing photo", http.StatusBadRequest)
		return
	}
	file, err := files[0].Open()
	if err != nil {
		http.Error(w, "Failed to read photo", http.StatusBadRequest)
		return
	}

	origName, thumbName, err := filemgr.SaveImageWithThumb(file, files[0], filemgr.EntityProduct, 320)
	if err != nil {
		log.Println("UploadProductPhoto save error:", err)
		http.Error(w, "Failed to save photo", http.StatusInternalServerError)
		return
	}

	res, err := db.ProductsCollection.UpdateOne(ctx,
		bson.M{"productId": productID, "sellerId": userID},
		bson.M{"$set": bson.M{"photo": origName, "thumb": thumbName, "updatedAt": time.Now()}})
	if err != nil {
		http.Error(w, "Failed to update product", http.StatusInternalServerError)
		return
	}
	if res.MatchedCount == 0 {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"photo": origName, "thumb": thumbName})
}
