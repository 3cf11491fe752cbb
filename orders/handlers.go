package orders

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"meridia/db"
	"meridia/globals"
	"meridia/models"
	"meridia/mq"
	"meridia/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// legal forward moves in the order lifecycle, keyed by current status
var transitions = map[string][]string{
	models.OrderPendingConfirmation: {models.OrderConfirmed, models.OrderCancelled},
	models.OrderConfirmed:           {models.OrderReadyForPickup, models.OrderCancelled},
	models.OrderReadyForPickup:      {models.OrderCompleted},
}

func canTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func rolesFromRequest(r *http.Request) []string {
	roles, _ := r.Context().Value(globals.RoleKey).([]string)
	return roles
}

func hasRole(roles []string, want string) bool {
	for _, r := range roles {
		if r == want {
			return true
		}
	}
	return false
}

// ListOrders returns orders scoped to the caller: buyers see their purchases,
// sellers their sales, admins everything. ?side=sold flips a dual-role user
// to the seller view.
func ListOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	roles := rolesFromRequest(r)

	filter := bson.M{"buyer.userId": userID}
	switch {
	case hasRole(roles, models.RoleAdmin):
		filter = bson.M{}
	case r.URL.Query().Get("side") == "sold":
		filter = bson.M{"seller.userId": userID}
	}
	if status := r.URL.Query().Get("status"); status != "" {
		filter["status"] = status
	}

	cursor, err := db.OrderCollection.Find(ctx, filter,
		options.Find().SetSort(bson.M{"createdAt": -1}))
	if err != nil {
		log.Println("ListOrders Find error:", err)
		http.Error(w, "Could not retrieve orders", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(ctx)

	var results []models.Order
	if err := cursor.All(ctx, &results); err != nil {
		http.Error(w, "Error reading order data", http.StatusInternalServerError)
		return
	}
	if len(results) == 0 {
		results = []models.Order{}
	}

	utils.RespondWithJSON(w, http.StatusOK, results)
}

// GetOrder returns one order if the caller is its buyer, its seller or an
// admin.
func GetOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	order, err := loadForCaller(ctx, r, ps.ByName("orderid"))
	if err != nil {
		http.Error(w, "Order not found", http.StatusNotFound)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, order)
}

// UpdateStatus advances an order through its lifecycle. Sellers confirm and
// ready orders; completion releases the held payment, cancellation refunds it.
func UpdateStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	roles := rolesFromRequest(r)

	var input struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.Status == "" {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	order, err := loadForCaller(ctx, r, ps.ByName("orderid"))
	if err != nil {
		http.Error(w, "Order not found", http.StatusNotFound)
		return
	}

	if !canTransition(order.Status, input.Status) {
		http.Error(w, "Illegal status transition", http.StatusConflict)
		return
	}

	isAdmin := hasRole(roles, models.RoleAdmin)
	isSeller := order.Seller.UserID == userID
	isBuyer := order.Buyer.UserID == userID

	switch input.Status {
	case models.OrderConfirmed, models.OrderReadyForPickup:
		if !isSeller && !isAdmin {
			http.Error(w, "Only the seller can do that", http.StatusForbidden)
			return
		}
	case models.OrderCompleted:
		if !isBuyer && !isSeller && !isAdmin {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
	case models.OrderCancelled:
		if !isBuyer && !isSeller && !isAdmin {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
	}

	update := bson.M{"status": input.Status, "updatedAt": time.Now()}
	switch input.Status {
	case models.OrderCompleted:
		update["paymentStatus"] = models.PaymentReleased
	case models.OrderCancelled:
		update["paymentStatus"] = models.PaymentRefunded
	}

	if _, err := db.OrderCollection.UpdateOne(ctx,
		bson.M{"orderId": order.OrderID},
		bson.M{"$set": update}); err != nil {
		http.Error(w, "Failed to update order", http.StatusInternalServerError)
		return
	}

	mq.Emit(ctx, "order-status-changed", models.Index{EntityType: "order", EntityId: order.OrderID, Method: "PATCH"})
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": input.Status})
}

func loadForCaller(ctx context.Context, r *http.Request, orderID string) (models.Order, error) {
	userID := utils.GetUserIDFromRequest(r)
	roles := rolesFromRequest(r)

	filter := bson.M{"orderId": orderID}
	if !hasRole(roles, models.RoleAdmin) {
		filter["$or"] = []bson.M{
			{"buyer.userId": userID},
			{"seller.userId": userID},
		}
	}

	var order models.Order
	err := db.OrderCollection.FindOne(ctx, filter).Decode(&order)
	return order, err
}
