package orders

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"meridia/cart"
	"meridia/db"
	"meridia/inventory"
	"meridia/models"
	"meridia/utils"

	"go.mongodb.org/mongo-driver/bson"
)

// Materializer turns a paid draft into the server-owned order record. The
// collaborators are function fields so tests run without mongo.
type Materializer struct {
	InsertOrder    func(ctx context.Context, order models.Order) error
	LookupUser     func(ctx context.Context, userID string) (models.User, error)
	DecrementStock func(ctx context.Context, batchID string, qty int) (bool, error)
	RemoveFromCart func(ctx context.Context, userID, productID string) error
}

func NewMaterializer() *Materializer {
	return &Materializer{
		InsertOrder: func(ctx context.Context, order models.Order) error {
			_, err := db.OrderCollection.InsertOne(ctx, order)
			return err
		},
		LookupUser: func(ctx context.Context, userID string) (models.User, error) {
			var u models.User
			err := db.UserCollection.FindOne(ctx, bson.M{"userid": userID}).Decode(&u)
			return u, err
		},
		DecrementStock: inventory.DecrementStock,
		RemoveFromCart: cart.RemoveProductForUser,
	}
}

// Materialize validates and persists one order. Validation failures abort
// this order with the message intact; cart cleanup failures are logged and
// swallowed because the order already exists.
func (m *Materializer) Materialize(ctx context.Context, userID string, draft models.DraftOrder, txRef, transactionID string) (models.Order, error) {
	if len(draft.Items) == 0 {
		return models.Order{}, errors.New("order has no items")
	}
	if draft.TotalCost <= 0 {
		return models.Order{}, errors.New("order total must be positive")
	}
	if draft.PickupDate == "" {
		return models.Order{}, errors.New("pickup date is required")
	}
	if draft.BuyerID != userID {
		return models.Order{}, errors.New("order does not belong to this buyer")
	}

	buyer, err := m.LookupUser(ctx, draft.BuyerID)
	if err != nil {
		return models.Order{}, fmt.Errorf("buyer lookup: %w", err)
	}
	seller, err := m.LookupUser(ctx, draft.SellerID)
	if err != nil {
		return models.Order{}, fmt.Errorf("seller lookup: %w", err)
	}

	now := time.Now()
	order := models.Order{
		OrderID:     "o" + utils.GenerateRandomString(12),
		OrderNumber: "ORD-" + now.Format("20060102") + "-" + utils.GenerateRandomDigitString(6),
		Buyer: models.ContactInfo{
			UserID:      buyer.UserID,
			Name:        contactName(buyer, draft.BuyerName),
			Email:       buyer.Email,
			PhoneNumber: buyer.PhoneNumber,
			Address:     buyer.Address,
		},
		Seller: models.ContactInfo{
			UserID:      seller.UserID,
			Name:        contactName(seller, draft.SellerName),
			Email:       seller.Email,
			PhoneNumber: seller.PhoneNumber,
			Address:     seller.Address,
		},
		Items:         draft.Items,
		TotalItems:    draft.TotalItems,
		TotalCost:     draft.TotalCost,
		Status:        models.OrderPendingConfirmation,
		PaymentStatus: models.PaymentHeldBySystem,
		TransactionID: transactionID,
		TxRef:         txRef,
		PickupDate:    draft.PickupDate,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := m.InsertOrder(ctx, order); err != nil {
		return models.Order{}, fmt.Errorf("insert order: %w", err)
	}

	for _, item := range order.Items {
		for _, b := range item.BatchItems {
			ok, err := m.DecrementStock(ctx, b.BatchID, b.Quantity)
			if err != nil {
				log.Printf("order %s: decrement batch %s: %v", order.OrderID, b.BatchID, err)
			} else if !ok {
				log.Printf("order %s: batch %s oversold", order.OrderID, b.BatchID)
			}
		}
	}

	// Cleanup is one call per product line. A failed removal leaves a stale
	// cart line, never a broken order.
	for _, item := range order.Items {
		if err := m.RemoveFromCart(ctx, userID, item.ProductID); err != nil {
			log.Printf("order %s: cart cleanup for product %s: %v", order.OrderID, item.ProductID, err)
		}
	}

	return order, nil
}

func contactName(u models.User, fallback string) string {
	if u.Name != "" {
		return u.Name
	}
	if fallback != "" {
		return fallback
	}
	return u.Username
}
