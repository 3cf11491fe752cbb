package models

import "time"

// Order status values mirror the backend lifecycle. New paid orders always
// enter PENDING_CONFIRMATION with the payment held by the platform.
const (
	OrderPendingConfirmation = "PENDING_CONFIRMATION"
	OrderConfirmed           = "CONFIRMED"
	OrderReadyForPickup      = "READY_FOR_PICKUP"
	OrderCompleted           = "COMPLETED"
	OrderCancelled           = "CANCELLED"

	PaymentHeldBySystem = "PAID_HELD_BY_SYSTEM"
	PaymentReleased     = "RELEASED_TO_SELLER"
	PaymentRefunded     = "REFUNDED"
)

// PendingOrderID tags a synthetic, time-based draft identifier. It is only
// unique within one aggregation pass and must never be stored or displayed as
// a real order id; the server-assigned id replaces it at materialization.
type PendingOrderID string

func (p PendingOrderID) String() string { return string(p) }

// ContactInfo is the buyer/seller contact block embedded in an order.
type ContactInfo struct {
	UserID      string `json:"userId" bson:"userId"`
	Name        string `json:"name" bson:"name"`
	Email       string `json:"email,omitempty" bson:"email,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty" bson:"phoneNumber,omitempty"`
	Address     string `json:"address,omitempty" bson:"address,omitempty"`
}

// OrderBatchItem carries the lot detail for one purchased batch.
type OrderBatchItem struct {
	BatchID    string    `json:"batchId" bson:"batchId"`
	LotNumber  string    `json:"lotNumber,omitempty" bson:"lotNumber,omitempty"`
	Quantity   int       `json:"quantity" bson:"quantity"`
	UnitPrice  float64   `json:"unitPrice" bson:"unitPrice"`
	ExpiryDate time.Time `json:"expiryDate" bson:"expiryDate"`
}

// OrderItem is one product line inside an order.
type OrderItem struct {
	ProductID     string           `json:"productId" bson:"productId"`
	ProductName   string           `json:"productName" bson:"productName"`
	ProductType   string           `json:"productType" bson:"productType"`
	BatchItems    []OrderBatchItem `json:"batchItems" bson:"batchItems"`
	TotalQuantity int              `json:"totalQuantity" bson:"totalQuantity"`
	TotalCost     float64          `json:"totalCost" bson:"totalCost"`
}

// DraftOrder is built fresh from the live cart on every aggregation pass, one
// per distinct seller, and discarded once the server-created order replaces it.
type DraftOrder struct {
	DraftID    PendingOrderID `json:"draftId"`
	BuyerID    string         `json:"buyerId"`
	BuyerName  string         `json:"buyerName"`
	SellerID   string         `json:"sellerId"`
	SellerName string         `json:"sellerName"`
	Items      []OrderItem    `json:"items"`
	TotalItems int            `json:"totalItems"`
	TotalCost  float64        `json:"totalCost"`
	Status     string         `json:"status"` // always "PENDING" pre-materialization
	PickupDate string         `json:"pickupDate,omitempty"`
}

// Order is the server-owned record created after verified payment.
type Order struct {
	OrderID       string      `json:"orderId" bson:"orderId"`
	OrderNumber   string      `json:"orderNumber" bson:"orderNumber"`
	Buyer         ContactInfo `json:"buyer" bson:"buyer"`
	Seller        ContactInfo `json:"seller" bson:"seller"`
	Items         []OrderItem `json:"items" bson:"items"`
	TotalItems    int         `json:"totalItems" bson:"totalItems"`
	TotalCost     float64     `json:"totalCost" bson:"totalCost"`
	Status        string      `json:"status" bson:"status"`
	PaymentStatus string      `json:"paymentStatus" bson:"paymentStatus"`
	TransactionID string      `json:"transactionId" bson:"transactionId"`
	TxRef         string      `json:"txRef" bson:"txRef"`
	PickupDate    string      `json:"pickupDate" bson:"pickupDate"`
	CreatedAt     time.Time   `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt" bson:"updatedAt"`
}
