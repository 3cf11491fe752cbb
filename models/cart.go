package models

import "time"

// BatchItem is one lot of a product sitting in the cart. Seller identity is
// denormalized onto every batch line so checkout can group by seller without
// extra lookups.
type BatchItem struct {
	BatchID    string    `json:"batchId" bson:"batchId"`
	Quantity   int       `json:"quantity" bson:"quantity"`
	UnitPrice  float64   `json:"unitPrice" bson:"unitPrice"`
	SellerID   string    `json:"sellerId" bson:"sellerId"`
	SellerName string    `json:"sellerName" bson:"sellerName"`
	LotNumber  string    `json:"lotNumber,omitempty" bson:"lotNumber,omitempty"`
	ExpiryDate time.Time `json:"expiryDate" bson:"expiryDate"`
}

// CartItem represents a product line in the user's cart.
type CartItem struct {
	UserID      string      `json:"userId" bson:"userId"`
	ProductID   string      `json:"productId" bson:"productId"`
	ProductName string      `json:"productName" bson:"productName"`
	ProductType string      `json:"productType" bson:"productType"`
	BatchItems  []BatchItem `json:"batchItems" bson:"batchItems"`
	AddedAt     time.Time   `json:"addedAt" bson:"addedAt"`
}

// Subtotal sums quantity*unitPrice across the line's batches.
func (c *CartItem) Subtotal() float64 {
	var total float64
	for _, b := range c.BatchItems {
		total += float64(b.Quantity) * b.UnitPrice
	}
	return total
}

// TotalQuantity sums batch quantities for the line.
func (c *CartItem) TotalQuantity() int {
	var n int
	for _, b := range c.BatchItems {
		n += b.Quantity
	}
	return n
}
