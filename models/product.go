package models

import "time"

// Product is a supply listed by a supplier or importer.
type Product struct {
	ProductID   string    `json:"productId" bson:"productId"`
	SellerID    string    `json:"sellerId" bson:"sellerId"`
	SellerName  string    `json:"sellerName" bson:"sellerName"`
	Name        string    `json:"name" bson:"name"`
	ProductType string    `json:"productType" bson:"productType"` // e.g. "consumable", "equipment", "pharmaceutical"
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	Unit        string    `json:"unit,omitempty" bson:"unit,omitempty"`
	Photo       string    `json:"photo,omitempty" bson:"photo,omitempty"`
	Thumb       string    `json:"thumb,omitempty" bson:"thumb,omitempty"`
	Tags        []string  `json:"tags,omitempty" bson:"tags,omitempty"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Batch is a dated lot of a product. Stock and pricing live here, not on the
// product, because supplies are sold per lot with expiry tracking.
type Batch struct {
	BatchID    string    `json:"batchId" bson:"batchId"`
	ProductID  string    `json:"productId" bson:"productId"`
	SellerID   string    `json:"sellerId" bson:"sellerId"`
	LotNumber  string    `json:"lotNumber,omitempty" bson:"lotNumber,omitempty"`
	Quantity   int       `json:"quantity" bson:"quantity"`
	UnitPrice  float64   `json:"unitPrice" bson:"unitPrice"`
	ExpiryDate time.Time `json:"expiryDate" bson:"expiryDate"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt"`
}

func (b *Batch) Expired(now time.Time) bool {
	return !b.ExpiryDate.IsZero() && b.ExpiryDate.Before(now)
}
