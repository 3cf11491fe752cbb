package models

import "time"

// CustomerInfo is the buyer contact block sent to the gateway at initialize.
type CustomerInfo struct {
	Email       string `json:"email" bson:"email"`
	FirstName   string `json:"firstName" bson:"firstName"`
	LastName    string `json:"lastName" bson:"lastName"`
	PhoneNumber string `json:"phoneNumber" bson:"phoneNumber"`
}

// PaymentSession is one hosted-checkout attempt for a draft order. Its
// lifetime is bounded by the buyer's visit to the checkout page or the
// monitor's overall ceiling, whichever ends first.
type PaymentSession struct {
	TxRef       string         `json:"txRef" bson:"txRef"`
	OrderID     PendingOrderID `json:"orderId" bson:"orderId"`
	UserID      string         `json:"userId" bson:"userId"`
	CheckoutURL string         `json:"checkoutUrl" bson:"checkoutUrl"`
	Amount      float64        `json:"amount" bson:"amount"`
	Currency    string         `json:"currency" bson:"currency"`
	Customer    CustomerInfo   `json:"customerInfo" bson:"customerInfo"`
	State       string         `json:"state" bson:"state"` // opened, verifying, succeeded, failed, timed_out
	CreatedAt   time.Time      `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt" bson:"updatedAt"`
}

// Meta is a generic key-value map for transaction metadata
type Meta map[string]interface{}

// Transaction records a captured gateway payment.
type Transaction struct {
	ID             string    `bson:"_id,omitempty" json:"id"`
	UserID         string    `bson:"userid,omitempty" json:"userid,omitempty"`
	TxRef          string    `bson:"txref" json:"txRef"`
	OrderID        string    `bson:"orderid,omitempty" json:"orderId,omitempty"`
	Type           string    `bson:"type" json:"type"` // payment, refund
	Amount         float64   `bson:"amount" json:"amount"`
	Currency       string    `bson:"currency" json:"currency"`
	Status         string    `bson:"state" json:"state"` // initiated, success, failed, reversed
	GatewayTxnID   string    `bson:"gateway_txn_id,omitempty" json:"gatewayTxnId,omitempty"`
	IdempotencyKey string    `bson:"external_ref,omitempty" json:"external_ref,omitempty"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at" json:"updated_at"`
	Meta           Meta      `bson:"meta,omitempty" json:"meta,omitempty"`
}

// IdempotencyRecord represents an idempotency key record stored in Mongo.
type IdempotencyRecord struct {
	Key         string                 `bson:"key" json:"key"`
	Method      string                 `bson:"method" json:"method"`
	Path        string                 `bson:"path" json:"path"`
	UserID      string                 `bson:"userid" json:"userid"`
	RequestHash string                 `bson:"request_hash" json:"request_hash"`
	Response    map[string]interface{} `bson:"response,omitempty" json:"response,omitempty"`
	CreatedAt   time.Time              `bson:"created_at" json:"created_at"`
	ExpiresAt   time.Time              `bson:"expires_at" json:"expires_at"`
}
