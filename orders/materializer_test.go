package orders

import (
	"context"
	"errors"
	"testing"

	"meridia/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDraft() models.DraftOrder {
	return models.DraftOrder{
		DraftID:   "draft-1-0",
		BuyerID:   "u-buyer",
		BuyerName: "Sunrise Clinic",
		SellerID:  "u-seller",
		Items: []models.OrderItem{
			{
				ProductID:   "p1",
				ProductName: "Gloves",
				BatchItems: []models.OrderBatchItem{
					{BatchID: "b1", Quantity: 10, UnitPrice: 5},
				},
				TotalQuantity: 10,
				TotalCost:     50,
			},
			{
				ProductID:   "p2",
				ProductName: "Masks",
				BatchItems: []models.OrderBatchItem{
					{BatchID: "b2", Quantity: 6, UnitPrice: 5},
				},
				TotalQuantity: 6,
				TotalCost:     30,
			},
		},
		TotalItems: 16,
		TotalCost:  80,
		Status:     "PENDING",
		PickupDate: "2026-09-10",
	}
}

type fakeStore struct {
	inserted  []models.Order
	removed   []string
	decCalls  map[string]int
	insertErr error
	removeErr error
}

func newFakeMaterializer(store *fakeStore) *Materializer {
	if store.decCalls == nil {
		store.decCalls = map[string]int{}
	}
	return &Materializer{
		InsertOrder: func(_ context.Context, order models.Order) error {
			if store.insertErr != nil {
				return store.insertErr
			}
			store.inserted = append(store.inserted, order)
			return nil
		},
		LookupUser: func(_ context.Context, userID string) (models.User, error) {
			return models.User{UserID: userID, Name: "Name of " + userID}, nil
		},
		DecrementStock: func(_ context.Context, batchID string, qty int) (bool, error) {
			store.decCalls[batchID] += qty
			return true, nil
		},
		RemoveFromCart: func(_ context.Context, _, productID string) error {
			if store.removeErr != nil {
				return store.removeErr
			}
			store.removed = append(store.removed, productID)
			return nil
		},
	}
}

func TestMaterializeCreatesHeldOrder(t *testing.T) {
	store := &fakeStore{}
	m := newFakeMaterializer(store)

	order, err := m.Materialize(context.Background(), "u-buyer", testDraft(), "tx-1", "txn-1")
	require.NoError(t, err)

	assert.Equal(t, models.OrderPendingConfirmation, order.Status)
	assert.Equal(t, models.PaymentHeldBySystem, order.PaymentStatus)
	assert.Equal(t, "tx-1", order.TxRef)
	assert.Equal(t, "txn-1", order.TransactionID)
	assert.Equal(t, 80.0, order.TotalCost)
	assert.NotEmpty(t, order.OrderID)
	assert.NotEmpty(t, order.OrderNumber)
	assert.NotEqual(t, "draft-1-0", order.OrderID, "draft id must never leak into the order")

	require.Len(t, store.inserted, 1)
	assert.Equal(t, 10, store.decCalls["b1"])
	assert.Equal(t, 6, store.decCalls["b2"])
}

func TestMaterializeCleansCartPerProduct(t *testing.T) {
	store := &fakeStore{}
	m := newFakeMaterializer(store)

	_, err := m.Materialize(context.Background(), "u-buyer", testDraft(), "tx-1", "txn-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, store.removed)
}

func TestMaterializeSurvivesCleanupFailure(t *testing.T) {
	store := &fakeStore{removeErr: errors.New("redis gone")}
	m := newFakeMaterializer(store)

	order, err := m.Materialize(context.Background(), "u-buyer", testDraft(), "tx-1", "txn-1")
	require.NoError(t, err, "cleanup failure must not fail the order")
	assert.Len(t, store.inserted, 1)
	assert.Equal(t, models.OrderPendingConfirmation, order.Status)
}

func TestMaterializeValidation(t *testing.T) {
	store := &fakeStore{}
	m := newFakeMaterializer(store)
	ctx := context.Background()

	empty := testDraft()
	empty.Items = nil
	_, err := m.Materialize(ctx, "u-buyer", empty, "tx", "txn")
	assert.EqualError(t, err, "order has no items")

	free := testDraft()
	free.TotalCost = 0
	_, err = m.Materialize(ctx, "u-buyer", free, "tx", "txn")
	assert.EqualError(t, err, "order total must be positive")

	noPickup := testDraft()
	noPickup.PickupDate = ""
	_, err = m.Materialize(ctx, "u-buyer", noPickup, "tx", "txn")
	assert.EqualError(t, err, "pickup date is required")

	_, err = m.Materialize(ctx, "u-other", testDraft(), "tx", "txn")
	assert.EqualError(t, err, "order does not belong to this buyer")

	assert.Empty(t, store.inserted, "no order may exist after a validation failure")
	assert.Empty(t, store.removed, "no cart cleanup after a validation failure")
}

func TestMaterializeInsertFailureAborts(t *testing.T) {
	store := &fakeStore{insertErr: errors.New("mongo down")}
	m := newFakeMaterializer(store)

	_, err := m.Materialize(context.Background(), "u-buyer", testDraft(), "tx", "txn")
	require.Error(t, err)
	assert.Empty(t, store.removed, "cart untouched when the order was not stored")
	assert.Empty(t, store.decCalls, "stock untouched when the order was not stored")
}
