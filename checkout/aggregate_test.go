package checkout

import (
	"testing"
	"time"

	"meridia/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buyer() models.User {
	return models.User{UserID: "u-buyer", Username: "clinic1", Name: "Sunrise Clinic"}
}

func line(productID, productName string, batches ...models.BatchItem) models.CartItem {
	return models.CartItem{
		UserID:      "u-buyer",
		ProductID:   productID,
		ProductName: productName,
		ProductType: "consumable",
		BatchItems:  batches,
	}
}

func TestAggregateOneDraftPerSeller(t *testing.T) {
	now := time.Now()
	items := []models.CartItem{
		line("p1", "Gloves",
			models.BatchItem{BatchID: "b1", Quantity: 10, UnitPrice: 5, SellerID: "s1", SellerName: "Alpha Supplies"}),
		line("p2", "Masks",
			models.BatchItem{BatchID: "b2", Quantity: 6, UnitPrice: 5, SellerID: "s2", SellerName: "Beta Imports"}),
	}

	drafts := Aggregate(items, buyer(), now)
	require.Len(t, drafts, 2)

	assert.Equal(t, "s1", drafts[0].SellerID)
	assert.Equal(t, 50.0, drafts[0].TotalCost)
	assert.Equal(t, 10, drafts[0].TotalItems)

	assert.Equal(t, "s2", drafts[1].SellerID)
	assert.Equal(t, 30.0, drafts[1].TotalCost)
	assert.Equal(t, 6, drafts[1].TotalItems)

	for _, d := range drafts {
		assert.Equal(t, "PENDING", d.Status)
		assert.Equal(t, "u-buyer", d.BuyerID)
		assert.Equal(t, "Sunrise Clinic", d.BuyerName)
	}
	assert.NotEqual(t, drafts[0].DraftID, drafts[1].DraftID)
}

func TestAggregateSplitsMixedSellerLine(t *testing.T) {
	// One product carried by two sellers must land in two drafts.
	items := []models.CartItem{
		line("p1", "Syringes",
			models.BatchItem{BatchID: "b1", Quantity: 4, UnitPrice: 2, SellerID: "s1", SellerName: "Alpha"},
			models.BatchItem{BatchID: "b2", Quantity: 3, UnitPrice: 2, SellerID: "s2", SellerName: "Beta"}),
	}

	drafts := Aggregate(items, buyer(), time.Now())
	require.Len(t, drafts, 2)

	assert.Equal(t, 8.0, drafts[0].TotalCost)
	assert.Equal(t, 6.0, drafts[1].TotalCost)
	assert.Equal(t, "p1", drafts[0].Items[0].ProductID)
	assert.Equal(t, "p1", drafts[1].Items[0].ProductID)
}

func TestAggregateMergesLinesOfSameSeller(t *testing.T) {
	items := []models.CartItem{
		line("p1", "Gloves",
			models.BatchItem{BatchID: "b1", Quantity: 2, UnitPrice: 10, SellerID: "s1", SellerName: "Alpha"}),
		line("p2", "Masks",
			models.BatchItem{BatchID: "b2", Quantity: 1, UnitPrice: 5, SellerID: "s1", SellerName: "Alpha"}),
	}

	drafts := Aggregate(items, buyer(), time.Now())
	require.Len(t, drafts, 1)
	assert.Len(t, drafts[0].Items, 2)
	assert.Equal(t, 25.0, drafts[0].TotalCost)
	assert.Equal(t, 3, drafts[0].TotalItems)
}

func TestAggregateEmptyCart(t *testing.T) {
	drafts := Aggregate(nil, buyer(), time.Now())
	assert.Empty(t, drafts)
}

func TestAggregateItemTotals(t *testing.T) {
	items := []models.CartItem{
		line("p1", "Gauze",
			models.BatchItem{BatchID: "b1", Quantity: 3, UnitPrice: 4, SellerID: "s1", SellerName: "Alpha"},
			models.BatchItem{BatchID: "b2", Quantity: 2, UnitPrice: 6, SellerID: "s1", SellerName: "Alpha"}),
	}

	drafts := Aggregate(items, buyer(), time.Now())
	require.Len(t, drafts, 1)
	require.Len(t, drafts[0].Items, 1)

	item := drafts[0].Items[0]
	assert.Equal(t, 5, item.TotalQuantity)
	assert.Equal(t, 24.0, item.TotalCost)
	assert.Len(t, item.BatchItems, 2)
}
