package checkout

import (
	"fmt"
	"sort"
	"time"

	"meridia/models"
)

// Aggregate regroups the buyer's cart into one draft order per distinct
// seller. Drafts are rebuilt from the live cart on every call and carry
// synthetic ids; nothing here is persisted.
func Aggregate(items []models.CartItem, buyer models.User, now time.Time) []models.DraftOrder {
	type sellerBucket struct {
		sellerID   string
		sellerName string
		items      []models.OrderItem
	}

	buckets := map[string]*sellerBucket{}
	var order []string

	for _, line := range items {
		// One cart line can span batches from several sellers, so the
		// split happens at the batch level, not the product level.
		perSeller := map[string][]models.OrderBatchItem{}
		names := map[string]string{}
		for _, b := range line.BatchItems {
			perSeller[b.SellerID] = append(perSeller[b.SellerID], models.OrderBatchItem{
				BatchID:    b.BatchID,
				LotNumber:  b.LotNumber,
				Quantity:   b.Quantity,
				UnitPrice:  b.UnitPrice,
				ExpiryDate: b.ExpiryDate,
			})
			names[b.SellerID] = b.SellerName
		}

		sellerIDs := make([]string, 0, len(perSeller))
		for id := range perSeller {
			sellerIDs = append(sellerIDs, id)
		}
		sort.Strings(sellerIDs)

		for _, sellerID := range sellerIDs {
			batches := perSeller[sellerID]
			item := models.OrderItem{
				ProductID:   line.ProductID,
				ProductName: line.ProductName,
				ProductType: line.ProductType,
				BatchItems:  batches,
			}
			for _, b := range batches {
				item.TotalQuantity += b.Quantity
				item.TotalCost += float64(b.Quantity) * b.UnitPrice
			}

			bucket, ok := buckets[sellerID]
			if !ok {
				bucket = &sellerBucket{sellerID: sellerID, sellerName: names[sellerID]}
				buckets[sellerID] = bucket
				order = append(order, sellerID)
			}
			bucket.items = append(bucket.items, item)
		}
	}

	buyerName := buyer.Name
	if buyerName == "" {
		buyerName = buyer.Username
	}

	drafts := make([]models.DraftOrder, 0, len(order))
	for i, sellerID := range order {
		bucket := buckets[sellerID]
		draft := models.DraftOrder{
			DraftID:    models.PendingOrderID(fmt.Sprintf("draft-%d-%d", now.UnixMilli(), i)),
			BuyerID:    buyer.UserID,
			BuyerName:  buyerName,
			SellerID:   bucket.sellerID,
			SellerName: bucket.sellerName,
			Items:      bucket.items,
			Status:     "PENDING",
		}
		for _, item := range bucket.items {
			draft.TotalItems += item.TotalQuantity
			draft.TotalCost += item.TotalCost
		}
		drafts = append(drafts, draft)
	}
	return drafts
}
