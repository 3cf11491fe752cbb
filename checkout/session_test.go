package checkout

import (
	"testing"
	"time"

	"meridia/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionWithDrafts(t *testing.T, n int) *Session {
	t.Helper()
	items := []models.CartItem{}
	for i := 0; i < n; i++ {
		items = append(items, models.CartItem{
			ProductID:   "p" + string(rune('1'+i)),
			ProductName: "Item",
			BatchItems: []models.BatchItem{{
				BatchID: "b" + string(rune('1'+i)), Quantity: 1, UnitPrice: 10,
				SellerID: "s" + string(rune('1'+i)), SellerName: "Seller",
			}},
		})
	}
	drafts := Aggregate(items, models.User{UserID: "u1", Name: "Buyer"}, time.Now())
	require.Len(t, drafts, n)
	return NewSession("u1", drafts)
}

func TestAdvanceToPaymentRequiresPickupDates(t *testing.T) {
	s := sessionWithDrafts(t, 2)

	err := s.Advance(StepPayment)
	assert.ErrorIs(t, err, ErrMissingPickup)
	assert.Equal(t, StepSummary, s.Step)

	require.NoError(t, s.SetPickupDate(s.Drafts[0].DraftID, "2026-09-10"))
	assert.ErrorIs(t, s.Advance(StepPayment), ErrMissingPickup)

	require.NoError(t, s.SetPickupDate(s.Drafts[1].DraftID, "2026-09-11"))
	require.NoError(t, s.Advance(StepPayment))
	assert.Equal(t, StepPayment, s.Step)
}

func TestAdvanceToConfirmationRequiresAllPaid(t *testing.T) {
	s := sessionWithDrafts(t, 2)
	for _, d := range s.Drafts {
		require.NoError(t, s.SetPickupDate(d.DraftID, "2026-09-10"))
	}
	require.NoError(t, s.Advance(StepPayment))

	assert.ErrorIs(t, s.Advance(StepConfirmation), ErrUnpaidOrders)

	require.NoError(t, s.MarkPaid(s.Drafts[0].DraftID))
	assert.ErrorIs(t, s.Advance(StepConfirmation), ErrUnpaidOrders)

	require.NoError(t, s.MarkPaid(s.Drafts[1].DraftID))
	require.NoError(t, s.Advance(StepConfirmation))
	assert.Equal(t, StepConfirmation, s.Step)
}

func TestPickupDatesFrozenAfterSummary(t *testing.T) {
	s := sessionWithDrafts(t, 1)
	require.NoError(t, s.SetPickupDate(s.Drafts[0].DraftID, "2026-09-10"))
	require.NoError(t, s.Advance(StepPayment))

	err := s.SetPickupDate(s.Drafts[0].DraftID, "2026-09-12")
	assert.Error(t, err)
	assert.Equal(t, "2026-09-10", s.Drafts[0].PickupDate)
}

func TestBackwardMoveAlwaysAllowed(t *testing.T) {
	s := sessionWithDrafts(t, 1)
	require.NoError(t, s.SetPickupDate(s.Drafts[0].DraftID, "2026-09-10"))
	require.NoError(t, s.Advance(StepPayment))

	require.NoError(t, s.Advance(StepSummary))
	assert.Equal(t, StepSummary, s.Step)
}

func TestConfirmationIsTerminal(t *testing.T) {
	s := sessionWithDrafts(t, 1)
	require.NoError(t, s.SetPickupDate(s.Drafts[0].DraftID, "2026-09-10"))
	require.NoError(t, s.Advance(StepPayment))
	require.NoError(t, s.MarkPaid(s.Drafts[0].DraftID))
	require.NoError(t, s.Advance(StepConfirmation))

	assert.ErrorIs(t, s.Advance(StepSummary), ErrConfirmed)
	assert.ErrorIs(t, s.Advance(StepPayment), ErrConfirmed)
	assert.Equal(t, StepConfirmation, s.Step)
}

func TestMarkPaidUnknownDraft(t *testing.T) {
	s := sessionWithDrafts(t, 1)
	assert.Error(t, s.MarkPaid(models.PendingOrderID("draft-0-99")))
	assert.False(t, s.AllPaid())
}

func TestRecordCreatedOrderKeepsDraftMapping(t *testing.T) {
	s := sessionWithDrafts(t, 1)
	id := s.Drafts[0].DraftID
	s.RecordCreatedOrder(id, "o12345")
	assert.Equal(t, "o12345", s.CreatedOrders[id])
}

func TestAdvanceUnknownStep(t *testing.T) {
	s := sessionWithDrafts(t, 1)
	assert.ErrorIs(t, s.Advance("review"), ErrUnknownStep)
}

func TestAllPaidEmptySession(t *testing.T) {
	s := NewSession("u1", nil)
	assert.False(t, s.AllPaid())
	assert.ErrorIs(t, s.Advance(StepPayment), ErrNoDrafts)
}
