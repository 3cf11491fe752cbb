package payment

import (
	"context"
	"errors"
	"testing"

	"meridia/checkout"
	"meridia/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockedGateway accepts the reference but returns no hosted page URL.
type blockedGateway struct{}

func (blockedGateway) Initialize(context.Context, InitRequest) (InitResult, error) {
	return InitResult{TxRef: "tx-accepted"}, nil
}
func (blockedGateway) Status(context.Context, string) (string, error) {
	return StatusPending, nil
}
func (blockedGateway) Verify(context.Context, string) (VerifyResult, error) {
	return VerifyResult{}, nil
}

type recordingTransport struct {
	begins int
}

func (r *recordingTransport) Begin(*Service, string, models.PendingOrderID) {
	r.begins++
}

// verifyGateway scripts the Verify answer; Status is never consulted here.
type verifyGateway struct {
	result      VerifyResult
	err         error
	verifyCalls int
}

func (g *verifyGateway) Initialize(context.Context, InitRequest) (InitResult, error) {
	return InitResult{}, errors.New("not used")
}
func (g *verifyGateway) Status(context.Context, string) (string, error) {
	return StatusPending, nil
}
func (g *verifyGateway) Verify(context.Context, string) (VerifyResult, error) {
	g.verifyCalls++
	return g.result, g.err
}

type recordingOrders struct {
	calls int
	order models.Order
	err   error
}

func (r *recordingOrders) Materialize(context.Context, string, models.DraftOrder, string, string) (models.Order, error) {
	r.calls++
	return r.order, r.err
}

// pipeline wires a Service against in-memory fakes and records every side
// effect the verify path can have.
type pipeline struct {
	svc       *Service
	orders    *recordingOrders
	states    []string
	txns      []models.Transaction
	idemKeys  []string
	checkouts []*checkout.Session
	session   models.PaymentSession
}

func newPipeline(gw Gateway) *pipeline {
	cs := checkout.NewSession("u1", []models.DraftOrder{{
		DraftID: "draft-1-0", BuyerID: "u1", SellerID: "s1",
		TotalCost: 80, TotalItems: 2, Status: "PENDING", PickupDate: "2026-09-10",
	}})

	p := &pipeline{
		orders: &recordingOrders{order: models.Order{OrderID: "o123"}},
		session: models.PaymentSession{
			TxRef: "tx-1", OrderID: "draft-1-0", UserID: "u1",
			State: StateVerifying, Amount: 80, Currency: "USD",
		},
	}
	p.svc = &Service{
		Gateway:  gw,
		Orders:   p.orders,
		Registry: NewRegistry(),

		AcquireVerify: func(string) bool { return true },
		SeenVerify:    func(context.Context, string) bool { return false },
		LoadSession: func(_ context.Context, txRef string) (models.PaymentSession, error) {
			return p.session, nil
		},
		SaveState: func(_ context.Context, _, state string) error {
			p.states = append(p.states, state)
			return nil
		},
		InsertTxn: func(_ context.Context, txn models.Transaction) error {
			p.txns = append(p.txns, txn)
			return nil
		},
		LinkTxn: func(context.Context, string, string) error { return nil },
		RecordVerify: func(_ context.Context, rec models.IdempotencyRecord) error {
			p.idemKeys = append(p.idemKeys, rec.Key)
			return nil
		},
		LoadCheckout: func(string) (*checkout.Session, error) { return cs, nil },
		SaveCheckout: func(cs *checkout.Session) error {
			p.checkouts = append(p.checkouts, cs)
			return nil
		},
	}
	p.svc.Monitor = NewMonitor(gw, p.svc.HandleResult)
	return p
}

func TestInitiateBlockedPopupSchedulesNothing(t *testing.T) {
	transport := &recordingTransport{}
	inserts := 0
	svc := &Service{
		Gateway:   blockedGateway{},
		Registry:  NewRegistry(),
		Transport: transport,
		InsertSession: func(context.Context, models.PaymentSession) error {
			inserts++
			return nil
		},
	}

	user := models.User{UserID: "u1", Email: "a@b.c", FirstName: "Ada", PhoneNumber: "+1"}
	draft := models.DraftOrder{DraftID: "draft-1-0", BuyerID: "u1", TotalCost: 80}

	session, err := svc.Initiate(context.Background(), user, draft)
	require.ErrorIs(t, err, ErrPopupBlocked)
	assert.Nil(t, session, "no session for a blocked attempt")
	assert.Zero(t, inserts, "no session record for a blocked attempt")
	assert.Zero(t, transport.begins, "no watch scheduled for a blocked attempt")
}

func TestVerifyFailureNeverMaterializes(t *testing.T) {
	gw := &verifyGateway{result: VerifyResult{Status: StatusFailed}}
	p := newPipeline(gw)

	err := p.svc.VerifyAndFinalize(context.Background(), "tx-1")
	require.Error(t, err)

	assert.Equal(t, 1, gw.verifyCalls)
	assert.Zero(t, p.orders.calls, "failed verify must never reach the materializer")
	assert.Empty(t, p.txns, "no transaction for a failed verify")
	assert.Empty(t, p.checkouts, "checkout session untouched, nothing marked paid")
	assert.Equal(t, []string{StateFailed}, p.states)
}

func TestVerifyErrorNeverMaterializes(t *testing.T) {
	gw := &verifyGateway{err: errors.New("gateway unreachable")}
	p := newPipeline(gw)

	err := p.svc.VerifyAndFinalize(context.Background(), "tx-1")
	require.Error(t, err)

	assert.Zero(t, p.orders.calls)
	assert.Empty(t, p.txns)
	assert.Empty(t, p.checkouts)
	assert.Equal(t, []string{StateFailed}, p.states)
}

func TestFailedMonitorResultSkipsVerify(t *testing.T) {
	gw := &verifyGateway{result: VerifyResult{Status: StatusSuccess}}
	p := newPipeline(gw)

	p.svc.HandleResult(Result{TxRef: "tx-1", OrderID: "draft-1-0", State: StateFailed})

	assert.Zero(t, gw.verifyCalls, "non-success watch results must not trigger verify")
	assert.Zero(t, p.orders.calls)
	assert.Equal(t, []string{StateFailed}, p.states)
}

func TestTimedOutMonitorResultSkipsVerify(t *testing.T) {
	gw := &verifyGateway{result: VerifyResult{Status: StatusSuccess}}
	p := newPipeline(gw)

	p.svc.HandleResult(Result{TxRef: "tx-1", OrderID: "draft-1-0", State: StateTimedOut})

	assert.Zero(t, gw.verifyCalls)
	assert.Zero(t, p.orders.calls)
	assert.Equal(t, []string{StateTimedOut}, p.states)
}

func TestVerifySuccessMaterializesAndMarksPaid(t *testing.T) {
	gw := &verifyGateway{result: VerifyResult{Status: StatusSuccess, Amount: 80, Currency: "USD", GatewayTxnID: "g-1"}}
	p := newPipeline(gw)

	require.NoError(t, p.svc.VerifyAndFinalize(context.Background(), "tx-1"))

	assert.Equal(t, 1, p.orders.calls)
	require.Len(t, p.txns, 1)
	assert.Equal(t, "tx-1", p.txns[0].TxRef)
	assert.Equal(t, 80.0, p.txns[0].Amount)

	require.Len(t, p.checkouts, 1)
	saved := p.checkouts[0]
	assert.True(t, saved.PaidOrders["draft-1-0"])
	assert.Equal(t, "o123", saved.CreatedOrders["draft-1-0"])

	assert.Equal(t, []string{StateSucceeded}, p.states)
	assert.Equal(t, []string{"verify:tx-1"}, p.idemKeys)
}

func TestVerifyMaterializeFailureMarksFailed(t *testing.T) {
	gw := &verifyGateway{result: VerifyResult{Status: StatusSuccess}}
	p := newPipeline(gw)
	p.orders.err = errors.New("pickup date is required")

	err := p.svc.VerifyAndFinalize(context.Background(), "tx-1")
	require.EqualError(t, err, "pickup date is required")

	assert.Empty(t, p.checkouts, "nothing marked paid when materialization fails")
	assert.Equal(t, []string{StateFailed}, p.states)
	assert.Empty(t, p.idemKeys)
}

func TestVerifyReplayShortCircuits(t *testing.T) {
	gw := &verifyGateway{result: VerifyResult{Status: StatusSuccess}}
	p := newPipeline(gw)
	p.svc.SeenVerify = func(context.Context, string) bool { return true }

	require.NoError(t, p.svc.VerifyAndFinalize(context.Background(), "tx-1"))
	assert.Zero(t, gw.verifyCalls)
	assert.Zero(t, p.orders.calls)
	assert.Empty(t, p.states)
}

func TestVerifyLockedShortCircuits(t *testing.T) {
	gw := &verifyGateway{result: VerifyResult{Status: StatusSuccess}}
	p := newPipeline(gw)
	p.svc.AcquireVerify = func(string) bool { return false }

	require.NoError(t, p.svc.VerifyAndFinalize(context.Background(), "tx-1"))
	assert.Zero(t, gw.verifyCalls)
	assert.Zero(t, p.orders.calls)
}

func TestRegistryUnknownRef(t *testing.T) {
	reg := NewRegistry()
	assert.False(t, reg.SignalReturned("tx-never-started"))
	assert.False(t, reg.Cancel("tx-never-started"))
}
