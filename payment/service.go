package payment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"meridia/checkout"
	"meridia/db"
	"meridia/models"
	"meridia/rdx"
	"meridia/utils"

	"go.mongodb.org/mongo-driver/bson"
)

// ErrPopupBlocked marks an initialize response without a hosted page URL.
// The attempt is dead on arrival; no watch is scheduled for it.
var ErrPopupBlocked = errors.New("payment: checkout page could not be opened")

// OrderCreator turns a paid draft into a real order. Implemented by the
// orders package; faked in tests.
type OrderCreator interface {
	Materialize(ctx context.Context, userID string, draft models.DraftOrder, txRef, transactionID string) (models.Order, error)
}

// Transport decides how a payment attempt gets resolved. Hosted-page
// deployments poll after the buyer returns; callback deployments wait for the
// provider's webhook.
type Transport interface {
	Begin(svc *Service, txRef string, orderID models.PendingOrderID)
}

// HostedPageTransport schedules a monitor watch per attempt.
type HostedPageTransport struct {
	Registry *Registry
}

func (t *HostedPageTransport) Begin(svc *Service, txRef string, orderID models.PendingOrderID) {
	t.Registry.Start(svc.Monitor, txRef, orderID)
}

// CallbackTransport schedules nothing; resolution arrives on the webhook.
type CallbackTransport struct{}

func (CallbackTransport) Begin(*Service, string, models.PendingOrderID) {}

// Service owns the initiate -> monitor -> verify -> materialize pipeline.
// Storage and session accesses are function fields so the pipeline runs
// against fakes in tests, same as orders.Materializer.
type Service struct {
	Gateway   Gateway
	Monitor   *Monitor
	Registry  *Registry
	Transport Transport
	Orders    OrderCreator

	InsertSession func(ctx context.Context, session models.PaymentSession) error
	LoadSession   func(ctx context.Context, txRef string) (models.PaymentSession, error)
	SaveState     func(ctx context.Context, txRef, state string) error
	AcquireVerify func(txRef string) bool
	SeenVerify    func(ctx context.Context, txRef string) bool
	RecordVerify  func(ctx context.Context, rec models.IdempotencyRecord) error
	InsertTxn     func(ctx context.Context, txn models.Transaction) error
	LinkTxn       func(ctx context.Context, txnID, orderID string) error
	LoadCheckout  func(userID string) (*checkout.Session, error)
	SaveCheckout  func(cs *checkout.Session) error
}

func NewService(gw Gateway, orders OrderCreator) *Service {
	svc := &Service{
		Gateway:  gw,
		Orders:   orders,
		Registry: NewRegistry(),

		InsertSession: func(ctx context.Context, session models.PaymentSession) error {
			_, err := db.PaymentSessionsCollection.InsertOne(ctx, session)
			return err
		},
		LoadSession: func(ctx context.Context, txRef string) (models.PaymentSession, error) {
			var session models.PaymentSession
			err := db.PaymentSessionsCollection.FindOne(ctx, bson.M{"txRef": txRef}).Decode(&session)
			return session, err
		},
		SaveState: func(ctx context.Context, txRef, state string) error {
			_, err := db.PaymentSessionsCollection.UpdateOne(ctx,
				bson.M{"txRef": txRef},
				bson.M{"$set": bson.M{"state": state, "updatedAt": time.Now()}})
			return err
		},
		AcquireVerify: func(txRef string) bool {
			ok, err := rdx.RdxSetNX("verify:"+txRef, "1", 2*time.Minute)
			if err != nil {
				log.Println("verify lock error:", err)
				return true
			}
			return ok
		},
		SeenVerify: func(ctx context.Context, txRef string) bool {
			return db.IdempotencyCollection.FindOne(ctx, bson.M{"key": "verify:" + txRef}).Err() == nil
		},
		RecordVerify: func(ctx context.Context, rec models.IdempotencyRecord) error {
			_, err := db.IdempotencyCollection.InsertOne(ctx, rec)
			return err
		},
		InsertTxn: func(ctx context.Context, txn models.Transaction) error {
			_, err := db.TransactionCollection.InsertOne(ctx, txn)
			return err
		},
		LinkTxn: func(ctx context.Context, txnID, orderID string) error {
			_, err := db.TransactionCollection.UpdateOne(ctx,
				bson.M{"_id": txnID},
				bson.M{"$set": bson.M{"orderid": orderID, "updated_at": time.Now()}})
			return err
		},
		LoadCheckout: checkout.LoadSession,
		SaveCheckout: checkout.SaveSession,
	}
	svc.Monitor = NewMonitor(gw, svc.HandleResult)
	svc.Transport = &HostedPageTransport{Registry: svc.Registry}
	return svc
}

// Initiate opens a hosted checkout for one draft and records the session.
func (s *Service) Initiate(ctx context.Context, user models.User, draft models.DraftOrder) (*models.PaymentSession, error) {
	txRef := "tx-" + utils.GetUUID()
	customer := models.CustomerInfo{
		Email:       user.Email,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		PhoneNumber: user.PhoneNumber,
	}

	res, err := s.Gateway.Initialize(ctx, InitRequest{
		Amount:   draft.TotalCost,
		Currency: "USD",
		TxRef:    txRef,
		Customer: customer,
		Meta:     models.Meta{"draftId": draft.DraftID.String(), "sellerId": draft.SellerID},
	})
	if err != nil {
		return nil, err
	}
	if res.CheckoutURL == "" {
		return nil, ErrPopupBlocked
	}
	if res.TxRef != "" {
		txRef = res.TxRef
	}

	now := time.Now()
	session := models.PaymentSession{
		TxRef:       txRef,
		OrderID:     draft.DraftID,
		UserID:      user.UserID,
		CheckoutURL: res.CheckoutURL,
		Amount:      draft.TotalCost,
		Currency:    "USD",
		Customer:    customer,
		State:       StateOpened,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.InsertSession(ctx, session); err != nil {
		return nil, fmt.Errorf("record payment session: %w", err)
	}

	s.Transport.Begin(s, txRef, draft.DraftID)
	return &session, nil
}

// HandleResult is the monitor's terminal callback. Success flows into verify
// and materialization; everything else just updates the session state.
func (s *Service) HandleResult(res Result) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if res.State != StateSucceeded {
		if res.Err != nil {
			log.Printf("payment %s ended %s: %v", res.TxRef, res.State, res.Err)
		}
		s.setSessionState(ctx, res.TxRef, res.State)
		return
	}

	if err := s.VerifyAndFinalize(ctx, res.TxRef); err != nil {
		log.Printf("payment %s finalize error: %v", res.TxRef, err)
	}
}

// VerifyAndFinalize re-confirms the payment with the gateway, records the
// transaction and materializes the order. It is idempotent per txRef: the
// webhook and the monitor can both land here.
func (s *Service) VerifyAndFinalize(ctx context.Context, txRef string) error {
	// Fast in-flight guard, then the durable record. Either one short-circuits
	// a replay from the webhook or a second monitor.
	if !s.AcquireVerify(txRef) {
		return nil
	}
	if s.SeenVerify(ctx, txRef) {
		return nil
	}

	session, err := s.LoadSession(ctx, txRef)
	if err != nil {
		return fmt.Errorf("unknown payment session %s: %w", txRef, err)
	}
	if session.State == StateSucceeded {
		return nil
	}

	verdict, err := s.Gateway.Verify(ctx, txRef)
	if err != nil {
		s.setSessionState(ctx, txRef, StateFailed)
		return fmt.Errorf("verify %s: %w", txRef, err)
	}
	if verdict.Status != StatusSuccess {
		s.setSessionState(ctx, txRef, StateFailed)
		return fmt.Errorf("verify %s: gateway says %s", txRef, verdict.Status)
	}

	txn := models.Transaction{
		ID:           "txn-" + utils.GetUUID(),
		UserID:       session.UserID,
		TxRef:        txRef,
		Type:         "payment",
		Amount:       verdict.Amount,
		Currency:     verdict.Currency,
		Status:       "success",
		GatewayTxnID: verdict.GatewayTxnID,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
		Meta:         models.Meta{"draftId": session.OrderID.String()},
	}
	if err := s.InsertTxn(ctx, txn); err != nil {
		return fmt.Errorf("record transaction %s: %w", txRef, err)
	}

	cs, err := s.LoadCheckout(session.UserID)
	if err != nil {
		s.setSessionState(ctx, txRef, StateFailed)
		return fmt.Errorf("checkout session gone for %s: %w", txRef, err)
	}
	draft, found := cs.Draft(session.OrderID)
	if !found {
		s.setSessionState(ctx, txRef, StateFailed)
		return fmt.Errorf("draft %s missing from checkout session", session.OrderID)
	}

	order, err := s.Orders.Materialize(ctx, session.UserID, *draft, txRef, txn.ID)
	if err != nil {
		// Materialization failures are fatal for this order only; the
		// message travels verbatim so the buyer sees the real reason.
		s.setSessionState(ctx, txRef, StateFailed)
		return err
	}

	cs.MarkPaid(session.OrderID)
	cs.RecordCreatedOrder(session.OrderID, order.OrderID)
	if err := s.SaveCheckout(cs); err != nil {
		log.Println("save checkout session after payment:", err)
	}

	s.setSessionState(ctx, txRef, StateSucceeded)

	record := models.IdempotencyRecord{
		Key:       "verify:" + txRef,
		Method:    "POST",
		Path:      "/payments/verify",
		UserID:    session.UserID,
		Response:  map[string]interface{}{"orderId": order.OrderID},
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}
	if err := s.RecordVerify(ctx, record); err != nil {
		log.Println("record idempotency key:", err)
	}

	if err := s.LinkTxn(ctx, txn.ID, order.OrderID); err != nil {
		log.Println("link transaction to order:", err)
	}
	return nil
}

func (s *Service) setSessionState(ctx context.Context, txRef, state string) {
	if err := s.SaveState(ctx, txRef, state); err != nil {
		log.Printf("update payment session %s: %v", txRef, err)
	}
}
