package checkout

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"meridia/models"
	"meridia/rdx"
)

// Checkout walks three steps in order. Moving forward is gated; moving
// backward is always allowed and clears nothing.
const (
	StepSummary      = "summary"
	StepPayment      = "payment"
	StepConfirmation = "confirmation"
)

const sessionTTL = 30 * time.Minute

var (
	ErrNoDrafts        = errors.New("checkout: no draft orders in session")
	ErrMissingPickup   = errors.New("checkout: pickup date required for every order")
	ErrUnpaidOrders    = errors.New("checkout: not all orders are paid")
	ErrConfirmed       = errors.New("checkout: session already confirmed")
	ErrUnknownStep     = errors.New("checkout: unknown step")
	ErrSessionNotFound = errors.New("checkout: session not found")
)

// Session is the per-buyer checkout state, persisted to redis between
// requests. Draft ids key the paid/created maps; server order ids only appear
// as map values after materialization.
type Session struct {
	UserID        string                           `json:"userId"`
	Step          string                           `json:"step"`
	Drafts        []models.DraftOrder              `json:"drafts"`
	PaidOrders    map[models.PendingOrderID]bool   `json:"paidOrders"`
	CreatedOrders map[models.PendingOrderID]string `json:"createdOrders"`
	CreatedAt     time.Time                        `json:"createdAt"`
	UpdatedAt     time.Time                        `json:"updatedAt"`
}

func NewSession(userID string, drafts []models.DraftOrder) *Session {
	now := time.Now()
	return &Session{
		UserID:        userID,
		Step:          StepSummary,
		Drafts:        drafts,
		PaidOrders:    map[models.PendingOrderID]bool{},
		CreatedOrders: map[models.PendingOrderID]string{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Draft finds a draft by its synthetic id.
func (s *Session) Draft(id models.PendingOrderID) (*models.DraftOrder, bool) {
	for i := range s.Drafts {
		if s.Drafts[i].DraftID == id {
			return &s.Drafts[i], true
		}
	}
	return nil, false
}

// SetPickupDate attaches a pickup date to one draft. Only valid on the
// summary step; once payment starts the drafts are frozen.
func (s *Session) SetPickupDate(id models.PendingOrderID, date string) error {
	if s.Step != StepSummary {
		return fmt.Errorf("checkout: pickup dates are fixed after step %s", StepSummary)
	}
	draft, ok := s.Draft(id)
	if !ok {
		return fmt.Errorf("checkout: unknown draft %s", id)
	}
	draft.PickupDate = date
	return nil
}

// MarkPaid records a verified payment for one draft.
func (s *Session) MarkPaid(id models.PendingOrderID) error {
	if _, ok := s.Draft(id); !ok {
		return fmt.Errorf("checkout: unknown draft %s", id)
	}
	s.PaidOrders[id] = true
	return nil
}

// RecordCreatedOrder maps a draft id to the server-assigned order id.
func (s *Session) RecordCreatedOrder(draftID models.PendingOrderID, orderID string) {
	s.CreatedOrders[draftID] = orderID
}

func (s *Session) AllPaid() bool {
	if len(s.Drafts) == 0 {
		return false
	}
	for _, d := range s.Drafts {
		if !s.PaidOrders[d.DraftID] {
			return false
		}
	}
	return true
}

// Advance moves the session to the requested step, enforcing the gates:
// summary->payment needs drafts with pickup dates, payment->confirmation
// needs every draft paid. Backward moves succeed except out of confirmation,
// which is terminal.
func (s *Session) Advance(to string) error {
	if s.Step == StepConfirmation && to != StepConfirmation {
		return ErrConfirmed
	}
	switch to {
	case StepSummary:
		s.Step = StepSummary
		return nil
	case StepPayment:
		if len(s.Drafts) == 0 {
			return ErrNoDrafts
		}
		for _, d := range s.Drafts {
			if d.PickupDate == "" {
				return ErrMissingPickup
			}
		}
		s.Step = StepPayment
		return nil
	case StepConfirmation:
		if !s.AllPaid() {
			return ErrUnpaidOrders
		}
		s.Step = StepConfirmation
		return nil
	default:
		return ErrUnknownStep
	}
}

func sessionKey(userID string) string {
	return "checkout:" + userID
}

// SaveSession persists the session to redis with a sliding TTL.
func SaveSession(s *Session) error {
	s.UpdatedAt = time.Now()
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return rdx.SetWithExpiry(sessionKey(s.UserID), string(data), sessionTTL)
}

// LoadSession fetches the buyer's checkout session.
func LoadSession(userID string) (*Session, error) {
	data, err := rdx.RdxGet(sessionKey(userID))
	if err != nil || data == "" {
		return nil, ErrSessionNotFound
	}
	var s Session
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, err
	}
	if s.PaidOrders == nil {
		s.PaidOrders = map[models.PendingOrderID]bool{}
	}
	if s.CreatedOrders == nil {
		s.CreatedOrders = map[models.PendingOrderID]string{}
	}
	return &s, nil
}

// DeleteSession drops the session, used after confirmation or on restart.
func DeleteSession(userID string) {
	rdx.RdxDel(sessionKey(userID))
}
