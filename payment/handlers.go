package payment

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"meridia/checkout"
	"meridia/db"
	"meridia/models"
	"meridia/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
)

// Handler exposes the service over HTTP.
type Handler struct {
	Svc *Service
}

// Initiate opens a hosted checkout for one draft in the buyer's session.
func (h *Handler) Initiate(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var input struct {
		DraftID string `json:"draftId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.DraftID == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	cs, err := checkout.LoadSession(userID)
	if err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "No active checkout")
		return
	}
	if cs.Step != checkout.StepPayment {
		utils.RespondWithError(w, http.StatusConflict, "Checkout is not on the payment step")
		return
	}
	draft, ok := cs.Draft(models.PendingOrderID(input.DraftID))
	if !ok {
		utils.RespondWithError(w, http.StatusNotFound, "Unknown draft order")
		return
	}
	if cs.PaidOrders[draft.DraftID] {
		utils.RespondWithError(w, http.StatusConflict, "Order already paid")
		return
	}

	var user models.User
	if err := db.UserCollection.FindOne(ctx, bson.M{"userid": userID}).Decode(&user); err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "User not found")
		return
	}

	session, err := h.Svc.Initiate(ctx, user, *draft)
	if err != nil {
		if errors.Is(err, ErrPopupBlocked) {
			utils.RespondWithError(w, http.StatusBadGateway, "The payment page could not be opened. Disable your popup blocker and try again.")
			return
		}
		log.Println("Initiate payment error:", err)
		utils.RespondWithError(w, http.StatusBadGateway, "Could not start payment")
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, utils.M{
		"txRef":       session.TxRef,
		"checkoutUrl": session.CheckoutURL,
	})
}

// Returned marks the buyer as back from the hosted page, which starts the
// monitor's grace-then-poll phase.
func (h *Handler) Returned(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	txRef := ps.ByName("txref")

	session, err := h.ownedSession(ctx, userID, txRef)
	if err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "Payment session not found")
		return
	}

	if h.Svc.Registry.SignalReturned(txRef) {
		h.Svc.setSessionState(ctx, txRef, StateVerifying)
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"state": StateVerifying})
		return
	}

	// No live watch (restart, or callback transport). Report whatever state
	// the record holds so the client can poll it.
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"state": session.State})
}

// Cancel abandons a payment attempt.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	txRef := ps.ByName("txref")

	if _, err := h.ownedSession(ctx, userID, txRef); err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "Payment session not found")
		return
	}

	h.Svc.Registry.Cancel(txRef)
	h.Svc.setSessionState(ctx, txRef, StateFailed)
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"state": StateFailed})
}

// Status lets the client poll the session record.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	txRef := ps.ByName("txref")

	session, err := h.ownedSession(ctx, userID, txRef)
	if err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "Payment session not found")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"txRef": session.TxRef,
		"state": session.State,
	})
}

// Webhook receives provider callbacks. Shared-secret header, constant-time
// compare.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	secret := os.Getenv("PAYMENT_WEBHOOK_SECRET")
	got := r.Header.Get("X-Webhook-Secret")
	if secret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(got)) != 1 {
		utils.RespondWithError(w, http.StatusForbidden, "Forbidden")
		return
	}

	var payload struct {
		TxRef  string `json:"txRef"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.TxRef == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	// Any live watch for this ref is now redundant.
	h.Svc.Registry.Cancel(payload.TxRef)

	if payload.Status != StatusSuccess {
		h.Svc.setSessionState(ctx, payload.TxRef, StateFailed)
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := h.Svc.VerifyAndFinalize(ctx, payload.TxRef); err != nil {
		log.Println("webhook finalize error:", err)
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) ownedSession(ctx context.Context, userID, txRef string) (*models.PaymentSession, error) {
	var session models.PaymentSession
	err := db.PaymentSessionsCollection.FindOne(ctx, bson.M{"txRef": txRef, "userId": userID}).Decode(&session)
	if err != nil {
		return nil, err
	}
	return &session, nil
}
