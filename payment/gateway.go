package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"meridia/models"
)

// Poll outcomes reported by the gateway. Anything else is treated as pending.
const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// InitRequest is the payload for opening a hosted checkout page.
type InitRequest struct {
	Amount   float64             `json:"amount"`
	Currency string              `json:"currency"`
	TxRef    string              `json:"txRef"`
	Customer models.CustomerInfo `json:"customerInfo"`
	Meta     models.Meta         `json:"meta,omitempty"`
}

// InitResult carries the hosted page URL. An empty CheckoutURL means the
// gateway accepted the reference but the page cannot be opened; callers treat
// that as a blocked attempt, not a pending one.
type InitResult struct {
	CheckoutURL string `json:"checkoutUrl"`
	TxRef       string `json:"txRef"`
}

// VerifyResult is the gateway's final word on a transaction.
type VerifyResult struct {
	Status       string  `json:"status"`
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
	GatewayTxnID string  `json:"gatewayTxnId"`
}

// Gateway abstracts the payment provider so the monitor and handlers can be
// exercised against fakes.
type Gateway interface {
	Initialize(ctx context.Context, req InitRequest) (InitResult, error)
	Status(ctx context.Context, txRef string) (string, error)
	Verify(ctx context.Context, txRef string) (VerifyResult, error)
}

// Client talks to the provider's REST API.
type Client struct {
	BaseURL string
	Secret  string
	HTTP    *http.Client
}

func NewClient(baseURL, secret string) *Client {
	return &Client{
		BaseURL: baseURL,
		Secret:  secret,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Secret)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Message string `json:"message"`
		}
		json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Message != "" {
			return fmt.Errorf("gateway %s %s: %s", method, path, apiErr.Message)
		}
		return fmt.Errorf("gateway %s %s: status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) Initialize(ctx context.Context, req InitRequest) (InitResult, error) {
	var out struct {
		Status string `json:"status"`
		Data   struct {
			CheckoutURL string `json:"checkout_url"`
			TxRef       string `json:"tx_ref"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/payments/initialize", req, &out); err != nil {
		return InitResult{}, err
	}
	res := InitResult{CheckoutURL: out.Data.CheckoutURL, TxRef: out.Data.TxRef}
	if res.TxRef == "" {
		res.TxRef = req.TxRef
	}
	return res, nil
}

func (c *Client) Status(ctx context.Context, txRef string) (string, error) {
	if txRef == "" {
		return "", errors.New("gateway: empty txRef")
	}
	var out struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/payments/status/"+txRef, nil, &out); err != nil {
		return "", err
	}
	switch out.Status {
	case StatusSuccess, StatusFailed:
		return out.Status, nil
	default:
		return StatusPending, nil
	}
}

func (c *Client) Verify(ctx context.Context, txRef string) (VerifyResult, error) {
	if txRef == "" {
		return VerifyResult{}, errors.New("gateway: empty txRef")
	}
	var out struct {
		Status string `json:"status"`
		Data   struct {
			Amount       float64 `json:"amount"`
			Currency     string  `json:"currency"`
			GatewayTxnID string  `json:"gateway_txn_id"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/payments/verify", map[string]string{"txRef": txRef}, &out); err != nil {
		return VerifyResult{}, err
	}
	return VerifyResult{
		Status:       out.Status,
		Amount:       out.Data.Amount,
		Currency:     out.Data.Currency,
		GatewayTxnID: out.Data.GatewayTxnID,
	}, nil
}
