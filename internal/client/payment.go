package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type PaymentRequest struct {
	OrderID              string  `json:"orderId"`
	Amount               float64 `json:"amount"`
	PaymentMethodDetails string  `json:"paymentMethodDetails"`
}

type PaymentResponse struct {
	ID              int64     `json:"id"`
	OrderID         string    `json:"orderId"`
	Amount          float64   `json:"amount"`
	PaymentMethod   string    `json:"paymentMethod"`
	PaymentStatus   string    `json:"paymentStatus"`
	TransactionID   string    `json:"transactionId"`
	TransactionDate time.Time `json:"transactionDate"`
}

type PaymentClient struct {
	gateway
}

func NewPaymentClient(baseURL string, httpClient *http.Client, timeout time.Duration) *PaymentClient {
	return &PaymentClient{newGateway("payment", baseURL, httpClient, timeout)}
}

// ProcessPayment submits a payment for an order total. A gateway-level
// decline (any 4xx) yields no outcome and no error; the caller decides what
// a missing outcome means. Server-side and transport failures are errors.
func (c *PaymentClient) ProcessPayment(ctx context.Context, request PaymentRequest) (*PaymentResponse, error) {
	url := c.baseURL + "/api/v1/payments/process"

	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("marshal payment request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		drain(resp)
		return nil, nil
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		drain(resp)
		return nil, fmt.Errorf("payment service returned status %d for order %s: %w", resp.StatusCode, request.OrderID, ErrUnavailable)
	}

	var outcome PaymentResponse
	if err := decodeJSON(resp, &outcome); err != nil {
		return nil, err
	}
	return &outcome, nil
}

// GetPaymentStatusByOrderID looks up the payment recorded for an order.
// Returns ErrNotFound when no payment exists for the order.
func (c *PaymentClient) GetPaymentStatusByOrderID(ctx context.Context, orderID string) (*PaymentResponse, error) {
	url := fmt.Sprintf("%s/api/v1/payments/status/order/%s", c.baseURL, orderID)

	resp, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		drain(resp)
		return nil, fmt.Errorf("payment for order %s: %w", orderID, ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		drain(resp)
		return nil, fmt.Errorf("payment service returned status %d for order %s: %w", resp.StatusCode, orderID, ErrUnavailable)
	}

	var outcome PaymentResponse
	if err := decodeJSON(resp, &outcome); err != nil {
		return nil, err
	}
	return &outcome, nil
}
