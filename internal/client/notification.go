package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type NotificationRequest struct {
	RecipientEmail string `json:"recipientEmail"`
	Subject        string `json:"subject"`
	MessageBody    string `json:"messageBody"`
	Type           string `json:"type"`
}

const NotificationTypeOrderConfirmation = "ORDER_CONFIRMATION"

type NotificationClient struct {
	gateway
}

func NewNotificationClient(baseURL string, httpClient *http.Client, timeout time.Duration) *NotificationClient {
	return &NotificationClient{newGateway("notification", baseURL, httpClient, timeout)}
}

// SendEmailNotification delivers a best-effort email. A remote rejection
// (4xx) returns false without an error; server-side and transport failures
// return an error. The caller owns the decision to swallow either outcome.
func (c *NotificationClient) SendEmailNotification(ctx context.Context, request NotificationRequest) (bool, error) {
	url := c.baseURL + "/api/v1/notifications/email"

	body, err := json.Marshal(request)
	if err != nil {
		return false, fmt.Errorf("marshal notification request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	drain(resp)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return true, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return false, nil
	default:
		return false, fmt.Errorf("notification service returned status %d for %s: %w", resp.StatusCode, request.RecipientEmail, ErrUnavailable)
	}
}
