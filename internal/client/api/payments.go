package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/dmitrijs2005/eventdesk/internal/client/models"
)

type CheckoutRequest struct {
	EventID    int64  `json:"eventId"`
	Quantity   int    `json:"quantity,omitempty"`
	SuccessURL string `json:"successUrl,omitempty"`
	CancelURL  string `json:"cancelUrl,omitempty"`
}

// CreateCheckoutSession asks the backend to open a payment-provider session.
// The returned URL is where the user completes payment.
func (c *Client) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*models.CheckoutSession, error) {
	var s models.CheckoutSession
	if err := c.Do(ctx, http.MethodPost, "/stripe/create-checkout-session", req, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) GetCheckoutSession(ctx context.Context, sessionID string) (*models.CheckoutSession, error) {
	var s models.CheckoutSession
	if err := c.Do(ctx, http.MethodGet, "/stripe/checkout-sessions/"+url.PathEscape(sessionID), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// SyncPayment makes the backend reconcile sessionID with the provider and
// issue the ticket if payment was captured.
func (c *Client) SyncPayment(ctx context.Context, sessionID string) (*models.Ticket, error) {
	var t models.Ticket
	if err := c.Do(ctx, http.MethodPost, "/stripe/sync-payment/"+url.PathEscape(sessionID), nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}
