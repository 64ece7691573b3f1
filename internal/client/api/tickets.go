package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dmitrijs2005/eventdesk/internal/client/models"
)

type TicketFilter struct {
	EventID int64
	UserID  int64
}

func (c *Client) ListTickets(ctx context.Context, f TicketFilter) ([]models.Ticket, error) {
	q := url.Values{}
	if f.EventID != 0 {
		q.Set("eventId", strconv.FormatInt(f.EventID, 10))
	}
	if f.UserID != 0 {
		q.Set("userId", strconv.FormatInt(f.UserID, 10))
	}
	path := "/tickets"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var tickets []models.Ticket
	if err := c.Do(ctx, http.MethodGet, path, nil, &tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

type TicketInput struct {
	EventID int64 `json:"eventId"`
	UserID  int64 `json:"userId,omitempty"`
}

func (c *Client) CreateTicket(ctx context.Context, in TicketInput) (*models.Ticket, error) {
	var t models.Ticket
	if err := c.Do(ctx, http.MethodPost, "/tickets", in, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

type TicketPatch struct {
	Status *string `json:"status,omitempty"`
}

func (c *Client) UpdateTicket(ctx context.Context, id int64, patch TicketPatch) (*models.Ticket, error) {
	var t models.Ticket
	if err := c.Do(ctx, http.MethodPatch, fmt.Sprintf("/tickets/%d", id), patch, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) DeleteTicket(ctx context.Context, id int64) error {
	return c.Do(ctx, http.MethodDelete, fmt.Sprintf("/tickets/%d", id), nil, nil)
}

func (c *Client) VerifyTicket(ctx context.Context, code string) (*models.TicketVerification, error) {
	var v models.TicketVerification
	if err := c.Do(ctx, http.MethodGet, "/tickets/verify/"+url.PathEscape(code), nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *Client) UseTicket(ctx context.Context, code string) (*models.Ticket, error) {
	var t models.Ticket
	if err := c.Do(ctx, http.MethodPost, "/tickets/use/"+url.PathEscape(code), nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}
