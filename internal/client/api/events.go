package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dmitrijs2005/eventdesk/internal/client/models"
)

// EventFilter narrows GET /events. Zero fields are omitted.
type EventFilter struct {
	Search     string
	CategoryID int64
	Status     models.EventStatus
	Page       int
	Limit      int
}

func (f EventFilter) query() string {
	q := url.Values{}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.CategoryID != 0 {
		q.Set("categoryId", strconv.FormatInt(f.CategoryID, 10))
	}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

func (c *Client) listEvents(ctx context.Context, path string) ([]models.Event, error) {
	var events []models.Event
	if err := c.Do(ctx, http.MethodGet, path, nil, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (c *Client) ListEvents(ctx context.Context, f EventFilter) ([]models.Event, error) {
	return c.listEvents(ctx, "/events"+f.query())
}

func (c *Client) DraftEvents(ctx context.Context) ([]models.Event, error) {
	return c.listEvents(ctx, "/events/draft")
}

func (c *Client) PastEvents(ctx context.Context) ([]models.Event, error) {
	return c.listEvents(ctx, "/events/past")
}

func (c *Client) TeamEvents(ctx context.Context, teamID int64) ([]models.Event, error) {
	return c.listEvents(ctx, fmt.Sprintf("/events/team/%d", teamID))
}

func (c *Client) GetEvent(ctx context.Context, id int64) (*models.Event, error) {
	var e models.Event
	if err := c.Do(ctx, http.MethodGet, fmt.Sprintf("/events/%d", id), nil, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (c *Client) CreateEvent(ctx context.Context, in models.EventInput) (*models.Event, error) {
	var e models.Event
	if err := c.Do(ctx, http.MethodPost, "/events", in, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (c *Client) UpdateEvent(ctx context.Context, id int64, in models.EventInput) (*models.Event, error) {
	var e models.Event
	if err := c.Do(ctx, http.MethodPatch, fmt.Sprintf("/events/%d", id), in, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (c *Client) DeleteEvent(ctx context.Context, id int64) error {
	return c.Do(ctx, http.MethodDelete, fmt.Sprintf("/events/%d", id), nil, nil)
}

func (c *Client) Categories(ctx context.Context) ([]models.Category, error) {
	var cats []models.Category
	if err := c.Do(ctx, http.MethodGet, "/events/categories", nil, &cats); err != nil {
		return nil, err
	}
	return cats, nil
}

func (c *Client) RegisterForEvent(ctx context.Context, eventID int64) (*models.Registration, error) {
	var r models.Registration
	if err := c.Do(ctx, http.MethodPost, fmt.Sprintf("/events/%d/register", eventID), nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) CancelRegistration(ctx context.Context, registrationID int64) error {
	return c.Do(ctx, http.MethodPost, fmt.Sprintf("/events/registrations/%d/cancel", registrationID), nil, nil)
}

func (c *Client) EventRegistrations(ctx context.Context, eventID int64) ([]models.Registration, error) {
	var regs []models.Registration
	if err := c.Do(ctx, http.MethodGet, fmt.Sprintf("/events/%d/registrations", eventID), nil, &regs); err != nil {
		return nil, err
	}
	return regs, nil
}
