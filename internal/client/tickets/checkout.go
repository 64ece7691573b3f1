package tickets

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/eventdesk/internal/client/api"
	"github.com/dmitrijs2005/eventdesk/internal/client/models"
	"github.com/dmitrijs2005/eventdesk/internal/client/storage"
	"github.com/dmitrijs2005/eventdesk/internal/common"
	"github.com/dmitrijs2005/eventdesk/internal/logging"
)

var ErrNotPaid = errors.New("payment not completed")

type PaymentRemote interface {
	CreateCheckoutSession(ctx context.Context, req api.CheckoutRequest) (*models.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*models.CheckoutSession, error)
	SyncPayment(ctx context.Context, sessionID string) (*models.Ticket, error)
}

// Checkout drives the hosted payment flow: open a session, send the user to
// its URL, and turn the provider's success callback into a ticket. The event
// being paid for is persisted so the callback can be handled by a later
// process.
type Checkout struct {
	repo   storage.Repository
	remote PaymentRemote
	status *StatusCache
	log    logging.Logger
}

func NewCheckout(repo storage.Repository, remote PaymentRemote, status *StatusCache, log logging.Logger) *Checkout {
	if log == nil {
		log = logging.Nop()
	}
	return &Checkout{repo: repo, remote: remote, status: status, log: log}
}

// Start opens a checkout session for one ticket to eventID and remembers the
// event as pending.
func (c *Checkout) Start(ctx context.Context, eventID int64) (*models.CheckoutSession, error) {
	cs, err := c.remote.CreateCheckoutSession(ctx, api.CheckoutRequest{EventID: eventID, Quantity: 1})
	if err != nil {
		return nil, err
	}
	if err := c.repo.Set(ctx, common.KeyPendingCheckoutEvent, []byte(strconv.FormatInt(eventID, 10))); err != nil {
		return nil, fmt.Errorf("save pending checkout: %w", err)
	}
	c.log.Info(ctx, "checkout started", "event_id", eventID, "session_id", cs.ID)
	return cs, nil
}

// PendingEvent returns the event of an unfinished checkout, if any.
func (c *Checkout) PendingEvent(ctx context.Context) (int64, bool, error) {
	b, err := c.repo.Get(ctx, common.KeyPendingCheckoutEvent)
	if err != nil {
		return 0, false, err
	}
	if b == nil {
		return 0, false, nil
	}
	id, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0, false, nil
	}
	return id, true, nil
}

// Complete handles the provider's success callback for sessionID on behalf
// of userID. It returns ErrNotPaid while the provider has not captured the
// payment.
func (c *Checkout) Complete(ctx context.Context, userID int64, sessionID string) (*models.Ticket, error) {
	cs, err := c.remote.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !cs.Paid() {
		return nil, ErrNotPaid
	}

	t, err := c.remote.SyncPayment(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	eventID := cs.EventID.Int64()
	if eventID == 0 {
		if pending, ok, _ := c.PendingEvent(ctx); ok {
			eventID = pending
		}
	}
	if eventID != 0 {
		if err := c.status.MarkPaidFromCallback(ctx, userID, eventID); err != nil {
			c.log.Warn(ctx, "ticket flag not saved", "event_id", eventID, "error", err)
		}
	}
	if err := c.repo.Delete(ctx, common.KeyPendingCheckoutEvent); err != nil {
		c.log.Warn(ctx, "pending checkout not cleared", "error", err)
	}
	c.log.Info(ctx, "checkout completed", "event_id", eventID, "ticket_id", t.ID)
	return t, nil
}
