// Package tickets remembers, per user and event, whether the user holds a
// paid ticket, and drives the hosted checkout that produces one.
//
// Only positive answers are cached. A cached positive is re-confirmed with
// the backend once per View and evicted when the backend disagrees, which
// covers refunds made elsewhere. A checkout callback marks the flag at once
// and confirms it in the background, retrying a single time after a delay.
package tickets

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/eventdesk/internal/client/api"
	"github.com/dmitrijs2005/eventdesk/internal/client/cache"
	"github.com/dmitrijs2005/eventdesk/internal/client/models"
	"github.com/dmitrijs2005/eventdesk/internal/client/storage"
	"github.com/dmitrijs2005/eventdesk/internal/common"
	"github.com/dmitrijs2005/eventdesk/internal/logging"
)

// DefaultConfirmDelay is the wait before the single confirmation retry.
const DefaultConfirmDelay = 3 * time.Second

type Remote interface {
	ListTickets(ctx context.Context, f api.TicketFilter) ([]models.Ticket, error)
}

type StatusCache struct {
	cache  *cache.Cache[bool]
	remote Remote
	log    logging.Logger
	delay  time.Duration

	mu     sync.Mutex
	closed bool
	ctx    context.Context
	cancel context.CancelFunc
	tasks  sync.WaitGroup
}

type Option func(*StatusCache)

func WithLogger(l logging.Logger) Option {
	return func(s *StatusCache) { s.log = l }
}

func WithConfirmDelay(d time.Duration) Option {
	return func(s *StatusCache) { s.delay = d }
}

func New(repo storage.Repository, remote Remote, opts ...Option) *StatusCache {
	s := &StatusCache{
		cache:  cache.New[bool](repo, "ticket", common.TicketKeyPrefix, 0),
		remote: remote,
		log:    logging.Nop(),
		delay:  DefaultConfirmDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

func statusKey(userID, eventID int64) string {
	return common.ScopedKey("", userID, eventID)
}

// Cached reports the stored flag without asking the backend.
func (s *StatusCache) Cached(ctx context.Context, userID, eventID int64) (bool, error) {
	paid, ok, err := s.cache.Get(ctx, statusKey(userID, eventID))
	if err != nil {
		return false, err
	}
	return ok && paid, nil
}

// Evict forgets the flag for one user and event.
func (s *StatusCache) Evict(ctx context.Context, userID, eventID int64) error {
	return s.cache.Evict(ctx, statusKey(userID, eventID))
}

// ServerHasPaid asks the backend whether userID holds a live paid ticket for
// eventID.
func (s *StatusCache) ServerHasPaid(ctx context.Context, userID, eventID int64) (bool, error) {
	ts, err := s.remote.ListTickets(ctx, api.TicketFilter{EventID: eventID, UserID: userID})
	if err != nil {
		return false, err
	}
	for _, t := range ts {
		if t.UserID.Int64() == userID && t.EventID.Int64() == eventID &&
			t.Paid && t.Status != models.TicketCancelled {
			return true, nil
		}
	}
	return false, nil
}

// Mount opens a view of one user's status for one event. A view asks the
// backend at most once; later calls reuse the answer.
func (s *StatusCache) Mount(userID, eventID int64) *View {
	return &View{s: s, userID: userID, eventID: eventID}
}

// MarkPaidFromCallback records a successful checkout for userID and eventID
// and confirms it with the backend in the background. If the backend does not
// report the ticket yet, it is asked once more after the confirm delay. A
// flag that is still unconfirmed is left in place; the next View re-checks it.
func (s *StatusCache) MarkPaidFromCallback(ctx context.Context, userID, eventID int64) error {
	if err := s.cache.Put(ctx, statusKey(userID, eventID), true); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.tasks.Add(1)
	go s.confirm(userID, eventID)
	return nil
}

func (s *StatusCache) confirm(userID, eventID int64) {
	defer s.tasks.Done()
	log := s.log.With("user_id", userID, "event_id", eventID)

	for attempt := 1; attempt <= 2; attempt++ {
		if attempt > 1 {
			t := time.NewTimer(s.delay)
			select {
			case <-s.ctx.Done():
				t.Stop()
				return
			case <-t.C:
			}
		}
		paid, err := s.ServerHasPaid(s.ctx, userID, eventID)
		if s.ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Warn(s.ctx, "ticket confirmation failed", "attempt", attempt, "error", err)
			continue
		}
		if paid {
			log.Debug(s.ctx, "ticket confirmed", "attempt", attempt)
			return
		}
	}
	log.Info(s.ctx, "ticket not confirmed yet, giving up")
}

// Wait blocks until background confirmations finish.
func (s *StatusCache) Wait() { s.tasks.Wait() }

// Close stops background confirmations and waits for them to exit. Results
// arriving afterwards are discarded.
func (s *StatusCache) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.tasks.Wait()
}
