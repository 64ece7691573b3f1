package session

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/eventdesk/internal/client/storage"
	"github.com/dmitrijs2005/eventdesk/internal/logging"
)

// ChangeEvent announces that the keys were rewritten in durable storage by
// the store identified by Origin.
type ChangeEvent struct {
	Origin string
	Keys   []string
}

// Bus carries change notifications between stores sharing one storage.
type Bus interface {
	Publish(ctx context.Context, ev ChangeEvent) error
	// Subscribe returns a channel of events and a function that ends the
	// subscription and closes the channel.
	Subscribe() (<-chan ChangeEvent, func())
}

const subscriberBuffer = 16

// MemoryBus fans events out to every subscriber in the same process.
// A subscriber whose buffer is full misses the event; receivers re-read
// storage on every event, so a later event brings them up to date.
type MemoryBus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan ChangeEvent
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[int]chan ChangeEvent)}
}

func (b *MemoryBus) Publish(_ context.Context, ev ChangeEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe() (<-chan ChangeEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan ChangeEvent, subscriberBuffer)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
}

// StorageWatcher is a Bus for stores living in different processes. Publish
// appends to the storage change log; Run polls the log and delivers entries
// newer than the last one seen to local subscribers.
type StorageWatcher struct {
	repo     storage.Repository
	interval time.Duration
	log      logging.Logger
	fanout   *MemoryBus

	mu   sync.Mutex
	last int64
}

// NewStorageWatcher starts watching from the current end of the change log.
func NewStorageWatcher(ctx context.Context, repo storage.Repository, interval time.Duration, log logging.Logger) (*StorageWatcher, error) {
	last, err := repo.LastChangeSeq(ctx)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.Nop()
	}
	return &StorageWatcher{
		repo:     repo,
		interval: interval,
		log:      log,
		fanout:   NewMemoryBus(),
		last:     last,
	}, nil
}

func (w *StorageWatcher) Publish(ctx context.Context, ev ChangeEvent) error {
	_, err := w.repo.AppendChange(ctx, ev.Origin, ev.Keys)
	return err
}

func (w *StorageWatcher) Subscribe() (<-chan ChangeEvent, func()) {
	return w.fanout.Subscribe()
}

// Poll delivers every change logged since the previous poll.
func (w *StorageWatcher) Poll(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	changes, err := w.repo.ChangesSince(ctx, w.last)
	if err != nil {
		return err
	}
	for _, c := range changes {
		_ = w.fanout.Publish(ctx, ChangeEvent{Origin: c.Origin, Keys: c.Keys})
		w.last = c.Seq
	}
	return nil
}

// Run polls until ctx is done.
func (w *StorageWatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.Poll(ctx); err != nil && ctx.Err() == nil {
				w.log.Warn(ctx, "change log poll failed", "error", err)
			}
		}
	}
}
