package tickets

import (
	"context"
	"sync"
)

type View struct {
	s       *StatusCache
	userID  int64
	eventID int64

	mu      sync.Mutex
	checked bool
	paid    bool
}

// HasPaid reports whether the user holds a paid ticket. A cached positive is
// confirmed with the backend and evicted if the backend disagrees. Without a
// cached positive the backend is asked and a positive answer is stored. When
// the backend fails the cached flag is returned and the next call asks again.
func (v *View) HasPaid(ctx context.Context) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.checked {
		return v.paid, nil
	}

	s := v.s
	key := statusKey(v.userID, v.eventID)
	log := s.log.With("user_id", v.userID, "event_id", v.eventID)

	cached, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		log.Warn(ctx, "ticket cache read failed", "error", err)
		ok = false
	}
	cached = ok && cached

	paid, err := s.ServerHasPaid(ctx, v.userID, v.eventID)
	if err != nil {
		return cached, err
	}

	switch {
	case cached && !paid:
		log.Info(ctx, "cached ticket flag is stale, evicting")
		if err := s.cache.Evict(ctx, key); err != nil {
			log.Warn(ctx, "ticket cache evict failed", "error", err)
		}
	case !cached && paid:
		if err := s.cache.Put(ctx, key, true); err != nil {
			log.Warn(ctx, "ticket cache write failed", "error", err)
		}
	}

	v.checked, v.paid = true, paid
	return paid, nil
}

// Reset makes the next HasPaid consult the backend again.
func (v *View) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.checked = false
}
