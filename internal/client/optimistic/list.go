// Package optimistic applies list mutations locally before the backend
// confirms them and restores the previous state wholesale if it refuses.
//
// A List holds items plus counters derived from them. Apply snapshots both,
// applies the change and recomputes the counters; Commit keeps the result
// and Rollback puts the snapshot back. Readers therefore only ever see the
// state before or after a mutation, never a mix. One mutation may be
// pending at a time.
package optimistic

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"

	"github.com/dmitrijs2005/eventdesk/internal/metrics"
)

// ErrPending is returned by Apply while another mutation awaits its outcome.
var ErrPending = errors.New("another change is still pending")

// Counters maps a counter name (e.g. "published") to its value.
type Counters map[string]int

type List[T any] struct {
	name  string
	count func([]T) Counters

	mu       sync.Mutex
	items    []T
	counters Counters
	snapshot *state[T]
}

type state[T any] struct {
	items    []T
	counters Counters
}

// NewList returns a list named name (used in metrics). count derives the
// counters from the items and may be nil.
func NewList[T any](name string, count func([]T) Counters) *List[T] {
	if count == nil {
		count = func([]T) Counters { return Counters{} }
	}
	return &List[T]{name: name, count: count, counters: Counters{}}
}

// Items returns a copy of the current items.
func (l *List[T]) Items() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.items)
}

func (l *List[T]) Counters() Counters {
	l.mu.Lock()
	defer l.mu.Unlock()
	return maps.Clone(l.counters)
}

func (l *List[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Reset replaces the contents with a fresh read from the backend and drops
// any pending snapshot.
func (l *List[T]) Reset(items []T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = slices.Clone(items)
	l.counters = l.count(l.items)
	l.snapshot = nil
}

// Apply snapshots the list and replaces its items with mutate's result.
// mutate receives a copy it may modify and return.
func (l *List[T]) Apply(mutate func([]T) []T) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.snapshot != nil {
		return ErrPending
	}
	l.snapshot = &state[T]{items: l.items, counters: l.counters}
	l.items = mutate(slices.Clone(l.items))
	l.counters = l.count(l.items)
	return nil
}

// Commit keeps the applied state. A non-nil reconcile may adjust the items,
// e.g. to swap a placeholder for the backend's representation.
func (l *List[T]) Commit(reconcile func([]T) []T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.snapshot == nil {
		return
	}
	l.snapshot = nil
	if reconcile != nil {
		l.items = reconcile(slices.Clone(l.items))
		l.counters = l.count(l.items)
	}
}

// Rollback restores the items and counters captured by Apply.
func (l *List[T]) Rollback() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.snapshot == nil {
		return
	}
	l.items, l.counters = l.snapshot.items, l.snapshot.counters
	l.snapshot = nil
	metrics.ObserveRollback(l.name)
}

// Mutation describes one optimistic change. R is the backend's reply.
type Mutation[T, R any] struct {
	// Validate runs before anything changes; a non-nil error aborts.
	Validate func() error
	Apply    func([]T) []T
	Remote   func(ctx context.Context) (R, error)
	// Reconcile is optional.
	Reconcile func(items []T, reply R) []T
}

// Run validates, applies, calls the backend and then commits or rolls back.
// Errors from Validate and Remote are returned unchanged.
func Run[T, R any](ctx context.Context, l *List[T], m Mutation[T, R]) (R, error) {
	var zero R
	if m.Validate != nil {
		if err := m.Validate(); err != nil {
			return zero, err
		}
	}
	if err := l.Apply(m.Apply); err != nil {
		return zero, err
	}

	reply, err := m.Remote(ctx)
	if err != nil {
		l.Rollback()
		return zero, err
	}

	var reconcile func([]T) []T
	if m.Reconcile != nil {
		reconcile = func(items []T) []T { return m.Reconcile(items, reply) }
	}
	l.Commit(reconcile)
	return reply, nil
}

// Append returns a mutation adding item at the end.
func Append[T any](item T) func([]T) []T {
	return func(items []T) []T { return append(items, item) }
}

// ReplaceWhere returns a mutation replacing every item matching match.
func ReplaceWhere[T any](match func(T) bool, item T) func([]T) []T {
	return func(items []T) []T {
		for i := range items {
			if match(items[i]) {
				items[i] = item
			}
		}
		return items
	}
}

// RemoveWhere returns a mutation dropping every item matching match.
func RemoveWhere[T any](match func(T) bool) func([]T) []T {
	return func(items []T) []T { return slices.DeleteFunc(items, match) }
}
