package storage

import (
	"context"
	"time"
)

// Entry is a stored value together with its optional expiry.
type Entry struct {
	Key       string
	Value     []byte
	ExpiresAt time.Time // zero means the entry never expires
	UpdatedAt time.Time
}

// Expired reports whether the entry has an expiry at or before now.
func (e *Entry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

// Change is one published change-set, ordered by Seq.
type Change struct {
	Seq    int64
	Origin string
	Keys   []string
}

// Repository is the durable key-value store shared by every client process
// using the same database file. Missing keys are reported as (nil, nil).
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	GetEntry(ctx context.Context, key string) (*Entry, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithExpiry(ctx context.Context, key string, value []byte, expiresAt time.Time) error
	Delete(ctx context.Context, keys ...string) error
	DeletePrefix(ctx context.Context, prefix string) error
	List(ctx context.Context, prefix string) (map[string][]byte, error)
	Clear(ctx context.Context) error

	AppendChange(ctx context.Context, origin string, keys []string) (int64, error)
	ChangesSince(ctx context.Context, seq int64) ([]Change, error)
	LastChangeSeq(ctx context.Context) (int64, error)
}
