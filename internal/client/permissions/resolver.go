// Package permissions decides whether the signed-in user may edit an event.
//
// A user may edit an event they created, any event if they are a site
// admin, and events of a team in which they hold a privileged role. Checks
// run in that order and stop at the first match. Decisions are cached per
// (user, event) for a fixed time; a decision that could not be reached
// because the backend failed is a denial and is not cached.
package permissions

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/eventdesk/internal/client/cache"
	"github.com/dmitrijs2005/eventdesk/internal/client/models"
	"github.com/dmitrijs2005/eventdesk/internal/client/storage"
	"github.com/dmitrijs2005/eventdesk/internal/common"
	"github.com/dmitrijs2005/eventdesk/internal/logging"
)

// DefaultTTL bounds how long a decision is trusted.
const DefaultTTL = 30 * time.Minute

// IdentitySource yields the signed-in identity; *session.Store implements it.
type IdentitySource interface {
	Identity() (models.Identity, bool)
}

type Remote interface {
	IsSiteAdmin(ctx context.Context, userID int64) (bool, error)
	MembershipsForUser(ctx context.Context, userID int64) ([]models.TeamMembership, error)
}

type Resolver struct {
	identity IdentitySource
	remote   Remote
	cache    *cache.Cache[bool]
	log      logging.Logger
}

type options struct {
	ttl   time.Duration
	clock func() time.Time
	log   logging.Logger
}

type Option func(*options)

// WithTTL sets how long decisions are trusted. Non-positive values keep
// DefaultTTL; decisions always expire.
func WithTTL(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.ttl = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}

func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.log = l }
}

func New(repo storage.Repository, identity IdentitySource, remote Remote, opts ...Option) *Resolver {
	o := options{ttl: DefaultTTL, clock: time.Now, log: logging.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Resolver{
		identity: identity,
		remote:   remote,
		cache:    cache.New[bool](repo, "permission", common.PermissionKeyPrefix, o.ttl, cache.WithClock(o.clock)),
		log:      o.log,
	}
}

func decisionKey(userID, eventID int64) string {
	return common.ScopedKey("", userID, eventID)
}

// CanEdit reports whether the signed-in user may edit e. It never returns
// an error: anything that prevents a decision is a denial.
func (r *Resolver) CanEdit(ctx context.Context, e *models.Event) bool {
	if e == nil {
		return false
	}
	id, ok := r.identity.Identity()
	if !ok {
		return false
	}
	key := decisionKey(id.ID, e.ID)

	if v, hit, err := r.cache.Get(ctx, key); err != nil {
		r.log.Warn(ctx, "permission cache read failed", "key", key, "error", err)
	} else if hit {
		return v
	}

	allowed, err := r.resolve(ctx, id, e)
	if err != nil {
		r.log.Warn(ctx, "permission check failed, denying", "user_id", id.ID, "event_id", e.ID, "error", err)
		return false
	}

	if err := r.cache.Put(ctx, key, allowed); err != nil {
		r.log.Warn(ctx, "permission cache write failed", "key", key, "error", err)
	}
	return allowed
}

func (r *Resolver) resolve(ctx context.Context, id models.Identity, e *models.Event) (bool, error) {
	if e.CreatedBy != 0 && e.CreatedBy.Int64() == id.ID {
		return true, nil
	}

	admin, err := r.remote.IsSiteAdmin(ctx, id.ID)
	if err != nil {
		return false, err
	}
	if admin {
		return true, nil
	}

	if e.TeamID == 0 {
		return false, nil
	}
	memberships, err := r.remote.MembershipsForUser(ctx, id.ID)
	if err != nil {
		return false, err
	}
	for _, m := range memberships {
		if m.TeamID == e.TeamID {
			return m.Privileged(), nil
		}
	}
	return false, nil
}

// InvalidateEvent drops every user's decision about eventID.
func (r *Resolver) InvalidateEvent(ctx context.Context, eventID int64) error {
	suffix := ":" + strconv.FormatInt(eventID, 10)
	return r.cache.EvictMatching(ctx, func(key string) bool {
		return strings.HasSuffix(key, suffix)
	})
}

// InvalidateUser drops every decision made for userID.
func (r *Resolver) InvalidateUser(ctx context.Context, userID int64) error {
	return r.cache.EvictPrefix(ctx, strconv.FormatInt(userID, 10)+":")
}

func (r *Resolver) InvalidateAll(ctx context.Context) error {
	return r.cache.EvictAll(ctx)
}
