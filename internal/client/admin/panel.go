// Package admin implements the back-office panels: users, teams and events
// loaded from the consolidated dashboard read and edited optimistically.
//
// Every mutation validates first, changes the in-memory list at once, then
// calls the backend. A failed call restores the list and its counters to
// the exact state before the change and returns the backend's error.
// Successful event edits and team roster changes drop the affected
// permission decisions.
package admin

import (
	"context"
	"time"

	"github.com/dmitrijs2005/eventdesk/internal/client/api"
	"github.com/dmitrijs2005/eventdesk/internal/client/models"
	"github.com/dmitrijs2005/eventdesk/internal/client/optimistic"
	"github.com/dmitrijs2005/eventdesk/internal/logging"
)

// Counter names.
const (
	CountTotal     = "total"
	CountAdmins    = "admins"
	CountMembers   = "members"
	CountPublished = "published"
	CountDraft     = "draft"
	CountCancelled = "cancelled"
)

type Remote interface {
	Dashboard(ctx context.Context) (*models.Dashboard, error)

	CreateUser(ctx context.Context, in models.UserInput) (*models.User, error)
	UpdateUser(ctx context.Context, id int64, patch api.UserPatch) (*models.User, error)
	DeleteUser(ctx context.Context, id int64) error

	CreateTeam(ctx context.Context, in models.TeamInput) (*models.Team, error)
	UpdateTeam(ctx context.Context, id int64, in models.TeamInput) (*models.Team, error)
	DeleteTeam(ctx context.Context, id int64) error
	AddTeamMember(ctx context.Context, teamID, userID int64, role string) (*models.TeamMember, error)
	RemoveTeamMember(ctx context.Context, teamID, userID int64) error

	CreateEvent(ctx context.Context, in models.EventInput) (*models.Event, error)
	UpdateEvent(ctx context.Context, id int64, in models.EventInput) (*models.Event, error)
	DeleteEvent(ctx context.Context, id int64) error
}

// Invalidator drops cached permission decisions; *permissions.Resolver
// implements it.
type Invalidator interface {
	InvalidateEvent(ctx context.Context, eventID int64) error
	InvalidateUser(ctx context.Context, userID int64) error
	InvalidateAll(ctx context.Context) error
}

type Panel struct {
	remote Remote
	perms  Invalidator
	log    logging.Logger

	Users  *optimistic.List[models.User]
	Teams  *optimistic.List[models.Team]
	Events *optimistic.List[models.Event]

	loadedAt time.Time
}

type Option func(*Panel)

func WithLogger(l logging.Logger) Option {
	return func(p *Panel) { p.log = l }
}

// WithInvalidator connects the panel to the permission cache.
func WithInvalidator(inv Invalidator) Option {
	return func(p *Panel) { p.perms = inv }
}

func New(remote Remote, opts ...Option) *Panel {
	p := &Panel{
		remote: remote,
		log:    logging.Nop(),
		Users:  optimistic.NewList("users", countUsers),
		Teams:  optimistic.NewList("teams", countTeams),
		Events: optimistic.NewList("events", countEvents),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Load replaces all three lists with a fresh dashboard read.
func (p *Panel) Load(ctx context.Context) error {
	d, err := p.remote.Dashboard(ctx)
	if err != nil {
		return err
	}
	p.Users.Reset(d.Users)
	p.Teams.Reset(d.Teams)
	p.Events.Reset(d.Events)
	p.loadedAt = time.Now()
	p.log.Debug(ctx, "admin dashboard loaded",
		"users", len(d.Users), "teams", len(d.Teams), "events", len(d.Events))
	return nil
}

func (p *Panel) LoadedAt() time.Time { return p.loadedAt }

func (p *Panel) invalidateEvent(ctx context.Context, id int64) {
	if p.perms == nil {
		return
	}
	if err := p.perms.InvalidateEvent(ctx, id); err != nil {
		p.log.Warn(ctx, "permission cache invalidation failed", "event_id", id, "error", err)
	}
}

func (p *Panel) invalidateUser(ctx context.Context, id int64) {
	if p.perms == nil {
		return
	}
	if err := p.perms.InvalidateUser(ctx, id); err != nil {
		p.log.Warn(ctx, "permission cache invalidation failed", "user_id", id, "error", err)
	}
}

func (p *Panel) invalidateAll(ctx context.Context) {
	if p.perms == nil {
		return
	}
	if err := p.perms.InvalidateAll(ctx); err != nil {
		p.log.Warn(ctx, "permission cache invalidation failed", "error", err)
	}
}

func countUsers(us []models.User) optimistic.Counters {
	c := optimistic.Counters{CountTotal: len(us), CountAdmins: 0}
	for _, u := range us {
		if u.IsSiteAdmin {
			c[CountAdmins]++
		}
	}
	return c
}

func countTeams(ts []models.Team) optimistic.Counters {
	c := optimistic.Counters{CountTotal: len(ts), CountMembers: 0}
	for _, t := range ts {
		c[CountMembers] += t.MemberCount
	}
	return c
}

func countEvents(es []models.Event) optimistic.Counters {
	c := optimistic.Counters{CountTotal: len(es), CountPublished: 0, CountDraft: 0, CountCancelled: 0}
	for _, e := range es {
		switch e.Status {
		case models.EventPublished:
			c[CountPublished]++
		case models.EventDraft:
			c[CountDraft]++
		case models.EventCancelled:
			c[CountCancelled]++
		}
	}
	return c
}
