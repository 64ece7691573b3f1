package admin

import (
	"context"

	"github.com/dmitrijs2005/eventdesk/internal/client/models"
	"github.com/dmitrijs2005/eventdesk/internal/client/optimistic"
	"github.com/dmitrijs2005/eventdesk/internal/client/validate"
)

func eventID(id int64) func(models.Event) bool {
	return func(e models.Event) bool { return e.ID == id }
}

func withInput(e models.Event, in models.EventInput) models.Event {
	e.Title = in.Title
	e.Description = in.Description
	if in.Status != "" {
		e.Status = in.Status
	}
	e.TeamID = models.FlexID(in.TeamID)
	e.CategoryID = models.FlexID(in.CategoryID)
	e.Location = in.Location
	e.Price = in.Price
	e.MaxAttendees = in.MaxAttendees
	e.IsPublic = in.IsPublic
	e.StartsAt = in.StartsAt
	e.EndsAt = in.EndsAt
	return e
}

func (p *Panel) CreateEvent(ctx context.Context, in models.EventInput) (*models.Event, error) {
	placeholder := withInput(models.Event{Status: models.EventDraft}, in)
	return optimistic.Run(ctx, p.Events, optimistic.Mutation[models.Event, *models.Event]{
		Validate: func() error { return validate.Event(in) },
		Apply:    optimistic.Append(placeholder),
		Remote: func(ctx context.Context) (*models.Event, error) {
			return p.remote.CreateEvent(ctx, in)
		},
		Reconcile: func(items []models.Event, created *models.Event) []models.Event {
			return optimistic.ReplaceWhere(eventID(0), *created)(items)
		},
	})
}

func (p *Panel) UpdateEvent(ctx context.Context, id int64, in models.EventInput) (*models.Event, error) {
	current, ok := find(p.Events.Items(), eventID(id))
	if !ok {
		return nil, errNotListed("event", id)
	}

	e, err := optimistic.Run(ctx, p.Events, optimistic.Mutation[models.Event, *models.Event]{
		Validate: func() error { return validate.Event(in) },
		Apply:    optimistic.ReplaceWhere(eventID(id), withInput(current, in)),
		Remote: func(ctx context.Context) (*models.Event, error) {
			return p.remote.UpdateEvent(ctx, id, in)
		},
		Reconcile: func(items []models.Event, updated *models.Event) []models.Event {
			return optimistic.ReplaceWhere(eventID(id), *updated)(items)
		},
	})
	if err == nil {
		p.invalidateEvent(ctx, id)
	}
	return e, err
}

// SetEventStatus publishes or cancels an event.
func (p *Panel) SetEventStatus(ctx context.Context, id int64, status models.EventStatus) (*models.Event, error) {
	current, ok := find(p.Events.Items(), eventID(id))
	if !ok {
		return nil, errNotListed("event", id)
	}
	in := current.Input()
	in.Status = status
	return p.UpdateEvent(ctx, id, in)
}

func (p *Panel) DeleteEvent(ctx context.Context, id int64) error {
	_, err := optimistic.Run(ctx, p.Events, optimistic.Mutation[models.Event, struct{}]{
		Apply: optimistic.RemoveWhere(eventID(id)),
		Remote: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, p.remote.DeleteEvent(ctx, id)
		},
	})
	if err == nil {
		p.invalidateEvent(ctx, id)
	}
	return err
}
