package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/eventdesk/internal/client/api"
	"github.com/dmitrijs2005/eventdesk/internal/client/models"
	"github.com/dmitrijs2005/eventdesk/internal/client/validate"
	"github.com/dmitrijs2005/eventdesk/internal/common"
)

func (a *App) events(ctx context.Context, args []string) error {
	es, err := a.Client.ListEvents(ctx, api.EventFilter{Search: strings.Join(args, " ")})
	if err != nil {
		return err
	}
	a.printEvents(es)
	return nil
}

func (a *App) drafts(ctx context.Context, _ []string) error {
	es, err := a.Client.DraftEvents(ctx)
	if err != nil {
		return err
	}
	a.printEvents(es)
	return nil
}

func (a *App) past(ctx context.Context, _ []string) error {
	es, err := a.Client.PastEvents(ctx)
	if err != nil {
		return err
	}
	a.printEvents(es)
	return nil
}

func (a *App) categories(ctx context.Context, _ []string) error {
	cs, err := a.Client.Categories(ctx)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(cs))
	for _, c := range cs {
		rows = append(rows, []string{idStr(c.ID), c.Name})
	}
	a.table("ID\tNAME", rows)
	return nil
}

func (a *App) loadEvent(ctx context.Context, arg string) (*models.Event, error) {
	eventID, err := ParseID(arg)
	if err != nil {
		return nil, badInput(err)
	}
	return a.Client.GetEvent(ctx, eventID)
}

// editable loads the event and refuses with ErrPermissionDenied unless the
// signed-in user may edit it.
func (a *App) editable(ctx context.Context, arg string) (*models.Event, error) {
	e, err := a.loadEvent(ctx, arg)
	if err != nil {
		return nil, err
	}
	if !a.Permissions.CanEdit(ctx, e) {
		return nil, common.ErrPermissionDenied
	}
	return e, nil
}

func (a *App) event(ctx context.Context, args []string) error {
	e, err := a.loadEvent(ctx, args[0])
	if err != nil {
		return err
	}

	a.println("#%d %s [%s]", e.ID, e.Title, e.Status)
	if e.Description != "" {
		a.println("%s", e.Description)
	}
	a.println("When:      %s - %s", a.date(e.StartsAt), a.date(e.EndsAt))
	if e.Location != "" {
		a.println("Where:     %s", e.Location)
	}
	a.println("Price:     %s", price(e.Price))
	if e.MaxAttendees > 0 {
		a.println("Attendees: %d / %d", e.Attendees, e.MaxAttendees)
	} else {
		a.println("Attendees: %d", e.Attendees)
	}

	if !a.isLoggedIn() {
		return nil
	}
	if a.Permissions.CanEdit(ctx, e) {
		a.println("You can edit this event (editevent %d)", e.ID)
	}
	if e.Paid() {
		paid, err := a.Tickets.Mount(a.userID(), e.ID).HasPaid(ctx)
		switch {
		case err != nil:
			a.Logger.Debug(ctx, "ticket status unavailable", "event_id", e.ID, "error", err)
		case paid:
			a.println("You have a ticket for this event")
		default:
			a.println("Get a ticket: buy %d", e.ID)
		}
	}
	return nil
}

// askEvent prompts for every editable field, offering cur as defaults.
func (a *App) askEvent(cur models.EventInput) (models.EventInput, error) {
	in := cur
	var err error

	if in.Title, err = a.askDefault("Title", cur.Title); err != nil {
		return in, err
	}
	if in.Description, err = a.askDefault("Description", cur.Description); err != nil {
		return in, err
	}
	if in.Location, err = a.askDefault("Location", cur.Location); err != nil {
		return in, err
	}

	startDef, endDef := "", ""
	if !cur.StartsAt.IsZero() {
		startDef = a.date(cur.StartsAt)
	}
	if !cur.EndsAt.IsZero() {
		endDef = a.date(cur.EndsAt)
	}
	s, err := a.askDefault("Starts (YYYY-MM-DD HH:MM)", startDef)
	if err != nil {
		return in, err
	}
	if in.StartsAt, err = ParseTime(s, a.loc); err != nil {
		return in, badInput(err)
	}
	s, err = a.askDefault("Ends (YYYY-MM-DD HH:MM)", endDef)
	if err != nil {
		return in, err
	}
	if in.EndsAt, err = ParseTime(s, a.loc); err != nil {
		return in, badInput(err)
	}

	s, err = a.askDefault("Price (0 for free)", strconv.FormatFloat(cur.Price, 'f', -1, 64))
	if err != nil {
		return in, err
	}
	if in.Price, err = strconv.ParseFloat(s, 64); err != nil {
		return in, badInput(fmt.Errorf("%q is not a price", s))
	}

	s, err = a.askDefault("Capacity (0 for unlimited)", strconv.Itoa(cur.MaxAttendees))
	if err != nil {
		return in, err
	}
	if in.MaxAttendees, err = strconv.Atoi(s); err != nil {
		return in, badInput(fmt.Errorf("%q is not a number", s))
	}

	s, err = a.askDefault("Team id (0 for none)", strconv.FormatInt(cur.TeamID, 10))
	if err != nil {
		return in, err
	}
	if in.TeamID, err = parseOptionalID(s); err != nil {
		return in, badInput(err)
	}

	s, err = a.askDefault("Category id (0 for none)", strconv.FormatInt(cur.CategoryID, 10))
	if err != nil {
		return in, err
	}
	if in.CategoryID, err = parseOptionalID(s); err != nil {
		return in, badInput(err)
	}
	return in, nil
}

func (a *App) newEvent(ctx context.Context, _ []string) error {
	in, err := a.askEvent(models.EventInput{Status: models.EventDraft, IsPublic: true})
	if err != nil {
		return err
	}
	if err := validate.Event(in); err != nil {
		return err
	}
	e, err := a.Client.CreateEvent(ctx, in)
	if err != nil {
		return err
	}
	a.println("Created event #%d (%s), publish it with: publish %d", e.ID, e.Status, e.ID)
	return nil
}

func (a *App) editEvent(ctx context.Context, args []string) error {
	e, err := a.editable(ctx, args[0])
	if err != nil {
		return err
	}
	in, err := a.askEvent(e.Input())
	if err != nil {
		return err
	}
	if err := validate.Event(in); err != nil {
		return err
	}
	if _, err := a.Client.UpdateEvent(ctx, e.ID, in); err != nil {
		return err
	}
	a.invalidateEvent(ctx, e.ID)
	a.println("Event #%d updated", e.ID)
	return nil
}

func (a *App) publish(ctx context.Context, args []string) error {
	e, err := a.editable(ctx, args[0])
	if err != nil {
		return err
	}
	if e.Status == models.EventPublished {
		a.println("Event #%d is already published", e.ID)
		return nil
	}
	in := e.Input()
	in.Status = models.EventPublished
	if err := validate.Event(in); err != nil {
		return err
	}
	if _, err := a.Client.UpdateEvent(ctx, e.ID, in); err != nil {
		return err
	}
	a.invalidateEvent(ctx, e.ID)
	a.println("Event #%d published", e.ID)
	return nil
}

func (a *App) deleteEvent(ctx context.Context, args []string) error {
	e, err := a.editable(ctx, args[0])
	if err != nil {
		return err
	}
	if err := a.Client.DeleteEvent(ctx, e.ID); err != nil {
		return err
	}
	a.invalidateEvent(ctx, e.ID)
	a.println("Event #%d deleted", e.ID)
	return nil
}

func (a *App) invalidateEvent(ctx context.Context, eventID int64) {
	if err := a.Permissions.InvalidateEvent(ctx, eventID); err != nil {
		a.Logger.Warn(ctx, "permission cache invalidation failed", "event_id", eventID, "error", err)
	}
}

func (a *App) join(ctx context.Context, args []string) error {
	eventID, err := ParseID(args[0])
	if err != nil {
		return badInput(err)
	}
	r, err := a.Client.RegisterForEvent(ctx, eventID)
	if err != nil {
		return err
	}
	a.println("Registered for event #%d (registration %d)", eventID, r.ID)
	return nil
}

func (a *App) cancel(ctx context.Context, args []string) error {
	regID, err := ParseID(args[0])
	if err != nil {
		return badInput(err)
	}
	if err := a.Client.CancelRegistration(ctx, regID); err != nil {
		return err
	}
	a.println("Registration %d cancelled", regID)
	return nil
}

func (a *App) attendees(ctx context.Context, args []string) error {
	eventID, err := ParseID(args[0])
	if err != nil {
		return badInput(err)
	}
	rs, err := a.Client.EventRegistrations(ctx, eventID)
	if err != nil {
		return err
	}
	if len(rs) == 0 {
		a.println("No registrations")
		return nil
	}
	rows := make([][]string, 0, len(rs))
	for _, r := range rs {
		rows = append(rows, []string{idStr(r.ID), idStr(r.UserID.Int64()), r.Username, r.Status, a.date(r.CreatedAt)})
	}
	a.table("ID\tUSER\tUSERNAME\tSTATUS\tREGISTERED", rows)
	return nil
}
