package cli

import (
	"context"

	"github.com/dmitrijs2005/eventdesk/internal/client/api"
)

func (a *App) tickets(ctx context.Context, _ []string) error {
	ts, err := a.Client.ListTickets(ctx, api.TicketFilter{UserID: a.userID()})
	if err != nil {
		return err
	}
	a.printTickets(ts)
	return nil
}

func (a *App) buy(ctx context.Context, args []string) error {
	eventID, err := ParseID(args[0])
	if err != nil {
		return badInput(err)
	}
	if paid, err := a.Tickets.Mount(a.userID(), eventID).HasPaid(ctx); err == nil && paid {
		a.println("You already have a ticket for event #%d", eventID)
		return nil
	}
	cs, err := a.Checkout.Start(ctx, eventID)
	if err != nil {
		return err
	}
	a.println("Complete the payment at:")
	a.println("  %s", cs.URL)
	a.println("Then run: paid %s", cs.ID)
	return nil
}

func (a *App) paid(ctx context.Context, args []string) error {
	t, err := a.Checkout.Complete(ctx, a.userID(), args[0])
	if err != nil {
		return err
	}
	a.println("Payment confirmed, ticket %s for event #%d", t.Code, t.EventID.Int64())
	return nil
}

func (a *App) verify(ctx context.Context, args []string) error {
	v, err := a.Client.VerifyTicket(ctx, args[0])
	if err != nil {
		return err
	}
	if !v.Valid {
		msg := v.Message
		if msg == "" {
			msg = "ticket is not valid"
		}
		a.println("Invalid: %s", msg)
		return nil
	}
	a.println("Valid ticket %s for event #%d (%s)", v.Ticket.Code, v.Ticket.EventID.Int64(), v.Ticket.Status)
	return nil
}

func (a *App) useTicket(ctx context.Context, args []string) error {
	t, err := a.Client.UseTicket(ctx, args[0])
	if err != nil {
		return err
	}
	a.println("Ticket %s checked in", t.Code)
	return nil
}
