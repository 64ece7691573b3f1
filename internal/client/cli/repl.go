package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dmitrijs2005/eventdesk/internal/client/admin"
	"github.com/dmitrijs2005/eventdesk/internal/client/api"
	"github.com/dmitrijs2005/eventdesk/internal/client/session"
	"github.com/dmitrijs2005/eventdesk/internal/client/tickets"
	"github.com/dmitrijs2005/eventdesk/internal/client/validate"
	"github.com/dmitrijs2005/eventdesk/internal/common"
)

type command struct {
	name  string
	usage string
	help  string
	// auth commands are hidden and refused while logged out.
	auth    bool
	minArgs int
	// fallback is shown when a failure carries no message of its own.
	fallback string
	run      func(a *App, ctx context.Context, args []string) error
}

func commandTable() []command {
	return []command{
		{name: "register", help: "create an account", fallback: "Registration failed", run: (*App).register},
		{name: "login", help: "sign in", fallback: "Login failed", run: (*App).login},
		{name: "logout", help: "sign out", auth: true, fallback: "Logout failed", run: (*App).logout},
		{name: "whoami", help: "show your profile", auth: true, fallback: "Could not load profile", run: (*App).whoami},

		{name: "events", usage: "[search]", help: "list published events", fallback: "Could not load events", run: (*App).events},
		{name: "drafts", help: "list draft events", auth: true, fallback: "Could not load drafts", run: (*App).drafts},
		{name: "past", help: "list past events", auth: true, fallback: "Could not load past events", run: (*App).past},
		{name: "event", usage: "<id>", help: "show an event", minArgs: 1, fallback: "Could not load event", run: (*App).event},
		{name: "categories", help: "list event categories", fallback: "Could not load categories", run: (*App).categories},
		{name: "newevent", help: "create an event", auth: true, fallback: "Could not create event", run: (*App).newEvent},
		{name: "editevent", usage: "<id>", help: "edit an event", auth: true, minArgs: 1, fallback: "Could not update event", run: (*App).editEvent},
		{name: "publish", usage: "<id>", help: "publish a draft event", auth: true, minArgs: 1, fallback: "Could not publish event", run: (*App).publish},
		{name: "deleteevent", usage: "<id>", help: "delete an event", auth: true, minArgs: 1, fallback: "Could not delete event", run: (*App).deleteEvent},
		{name: "join", usage: "<id>", help: "register for an event", auth: true, minArgs: 1, fallback: "Could not register", run: (*App).join},
		{name: "cancel", usage: "<registrationId>", help: "cancel a registration", auth: true, minArgs: 1, fallback: "Could not cancel registration", run: (*App).cancel},
		{name: "attendees", usage: "<id>", help: "list an event's registrations", auth: true, minArgs: 1, fallback: "Could not load attendees", run: (*App).attendees},

		{name: "teams", help: "list teams", auth: true, fallback: "Could not load teams", run: (*App).teams},
		{name: "newteam", help: "create a team", auth: true, fallback: "Could not create team", run: (*App).newTeam},
		{name: "members", usage: "<teamId>", help: "list team members", auth: true, minArgs: 1, fallback: "Could not load members", run: (*App).members},
		{name: "addmember", help: "add a user to a team", auth: true, fallback: "Could not add member", run: (*App).addMember},
		{name: "rmmember", usage: "<teamId> <userId>", help: "remove a user from a team", auth: true, minArgs: 2, fallback: "Could not remove member", run: (*App).removeMember},

		{name: "tickets", help: "list your tickets", auth: true, fallback: "Could not load tickets", run: (*App).tickets},
		{name: "buy", usage: "<eventId>", help: "start a ticket checkout", auth: true, minArgs: 1, fallback: "Could not start checkout", run: (*App).buy},
		{name: "paid", usage: "<sessionId>", help: "finish a checkout", auth: true, minArgs: 1, fallback: "Could not confirm payment", run: (*App).paid},
		{name: "verify", usage: "<code>", help: "check a ticket code", auth: true, minArgs: 1, fallback: "Could not verify ticket", run: (*App).verify},
		{name: "use", usage: "<code>", help: "check a ticket in", auth: true, minArgs: 1, fallback: "Could not use ticket", run: (*App).useTicket},

		{name: "admin", usage: "[subcommand]", help: "admin dashboard, 'admin help' for more", auth: true, fallback: "Admin action failed", run: (*App).admin},
	}
}

// runREPL reads commands line by line and dispatches them until "exit",
// "quit", end of input or cancellation. Handler errors are reported to the
// user and never end the loop.
func runREPL(ctx context.Context, a *App) {
	cmds := make(map[string]command)
	for _, c := range commandTable() {
		cmds[c.name] = c
	}

	for {
		if ctx.Err() != nil {
			return
		}
		fmt.Fprintf(a.out, "eventdesk %s> ", a.getStatus())
		line, err := a.reader.ReadString('\n')
		if err != nil && line == "" {
			a.println("")
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		name, args := parts[0], parts[1:]

		switch name {
		case "help":
			a.printHelp()
			continue
		case "exit", "quit":
			a.println("Bye!")
			return
		}

		c, ok := cmds[name]
		switch {
		case !ok:
			a.println("Unknown command: %s", name)
		case c.auth && !a.isLoggedIn():
			a.println("Please log in first")
		case len(args) < c.minArgs:
			a.println("Usage: %s %s", c.name, c.usage)
		default:
			if err := c.run(a, ctx, args); err != nil {
				a.Logger.Debug(ctx, "command failed", "command", name, "error", err)
				a.printError(err, c.fallback)
			}
		}
	}
}

func (a *App) printHelp() {
	loggedIn := a.isLoggedIn()
	a.println("Available commands:")
	for _, c := range commandTable() {
		if c.auth && !loggedIn {
			continue
		}
		if loggedIn && (c.name == "register" || c.name == "login") {
			continue
		}
		left := c.name
		if c.usage != "" {
			left += " " + c.usage
		}
		a.println("  %-28s %s", left, c.help)
	}
	a.println("  %-28s %s", "exit", "leave the program")
}

// inputError is a problem with what the user typed.
type inputError struct{ err error }

func (e *inputError) Error() string { return e.err.Error() }
func (e *inputError) Unwrap() error { return e.err }

func badInput(err error) error { return &inputError{err: err} }

func (a *App) printError(err error, fallback string) {
	printError(a.out, err, fallback)
}

// printError writes the most specific message available for err.
func printError(w io.Writer, err error, fallback string) {
	var (
		in   *inputError
		ve   *validate.ValidationError
		ae   *session.AuthError
		nl   *admin.ErrNotListed
		line string
	)
	switch {
	case errors.As(err, &in):
		line = in.Error()
	case errors.Is(err, api.ErrUnavailable):
		line = "Server unavailable, try again later"
	case errors.As(err, &ve):
		fmt.Fprintln(w, "Invalid input:")
		names := make([]string, 0, len(ve.Fields))
		for name := range ve.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "  %s %s\n", name, ve.Fields[name])
		}
		return
	case errors.As(err, &ae):
		line = ae.Reason
	case errors.As(err, &nl):
		line = nl.Error()
	case errors.Is(err, common.ErrPermissionDenied):
		line = "You do not have permission to do that"
	case errors.Is(err, common.ErrNotLoggedIn):
		line = "Please log in first"
	case errors.Is(err, tickets.ErrNotPaid):
		line = "Payment has not completed yet, try again in a moment"
	default:
		line = api.UserMessage(err, fallback)
	}
	fmt.Fprintln(w, line)
}
