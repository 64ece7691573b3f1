package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/eventdesk/internal/client/api"
	"github.com/dmitrijs2005/eventdesk/internal/client/models"
	"github.com/dmitrijs2005/eventdesk/internal/common"
)

type adminCommand struct {
	usage   string
	minArgs int
	run     func(a *App, ctx context.Context, args []string) error
}

func adminCommands() map[string]adminCommand {
	return map[string]adminCommand{
		"dashboard":   {run: (*App).adminDashboard},
		"users":       {run: (*App).adminUsers},
		"teams":       {run: (*App).adminTeams},
		"events":      {run: (*App).adminEvents},
		"newuser":     {run: (*App).adminNewUser},
		"deluser":     {usage: "<userId>", minArgs: 1, run: (*App).adminDeleteUser},
		"promote":     {usage: "<userId>", minArgs: 1, run: adminSetRole(true)},
		"demote":      {usage: "<userId>", minArgs: 1, run: adminSetRole(false)},
		"newteam":     {run: (*App).adminNewTeam},
		"delteam":     {usage: "<teamId>", minArgs: 1, run: (*App).adminDeleteTeam},
		"addmember":   {run: (*App).adminAddMember},
		"rmmember":    {usage: "<teamId> <userId>", minArgs: 2, run: (*App).adminRemoveMember},
		"publish":     {usage: "<eventId>", minArgs: 1, run: adminSetStatus(models.EventPublished)},
		"cancelevent": {usage: "<eventId>", minArgs: 1, run: adminSetStatus(models.EventCancelled)},
		"delevent":    {usage: "<eventId>", minArgs: 1, run: (*App).adminDeleteEvent},
	}
}

const adminHelp = `Admin subcommands:
  admin [dashboard]                  reload and show everything
  admin users | teams | events       show one list
  admin newuser                      create a user
  admin deluser <userId>             delete a user
  admin promote | demote <userId>    grant or revoke site admin
  admin newteam                      create a team
  admin delteam <teamId>             delete a team
  admin addmember                    add a user to a team
  admin rmmember <teamId> <userId>   remove a user from a team
  admin publish <eventId>            publish an event
  admin cancelevent <eventId>        cancel an event
  admin delevent <eventId>           delete an event`

// admin runs an admin subcommand. Site admin status is confirmed with the
// backend first; any failure there denies access.
func (a *App) admin(ctx context.Context, args []string) error {
	sub := "dashboard"
	if len(args) > 0 {
		sub, args = args[0], args[1:]
	}
	if sub == "help" {
		a.println("%s", adminHelp)
		return nil
	}
	c, ok := adminCommands()[sub]
	if !ok {
		a.println("Unknown admin subcommand: %s (try 'admin help')", sub)
		return nil
	}
	if len(args) < c.minArgs {
		a.println("Usage: admin %s %s", sub, c.usage)
		return nil
	}
	if !a.Session.CheckSiteAdmin(ctx) {
		return fmt.Errorf("admin %s: %w", sub, common.ErrPermissionDenied)
	}
	if sub != "dashboard" && a.Admin.LoadedAt().IsZero() {
		if err := a.Admin.Load(ctx); err != nil {
			return err
		}
	}
	return c.run(a, ctx, args)
}

func (a *App) adminDashboard(ctx context.Context, _ []string) error {
	if err := a.Admin.Load(ctx); err != nil {
		return err
	}
	a.println("Users (%s)", counters(a.Admin.Users.Counters()))
	a.printUsers(a.Admin.Users.Items())
	a.println("")
	a.println("Teams (%s)", counters(a.Admin.Teams.Counters()))
	a.printTeams(a.Admin.Teams.Items())
	a.println("")
	a.println("Events (%s)", counters(a.Admin.Events.Counters()))
	a.printEvents(a.Admin.Events.Items())
	return nil
}

func (a *App) adminUsers(context.Context, []string) error {
	a.println("Users (%s)", counters(a.Admin.Users.Counters()))
	a.printUsers(a.Admin.Users.Items())
	return nil
}

func (a *App) adminTeams(context.Context, []string) error {
	a.println("Teams (%s)", counters(a.Admin.Teams.Counters()))
	a.printTeams(a.Admin.Teams.Items())
	return nil
}

func (a *App) adminEvents(context.Context, []string) error {
	a.println("Events (%s)", counters(a.Admin.Events.Counters()))
	a.printEvents(a.Admin.Events.Items())
	return nil
}

func (a *App) adminNewUser(ctx context.Context, _ []string) error {
	username, err := a.ask("Username")
	if err != nil {
		return err
	}
	email, err := a.ask("Email")
	if err != nil {
		return err
	}
	password, err := a.password()
	if err != nil {
		return err
	}
	defer wipe(password)
	isAdmin, err := a.askDefault("Site admin (y/n)", "n")
	if err != nil {
		return err
	}

	u, err := a.Admin.CreateUser(ctx, models.UserInput{
		Username:    username,
		Email:       email,
		Password:    string(password),
		IsSiteAdmin: isAdmin == "y" || isAdmin == "yes",
	})
	if err != nil {
		return err
	}
	a.println("Created user #%d %s", u.ID, u.Username)
	return a.adminUsers(ctx, nil)
}

func (a *App) adminDeleteUser(ctx context.Context, args []string) error {
	userID, err := ParseID(args[0])
	if err != nil {
		return badInput(err)
	}
	if userID == a.userID() {
		return badInput(fmt.Errorf("you cannot delete your own account here"))
	}
	if err := a.Admin.DeleteUser(ctx, userID); err != nil {
		return err
	}
	a.println("User %d deleted", userID)
	return a.adminUsers(ctx, nil)
}

func adminSetRole(admin bool) func(*App, context.Context, []string) error {
	return func(a *App, ctx context.Context, args []string) error {
		userID, err := ParseID(args[0])
		if err != nil {
			return badInput(err)
		}
		u, err := a.Admin.UpdateUser(ctx, userID, api.UserPatch{IsSiteAdmin: &admin})
		if err != nil {
			return err
		}
		if admin {
			a.println("%s is now a site admin", u.Username)
		} else {
			a.println("%s is no longer a site admin", u.Username)
		}
		return a.adminUsers(ctx, nil)
	}
}

func (a *App) adminNewTeam(ctx context.Context, _ []string) error {
	name, err := a.ask("Team name")
	if err != nil {
		return err
	}
	desc, err := a.ask("Description (optional)")
	if err != nil {
		return err
	}
	t, err := a.Admin.CreateTeam(ctx, models.TeamInput{Name: name, Description: desc})
	if err != nil {
		return err
	}
	a.println("Created team #%d %s", t.ID, t.Name)
	return a.adminTeams(ctx, nil)
}

func (a *App) adminDeleteTeam(ctx context.Context, args []string) error {
	teamID, err := ParseID(args[0])
	if err != nil {
		return badInput(err)
	}
	if err := a.Admin.DeleteTeam(ctx, teamID); err != nil {
		return err
	}
	a.println("Team %d deleted", teamID)
	return a.adminTeams(ctx, nil)
}

func (a *App) adminAddMember(ctx context.Context, _ []string) error {
	teamID, userID, role, err := a.askMember()
	if err != nil {
		return err
	}
	if _, err := a.Admin.AddMember(ctx, teamID, userID, role); err != nil {
		return err
	}
	a.println("User %d added to team #%d as %s", userID, teamID, role)
	return a.adminTeams(ctx, nil)
}

func (a *App) adminRemoveMember(ctx context.Context, args []string) error {
	teamID, err := ParseID(args[0])
	if err != nil {
		return badInput(err)
	}
	userID, err := ParseID(args[1])
	if err != nil {
		return badInput(err)
	}
	if err := a.Admin.RemoveMember(ctx, teamID, userID); err != nil {
		return err
	}
	a.println("User %d removed from team #%d", userID, teamID)
	return a.adminTeams(ctx, nil)
}

func adminSetStatus(status models.EventStatus) func(*App, context.Context, []string) error {
	return func(a *App, ctx context.Context, args []string) error {
		eventID, err := ParseID(args[0])
		if err != nil {
			return badInput(err)
		}
		e, err := a.Admin.SetEventStatus(ctx, eventID, status)
		if err != nil {
			return err
		}
		a.println("Event #%d is now %s", e.ID, e.Status)
		return a.adminEvents(ctx, nil)
	}
}

func (a *App) adminDeleteEvent(ctx context.Context, args []string) error {
	eventID, err := ParseID(args[0])
	if err != nil {
		return badInput(err)
	}
	if err := a.Admin.DeleteEvent(ctx, eventID); err != nil {
		return err
	}
	a.println("Event %d deleted", eventID)
	return a.adminEvents(ctx, nil)
}
