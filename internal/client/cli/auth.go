package cli

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/eventdesk/internal/client/api"
	"github.com/dmitrijs2005/eventdesk/internal/client/validate"
)

// register prompts for account details and creates the account. It does not
// sign in.
func (a *App) register(ctx context.Context, _ []string) error {
	username, err := a.ask("Username")
	if err != nil {
		return err
	}
	email, err := a.ask("Email")
	if err != nil {
		return err
	}
	first, err := a.ask("First name (optional)")
	if err != nil {
		return err
	}
	last, err := a.ask("Last name (optional)")
	if err != nil {
		return err
	}
	password, err := a.password()
	if err != nil {
		return err
	}
	defer wipe(password)

	if err := validate.Registration(username, email, string(password)); err != nil {
		return err
	}

	u, err := a.Session.Register(ctx, api.RegisterRequest{
		Username:  username,
		Email:     email,
		Password:  string(password),
		FirstName: first,
		LastName:  last,
	})
	if err != nil {
		return err
	}
	a.println("Account %s created, you can log in now", u.Username)
	return nil
}

func (a *App) login(ctx context.Context, _ []string) error {
	if id, ok := a.Session.Identity(); ok {
		a.println("Already logged in as %s, log out first", id.Username)
		return nil
	}
	username, err := a.ask("Username")
	if err != nil {
		return err
	}
	password, err := a.password()
	if err != nil {
		return err
	}
	defer wipe(password)

	if err := a.Session.Login(ctx, username, string(password)); err != nil {
		return err
	}
	name := username
	if id, ok := a.Session.Identity(); ok && id.Username != "" {
		name = id.Username
	}
	a.println("Welcome, %s", name)
	return nil
}

func (a *App) logout(ctx context.Context, _ []string) error {
	if err := a.Session.Logout(ctx); err != nil {
		return err
	}
	a.println("Logged out")
	return nil
}

// whoami prints the profile. Team badges are best effort: if memberships
// cannot be read the line is left out.
func (a *App) whoami(ctx context.Context, _ []string) error {
	id, ok := a.Session.Identity()
	if !ok {
		return nil
	}
	a.println("User:  %s (#%d)", id.Username, id.ID)
	if id.Email != "" {
		a.println("Email: %s", id.Email)
	}
	if name := strings.TrimSpace(id.FirstName + " " + id.LastName); name != "" {
		a.println("Name:  %s", name)
	}
	if a.Session.CheckSiteAdmin(ctx) {
		a.println("Role:  site admin")
	}

	ms, err := a.Client.MembershipsForUser(ctx, id.ID)
	if err != nil {
		a.Logger.Debug(ctx, "team badges unavailable", "error", err)
		return nil
	}
	if len(ms) == 0 {
		return nil
	}
	badges := make([]string, 0, len(ms))
	for _, m := range ms {
		badges = append(badges, m.TeamName+" ("+m.Role+")")
	}
	a.println("Teams: %s", strings.Join(badges, ", "))
	return nil
}
