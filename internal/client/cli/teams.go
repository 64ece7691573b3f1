package cli

import (
	"context"

	"github.com/dmitrijs2005/eventdesk/internal/client/models"
	"github.com/dmitrijs2005/eventdesk/internal/client/validate"
	"github.com/dmitrijs2005/eventdesk/internal/common"
)

func (a *App) teams(ctx context.Context, _ []string) error {
	ts, err := a.Client.ListTeams(ctx)
	if err != nil {
		return err
	}
	a.printTeams(ts)
	return nil
}

func (a *App) newTeam(ctx context.Context, _ []string) error {
	name, err := a.ask("Team name")
	if err != nil {
		return err
	}
	desc, err := a.ask("Description (optional)")
	if err != nil {
		return err
	}
	in := models.TeamInput{Name: name, Description: desc}
	if err := validate.Team(in); err != nil {
		return err
	}
	t, err := a.Client.CreateTeam(ctx, in)
	if err != nil {
		return err
	}
	a.println("Created team #%d %s", t.ID, t.Name)
	return nil
}

func (a *App) members(ctx context.Context, args []string) error {
	teamID, err := ParseID(args[0])
	if err != nil {
		return badInput(err)
	}
	ms, err := a.Client.TeamMembers(ctx, teamID)
	if err != nil {
		return err
	}
	if len(ms) == 0 {
		a.println("No members")
		return nil
	}
	rows := make([][]string, 0, len(ms))
	for _, m := range ms {
		rows = append(rows, []string{idStr(m.UserID.Int64()), m.Username, m.Email, m.Role})
	}
	a.table("USER\tUSERNAME\tEMAIL\tROLE", rows)
	return nil
}

// askMember prompts for a team id, a user id and a role.
func (a *App) askMember() (teamID, userID int64, role string, err error) {
	s, err := a.ask("Team id")
	if err != nil {
		return 0, 0, "", err
	}
	if teamID, err = ParseID(s); err != nil {
		return 0, 0, "", badInput(err)
	}
	s, err = a.ask("User id")
	if err != nil {
		return 0, 0, "", err
	}
	if userID, err = ParseID(s); err != nil {
		return 0, 0, "", badInput(err)
	}
	role, err = a.askDefault("Role", common.RoleMember)
	if err != nil {
		return 0, 0, "", err
	}
	if err := validate.Role(role); err != nil {
		return 0, 0, "", err
	}
	return teamID, userID, role, nil
}

func (a *App) addMember(ctx context.Context, _ []string) error {
	teamID, userID, role, err := a.askMember()
	if err != nil {
		return err
	}
	m, err := a.Client.AddTeamMember(ctx, teamID, userID, role)
	if err != nil {
		return err
	}
	a.invalidateAll(ctx)
	a.println("%s added to team #%d as %s", m.Username, teamID, m.Role)
	return nil
}

func (a *App) removeMember(ctx context.Context, args []string) error {
	teamID, err := ParseID(args[0])
	if err != nil {
		return badInput(err)
	}
	userID, err := ParseID(args[1])
	if err != nil {
		return badInput(err)
	}
	if err := a.Client.RemoveTeamMember(ctx, teamID, userID); err != nil {
		return err
	}
	a.invalidateAll(ctx)
	a.println("User %d removed from team #%d", userID, teamID)
	return nil
}

// invalidateAll drops every permission decision after a roster change.
func (a *App) invalidateAll(ctx context.Context) {
	if err := a.Permissions.InvalidateAll(ctx); err != nil {
		a.Logger.Warn(ctx, "permission cache invalidation failed", "error", err)
	}
}
