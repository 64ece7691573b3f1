package admin

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/eventdesk/internal/client/models"
	"github.com/dmitrijs2005/eventdesk/internal/client/optimistic"
	"github.com/dmitrijs2005/eventdesk/internal/client/validate"
)

// ErrNotListed is returned when a mutation targets an entity that is not in
// the loaded list.
type ErrNotListed struct {
	Kind string
	ID   int64
}

func (e *ErrNotListed) Error() string {
	return fmt.Sprintf("%s %d is not in the list, reload and retry", e.Kind, e.ID)
}

func errNotListed(kind string, id int64) error {
	return &ErrNotListed{Kind: kind, ID: id}
}

func find[T any](items []T, match func(T) bool) (T, bool) {
	for _, it := range items {
		if match(it) {
			return it, true
		}
	}
	var zero T
	return zero, false
}

func teamID(id int64) func(models.Team) bool {
	return func(t models.Team) bool { return t.ID == id }
}

// CreateTeam adds the team with its creator counted as the first member.
func (p *Panel) CreateTeam(ctx context.Context, in models.TeamInput) (*models.Team, error) {
	return optimistic.Run(ctx, p.Teams, optimistic.Mutation[models.Team, *models.Team]{
		Validate: func() error { return validate.Team(in) },
		Apply:    optimistic.Append(models.Team{Name: in.Name, Description: in.Description, MemberCount: 1}),
		Remote: func(ctx context.Context) (*models.Team, error) {
			return p.remote.CreateTeam(ctx, in)
		},
		Reconcile: func(items []models.Team, created *models.Team) []models.Team {
			return optimistic.ReplaceWhere(teamID(0), *created)(items)
		},
	})
}

func (p *Panel) UpdateTeam(ctx context.Context, id int64, in models.TeamInput) (*models.Team, error) {
	current, ok := find(p.Teams.Items(), teamID(id))
	if !ok {
		return nil, errNotListed("team", id)
	}
	next := current
	next.Name, next.Description = in.Name, in.Description

	return optimistic.Run(ctx, p.Teams, optimistic.Mutation[models.Team, *models.Team]{
		Validate: func() error { return validate.Team(in) },
		Apply:    optimistic.ReplaceWhere(teamID(id), next),
		Remote: func(ctx context.Context) (*models.Team, error) {
			return p.remote.UpdateTeam(ctx, id, in)
		},
		Reconcile: func(items []models.Team, updated *models.Team) []models.Team {
			return optimistic.ReplaceWhere(teamID(id), *updated)(items)
		},
	})
}

func (p *Panel) DeleteTeam(ctx context.Context, id int64) error {
	_, err := optimistic.Run(ctx, p.Teams, optimistic.Mutation[models.Team, struct{}]{
		Apply: optimistic.RemoveWhere(teamID(id)),
		Remote: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, p.remote.DeleteTeam(ctx, id)
		},
	})
	if err == nil {
		p.invalidateAll(ctx)
	}
	return err
}

func (p *Panel) adjustMembers(id, delta int64) func([]models.Team) []models.Team {
	return func(items []models.Team) []models.Team {
		for i := range items {
			if items[i].ID == id {
				items[i].MemberCount += int(delta)
				if items[i].MemberCount < 0 {
					items[i].MemberCount = 0
				}
			}
		}
		return items
	}
}

func (p *Panel) AddMember(ctx context.Context, teamID, userID int64, role string) (*models.TeamMember, error) {
	m, err := optimistic.Run(ctx, p.Teams, optimistic.Mutation[models.Team, *models.TeamMember]{
		Validate: func() error { return validate.Role(role) },
		Apply:    p.adjustMembers(teamID, 1),
		Remote: func(ctx context.Context) (*models.TeamMember, error) {
			return p.remote.AddTeamMember(ctx, teamID, userID, role)
		},
	})
	if err == nil {
		p.invalidateAll(ctx)
	}
	return m, err
}

func (p *Panel) RemoveMember(ctx context.Context, teamID, userID int64) error {
	_, err := optimistic.Run(ctx, p.Teams, optimistic.Mutation[models.Team, struct{}]{
		Apply: p.adjustMembers(teamID, -1),
		Remote: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, p.remote.RemoveTeamMember(ctx, teamID, userID)
		},
	})
	if err == nil {
		p.invalidateAll(ctx)
	}
	return err
}
