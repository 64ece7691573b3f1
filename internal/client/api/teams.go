package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/eventdesk/internal/client/models"
)

func (c *Client) ListTeams(ctx context.Context) ([]models.Team, error) {
	var teams []models.Team
	if err := c.Do(ctx, http.MethodGet, "/teams", nil, &teams); err != nil {
		return nil, err
	}
	return teams, nil
}

func (c *Client) GetTeam(ctx context.Context, id int64) (*models.Team, error) {
	var t models.Team
	if err := c.Do(ctx, http.MethodGet, fmt.Sprintf("/teams/%d", id), nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) CreateTeam(ctx context.Context, in models.TeamInput) (*models.Team, error) {
	var t models.Team
	if err := c.Do(ctx, http.MethodPost, "/teams", in, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) UpdateTeam(ctx context.Context, id int64, in models.TeamInput) (*models.Team, error) {
	var t models.Team
	if err := c.Do(ctx, http.MethodPatch, fmt.Sprintf("/teams/%d", id), in, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) DeleteTeam(ctx context.Context, id int64) error {
	return c.Do(ctx, http.MethodDelete, fmt.Sprintf("/teams/%d", id), nil, nil)
}

func (c *Client) TeamMembers(ctx context.Context, teamID int64) ([]models.TeamMember, error) {
	var members []models.TeamMember
	if err := c.Do(ctx, http.MethodGet, fmt.Sprintf("/teams/%d/members", teamID), nil, &members); err != nil {
		return nil, err
	}
	return members, nil
}

type memberRequest struct {
	UserID int64  `json:"userId,omitempty"`
	Role   string `json:"role"`
}

func (c *Client) AddTeamMember(ctx context.Context, teamID, userID int64, role string) (*models.TeamMember, error) {
	var m models.TeamMember
	path := fmt.Sprintf("/teams/%d/members", teamID)
	if err := c.Do(ctx, http.MethodPost, path, memberRequest{UserID: userID, Role: role}, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) UpdateTeamMember(ctx context.Context, teamID, userID int64, role string) (*models.TeamMember, error) {
	var m models.TeamMember
	path := fmt.Sprintf("/teams/%d/members/%d", teamID, userID)
	if err := c.Do(ctx, http.MethodPatch, path, memberRequest{Role: role}, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) RemoveTeamMember(ctx context.Context, teamID, userID int64) error {
	return c.Do(ctx, http.MethodDelete, fmt.Sprintf("/teams/%d/members/%d", teamID, userID), nil, nil)
}

// MembershipsForUser lists userID's team memberships. The backend answers
// 404 for a user without teams; that is reported as an empty list.
func (c *Client) MembershipsForUser(ctx context.Context, userID int64) ([]models.TeamMembership, error) {
	var ms []models.TeamMembership
	err := c.Do(ctx, http.MethodGet, fmt.Sprintf("/teams/members/user/%d", userID), nil, &ms)
	if errors.Is(err, ErrNotFound) {
		return []models.TeamMembership{}, nil
	}
	if err != nil {
		return nil, err
	}
	return ms, nil
}
