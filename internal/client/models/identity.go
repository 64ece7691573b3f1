package models

import "github.com/dmitrijs2005/eventdesk/internal/common"

// Identity is the authenticated user's client-side profile.
type Identity struct {
	ID              int64            `json:"id"`
	Username        string           `json:"username"`
	Email           string           `json:"email"`
	FirstName       string           `json:"firstName,omitempty"`
	LastName        string           `json:"lastName,omitempty"`
	IsSiteAdmin     bool             `json:"isSiteAdmin"`
	TeamMemberships []TeamMembership `json:"teamMemberships,omitempty"`
}

// TeamMembership links the identity to a team with a backend-defined role.
type TeamMembership struct {
	TeamID   FlexID `json:"teamId"`
	TeamName string `json:"teamName"`
	Role     string `json:"role"`
}

// Privileged reports whether the role may edit the team's events.
func (m TeamMembership) Privileged() bool {
	return common.IsPrivilegedRole(m.Role)
}

// MembershipFor returns the identity's membership in teamID, if any.
func (i *Identity) MembershipFor(teamID int64) (TeamMembership, bool) {
	for _, m := range i.TeamMemberships {
		if m.TeamID.Int64() == teamID {
			return m, true
		}
	}
	return TeamMembership{}, false
}

// IdentityPatch carries a partial profile update; nil fields are untouched.
type IdentityPatch struct {
	Username        *string
	Email           *string
	FirstName       *string
	LastName        *string
	IsSiteAdmin     *bool
	TeamMemberships []TeamMembership
}

// Apply returns a copy of i with the non-nil fields of p merged in.
func (i Identity) Apply(p IdentityPatch) Identity {
	if p.Username != nil {
		i.Username = *p.Username
	}
	if p.Email != nil {
		i.Email = *p.Email
	}
	if p.FirstName != nil {
		i.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		i.LastName = *p.LastName
	}
	if p.IsSiteAdmin != nil {
		i.IsSiteAdmin = *p.IsSiteAdmin
	}
	if p.TeamMemberships != nil {
		i.TeamMemberships = append([]TeamMembership(nil), p.TeamMemberships...)
	}
	return i
}
