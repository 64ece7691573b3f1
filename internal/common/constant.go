// Package common contains shared constants and sentinel errors used across
// eventdesk components.
package common

// AuthorizationHeaderName is the HTTP header used to carry the access token on
// outbound requests, as "Bearer <token>".
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the access token in the Authorization header.
const BearerPrefix = "Bearer "

// Durable local storage keys.
const (
	KeyAccessToken  = "auth.access_token"
	KeyRefreshToken = "auth.refresh_token"
	KeyUser         = "auth.user"
	KeySiteAdmin    = "auth.is_site_admin"

	KeyPendingCheckoutEvent = "checkout.pending_event"

	PermissionKeyPrefix = "perm:"
	TicketKeyPrefix     = "ticket:"
)

// CredentialKeys lists every key removed on logout.
var CredentialKeys = []string{KeyAccessToken, KeyRefreshToken, KeyUser, KeySiteAdmin}

// Team roles allowed to edit the team's events.
const (
	RoleOwner        = "owner"
	RoleTeamAdmin    = "team_admin"
	RoleOrganizer    = "organizer"
	RoleEventManager = "event_manager"
	RoleMember       = "member"
)

// IsPrivilegedRole reports whether role may mutate events owned by its team.
// Role strings are backend-defined; unknown values are non-privileged.
func IsPrivilegedRole(role string) bool {
	switch role {
	case RoleOwner, RoleTeamAdmin, RoleOrganizer, RoleEventManager:
		return true
	}
	return false
}
