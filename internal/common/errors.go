// Package common defines shared constants and sentinel errors used across
// client layers of eventdesk. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Permission errors. Views do not distinguish these from not-found.
	ErrPermissionDenied = errors.New("permission denied")

	// Session errors.
	ErrNotLoggedIn = errors.New("not logged in")

	// ErrInvalidToken marks an access token that cannot be parsed.
	ErrInvalidToken = errors.New("invalid token")
)
