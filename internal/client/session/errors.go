package session

import (
	"errors"
	"fmt"
)

// ErrAuth matches every AuthError.
var ErrAuth = errors.New("authentication failed")

// AuthError reports a failed login. Err is the underlying cause, if any.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrAuth, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrAuth, e.Reason)
}

func (e *AuthError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrAuth}
	}
	return []error{ErrAuth, e.Err}
}
