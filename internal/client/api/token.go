package api

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/eventdesk/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is what the client reads from a JWT it holds. The signature
// is not verified; only the backend can do that.
type TokenClaims struct {
	UserID    int64
	ExpiresAt time.Time
}

// Expired reports whether the token carries an expiry at or before now.
func (c TokenClaims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// ParseTokenClaims decodes the subject and expiry of a JWT. Tokens that are
// not JWTs yield common.ErrInvalidToken.
func ParseTokenClaims(token string) (TokenClaims, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return TokenClaims{}, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	var tc TokenClaims
	if claims.ExpiresAt != nil {
		tc.ExpiresAt = claims.ExpiresAt.Time
	}
	if claims.Subject != "" {
		id, err := strconv.ParseInt(claims.Subject, 10, 64)
		if err != nil {
			return TokenClaims{}, fmt.Errorf("%w: subject %q", common.ErrInvalidToken, claims.Subject)
		}
		tc.UserID = id
	}
	return tc, nil
}
