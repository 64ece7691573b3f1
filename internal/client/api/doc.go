// Package api is the Remote Data Client for the events backend.
//
// # Overview
//
// Client wraps every REST call: it serialises the request body as JSON,
// attaches "Authorization: Bearer <token>" when an access token is known,
// and decodes the JSON response. Typed wrappers exist for every endpoint the
// application consumes (auth, users, events, teams, tickets, checkout, admin).
//
// # Token refresh
//
// A 401 from any endpoint outside /auth/ triggers one refresh: the refresh
// token is exchanged at /auth/refresh-token, the new access token is stored
// through the TokenStore and the original request is replayed once. A 401
// on the replay is returned as is. If the refresh itself fails, all stored
// credentials are cleared and the original 401 is returned; redirecting to a
// login prompt is the caller's job.
//
// Concurrent 401s share one refresh exchange (singleflight), and a request
// that failed with a token that has since been replaced is simply replayed
// with the current one.
//
// # Error Handling
//
// Non-2xx responses become *RemoteError. errors.Is matches ErrUnauthorized,
// ErrForbidden, ErrNotFound and ErrServer by status; transport failures
// match ErrUnavailable.
package api
