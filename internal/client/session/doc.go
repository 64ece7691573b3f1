// Package session holds the signed-in user's state for one client.
//
// A Store owns the token pair, the identity projection and the site-admin
// flag. Every change is written to the shared storage first and then
// announced on a Bus; other stores reload from storage when they receive an
// announcement from a different origin, so the last writer wins and all
// stores converge on what is persisted.
//
// Login fills the identity from the login response and then fetches the
// full record (with team memberships) in the background. That fetch is
// dropped if the store is closed or the session changes before it returns.
package session
