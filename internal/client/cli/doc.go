// Package cli provides the interactive eventdesk command-line client.
//
// App reads one command per line and dispatches it to the services it was
// built with: the session store for sign-in, the permission resolver to
// decide what the signed-in user may edit, the ticket status cache and
// checkout for payments, and the admin panel for site administration.
//
// Failures never end the loop. Each command has a fallback message that is
// shown when the backend gives no message of its own.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
