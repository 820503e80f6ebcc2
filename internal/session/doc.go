// Package session implements the login network call against the target.
//
// A Session owns the HTTP side of one run: it verifies the target is
// reachable through the proxy before any attempt, and per attempt it fetches
// the login form (to pick up the test cookie) and POSTs the fixed WordPress
// form fields with redirects disabled. It reduces each exchange to the three
// inputs the classifier needs: status code, body, redirect target.
//
// Transport failures are sorted into a small taxonomy (ErrTimeout,
// ErrConnection, everything else) so the engine can decide whether a failed
// attempt is survivable.
package session
