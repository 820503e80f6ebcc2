// Package tor provides the anonymity transport for DirtyWaters.
//
// Every request to the target rides this package's SOCKS5 dialer; nothing
// else in the tool opens a connection to the target. It verifies that the
// configured proxy really is a Tor SOCKS5 endpoint before the first attempt,
// builds HTTP clients tuned for login probing (redirects never followed,
// cookie jar on, compression off), validates .onion target hosts, and can
// launch a private embedded Tor daemon via tornago when the operator has no
// system daemon running.
//
// The control-port side of Tor (identity rotation) lives in the circuit
// package; this package owns only the data path.
//
// The package is designed to be used with dependency injection - create a
// Client and pass it to components that need Tor connectivity rather than
// using global state.
package tor
