// Package log provides secure logging functionality that redacts
// sensitive information before it reaches any output.
//
// The SecureHandler wraps a standard slog.Handler and masks attribute
// values whose keys or contents look like credentials, session cookies,
// or Tor control secrets. Wordlist candidates are exempt: the operator
// supplied them, and a run without visible candidates is not auditable.
//
// Design decision: Redaction lives in the logging layer rather than at
// each call site so that a forgotten attribute key cannot leak a secret.
package log
