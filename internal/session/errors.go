package session

import "errors"

// Session error taxonomy. The engine decides per attempt whether to keep
// going based on these classes: timeouts and connection failures are
// transient (the next candidate may still work once the circuit recovers),
// anything else is fatal to the run.
var (
	// ErrTimeout is returned when a request to the target timed out.
	ErrTimeout = errors.New("request timeout")

	// ErrConnection is returned when the connection to the target failed
	// or was interrupted (reset, refused, unreachable).
	ErrConnection = errors.New("connection error")

	// ErrVerifyFailed is returned by Verify when the target cannot be
	// reached through the proxy before the run starts. This is fatal:
	// there is no point burning candidates against a dead session.
	ErrVerifyFailed = errors.New("session verification failed")
)

// IsTransient reports whether err is a per-attempt failure the run should
// survive. Transient errors are recorded and the loop moves to the next
// candidate; everything else aborts the run.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrConnection)
}
