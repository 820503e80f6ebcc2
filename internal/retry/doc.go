// Package retry re-invokes a fallible operation with exponential backoff.
//
// The engine wraps every login network call with a Handler so that transient
// transport failures (timeouts, connection resets through the overlay) do not
// burn a candidate. The delay sequence is fully deterministic:
//
//	delay(i) = baseDelay * backoffFactor^i
//
// for failure index i starting at zero. There is deliberately no jitter:
// attempts are strictly sequential, so thundering-herd avoidance buys nothing,
// and deterministic delays keep test runs and recorded timings reproducible.
//
// When every allowed invocation has failed, Do returns an *ExhaustedError
// whose Unwrap yields the final underlying error unchanged, so callers can
// still match the root cause with errors.Is.
package retry
