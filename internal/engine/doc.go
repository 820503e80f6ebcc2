// Package engine implements the attack orchestration loop.
//
// The engine owns the candidate list, the attempt counter, and the growing
// report. Each iteration rotates the Tor identity when the schedule says so,
// issues one login attempt through the retry handler, classifies the
// response, and records the result. The run is strictly sequential: every
// wait (rotation throttle, settle, backoff, pacing) suspends the whole run,
// because parallel attempts would defeat the rate-limiting discipline and
// interleave rotations non-deterministically.
//
// The run stops at the first successful candidate, when the list is
// exhausted, or when the run context is cancelled; all three paths release
// the control channel through the same deferred teardown and produce exactly
// one report.
package engine
