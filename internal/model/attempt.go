package model

import "time"

// Verdict is the classifier's reading of a single HTTP exchange.
// It answers one question: did this candidate log in?
type Verdict string

// Verdict constants.
const (
	// VerdictSuccess means a success indicator matched the redirect target
	// or the response body. The run stops on the first success.
	VerdictSuccess Verdict = "success"
	// VerdictFailed means a failure indicator matched the response body.
	// The endpoint explicitly rejected the candidate.
	VerdictFailed Verdict = "failed"
	// VerdictUnknown means neither indicator set matched. The engine treats
	// it like a failure for control flow, but it is reported distinctly
	// because it usually signals indicator misconfiguration or an
	// unexpected endpoint response.
	VerdictUnknown Verdict = "unknown"
)

// String returns the string representation of the Verdict.
func (v Verdict) String() string {
	return string(v)
}

// AttemptOutcome records how one credential trial ended.
type AttemptOutcome string

// Attempt outcome constants.
const (
	// OutcomeSuccess means the candidate logged in.
	OutcomeSuccess AttemptOutcome = "success"
	// OutcomeFailed means the endpoint responded and the candidate did not
	// log in (covers both Failed and Unknown verdicts).
	OutcomeFailed AttemptOutcome = "failed"
	// OutcomeTransientError means the network call kept failing after all
	// retries. The run continues with the next candidate.
	OutcomeTransientError AttemptOutcome = "transient_error"
	// OutcomeFatalError means the attempt failed in a way retries cannot
	// help with. The run aborts.
	OutcomeFatalError AttemptOutcome = "fatal_error"
)

// String returns the string representation of the AttemptOutcome.
func (o AttemptOutcome) String() string {
	return string(o)
}

// AttemptRecord is the immutable result of one credential trial.
// Records are created by the engine in strict candidate order, one per
// completed attempt, and never mutated after creation.
type AttemptRecord struct {
	// Seq is the 1-based position of this attempt in the run.
	Seq int `json:"seq"`

	// Candidate is the password value that was tried.
	Candidate string `json:"candidate"`

	// Outcome says how the attempt ended.
	Outcome AttemptOutcome `json:"outcome"`

	// Verdict is the classifier's reading of the response. Empty when the
	// attempt never produced a response (transient or fatal error).
	Verdict Verdict `json:"verdict,omitempty"`

	// StatusCode is the HTTP status observed, or 0 when no response
	// arrived.
	StatusCode int `json:"status_code,omitempty"`

	// RedirectTarget is the Location header of a 3xx response, if any.
	RedirectTarget string `json:"redirect_target,omitempty"`

	// Error is the raw error message for transient or fatal outcomes.
	Error string `json:"error,omitempty"`

	// Duration is how long the attempt took, including retries.
	Duration time.Duration `json:"duration_ns"`
}
