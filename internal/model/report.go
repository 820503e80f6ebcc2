package model

import "time"

// RunOutcome is the terminal state of a full run.
type RunOutcome string

// Run outcome constants.
const (
	// RunSucceeded means a candidate logged in and the run stopped there.
	RunSucceeded RunOutcome = "succeeded"
	// RunExhausted means every candidate was tried without a success.
	RunExhausted RunOutcome = "exhausted"
	// RunInterrupted means an external interrupt stopped the run early.
	// This is a normal terminal state, not an error: the report covers the
	// attempts completed before the interrupt.
	RunInterrupted RunOutcome = "interrupted"
	// RunAborted means an attempt failed in a way retries cannot help with
	// and the run stopped there. The report covers everything up to and
	// including the fatal attempt.
	RunAborted RunOutcome = "aborted"
)

// String returns the string representation of the RunOutcome.
func (o RunOutcome) String() string {
	return string(o)
}

// AttackReport is the final result of one run, generated exactly once when
// the run reaches a terminal state.
type AttackReport struct {
	// === Target Identity ===

	// TargetURL is the login endpoint that was probed.
	TargetURL string `json:"target_url"`

	// Username is the account the candidates were tried against.
	Username string `json:"username"`

	// === Attempts ===

	// Attempts holds one record per completed trial, in trial order.
	Attempts []AttemptRecord `json:"attempts"`

	// TotalAttempts is the number of completed trials. For an interrupted
	// run this counts only the attempts finished before the interrupt.
	TotalAttempts int `json:"total_attempts"`

	// === Result ===

	// Outcome is the terminal state of the run.
	Outcome RunOutcome `json:"outcome"`

	// FoundPassword is the successful candidate, empty when none succeeded.
	FoundPassword string `json:"found_password,omitempty"`

	// === Timing ===

	// StartedAt is when the first attempt began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the run reached its terminal state.
	FinishedAt time.Time `json:"finished_at"`

	// Elapsed is the wall time of the whole run.
	Elapsed time.Duration `json:"elapsed_ns"`

	// === Circuit Usage ===

	// Rotations is how many identity rotations were performed.
	Rotations uint64 `json:"rotations"`
}

// Found reports whether the run ended with a working credential.
func (r *AttackReport) Found() bool {
	return r.Outcome == RunSucceeded && r.FoundPassword != ""
}

// AveragePerAttempt returns the mean wall time per completed attempt,
// or zero when no attempt completed.
func (r *AttackReport) AveragePerAttempt() time.Duration {
	if r.TotalAttempts == 0 {
		return 0
	}
	return r.Elapsed / time.Duration(r.TotalAttempts)
}

// CountByOutcome returns how many attempts ended with the given outcome.
func (r *AttackReport) CountByOutcome(outcome AttemptOutcome) int {
	count := 0
	for _, a := range r.Attempts {
		if a.Outcome == outcome {
			count++
		}
	}
	return count
}

// CountByVerdict returns how many attempts carry the given verdict.
func (r *AttackReport) CountByVerdict(verdict Verdict) int {
	count := 0
	for _, a := range r.Attempts {
		if a.Verdict == verdict {
			count++
		}
	}
	return count
}
