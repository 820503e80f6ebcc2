package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrMissingTargetURL is returned when the config file does not name a
	// target login endpoint. target_url is a required field.
	ErrMissingTargetURL = errors.New("missing required field: target_url")

	// ErrInvalidTargetURL is returned when target_url is present but is
	// not an absolute http or https URL.
	ErrInvalidTargetURL = errors.New("invalid target_url: must be an absolute http(s) URL")

	// ErrMissingUsername is returned when the config file does not name
	// the account under test. username is a required field.
	ErrMissingUsername = errors.New("missing required field: username")

	// ErrMissingPasswordFile is returned when the config file does not
	// name a candidate list. password_file is a required field.
	ErrMissingPasswordFile = errors.New("missing required field: password_file")

	// ErrInvalidAttemptsPerCircuit is returned when attempts_per_circuit
	// is below 1. The rotation schedule takes the attempt counter modulo
	// this value, so it must be a positive divisor.
	ErrInvalidAttemptsPerCircuit = errors.New("invalid attempts_per_circuit: must be at least 1")

	// ErrInvalidRateLimit is returned when rate_limit is negative.
	// Use 0 to disable pacing between attempts.
	ErrInvalidRateLimit = errors.New("invalid rate_limit: must be non-negative")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	// A zero timeout would fail every request immediately.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidRetryPolicy is returned when the retry tuning is unusable:
	// negative retry count, non-positive base delay, or a backoff factor
	// of 1 or less (which would never back off).
	ErrInvalidRetryPolicy = errors.New("invalid retry policy: max retries must be non-negative, base delay positive, backoff factor greater than 1")

	// ErrInvalidMaxBodySize is returned when the max body size is
	// negative. Use 0 to keep the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrUnknownEncoding is returned when wordlist_encoding names an
	// encoding the wordlist loader cannot decode.
	ErrUnknownEncoding = errors.New("unknown wordlist_encoding: supported values are utf-8, latin-1, utf-16le, utf-16be")

	// ErrConflictingReportFormats is returned when both --json and
	// --markdown are requested. Only one output format can be used at a
	// time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
)
