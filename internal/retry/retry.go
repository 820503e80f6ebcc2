package retry

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"
)

// Default retry behavior applied by New.
const (
	// DefaultMaxRetries is how many times a failed operation is re-invoked
	// after its first failure.
	DefaultMaxRetries = 3

	// DefaultBaseDelay is the sleep before the first re-invocation.
	DefaultBaseDelay = 1 * time.Second

	// DefaultBackoffFactor is the multiplier applied to the delay after
	// each consecutive failure.
	DefaultBackoffFactor = 2.0
)

// ExhaustedError reports that an operation kept failing after every allowed
// invocation. It carries the final underlying error unchanged.
type ExhaustedError struct {
	// Attempts is the total number of invocations performed.
	Attempts int

	// Err is the error returned by the last invocation.
	Err error
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.Err)
}

// Unwrap returns the final underlying error so errors.Is and errors.As can
// match the root cause.
func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Handler retries a fallible unit of work with exponential backoff.
// A zero-value Handler is not usable; construct one with New.
type Handler struct {
	// maxRetries is how many re-invocations follow a failed first attempt.
	maxRetries int

	// baseDelay is the sleep before the first re-invocation.
	baseDelay time.Duration

	// backoffFactor multiplies the delay after each failure.
	backoffFactor float64

	// logger is used for structured logging of retry decisions.
	logger *slog.Logger
}

// Option is a function that configures a Handler.
type Option func(*Handler)

// WithMaxRetries sets how many re-invocations follow the initial failure.
// Zero disables retrying entirely. Negative values are treated as zero.
func WithMaxRetries(n int) Option {
	return func(h *Handler) {
		if n < 0 {
			n = 0
		}
		h.maxRetries = n
	}
}

// WithBaseDelay sets the sleep before the first re-invocation.
// Non-positive values fall back to the default.
func WithBaseDelay(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.baseDelay = d
		}
	}
}

// WithBackoffFactor sets the delay multiplier applied after each failure.
// Values of 1 or less fall back to the default.
func WithBackoffFactor(f float64) Option {
	return func(h *Handler) {
		if f > 1 {
			h.backoffFactor = f
		}
	}
}

// WithLogger sets a custom logger for retry decisions.
// If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// New creates a Handler with the given options.
func New(opts ...Option) *Handler {
	h := &Handler{
		maxRetries:    DefaultMaxRetries,
		baseDelay:     DefaultBaseDelay,
		backoffFactor: DefaultBackoffFactor,
	}

	for _, opt := range opts {
		opt(h)
	}

	if h.logger == nil {
		h.logger = slog.Default()
	}

	return h
}

// Delay returns the backoff sleep applied after the failure with the given
// zero-based index: baseDelay * backoffFactor^index. The result depends only
// on the handler configuration and the index.
func (h *Handler) Delay(failureIndex int) time.Duration {
	if failureIndex < 0 {
		failureIndex = 0
	}
	return time.Duration(float64(h.baseDelay) * math.Pow(h.backoffFactor, float64(failureIndex)))
}

// Do invokes op, re-invoking it after a backoff sleep for each failure while
// the failure index is below the configured maximum. When the budget is
// spent, Do returns an *ExhaustedError carrying the last error.
//
// The backoff sleep watches ctx; cancellation during a sleep (or observed
// before an invocation) returns ctx.Err() immediately without another
// invocation.
func (h *Handler) Do(ctx context.Context, op func() error) error {
	var lastErr error

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op()
		if lastErr == nil {
			return nil
		}

		if attempt >= h.maxRetries {
			return &ExhaustedError{Attempts: attempt + 1, Err: lastErr}
		}

		delay := h.Delay(attempt)
		h.logger.Warn("operation failed, retrying",
			"attempt", attempt+1,
			"max_retries", h.maxRetries,
			"delay", delay,
			"error", lastErr)

		if err := sleepContext(ctx, delay); err != nil {
			return err
		}
	}
}

// sleepContext sleeps for d or until ctx is cancelled, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
