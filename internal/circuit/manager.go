package circuit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/textproto"
	"slices"
	"strings"
	"time"
)

// Rotation timing defaults applied by New.
const (
	// DefaultMinRotationInterval is the minimum spacing between two NEWNYM
	// signals. Tor silently ignores signals arriving faster than roughly
	// every ten seconds, so sending earlier would fake a rotation that
	// never happened.
	DefaultMinRotationInterval = 10 * time.Second

	// DefaultSettleTime is how long traffic pauses after a NEWNYM signal
	// so the fresh circuits are actually used by the next request.
	DefaultSettleTime = 5 * time.Second

	// DefaultDialTimeout bounds opening the control-port TCP connection.
	DefaultDialTimeout = 15 * time.Second
)

// Status is a read-only snapshot of the manager state.
type Status struct {
	// Connected reports whether the control channel is currently open.
	Connected bool

	// Rotations is how many NEWNYM signals have been sent.
	Rotations uint64

	// LastRotation is when the most recent signal was sent, zero if none.
	LastRotation time.Time
}

// Manager gates and executes identity rotations on the Tor control channel.
// It owns the control connection exclusively: Connect before the first
// rotation, Disconnect on every exit path. A Manager belongs to a single
// control flow and must not be shared between goroutines.
type Manager struct {
	// address is the control port in "host:port" format.
	address string

	// password is the control-port secret, empty for open ports.
	password string

	// minInterval is the minimum spacing between two rotation signals.
	minInterval time.Duration

	// settle is the pause after each signal before traffic resumes.
	settle time.Duration

	// dialTimeout bounds opening the control connection.
	dialTimeout time.Duration

	// logger is used for structured logging.
	logger *slog.Logger

	// conn is the live control connection, nil when disconnected.
	conn *controlConn

	// rotations counts the NEWNYM signals sent on this connection's
	// lifetime.
	rotations uint64

	// lastRotation is when the most recent signal was sent.
	lastRotation time.Time

	// now and sleep exist so the throttle arithmetic is testable without
	// real waiting.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// Option is a function that configures a Manager.
type Option func(*Manager)

// WithMinInterval overrides the minimum spacing between rotation signals.
// Non-positive values are ignored.
func WithMinInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.minInterval = d
		}
	}
}

// WithSettleTime overrides the post-rotation settle pause.
// Negative values are ignored; zero disables the pause.
func WithSettleTime(d time.Duration) Option {
	return func(m *Manager) {
		if d >= 0 {
			m.settle = d
		}
	}
}

// WithDialTimeout overrides the control-port dial timeout.
// Non-positive values are ignored.
func WithDialTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.dialTimeout = d
		}
	}
}

// WithLogger sets a custom logger.
// If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Manager for the control port at address
// ("host:port"). The password may be empty when the port accepts
// unauthenticated connections.
func NewManager(address, password string, opts ...Option) *Manager {
	m := &Manager{
		address:     address,
		password:    password,
		minInterval: DefaultMinRotationInterval,
		settle:      DefaultSettleTime,
		dialTimeout: DefaultDialTimeout,
		now:         time.Now,
		sleep:       sleepContext,
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.logger == nil {
		m.logger = slog.Default()
	}

	return m
}

// Connect opens and authenticates the control channel. Calling Connect on an
// already connected manager is a no-op success.
//
// Errors: ErrUnreachable when the port cannot be reached or the protocol
// breaks down, ErrAuthMissing when the daemon demands a secret and none was
// configured, ErrAuthRejected when the daemon refuses the configured secret.
func (m *Manager) Connect(ctx context.Context) error {
	if m.conn != nil {
		m.logger.Debug("control channel already connected", "address", m.address)
		return nil
	}

	conn, err := dialControl(ctx, m.address, m.dialTimeout)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	methods, err := conn.authMethods()
	if err != nil {
		_ = conn.close()
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	if err := m.authenticate(conn, methods); err != nil {
		_ = conn.close()
		return err
	}

	m.conn = conn
	m.logger.Info("control channel connected",
		"address", m.address,
		"tor_version", conn.serverVersion())
	return nil
}

// authenticate picks the strongest mutually supported method and runs it.
func (m *Manager) authenticate(conn *controlConn, methods []string) error {
	// An open port accepts a bare AUTHENTICATE regardless of any
	// configured password.
	if slices.Contains(methods, "NULL") {
		if err := conn.authenticate(""); err != nil {
			return fmt.Errorf("%w: %v", ErrUnreachable, err)
		}
		return nil
	}

	if m.password == "" {
		return fmt.Errorf("%w (offered methods: %s)", ErrAuthMissing, strings.Join(methods, ","))
	}

	if err := conn.authenticate(m.password); err != nil {
		var reply *textproto.Error
		if errors.As(err, &reply) {
			return fmt.Errorf("%w: %v", ErrAuthRejected, reply.Msg)
		}
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	return nil
}

// Rotate requests a fresh network identity.
//
// If the previous rotation happened less than the minimum interval ago,
// Rotate first blocks for the remainder. It then sends SIGNAL NEWNYM,
// increments the rotation counter, and blocks for the settle period so the
// next request rides the new circuits. Cancellation during either wait
// returns ctx.Err(); the signal is never sent early to satisfy a cancelled
// caller.
func (m *Manager) Rotate(ctx context.Context) error {
	if m.conn == nil {
		return ErrNotConnected
	}

	if !m.lastRotation.IsZero() {
		if wait := m.minInterval - m.now().Sub(m.lastRotation); wait > 0 {
			m.logger.Debug("throttling rotation", "wait", wait)
			if err := m.sleep(ctx, wait); err != nil {
				return err
			}
		}
	}

	if err := m.conn.signalNewIdentity(); err != nil {
		return fmt.Errorf("%w: %v", ErrSignalRejected, err)
	}

	m.rotations++
	m.lastRotation = m.now()
	m.logger.Info("identity rotated", "rotations", m.rotations, "settle", m.settle)

	return m.sleep(ctx, m.settle)
}

// Disconnect releases the control channel. It is safe to call repeatedly and
// never fails observably; close problems are only logged.
func (m *Manager) Disconnect() {
	if m.conn == nil {
		return
	}
	if err := m.conn.close(); err != nil {
		m.logger.Debug("control channel close failed", "error", err)
	}
	m.conn = nil
	m.logger.Info("control channel disconnected", "rotations", m.rotations)
}

// Status returns a read-only snapshot of the manager state.
func (m *Manager) Status() Status {
	return Status{
		Connected:    m.conn != nil,
		Rotations:    m.rotations,
		LastRotation: m.lastRotation,
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
