package config

import (
	"math"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"

	"github.com/caselka/DirtyWaters/internal/tor"
)

// Default configuration values.
// These mirror the behavior of a stock Tor daemon and conservative pacing
// suitable for authorized testing without tripping lockouts.
const (
	// DefaultProxyAddress is the standard Tor SOCKS5 proxy address.
	// Port 9050 is the default for the Tor daemon's SOCKS port.
	// We use 127.0.0.1 instead of localhost to avoid DNS resolution overhead
	// and potential issues with IPv6 resolution on some systems.
	DefaultProxyAddress = "127.0.0.1:9050"

	// DefaultControlAddress is the standard Tor control port address.
	// Rotation signals are sent here, never over the SOCKS data path.
	DefaultControlAddress = "127.0.0.1:9051"

	// DefaultTimeout is the per-request timeout. Tor adds several relay
	// hops to every request, so this has to be generous compared to a
	// clearnet tool; 30 seconds matches typical hidden-service latency.
	DefaultTimeout = 30 * time.Second

	// DefaultAttemptsPerCircuit is how many login attempts ride one Tor
	// identity before a rotation is requested. Ten keeps the per-identity
	// footprint small without paying the rotation settle period too often.
	DefaultAttemptsPerCircuit = 10

	// DefaultRateLimit is the pause between consecutive attempts.
	// Five seconds is deliberately slow: the tool exists for authorized
	// testing, and hammering a login endpoint triggers lockouts that
	// invalidate the whole run.
	DefaultRateLimit = 5 * time.Second

	// DefaultRetryMaxRetries is how many times a failed request is retried
	// before the attempt is recorded as a transient error.
	DefaultRetryMaxRetries = 3

	// DefaultRetryBaseDelay is the backoff before the first retry.
	DefaultRetryBaseDelay = 1 * time.Second

	// DefaultRetryBackoffFactor doubles the backoff after each failure.
	DefaultRetryBackoffFactor = 2.0

	// DefaultUserAgent mimics a mainstream browser. Login endpoints often
	// treat headless user agents differently, which would skew the
	// classifier's view of the responses.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	// DefaultMaxBodySize limits how much of a response body is read.
	// 5MB is more than any login page needs while preventing memory
	// exhaustion from an unexpectedly large response.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultWordlistEncoding is the character encoding assumed for
	// password files unless the config says otherwise.
	DefaultWordlistEncoding = "utf-8"

	// DefaultTorStartupTimeout is the maximum time to wait for the
	// embedded Tor daemon to bootstrap when --embedded-tor is used.
	DefaultTorStartupTimeout = 3 * time.Minute

	// AppName is the application name used for XDG directory paths.
	AppName = "dirtywaters"
)

// Default indicator sets. These match the WordPress login flow: a successful
// login redirects into the admin area or renders the admin bar, a failed one
// renders a specific error message.
var (
	// DefaultSuccessIndicators are substrings whose presence in a redirect
	// target or response body marks an attempt as successful.
	DefaultSuccessIndicators = []string{"/wp-admin/", "wp-admin-bar"}

	// DefaultFailureIndicators are substrings whose presence in a response
	// body marks an attempt as explicitly rejected.
	DefaultFailureIndicators = []string{"The password you entered for the username"}
)

// Config holds all configuration for one run.
// It is populated once from the YAML file plus CLI flags, validated, and
// passed through the application via dependency injection; nothing mutates
// it after the run starts.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., TargetConfig, RetryConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant benefit.
type Config struct {
	// TargetURL is the login endpoint to probe. Required.
	TargetURL string

	// Username is the account name the candidates are tried against.
	// Required.
	Username string

	// PasswordFile is the path to the newline-delimited candidate list.
	// Required.
	PasswordFile string

	// ProxyAddress is the Tor SOCKS5 proxy in "host:port" format.
	// Every request to the target goes through this proxy; the tool never
	// touches the target directly.
	ProxyAddress string

	// ControlAddress is the Tor control port in "host:port" format.
	// Identity rotations are signaled here.
	ControlAddress string

	// ControlPassword authenticates against the control port. Empty for
	// ports configured without a password.
	ControlPassword string

	// SuccessIndicators are matched (in order) against redirect targets
	// and response bodies; any hit classifies the attempt as a success.
	SuccessIndicators []string

	// FailureIndicators are matched against response bodies; any hit
	// classifies the attempt as an explicit rejection.
	FailureIndicators []string

	// AttemptsPerCircuit is how many attempts share one Tor identity
	// before a rotation is requested. Must be at least 1.
	AttemptsPerCircuit int

	// RateLimit is the pause between consecutive attempts. Zero disables
	// pacing; negative values are invalid.
	RateLimit time.Duration

	// Timeout is the per-request timeout. Must be positive.
	Timeout time.Duration

	// RetryMaxRetries is how many times a failed request is re-issued
	// before the attempt is recorded as a transient error.
	RetryMaxRetries int

	// RetryBaseDelay is the backoff before the first retry.
	RetryBaseDelay time.Duration

	// RetryBackoffFactor multiplies the backoff after each failure.
	// Must be greater than 1.
	RetryBackoffFactor float64

	// UserAgent is sent on every request to the target.
	UserAgent string

	// MaxBodySize caps how many bytes of a response body are read.
	// Zero means use the default.
	MaxBodySize int64

	// WordlistEncoding names the character encoding of the password file:
	// "utf-8", "latin-1", "utf-16le", or "utf-16be".
	WordlistEncoding string

	// EmbeddedTor launches a private Tor daemon instead of using a system
	// one. Its ephemeral SOCKS and control addresses override
	// ProxyAddress and ControlAddress for the run.
	EmbeddedTor bool

	// TorStartupTimeout bounds embedded Tor bootstrap. Only used when
	// EmbeddedTor is set.
	TorStartupTimeout time.Duration

	// History enables persisting the finished run to the SQLite history
	// database under DBDir.
	History bool

	// DBDir is the directory holding the history database. Defaults to
	// the XDG data directory.
	DBDir string

	// Verbose enables debug-level log output.
	Verbose bool

	// JSONReport selects JSON report output instead of the text box.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown report output instead of the text
	// box. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile writes the report to this path instead of stdout.
	ReportFile string

	// ConfigFilePath is where the configuration was loaded from, kept for
	// error messages.
	ConfigFilePath string
}

// New creates a Config with default values. Required fields (TargetURL,
// Username, PasswordFile) start empty and must be filled from the config
// file before Validate passes.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (timeouts, pacing, the
// indicator sets). This also serves as documentation of what the defaults
// are.
func New() *Config {
	return &Config{
		ProxyAddress:       DefaultProxyAddress,
		ControlAddress:     DefaultControlAddress,
		SuccessIndicators:  append([]string(nil), DefaultSuccessIndicators...),
		FailureIndicators:  append([]string(nil), DefaultFailureIndicators...),
		AttemptsPerCircuit: DefaultAttemptsPerCircuit,
		RateLimit:          DefaultRateLimit,
		Timeout:            DefaultTimeout,
		RetryMaxRetries:    DefaultRetryMaxRetries,
		RetryBaseDelay:     DefaultRetryBaseDelay,
		RetryBackoffFactor: DefaultRetryBackoffFactor,
		UserAgent:          DefaultUserAgent,
		MaxBodySize:        DefaultMaxBodySize,
		WordlistEncoding:   DefaultWordlistEncoding,
		TorStartupTimeout:  DefaultTorStartupTimeout,
		DBDir:              XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for DirtyWaters.
// On Linux: ~/.local/share/dirtywaters
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for DirtyWaters.
// On Linux: ~/.config/dirtywaters
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific sentinel error describing what is invalid.
//
// Design decision: We validate once after loading, before any network
// activity, and return the first error found rather than collecting all
// errors because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	if c.TargetURL == "" {
		return ErrMissingTargetURL
	}
	parsed, err := url.Parse(c.TargetURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return ErrInvalidTargetURL
	}

	// A mistyped onion address would burn the whole candidate list on
	// unreachable-host errors, so it is rejected here instead.
	if host := parsed.Hostname(); strings.HasSuffix(host, tor.OnionSuffix) {
		if err := tor.ValidateOnionHost(host); err != nil {
			return err
		}
	}

	if c.Username == "" {
		return ErrMissingUsername
	}
	if c.PasswordFile == "" {
		return ErrMissingPasswordFile
	}
	if c.AttemptsPerCircuit < 1 {
		return ErrInvalidAttemptsPerCircuit
	}
	if c.RateLimit < 0 {
		return ErrInvalidRateLimit
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.RetryMaxRetries < 0 {
		return ErrInvalidRetryPolicy
	}
	if c.RetryBaseDelay <= 0 || c.RetryBackoffFactor <= 1 || math.IsInf(c.RetryBackoffFactor, 0) {
		return ErrInvalidRetryPolicy
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if _, ok := knownEncodings[strings.ToLower(c.WordlistEncoding)]; !ok {
		return ErrUnknownEncoding
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	return nil
}

// knownEncodings lists the wordlist encodings the loader understands.
// The wordlist package owns the actual decoders; this map only exists so a
// typo fails at validation time instead of mid-run.
var knownEncodings = map[string]bool{
	"utf-8":    true,
	"utf8":     true,
	"latin-1":  true,
	"latin1":   true,
	"utf-16le": true,
	"utf-16be": true,
}
