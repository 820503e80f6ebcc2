package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = "config.yaml"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// fileSchema is the raw YAML shape of the configuration file. Durations are
// plain numbers of seconds, matching how operators think about pacing, and
// the control channel is a bare port number on localhost.
//
// Optional numeric and list fields are pointers so "absent" (use the
// default) can be told apart from an explicit zero or empty list.
type fileSchema struct {
	TargetURL          string    `yaml:"target_url"`
	Username           string    `yaml:"username"`
	PasswordFile       string    `yaml:"password_file"`
	Proxy              string    `yaml:"proxy"`
	ControlPort        *int      `yaml:"control_port"`
	ControlPassword    string    `yaml:"control_password"`
	SuccessIndicators  *[]string `yaml:"success_indicators"`
	FailureIndicators  *[]string `yaml:"failure_indicators"`
	AttemptsPerCircuit *int      `yaml:"attempts_per_circuit"`
	RateLimit          *float64  `yaml:"rate_limit"`
	Timeout            *float64  `yaml:"timeout"`
	UserAgent          string    `yaml:"user_agent"`
	MaxBodySize        *int64    `yaml:"max_body_size"`
	WordlistEncoding   string    `yaml:"wordlist_encoding"`
	EmbeddedTor        bool      `yaml:"embedded_tor"`
	History            bool      `yaml:"history"`
	Verbose            bool      `yaml:"verbose"`
}

// Load reads the YAML configuration file at path and returns a Config with
// defaults applied for every absent optional field. It does not validate;
// callers run Validate() after layering CLI flags on top.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, err
	}

	var raw fileSchema
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	cfg := New()
	cfg.ConfigFilePath = path
	cfg.TargetURL = raw.TargetURL
	cfg.Username = raw.Username
	cfg.PasswordFile = raw.PasswordFile
	cfg.ControlPassword = raw.ControlPassword
	cfg.EmbeddedTor = raw.EmbeddedTor
	cfg.History = raw.History
	cfg.Verbose = raw.Verbose

	if raw.Proxy != "" {
		cfg.ProxyAddress = normalizeProxyAddress(raw.Proxy)
	}
	if raw.ControlPort != nil {
		cfg.ControlAddress = net.JoinHostPort("127.0.0.1", fmt.Sprintf("%d", *raw.ControlPort))
	}
	if raw.SuccessIndicators != nil {
		cfg.SuccessIndicators = append([]string(nil), (*raw.SuccessIndicators)...)
	}
	if raw.FailureIndicators != nil {
		cfg.FailureIndicators = append([]string(nil), (*raw.FailureIndicators)...)
	}
	if raw.AttemptsPerCircuit != nil {
		cfg.AttemptsPerCircuit = *raw.AttemptsPerCircuit
	}
	if raw.RateLimit != nil {
		cfg.RateLimit = secondsToDuration(*raw.RateLimit)
	}
	if raw.Timeout != nil {
		cfg.Timeout = secondsToDuration(*raw.Timeout)
	}
	if raw.UserAgent != "" {
		cfg.UserAgent = raw.UserAgent
	}
	if raw.MaxBodySize != nil {
		cfg.MaxBodySize = *raw.MaxBodySize
	}
	if raw.WordlistEncoding != "" {
		cfg.WordlistEncoding = strings.ToLower(raw.WordlistEncoding)
	}

	return cfg, nil
}

// normalizeProxyAddress accepts either a bare "host:port" or a SOCKS URI
// like "socks5://127.0.0.1:9050" (also the socks5h form common in Python
// tooling) and returns the bare address the dialer wants.
func normalizeProxyAddress(proxy string) string {
	for _, scheme := range []string{"socks5h://", "socks5://", "socks4://"} {
		if strings.HasPrefix(proxy, scheme) {
			return strings.TrimPrefix(proxy, scheme)
		}
	}
	return proxy
}

// secondsToDuration converts a fractional seconds value from the config
// file into a time.Duration.
func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

// FindConfigFile searches for the configuration file in the following order:
//  1. If configPath is specified, use it directly
//  2. config.yaml in the current directory
//  3. config.yaml in the XDG config directory
//
// Returns the path to the configuration file if found, or empty string if
// not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	xdgConfig := filepath.Join(XDGConfigDir(), DefaultConfigFile)
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig
	}

	return ""
}
