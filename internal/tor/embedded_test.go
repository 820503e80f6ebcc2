package tor

import (
	"errors"
	"testing"
	"time"
)

// TestNewEmbeddedTor tests the embedded Tor constructor and its state
// before the daemon is started.
func TestNewEmbeddedTor(t *testing.T) {
	t.Parallel()

	t.Run("uses default startup timeout", func(t *testing.T) {
		t.Parallel()

		et := NewEmbeddedTor()
		if et.startupTimeout != DefaultStartupTimeout {
			t.Errorf("startupTimeout = %v, expected %v", et.startupTimeout, DefaultStartupTimeout)
		}
	})

	t.Run("reports not running before start", func(t *testing.T) {
		t.Parallel()

		et := NewEmbeddedTor()
		if et.IsRunning() {
			t.Error("expected IsRunning() to be false before Start()")
		}
		if addr := et.SocksAddr(); addr != "" {
			t.Errorf("SocksAddr() = %q, expected empty string before start", addr)
		}
		if addr := et.ControlAddr(); addr != "" {
			t.Errorf("ControlAddr() = %q, expected empty string before start", addr)
		}
	})
}

// TestWithStartupTimeout tests the startup timeout option.
func TestWithStartupTimeout(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		timeout  time.Duration
		expected time.Duration
	}{
		{"custom timeout is applied", 1 * time.Minute, 1 * time.Minute},
		{"zero keeps the default", 0, DefaultStartupTimeout},
		{"negative keeps the default", -1 * time.Second, DefaultStartupTimeout},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			et := NewEmbeddedTor(WithStartupTimeout(tc.timeout))
			if et.startupTimeout != tc.expected {
				t.Errorf("startupTimeout = %v, expected %v", et.startupTimeout, tc.expected)
			}
		})
	}
}

// TestEmbeddedTorStop tests that Stop is idempotent and safe on an
// unstarted instance.
func TestEmbeddedTorStop(t *testing.T) {
	t.Parallel()

	et := NewEmbeddedTor()
	if err := et.Stop(); err != nil {
		t.Errorf("Stop() on unstarted instance returned error: %v", err)
	}
	if err := et.Stop(); err != nil {
		t.Errorf("second Stop() returned error: %v", err)
	}
}

// TestEmbeddedTorNewClient tests client creation against an unstarted daemon.
func TestEmbeddedTorNewClient(t *testing.T) {
	t.Parallel()

	et := NewEmbeddedTor()
	if _, err := et.NewClient(30 * time.Second); !errors.Is(err, ErrEmbeddedTorNotRunning) {
		t.Errorf("expected ErrEmbeddedTorNotRunning, got %v", err)
	}
}
