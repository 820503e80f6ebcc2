package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestNewDefaults tests the default retry configuration.
func TestNewDefaults(t *testing.T) {
	t.Parallel()

	h := New()

	if h.maxRetries != 3 {
		t.Errorf("expected 3 retries, got %d", h.maxRetries)
	}
	if h.baseDelay != 1*time.Second {
		t.Errorf("expected 1s base delay, got %v", h.baseDelay)
	}
	if h.backoffFactor != 2.0 {
		t.Errorf("expected factor 2.0, got %v", h.backoffFactor)
	}
	if h.logger == nil {
		t.Error("expected a default logger")
	}
}

// TestDelayDeterminism tests that Delay is exactly
// baseDelay * backoffFactor^index.
func TestDelayDeterminism(t *testing.T) {
	t.Parallel()

	h := New(WithBaseDelay(time.Second), WithBackoffFactor(2.0))

	tests := []struct {
		index int
		want  time.Duration
	}{
		{index: 0, want: 1 * time.Second},
		{index: 1, want: 2 * time.Second},
		{index: 2, want: 4 * time.Second},
		{index: 3, want: 8 * time.Second},
	}
	for _, tt := range tests {
		if got := h.Delay(tt.index); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.index, got, tt.want)
		}
	}

	t.Run("non-integer factor", func(t *testing.T) {
		t.Parallel()

		h := New(WithBaseDelay(100*time.Millisecond), WithBackoffFactor(1.5))
		if got := h.Delay(2); got != 225*time.Millisecond {
			t.Errorf("Delay(2) = %v, want 225ms", got)
		}
	})

	t.Run("repeated calls return the same value", func(t *testing.T) {
		t.Parallel()

		first := h.Delay(3)
		for i := 0; i < 10; i++ {
			if got := h.Delay(3); got != first {
				t.Fatalf("Delay(3) changed between calls: %v vs %v", first, got)
			}
		}
	})
}

// TestDoSuccess tests that a succeeding operation is invoked exactly once.
func TestDoSuccess(t *testing.T) {
	t.Parallel()

	h := New(WithBaseDelay(time.Millisecond))

	calls := 0
	err := h.Do(context.Background(), func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

// TestDoRecoversAfterFailures tests that transient failures are retried and a
// later success wins.
func TestDoRecoversAfterFailures(t *testing.T) {
	t.Parallel()

	h := New(WithMaxRetries(3), WithBaseDelay(time.Millisecond))

	calls := 0
	err := h.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

// TestDoExhaustion tests the exhausted path: invocation count and error
// propagation without information loss.
func TestDoExhaustion(t *testing.T) {
	t.Parallel()

	rootErr := errors.New("connection reset")

	t.Run("invokes once plus maxRetries and wraps the last error", func(t *testing.T) {
		t.Parallel()

		h := New(WithMaxRetries(2), WithBaseDelay(time.Millisecond))

		calls := 0
		err := h.Do(context.Background(), func() error {
			calls++
			return rootErr
		})
		if calls != 3 {
			t.Errorf("expected 3 calls, got %d", calls)
		}

		var exhausted *ExhaustedError
		if !errors.As(err, &exhausted) {
			t.Fatalf("expected *ExhaustedError, got %T", err)
		}
		if exhausted.Attempts != 3 {
			t.Errorf("expected 3 attempts recorded, got %d", exhausted.Attempts)
		}
		if !errors.Is(err, rootErr) {
			t.Error("expected the root error to survive unwrapping")
		}
	})

	t.Run("zero retries means a single invocation", func(t *testing.T) {
		t.Parallel()

		h := New(WithMaxRetries(0))

		calls := 0
		err := h.Do(context.Background(), func() error {
			calls++
			return rootErr
		})
		if calls != 1 {
			t.Errorf("expected 1 call, got %d", calls)
		}
		var exhausted *ExhaustedError
		if !errors.As(err, &exhausted) {
			t.Fatalf("expected *ExhaustedError, got %T", err)
		}
	})
}

// TestDoCancellation tests that context cancellation stops the retry loop.
func TestDoCancellation(t *testing.T) {
	t.Parallel()

	t.Run("cancelled before first invocation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		h := New()
		calls := 0
		err := h.Do(ctx, func() error {
			calls++
			return nil
		})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if calls != 0 {
			t.Errorf("expected no invocations, got %d", calls)
		}
	})

	t.Run("cancelled during backoff sleep", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())

		h := New(WithMaxRetries(5), WithBaseDelay(time.Hour))
		calls := 0
		done := make(chan error, 1)
		go func() {
			done <- h.Do(ctx, func() error {
				calls++
				return errors.New("always fails")
			})
		}()

		time.Sleep(50 * time.Millisecond)
		cancel()

		select {
		case err := <-done:
			if !errors.Is(err, context.Canceled) {
				t.Fatalf("expected context.Canceled, got %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("Do did not return after cancellation")
		}
		if calls != 1 {
			t.Errorf("expected exactly 1 invocation before the sleep, got %d", calls)
		}
	})
}

// TestOptionGuards tests that nonsense option values fall back to sane
// behavior.
func TestOptionGuards(t *testing.T) {
	t.Parallel()

	h := New(WithMaxRetries(-4), WithBaseDelay(-time.Second), WithBackoffFactor(0.5))

	if h.maxRetries != 0 {
		t.Errorf("expected negative retries clamped to 0, got %d", h.maxRetries)
	}
	if h.baseDelay != DefaultBaseDelay {
		t.Errorf("expected default base delay, got %v", h.baseDelay)
	}
	if h.backoffFactor != DefaultBackoffFactor {
		t.Errorf("expected default factor, got %v", h.backoffFactor)
	}
}
