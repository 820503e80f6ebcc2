package session

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// loginServer is a minimal WordPress-shaped login endpoint. GET serves the
// form and sets the test cookie; POST checks the fixed form fields and
// either redirects into wp-admin or renders the error message.
type loginServer struct {
	*httptest.Server

	password string

	mu    sync.Mutex
	gets  int
	posts int
}

func newLoginServer(t *testing.T, password string) *loginServer {
	t.Helper()

	ls := &loginServer{password: password}
	ls.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			ls.mu.Lock()
			ls.gets++
			ls.mu.Unlock()
			http.SetCookie(w, &http.Cookie{Name: "wordpress_test_cookie", Value: "WP+Cookie+check"})
			_, _ = io.WriteString(w, `<form id="loginform"></form>`)

		case http.MethodPost:
			ls.mu.Lock()
			ls.posts++
			ls.mu.Unlock()

			if c, err := r.Cookie("wordpress_test_cookie"); err != nil || c.Value == "" {
				http.Error(w, "Cookies are blocked", http.StatusOK)
				return
			}
			if err := r.ParseForm(); err != nil {
				http.Error(w, "bad form", http.StatusBadRequest)
				return
			}
			if r.PostFormValue("testcookie") != "1" || r.PostFormValue("wp-submit") != "Log In" {
				http.Error(w, "missing fixed fields", http.StatusBadRequest)
				return
			}
			if r.PostFormValue("pwd") == ls.password {
				http.Redirect(w, r, r.PostFormValue("redirect_to"), http.StatusFound)
				return
			}
			_, _ = io.WriteString(w, "The password you entered for the username "+r.PostFormValue("log")+" is incorrect.")
		}
	}))
	t.Cleanup(ls.Close)

	return ls
}

// newTestSession builds a Session against the test server with a cookie jar,
// the way the tor package builds production clients.
func newTestSession(t *testing.T, ls *loginServer, opts ...Option) *Session {
	t.Helper()

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("failed to create cookie jar: %v", err)
	}

	s, err := New(&http.Client{Jar: jar, Timeout: 5 * time.Second}, ls.URL+"/wp-login.php", "admin", opts...)
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	return s
}

// TestAttempt tests the GET-then-POST login exchange.
func TestAttempt(t *testing.T) {
	t.Parallel()

	t.Run("wrong password returns the rejection body", func(t *testing.T) {
		t.Parallel()

		ls := newLoginServer(t, "rightpw")
		s := newTestSession(t, ls)

		resp, err := s.Attempt(context.Background(), "wrongpw")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("status = %d, want 200", resp.StatusCode)
		}
		if !strings.Contains(resp.Body, "The password you entered for the username admin") {
			t.Errorf("body does not contain the rejection message: %q", resp.Body)
		}
		if resp.RedirectTarget != "" {
			t.Errorf("redirect target = %q, want empty for a 200", resp.RedirectTarget)
		}
	})

	t.Run("right password redirects into the admin area", func(t *testing.T) {
		t.Parallel()

		ls := newLoginServer(t, "rightpw")
		s := newTestSession(t, ls)

		resp, err := s.Attempt(context.Background(), "rightpw")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.StatusCode != http.StatusFound {
			t.Errorf("status = %d, want 302 (redirect must not be followed)", resp.StatusCode)
		}
		if !strings.Contains(resp.RedirectTarget, "/wp-admin/") {
			t.Errorf("redirect target = %q, want /wp-admin/", resp.RedirectTarget)
		}
	})

	t.Run("each attempt fetches the form before posting", func(t *testing.T) {
		t.Parallel()

		ls := newLoginServer(t, "rightpw")
		s := newTestSession(t, ls)

		for _, pw := range []string{"a", "b"} {
			if _, err := s.Attempt(context.Background(), pw); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}

		ls.mu.Lock()
		defer ls.mu.Unlock()
		if ls.gets != 2 || ls.posts != 2 {
			t.Errorf("gets = %d, posts = %d, want 2 and 2", ls.gets, ls.posts)
		}
	})

	t.Run("body reads are capped", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, strings.Repeat("x", 1000))
		}))
		t.Cleanup(srv.Close)

		s, err := New(&http.Client{Timeout: 5 * time.Second}, srv.URL, "admin", WithMaxBodySize(10))
		if err != nil {
			t.Fatalf("failed to create session: %v", err)
		}

		resp, err := s.Attempt(context.Background(), "pw")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(resp.Body) != 10 {
			t.Errorf("body length = %d, want 10", len(resp.Body))
		}
	})
}

// TestAttemptTransportErrors tests the transient error taxonomy.
func TestAttemptTransportErrors(t *testing.T) {
	t.Parallel()

	t.Run("connection refused maps to ErrConnection", func(t *testing.T) {
		t.Parallel()

		// A server that is already closed leaves a port nothing
		// listens on.
		srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
		url := srv.URL
		srv.Close()

		s, err := New(&http.Client{Timeout: 2 * time.Second}, url, "admin")
		if err != nil {
			t.Fatalf("failed to create session: %v", err)
		}

		_, err = s.Attempt(context.Background(), "pw")
		if !errors.Is(err, ErrConnection) {
			t.Errorf("expected ErrConnection, got %v", err)
		}
		if !IsTransient(err) {
			t.Error("connection errors must be transient")
		}
	})

	t.Run("slow server maps to ErrTimeout", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		t.Cleanup(srv.Close)

		s, err := New(&http.Client{Timeout: 50 * time.Millisecond}, srv.URL, "admin")
		if err != nil {
			t.Fatalf("failed to create session: %v", err)
		}

		_, err = s.Attempt(context.Background(), "pw")
		if !errors.Is(err, ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
		if !IsTransient(err) {
			t.Error("timeouts must be transient")
		}
	})

	t.Run("cancellation surfaces unchanged", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		ls := newLoginServer(t, "rightpw")
		s := newTestSession(t, ls)

		_, err := s.Attempt(ctx, "pw")
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if IsTransient(err) {
			t.Error("cancellation must not look transient")
		}
	})
}

// TestVerify tests the preflight connectivity check.
func TestVerify(t *testing.T) {
	t.Parallel()

	t.Run("reachable target passes", func(t *testing.T) {
		t.Parallel()

		ls := newLoginServer(t, "rightpw")
		s := newTestSession(t, ls)

		if err := s.Verify(context.Background()); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("non-200 status fails verification", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		t.Cleanup(srv.Close)

		s, err := New(&http.Client{Timeout: 5 * time.Second}, srv.URL, "admin")
		if err != nil {
			t.Fatalf("failed to create session: %v", err)
		}

		if err := s.Verify(context.Background()); !errors.Is(err, ErrVerifyFailed) {
			t.Errorf("expected ErrVerifyFailed, got %v", err)
		}
	})

	t.Run("unreachable target fails verification", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
		url := srv.URL
		srv.Close()

		s, err := New(&http.Client{Timeout: 2 * time.Second}, url, "admin")
		if err != nil {
			t.Fatalf("failed to create session: %v", err)
		}

		if err := s.Verify(context.Background()); !errors.Is(err, ErrVerifyFailed) {
			t.Errorf("expected ErrVerifyFailed, got %v", err)
		}
	})
}
