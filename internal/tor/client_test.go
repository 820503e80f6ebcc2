package tor

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestNewClient tests the Client constructor.
func TestNewClient(t *testing.T) {
	t.Parallel()

	t.Run("valid proxy address creates client", func(t *testing.T) {
		t.Parallel()

		client, err := NewClient("127.0.0.1:9050", 30*time.Second)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if client.ProxyAddress() != "127.0.0.1:9050" {
			t.Errorf("ProxyAddress() = %q, expected %q", client.ProxyAddress(), "127.0.0.1:9050")
		}
	})

	t.Run("hostname proxy address is valid", func(t *testing.T) {
		t.Parallel()

		if _, err := NewClient("localhost:9050", 30*time.Second); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("malformed addresses are rejected", func(t *testing.T) {
		t.Parallel()

		for _, address := range []string{"", "127.0.0.1", ":9050", "127.0.0.1:", "127.0.0.1:9050:extra"} {
			_, err := NewClient(address, 30*time.Second)
			if !errors.Is(err, ErrInvalidProxyAddress) {
				t.Errorf("NewClient(%q): expected ErrInvalidProxyAddress, got %v", address, err)
			}
		}
	})
}

// TestIsValidProxyAddress tests the proxy address validation function.
func TestIsValidProxyAddress(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		address  string
		expected bool
	}{
		{"valid IPv4 with port", "127.0.0.1:9050", true},
		{"valid localhost with port", "localhost:9050", true},
		{"valid hostname with port", "tor.example.com:9050", true},
		{"empty string", "", false},
		{"no port", "127.0.0.1", false},
		{"empty host", ":9050", false},
		{"empty port", "127.0.0.1:", false},
		{"multiple colons", "127.0.0.1:9050:extra", false},
		{"only colon", ":", false},
		{"port zero", "127.0.0.1:0", false},
		{"port too large", "127.0.0.1:65536", false},
		{"non-numeric port", "127.0.0.1:abc", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			result := isValidProxyAddress(tc.address)
			if result != tc.expected {
				t.Errorf("isValidProxyAddress(%q) = %v, expected %v", tc.address, result, tc.expected)
			}
		})
	}
}

// TestNewHTTPClient tests the HTTP client configuration for login probing.
func TestNewHTTPClient(t *testing.T) {
	t.Parallel()

	client, err := NewClient("127.0.0.1:9050", 60*time.Second)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	httpClient := client.NewHTTPClient()

	t.Run("timeout is applied", func(t *testing.T) {
		t.Parallel()
		if httpClient.Timeout != 60*time.Second {
			t.Errorf("Timeout = %v, expected %v", httpClient.Timeout, 60*time.Second)
		}
	})

	t.Run("cookie jar is enabled", func(t *testing.T) {
		t.Parallel()
		if httpClient.Jar == nil {
			t.Error("expected non-nil cookie jar")
		}
	})

	t.Run("redirects are never followed", func(t *testing.T) {
		t.Parallel()
		if httpClient.CheckRedirect == nil {
			t.Fatal("expected CheckRedirect to be set")
		}
		if err := httpClient.CheckRedirect(nil, nil); !errors.Is(err, http.ErrUseLastResponse) {
			t.Errorf("expected ErrUseLastResponse, got %v", err)
		}
	})

	t.Run("transport is tuned for Tor circuits", func(t *testing.T) {
		t.Parallel()
		transport, ok := httpClient.Transport.(*http.Transport)
		if !ok {
			t.Fatal("expected transport to be *http.Transport")
		}
		if transport.MaxIdleConns != 10 {
			t.Errorf("expected MaxIdleConns 10, got %d", transport.MaxIdleConns)
		}
		if !transport.DisableCompression {
			t.Error("expected compression to be disabled")
		}
		if transport.TLSClientConfig == nil || !transport.TLSClientConfig.InsecureSkipVerify {
			t.Error("expected TLS verification to be skipped for .onion services")
		}
	})
}

// TestHeaderInjectingTransport tests that configured headers reach the wire
// and explicit request headers win over injected defaults.
func TestHeaderInjectingTransport(t *testing.T) {
	t.Parallel()

	var gotUserAgent, gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	transport := &headerInjectingTransport{
		base: http.DefaultTransport,
		headers: map[string]string{
			"User-Agent": "Mozilla/5.0 (probe)",
			"Accept":     "text/html",
		},
	}
	httpClient := &http.Client{Transport: transport, Timeout: 5 * time.Second}

	t.Run("injects default headers", func(t *testing.T) {
		resp, err := httpClient.Get(server.URL)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		_ = resp.Body.Close()

		if gotUserAgent != "Mozilla/5.0 (probe)" {
			t.Errorf("expected injected User-Agent, got %q", gotUserAgent)
		}
		if gotAccept != "text/html" {
			t.Errorf("expected injected Accept, got %q", gotAccept)
		}
	})

	t.Run("explicit request header wins", func(t *testing.T) {
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, nil)
		if err != nil {
			t.Fatalf("failed to build request: %v", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := httpClient.Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		_ = resp.Body.Close()

		if gotAccept != "application/json" {
			t.Errorf("expected explicit Accept to win, got %q", gotAccept)
		}
	})
}

// TestCheckConnection tests the SOCKS5 proxy verification.
func TestCheckConnection(t *testing.T) {
	t.Parallel()

	t.Run("returns CannotConnect for non-existent proxy", func(t *testing.T) {
		t.Parallel()

		client, err := NewClient("127.0.0.1:59999", 30*time.Second)
		if err != nil {
			t.Fatalf("failed to create client: %v", err)
		}

		status := client.CheckConnection(context.Background())
		if status != ProxyStatusCannotConnect {
			t.Errorf("expected ProxyStatusCannotConnect, got %v", status)
		}
	})

	t.Run("returns WrongType for non-SOCKS5 server", func(t *testing.T) {
		t.Parallel()

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("failed to start mock server: %v", err)
		}
		defer listener.Close()

		go func() {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
			buf := make([]byte, 3)
			_, _ = conn.Read(buf)
			_, _ = conn.Write([]byte("HTTP/1.1 200 OK\r\n\r\n"))
		}()

		client, err := NewClient(listener.Addr().String(), 30*time.Second)
		if err != nil {
			t.Fatalf("failed to create client: %v", err)
		}

		if status := client.CheckConnection(context.Background()); status != ProxyStatusWrongType {
			t.Errorf("expected ProxyStatusWrongType, got %v", status)
		}
	})

	t.Run("returns WrongType for SOCKS5 requiring auth", func(t *testing.T) {
		t.Parallel()

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("failed to start mock server: %v", err)
		}
		defer listener.Close()

		go func() {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
			buf := make([]byte, 3)
			_, _ = conn.Read(buf)
			// 0xFF means no acceptable auth methods
			_, _ = conn.Write([]byte{0x05, 0xFF})
		}()

		client, err := NewClient(listener.Addr().String(), 30*time.Second)
		if err != nil {
			t.Fatalf("failed to create client: %v", err)
		}

		if status := client.CheckConnection(context.Background()); status != ProxyStatusWrongType {
			t.Errorf("expected ProxyStatusWrongType, got %v", status)
		}
	})

	t.Run("returns OK for valid SOCKS5 proxy", func(t *testing.T) {
		t.Parallel()

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("failed to start mock server: %v", err)
		}
		defer listener.Close()

		go func() {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			defer conn.Close()

			buf := make([]byte, 3)
			_, _ = conn.Read(buf)

			// SOCKS5, no auth required
			_, _ = conn.Write([]byte{0x05, 0x00})

			connectBuf := make([]byte, 256)
			_, _ = conn.Read(connectBuf)

			// Host unreachable is fine; the proxy processed the request
			_, _ = conn.Write([]byte{0x05, 0x04, 0x00, 0x01, 0, 0, 0, 0, 0, 0})
		}()

		client, err := NewClient(listener.Addr().String(), 30*time.Second)
		if err != nil {
			t.Fatalf("failed to create client: %v", err)
		}

		if status := client.CheckConnection(context.Background()); status != ProxyStatusOK {
			t.Errorf("expected ProxyStatusOK, got %v", status)
		}
	})

	t.Run("handles context cancellation", func(t *testing.T) {
		t.Parallel()

		client, err := NewClient("127.0.0.1:59998", 30*time.Second)
		if err != nil {
			t.Fatalf("failed to create client: %v", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		status := client.CheckConnection(ctx)
		if status != ProxyStatusCannotConnect && status != ProxyStatusTimeout {
			t.Errorf("expected ProxyStatusCannotConnect or ProxyStatusTimeout, got %v", status)
		}
	})
}

// TestProxyStatus tests ProxyStatus String and Error methods.
func TestProxyStatus(t *testing.T) {
	t.Parallel()

	t.Run("String returns readable values", func(t *testing.T) {
		t.Parallel()

		testCases := []struct {
			status   ProxyStatus
			expected string
		}{
			{ProxyStatusOK, "OK"},
			{ProxyStatusWrongType, "wrong type (not Tor)"},
			{ProxyStatusCannotConnect, "cannot connect"},
			{ProxyStatusTimeout, "timeout"},
			{ProxyStatus(99), "unknown"},
		}

		for _, tc := range testCases {
			if tc.status.String() != tc.expected {
				t.Errorf("ProxyStatus(%d).String() = %q, expected %q", tc.status, tc.status.String(), tc.expected)
			}
		}
	})

	t.Run("Error maps statuses to sentinels", func(t *testing.T) {
		t.Parallel()

		testCases := []struct {
			status      ProxyStatus
			expectedErr error
		}{
			{ProxyStatusOK, nil},
			{ProxyStatusWrongType, ErrProxyNotTor},
			{ProxyStatusCannotConnect, ErrProxyCannotConnect},
			{ProxyStatusTimeout, ErrProxyTimeout},
		}

		for _, tc := range testCases {
			if err := tc.status.Error(); !errors.Is(err, tc.expectedErr) {
				t.Errorf("ProxyStatus(%d).Error() = %v, expected %v", tc.status, err, tc.expectedErr)
			}
		}

		if ProxyStatus(99).Error() == nil {
			t.Error("expected error for unknown status")
		}
	})
}
