package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/louisbranch/newsgate/internal/services/web/biometric"
	"github.com/louisbranch/newsgate/internal/services/web/platform/devicecookie"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		HTTPAddr:    "127.0.0.1:0",
		DBPath:      filepath.Join(t.TempDir(), "web.db"),
		AuthBaseURL: "http://127.0.0.1:1",
		FeedURL:     "http://127.0.0.1:1/feed.xml",
		SecretKey:   []byte(strings.Repeat("k", 32)),
		WebAuthn: biometric.Config{
			RPID:          "localhost",
			RPDisplayName: "Newsgate",
			RPOrigins:     []string{"http://localhost:8080"},
		},
	}
}

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	srv, err := NewServer(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	t.Cleanup(srv.Close)
	return srv
}

func TestNewServerRequiresHTTPAddr(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.HTTPAddr = "  "
	if _, err := NewServer(context.Background(), cfg); err == nil {
		t.Fatalf("expected error for empty http address")
	}
}

func TestNewServerRejectsShortSecret(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.SecretKey = []byte("short")
	if _, err := NewServer(context.Background(), cfg); err == nil {
		t.Fatalf("expected error for short secret")
	}
}

func TestNewServerRejectsRelativeFeedURL(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.FeedURL = "/feed.xml"
	if _, err := NewServer(context.Background(), cfg); err == nil {
		t.Fatalf("expected error for relative feed url")
	}
}

func TestRootRoutesNewDeviceToLogin(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, testConfig(t))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusFound)
	}
	if got := rr.Header().Get("Location"); got != "/login" {
		t.Fatalf("Location = %q, want %q", got, "/login")
	}
	var issued bool
	for _, cookie := range rr.Result().Cookies() {
		if cookie.Name == devicecookie.Name && cookie.Value != "" {
			issued = true
		}
	}
	if !issued {
		t.Fatalf("expected device cookie to be issued")
	}
	if got := rr.Header().Get("X-Request-ID"); got == "" {
		t.Fatalf("expected request id header")
	}
}

func TestProtectedRoutesRequireUnlock(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, testConfig(t))
	for _, path := range []string{"/app", "/app/home", "/app/news"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rr, req)

		if rr.Code != http.StatusFound {
			t.Fatalf("%s status = %d, want %d", path, rr.Code, http.StatusFound)
		}
		if got := rr.Header().Get("Location"); got != "/login" {
			t.Fatalf("%s Location = %q, want %q", path, got, "/login")
		}
	}
}

func TestHealthReportsStore(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, testConfig(t))
	req := httptest.NewRequest(http.MethodGet, "/up", nil)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if body := rr.Body.String(); !strings.Contains(body, `"ok"`) {
		t.Fatalf("body = %q, want ok status", body)
	}
}

func TestServesStaticAssets(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, testConfig(t))
	req := httptest.NewRequest(http.MethodGet, "/static/newsgate.js", nil)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, testConfig(t))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.ListenAndServe(ctx)
	}()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("ListenAndServe() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("ListenAndServe did not stop")
	}
}

func TestNilServer(t *testing.T) {
	t.Parallel()

	var srv *Server
	if srv.Handler() != nil {
		t.Fatalf("expected nil handler")
	}
	if err := srv.ListenAndServe(context.Background()); err == nil {
		t.Fatalf("expected error for nil server")
	}
	srv.Close()
}
