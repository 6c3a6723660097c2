package login

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/louisbranch/newsgate/internal/services/web/component/gate"
	"github.com/louisbranch/newsgate/internal/services/web/component/loginform"
	"github.com/louisbranch/newsgate/internal/services/web/platform/devicecookie"
	"github.com/louisbranch/newsgate/internal/services/web/platform/requestmeta"
	"github.com/louisbranch/newsgate/internal/services/web/platform/sessioncookie"
	"github.com/louisbranch/newsgate/internal/services/web/routepath"
)

type fakeAuthenticator struct {
	session loginform.Session
	err     error
	started chan struct{}
	release chan struct{}
}

func (f *fakeAuthenticator) Authenticate(context.Context, string, string) (loginform.Session, error) {
	if f.started != nil {
		f.started <- struct{}{}
		<-f.release
	}
	return f.session, f.err
}

type fakeVault struct {
	mu     sync.Mutex
	values map[string]map[string]string
	setErr error
}

func newFakeVault() *fakeVault {
	return &fakeVault{values: make(map[string]map[string]string)}
}

func (v *fakeVault) device(deviceID string) DeviceCredentials {
	return fakeDeviceVault{vault: v, deviceID: deviceID}
}

func (v *fakeVault) get(deviceID string, key string) string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.values[deviceID][key]
}

type fakeDeviceVault struct {
	vault    *fakeVault
	deviceID string
}

func (d fakeDeviceVault) Set(_ context.Context, key string, value string) error {
	d.vault.mu.Lock()
	defer d.vault.mu.Unlock()
	if d.vault.setErr != nil {
		return d.vault.setErr
	}
	if d.vault.values[d.deviceID] == nil {
		d.vault.values[d.deviceID] = make(map[string]string)
	}
	d.vault.values[d.deviceID][key] = value
	return nil
}

func (d fakeDeviceVault) Delete(_ context.Context, key string) error {
	d.vault.mu.Lock()
	defer d.vault.mu.Unlock()
	delete(d.vault.values[d.deviceID], key)
	return nil
}

func newTestHandler(t *testing.T, auth loginform.Authenticator, vault *fakeVault, cfg Config) http.Handler {
	t.Helper()
	unlock, err := sessioncookie.NewManager(bytes.Repeat([]byte("s"), 32), time.Hour, requestmeta.SchemePolicy{})
	if err != nil {
		t.Fatalf("new unlock manager: %v", err)
	}
	cfg.Authenticator = auth
	cfg.Credentials = vault.device
	cfg.Unlock = unlock
	mount, err := New(cfg).Mount()
	if err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	if mount.Prefix != routepath.Login {
		t.Fatalf("prefix = %q, want %q", mount.Prefix, routepath.Login)
	}
	return mount.Handler
}

func postLogin(handler http.Handler, email string, password string, htmx bool) *httptest.ResponseRecorder {
	form := url.Values{"email": {email}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, routepath.Login, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	req = req.WithContext(devicecookie.WithDeviceID(req.Context(), "dev-a"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestModuleIDReturnsLogin(t *testing.T) {
	t.Parallel()

	if got := New(Config{}).ID(); got != "login" {
		t.Fatalf("ID() = %q, want %q", got, "login")
	}
}

func TestMountExposesLogoutAndHealthAliases(t *testing.T) {
	t.Parallel()

	unlock, _ := sessioncookie.NewManager(bytes.Repeat([]byte("s"), 32), time.Hour, requestmeta.SchemePolicy{})
	mount, err := New(Config{Authenticator: &fakeAuthenticator{}, Credentials: newFakeVault().device, Unlock: unlock}).Mount()
	if err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	want := []string{routepath.Logout, routepath.Health}
	if len(mount.Aliases) != len(want) {
		t.Fatalf("aliases = %v, want %v", mount.Aliases, want)
	}
	for i := range want {
		if mount.Aliases[i] != want[i] {
			t.Fatalf("alias[%d] = %q, want %q", i, mount.Aliases[i], want[i])
		}
	}
}

func TestLoginPageRendersForm(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t, &fakeAuthenticator{}, newFakeVault(), Config{SignupURL: "https://example.com/signup"})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, routepath.Login, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	body := rr.Body.String()
	for _, marker := range []string{`id="login-form"`, `href="https://example.com/signup"`, "<html"} {
		if !strings.Contains(body, marker) {
			t.Fatalf("body missing %q", marker)
		}
	}
}

func TestLoginSuccessStoresTokenAndRedirectsHome(t *testing.T) {
	t.Parallel()

	vault := newFakeVault()
	handler := newTestHandler(t, &fakeAuthenticator{session: loginform.Session{Token: "tok-1"}}, vault, Config{})

	rr := postLogin(handler, "ada@example.com", "secret", true)
	if got := rr.Header().Get("HX-Redirect"); got != routepath.AppHome {
		t.Fatalf("HX-Redirect = %q, want %q", got, routepath.AppHome)
	}
	if !strings.Contains(rr.Header().Get("Set-Cookie"), sessioncookie.Name+"=") {
		t.Fatalf("missing unlock cookie: %q", rr.Header().Get("Set-Cookie"))
	}
	if got := vault.get("dev-a", gate.CredentialKey); got != "tok-1" {
		t.Fatalf("stored token = %q, want %q", got, "tok-1")
	}

	rr = postLogin(handler, "ada@example.com", "secret", false)
	if rr.Code != http.StatusFound {
		t.Fatalf("full-page status = %d, want %d", rr.Code, http.StatusFound)
	}
}

func TestLoginValidationRendersFieldErrors(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t, &fakeAuthenticator{}, newFakeVault(), Config{})
	rr := postLogin(handler, " ", "", true)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	body := rr.Body.String()
	if strings.Contains(body, "<html") {
		t.Fatalf("htmx submission must render the form fragment: %q", body)
	}
	for _, want := range []string{"The email field is required.", "The password field is required."} {
		if !strings.Contains(body, want) {
			t.Fatalf("body missing %q: %q", want, body)
		}
	}

	rr = postLogin(handler, "", "", false)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("full-page status = %d, want %d", rr.Code, http.StatusUnprocessableEntity)
	}
}

func TestLoginRejectionShowsServerMessage(t *testing.T) {
	t.Parallel()

	auth := &fakeAuthenticator{err: &loginform.Rejection{Message: "These credentials do not match our records.", ClearPassword: true}}
	vault := newFakeVault()
	handler := newTestHandler(t, auth, vault, Config{})

	rr := postLogin(handler, "ada@example.com", "wrong", true)
	body := rr.Body.String()
	if !strings.Contains(body, "These credentials do not match our records.") {
		t.Fatalf("body missing rejection: %q", body)
	}
	if strings.Contains(body, `value="wrong"`) {
		t.Fatalf("password should be cleared: %q", body)
	}
	if got := vault.get("dev-a", gate.CredentialKey); got != "" {
		t.Fatalf("stored token = %q, want empty", got)
	}
}

func TestLoginStoreFailureShowsUnavailable(t *testing.T) {
	t.Parallel()

	vault := newFakeVault()
	vault.setErr = errors.New("disk full")
	handler := newTestHandler(t, &fakeAuthenticator{session: loginform.Session{Token: "tok-1"}}, vault, Config{})

	rr := postLogin(handler, "ada@example.com", "secret", true)
	if got := rr.Header().Get("HX-Redirect"); got != "" {
		t.Fatalf("HX-Redirect = %q, want none", got)
	}
	if !strings.Contains(rr.Body.String(), "We couldn&#39;t reach the sign-in service.") {
		t.Fatalf("body missing unavailable message: %q", rr.Body.String())
	}
}

func TestLoginRejectsConcurrentSubmission(t *testing.T) {
	t.Parallel()

	auth := &fakeAuthenticator{
		session: loginform.Session{Token: "tok-1"},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	handler := newTestHandler(t, auth, newFakeVault(), Config{})

	done := make(chan *httptest.ResponseRecorder)
	go func() { done <- postLogin(handler, "ada@example.com", "secret", true) }()
	<-auth.started

	rr := postLogin(handler, "ada@example.com", "secret", true)
	if rr.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusConflict)
	}
	if !strings.Contains(rr.Body.String(), "A sign-in is already in progress.") {
		t.Fatalf("body = %q, want in-flight message", rr.Body.String())
	}

	close(auth.release)
	first := <-done
	if got := first.Header().Get("HX-Redirect"); got != routepath.AppHome {
		t.Fatalf("first HX-Redirect = %q, want %q", got, routepath.AppHome)
	}
}

func TestLogoutDeletesCredentialAndClearsUnlock(t *testing.T) {
	t.Parallel()

	vault := newFakeVault()
	_ = vault.device("dev-a").Set(context.Background(), gate.CredentialKey, "tok-1")
	handler := newTestHandler(t, &fakeAuthenticator{}, vault, Config{})

	req := httptest.NewRequest(http.MethodPost, routepath.Logout, nil)
	req = req.WithContext(devicecookie.WithDeviceID(req.Context(), "dev-a"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusFound)
	}
	if got := rr.Header().Get("Location"); got != routepath.Login {
		t.Fatalf("Location = %q, want %q", got, routepath.Login)
	}
	if got := vault.get("dev-a", gate.CredentialKey); got != "" {
		t.Fatalf("stored token = %q, want deleted", got)
	}
	if !strings.Contains(rr.Header().Get("Set-Cookie"), "Max-Age=0") {
		t.Fatalf("unlock cookie not cleared: %q", rr.Header().Get("Set-Cookie"))
	}
}

func TestHealthReportsStatus(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name    string
		healthy func() bool
		want    int
	}{
		{name: "default", want: http.StatusOK},
		{name: "healthy", healthy: func() bool { return true }, want: http.StatusOK},
		{name: "degraded", healthy: func() bool { return false }, want: http.StatusServiceUnavailable},
	} {
		handler := newTestHandler(t, &fakeAuthenticator{}, newFakeVault(), Config{Healthy: tc.healthy})
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, routepath.Health, nil))
		if rr.Code != tc.want {
			t.Fatalf("%s: status = %d, want %d", tc.name, rr.Code, tc.want)
		}
	}
}
