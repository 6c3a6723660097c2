package enrollment

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/louisbranch/newsgate/internal/services/web/biometric"
	"github.com/louisbranch/newsgate/internal/services/web/platform/devicecookie"
	"github.com/louisbranch/newsgate/internal/services/web/routepath"
)

type fakeRegistrar struct {
	beginErr  error
	finishErr error
	devices   []string
	names     []string
	responses []string
	forgotten []string
}

func (f *fakeRegistrar) BeginRegistration(_ context.Context, deviceID string, displayName string) (*protocol.CredentialCreation, error) {
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	f.devices = append(f.devices, deviceID)
	f.names = append(f.names, displayName)
	creation := &protocol.CredentialCreation{}
	creation.Response.Challenge = protocol.URLEncodedBase64("register")
	return creation, nil
}

func (f *fakeRegistrar) FinishRegistration(_ context.Context, _ string, response []byte) error {
	f.responses = append(f.responses, string(response))
	return f.finishErr
}

func (f *fakeRegistrar) Forget(_ context.Context, deviceID string) error {
	f.forgotten = append(f.forgotten, deviceID)
	return nil
}

func serve(t *testing.T, registrar Registrar, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	mount, err := New(registrar).Mount()
	if err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	if mount.Prefix != routepath.AppBiometricPrefix {
		t.Fatalf("prefix = %q, want %q", mount.Prefix, routepath.AppBiometricPrefix)
	}
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req = req.WithContext(devicecookie.WithDeviceID(req.Context(), "dev-a"))
	rr := httptest.NewRecorder()
	mount.Handler.ServeHTTP(rr, req)
	return rr
}

func TestMountRequiresRegistrar(t *testing.T) {
	t.Parallel()

	if _, err := New(nil).Mount(); err == nil {
		t.Fatal("expected error for missing registrar")
	}
}

func TestStartReturnsCreationOptions(t *testing.T) {
	t.Parallel()

	registrar := &fakeRegistrar{}
	rr := serve(t, registrar, routepath.AppBiometricRegisterStart, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if !strings.Contains(rr.Body.String(), `"publicKey"`) {
		t.Fatalf("body = %q, want publicKey options", rr.Body.String())
	}
	if len(registrar.devices) != 1 || registrar.devices[0] != "dev-a" {
		t.Fatalf("devices = %v, want [dev-a]", registrar.devices)
	}
	if registrar.names[0] != "Newsgate" {
		t.Fatalf("display name = %q, want %q", registrar.names[0], "Newsgate")
	}
}

func TestStartFailureReturnsJSONError(t *testing.T) {
	t.Parallel()

	rr := serve(t, &fakeRegistrar{beginErr: errors.New("db down")}, routepath.AppBiometricRegisterStart, "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusInternalServerError)
	}
	if strings.Contains(rr.Body.String(), "db down") {
		t.Fatalf("body leaked internal error: %q", rr.Body.String())
	}
}

func TestFinishStoresCredential(t *testing.T) {
	t.Parallel()

	registrar := &fakeRegistrar{}
	rr := serve(t, registrar, routepath.AppBiometricRegisterFinish, `{"id":"cred"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if len(registrar.responses) != 1 || registrar.responses[0] != `{"id":"cred"}` {
		t.Fatalf("responses = %v", registrar.responses)
	}
}

func TestFinishErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		body      string
		finishErr error
		want      int
	}{
		{name: "empty body", body: "", want: http.StatusBadRequest},
		{name: "no pending", body: "{}", finishErr: biometric.ErrNoPendingRegistration, want: http.StatusConflict},
		{name: "invalid attestation", body: "{}", finishErr: errors.New("bad attestation"), want: http.StatusBadRequest},
	}
	for _, tc := range tests {
		rr := serve(t, &fakeRegistrar{finishErr: tc.finishErr}, routepath.AppBiometricRegisterFinish, tc.body)
		if rr.Code != tc.want {
			t.Fatalf("%s: status = %d, want %d", tc.name, rr.Code, tc.want)
		}
	}
}

func TestForgetRendersEnrollmentControl(t *testing.T) {
	t.Parallel()

	registrar := &fakeRegistrar{}
	rr := serve(t, registrar, routepath.AppBiometricForget, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if len(registrar.forgotten) != 1 || registrar.forgotten[0] != "dev-a" {
		t.Fatalf("forgotten = %v, want [dev-a]", registrar.forgotten)
	}
	if !strings.Contains(rr.Body.String(), "data-biometric-register") {
		t.Fatalf("body missing enroll button: %q", rr.Body.String())
	}
}
