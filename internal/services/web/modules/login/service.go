package login

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/newsgate/internal/services/web/authn"
	"github.com/louisbranch/newsgate/internal/services/web/component/gate"
	"github.com/louisbranch/newsgate/internal/services/web/component/loginform"
	"github.com/louisbranch/newsgate/internal/services/web/platform/devicecookie"
)

var errNoDevice = errors.New("device id is required")

type service struct {
	form        *loginform.Form
	credentials func(deviceID string) DeviceCredentials
}

func newService(cfg Config) (service, error) {
	if cfg.Authenticator == nil {
		return service{}, errors.New("authenticator is required")
	}
	if cfg.Credentials == nil {
		return service{}, errors.New("credential source is required")
	}
	form, err := loginform.New(deviceAuthenticator{next: cfg.Authenticator, credentials: cfg.Credentials})
	if err != nil {
		return service{}, err
	}
	return service{form: form, credentials: cfg.Credentials}, nil
}

// submit runs one form submission for deviceID. The device id is also the
// in-flight key, so one device cannot run two sign-ins at once.
func (s service) submit(ctx context.Context, deviceID string, email string, password string) (loginform.Result, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return loginform.Result{}, errNoDevice
	}
	return s.form.Submit(devicecookie.WithDeviceID(ctx, deviceID), deviceID, email, password)
}

// signOut deletes the stored credential so the next access check routes to login.
func (s service) signOut(ctx context.Context, deviceID string) error {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return nil
	}
	if err := s.credentials(deviceID).Delete(ctx, gate.CredentialKey); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}

// deviceAuthenticator stores the session token for the device carried by ctx.
type deviceAuthenticator struct {
	next        loginform.Authenticator
	credentials func(deviceID string) DeviceCredentials
}

func (a deviceAuthenticator) Authenticate(ctx context.Context, email string, password string) (loginform.Session, error) {
	deviceID := devicecookie.FromContext(ctx)
	if deviceID == "" {
		return loginform.Session{}, errNoDevice
	}
	return authn.NewStoringAuthenticator(a.next, a.credentials(deviceID)).Authenticate(ctx, email, password)
}
