// Package login serves password sign-in, sign-out, and the health route.
package login

import (
	"context"
	"errors"
	"net/http"

	"github.com/louisbranch/newsgate/internal/services/web/component/loginform"
	module "github.com/louisbranch/newsgate/internal/services/web/module"
	"github.com/louisbranch/newsgate/internal/services/web/platform/sessioncookie"
	"github.com/louisbranch/newsgate/internal/services/web/routepath"
)

// DeviceCredentials stores secure values for one device.
type DeviceCredentials interface {
	Set(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}

// UnlockSession issues and clears the unlock session cookie.
type UnlockSession interface {
	Write(w http.ResponseWriter, r *http.Request, deviceID string, method sessioncookie.Method) (sessioncookie.Claims, error)
	Clear(w http.ResponseWriter, r *http.Request)
}

// Config carries the login module collaborators.
type Config struct {
	Authenticator loginform.Authenticator
	Credentials   func(deviceID string) DeviceCredentials
	Unlock        UnlockSession
	SignupURL     string
	// Healthy reports backing service health for the health route. Nil means healthy.
	Healthy func() bool
}

// Module provides the login, logout, and health routes.
type Module struct {
	cfg Config
}

// New returns a login module.
func New(cfg Config) Module {
	return Module{cfg: cfg}
}

// ID returns a stable module identifier.
func (Module) ID() string { return "login" }

// Mount wires login route handlers.
func (m Module) Mount() (module.Mount, error) {
	svc, err := newService(m.cfg)
	if err != nil {
		return module.Mount{}, err
	}
	if m.cfg.Unlock == nil {
		return module.Mount{}, errors.New("unlock session is required")
	}
	mux := http.NewServeMux()
	registerRoutes(mux, newHandlers(svc, m.cfg))
	return module.Mount{
		Prefix:  routepath.Login,
		Handler: mux,
		Aliases: []string{routepath.Logout, routepath.Health},
	}, nil
}
