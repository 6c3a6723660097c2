// Package check serves the access check that runs before the app opens.
package check

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/louisbranch/newsgate/internal/services/web/component/gate"
	module "github.com/louisbranch/newsgate/internal/services/web/module"
	"github.com/louisbranch/newsgate/internal/services/web/platform/sessioncookie"
	"github.com/louisbranch/newsgate/internal/services/web/routepath"
)

// BiometricService drives WebAuthn prompts for a device.
type BiometricService interface {
	ForDevice(deviceID string) gate.Biometrics
	Challenge(deviceID string, promptID string) (*protocol.CredentialAssertion, error)
	Verify(ctx context.Context, deviceID string, promptID string, response []byte) (bool, error)
	Cancel(ctx context.Context, deviceID string, promptID string) error
}

// UnlockWriter issues the unlock session cookie.
type UnlockWriter interface {
	Write(w http.ResponseWriter, r *http.Request, deviceID string, method sessioncookie.Method) (sessioncookie.Claims, error)
}

// Config carries the gate module collaborators.
type Config struct {
	Registry    *gate.Registry
	Credentials func(deviceID string) gate.CredentialReader
	Biometrics  BiometricService
	Unlock      UnlockWriter
	NewGateID   func() (string, error)
	Now         func() time.Time
}

// Module provides the root and /check routes.
type Module struct {
	cfg Config
}

// New returns a gate module.
func New(cfg Config) Module {
	return Module{cfg: cfg}
}

// ID returns a stable module identifier.
func (Module) ID() string { return "check" }

// Mount wires gate route handlers under the root prefix.
func (m Module) Mount() (module.Mount, error) {
	svc, err := newService(m.cfg)
	if err != nil {
		return module.Mount{}, err
	}
	if m.cfg.Unlock == nil {
		return module.Mount{}, errors.New("unlock writer is required")
	}
	mux := http.NewServeMux()
	registerRoutes(mux, newHandlers(svc, m.cfg.Unlock))
	return module.Mount{Prefix: routepath.Root, Handler: mux}, nil
}
