// Package enrollment serves biometric enrollment for an unlocked device.
package enrollment

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-webauthn/webauthn/protocol"
	module "github.com/louisbranch/newsgate/internal/services/web/module"
	"github.com/louisbranch/newsgate/internal/services/web/routepath"
)

// Registrar enrolls and removes platform authenticators for a device.
type Registrar interface {
	BeginRegistration(ctx context.Context, deviceID string, displayName string) (*protocol.CredentialCreation, error)
	FinishRegistration(ctx context.Context, deviceID string, response []byte) error
	Forget(ctx context.Context, deviceID string) error
}

// Module provides the protected biometric enrollment routes.
type Module struct {
	registrar Registrar
}

// New returns an enrollment module.
func New(registrar Registrar) Module {
	return Module{registrar: registrar}
}

// ID returns a stable module identifier.
func (Module) ID() string { return "enrollment" }

// Mount wires enrollment route handlers.
func (m Module) Mount() (module.Mount, error) {
	if m.registrar == nil {
		return module.Mount{}, errors.New("biometric registrar is required")
	}
	mux := http.NewServeMux()
	registerRoutes(mux, newHandlers(m.registrar))
	return module.Mount{Prefix: routepath.AppBiometricPrefix, Handler: mux}, nil
}
