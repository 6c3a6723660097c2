package check

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/louisbranch/newsgate/internal/platform/id"
	"github.com/louisbranch/newsgate/internal/services/web/component/gate"
)

var errGateNotFound = errors.New("gate not found")

// opened is the result of starting a new access check.
type opened struct {
	view  gate.View
	route gate.Route
	// routed is false while the gate is still waiting on the user.
	routed bool
}

type service struct {
	registry    *gate.Registry
	credentials func(deviceID string) gate.CredentialReader
	biometrics  BiometricService
	newGateID   func() (string, error)
	now         func() time.Time
}

func newService(cfg Config) (service, error) {
	if cfg.Registry == nil {
		return service{}, errors.New("gate registry is required")
	}
	if cfg.Credentials == nil {
		return service{}, errors.New("credential source is required")
	}
	if cfg.Biometrics == nil {
		return service{}, errors.New("biometric service is required")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	newGateID := cfg.NewGateID
	if newGateID == nil {
		newGateID = id.NewGateID
	}
	return service{
		registry:    cfg.Registry,
		credentials: cfg.Credentials,
		biometrics:  cfg.Biometrics,
		newGateID:   newGateID,
		now:         now,
	}, nil
}

// open mounts a new gate for deviceID. Gates that route immediately are not
// kept; pending gates are registered so later polls can find them. A prompt
// failure leaves the gate pending and unavailable.
func (s service) open(ctx context.Context, deviceID string) (opened, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return opened{}, errors.New("device id is required")
	}
	gateID, err := s.newGateID()
	if err != nil {
		return opened{}, fmt.Errorf("generate gate id: %w", err)
	}
	recorder := &gate.RouteRecorder{}
	g, err := gate.New(gateID, gate.Deps{
		Credentials: s.credentials(deviceID),
		Biometrics:  s.biometrics.ForDevice(deviceID),
		Navigator:   recorder,
		Now:         s.now,
	})
	if err != nil {
		return opened{}, fmt.Errorf("build gate: %w", err)
	}
	s.registry.Add(deviceID, g)
	if err := g.Mount(ctx); err != nil && !promptFault(err) {
		s.registry.Remove(g.ID())
		return opened{}, fmt.Errorf("mount gate: %w", err)
	}

	result := opened{view: g.Snapshot()}
	if route, ok := recorder.Route(); ok {
		result.route = route
		result.routed = true
		s.registry.Remove(g.ID())
	}
	return result, nil
}

func (s service) lookup(deviceID string, gateID string) (*gate.Gate, error) {
	g, ok := s.registry.Get(deviceID, gateID)
	if !ok {
		return nil, errGateNotFound
	}
	return g, nil
}

func (s service) status(deviceID string, gateID string) (gate.View, error) {
	g, err := s.lookup(deviceID, gateID)
	if err != nil {
		return gate.View{}, err
	}
	return g.Snapshot(), nil
}

// finish drops a gate that reached a terminal state.
func (s service) finish(gateID string) {
	s.registry.Remove(gateID)
}

func (s service) retry(ctx context.Context, deviceID string, gateID string) (gate.View, error) {
	g, err := s.lookup(deviceID, gateID)
	if err != nil {
		return gate.View{}, err
	}
	if err := g.Reprompt(ctx); err != nil {
		if errors.Is(err, gate.ErrClosed) {
			return gate.View{}, errGateNotFound
		}
	}
	return g.Snapshot(), nil
}

func (s service) challenge(deviceID string, gateID string) (*protocol.CredentialAssertion, error) {
	if _, err := s.lookup(deviceID, gateID); err != nil {
		return nil, err
	}
	return s.biometrics.Challenge(deviceID, gateID)
}

// verify submits a browser assertion, or a cancellation when response is nil.
func (s service) verify(ctx context.Context, deviceID string, gateID string, response []byte) (bool, error) {
	if _, err := s.lookup(deviceID, gateID); err != nil {
		return false, err
	}
	if len(response) == 0 {
		return false, s.biometrics.Cancel(ctx, deviceID, gateID)
	}
	return s.biometrics.Verify(ctx, deviceID, gateID, response)
}

func isNullJSON(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed == "" || trimmed == "null"
}

// promptFault reports whether a Mount error came from the biometric side.
// Those leave the gate pending with the unavailable flag set; lifecycle
// errors leave nothing to poll.
func promptFault(err error) bool {
	return !errors.Is(err, gate.ErrClosed) && !errors.Is(err, gate.ErrAlreadyMounted)
}
