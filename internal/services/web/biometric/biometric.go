// Package biometric backs the gate's biometric prompt with WebAuthn platform
// authenticators that require user verification. Prompt results are
// published on the event bus so any listener, in process or remote, can
// complete a gate.
package biometric

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/louisbranch/newsgate/internal/platform/eventbus"
	"github.com/louisbranch/newsgate/internal/services/web/component/gate"
	webstorage "github.com/louisbranch/newsgate/internal/services/web/storage"
)

// TopicPrefix prefixes completion topics; the prompt id is appended.
const TopicPrefix = "newsgate.biometric.completed."

var (
	// ErrNotEnrolled is returned when a device has no biometric credential.
	ErrNotEnrolled = errors.New("no biometric enrolled for this device")
	// ErrNoPendingPrompt is returned when a prompt is unknown, expired, or owned by another device.
	ErrNoPendingPrompt = errors.New("no pending biometric prompt")
	// ErrNoPendingRegistration is returned when enrollment was not started.
	ErrNoPendingRegistration = errors.New("no pending biometric registration")
)

// Topic returns the completion topic for promptID.
func Topic(promptID string) string {
	return TopicPrefix + strings.TrimSpace(promptID)
}

// Config describes the relying party.
type Config struct {
	RPID          string
	RPDisplayName string
	RPOrigins     []string
	// PromptTTL bounds how long a started prompt can be answered.
	PromptTTL time.Duration
}

// NewWebAuthn builds the relying party from cfg.
func NewWebAuthn(cfg Config) (*webauthn.WebAuthn, error) {
	wa, err := webauthn.New(&webauthn.Config{
		RPDisplayName: cfg.RPDisplayName,
		RPID:          cfg.RPID,
		RPOrigins:     cfg.RPOrigins,
	})
	if err != nil {
		return nil, fmt.Errorf("configure webauthn: %w", err)
	}
	return wa, nil
}

// RelyingParty is the WebAuthn surface used by the service.
type RelyingParty interface {
	BeginRegistration(user webauthn.User, opts ...webauthn.RegistrationOption) (*protocol.CredentialCreation, *webauthn.SessionData, error)
	CreateCredential(user webauthn.User, session webauthn.SessionData, response *protocol.ParsedCredentialCreationData) (*webauthn.Credential, error)
	BeginLogin(user webauthn.User, opts ...webauthn.LoginOption) (*protocol.CredentialAssertion, *webauthn.SessionData, error)
	ValidateLogin(user webauthn.User, session webauthn.SessionData, response *protocol.ParsedCredentialAssertionData) (*webauthn.Credential, error)
}

// ResponseParser decodes browser credential responses.
type ResponseParser interface {
	ParseCredentialCreationResponseBytes(data []byte) (*protocol.ParsedCredentialCreationData, error)
	ParseCredentialRequestResponseBytes(data []byte) (*protocol.ParsedCredentialAssertionData, error)
}

type defaultParser struct{}

func (defaultParser) ParseCredentialCreationResponseBytes(data []byte) (*protocol.ParsedCredentialCreationData, error) {
	return protocol.ParseCredentialCreationResponseBytes(data)
}

func (defaultParser) ParseCredentialRequestResponseBytes(data []byte) (*protocol.ParsedCredentialAssertionData, error) {
	return protocol.ParseCredentialRequestResponseBytes(data)
}

// Deps holds the service collaborators. Parser and Now are optional.
type Deps struct {
	RelyingParty RelyingParty
	Parser       ResponseParser
	Credentials  webstorage.BiometricCredentialStore
	Bus          eventbus.Bus
	Now          func() time.Time
}

type pendingPrompt struct {
	deviceID  string
	assertion *protocol.CredentialAssertion
	session   webauthn.SessionData
	createdAt time.Time
}

type pendingRegistration struct {
	session   webauthn.SessionData
	createdAt time.Time
}

// Service runs biometric prompts and enrollment.
type Service struct {
	rp          RelyingParty
	parser      ResponseParser
	credentials webstorage.BiometricCredentialStore
	bus         eventbus.Bus
	now         func() time.Time
	ttl         time.Duration

	mu            sync.Mutex
	prompts       map[string]pendingPrompt
	registrations map[string]pendingRegistration
}

// NewService validates deps and returns a Service.
func NewService(cfg Config, deps Deps) (*Service, error) {
	if deps.RelyingParty == nil {
		return nil, errors.New("webauthn relying party is required")
	}
	if deps.Credentials == nil {
		return nil, errors.New("biometric credential store is required")
	}
	if deps.Bus == nil {
		return nil, errors.New("event bus is required")
	}
	parser := deps.Parser
	if parser == nil {
		parser = defaultParser{}
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	ttl := cfg.PromptTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Service{
		rp:            deps.RelyingParty,
		parser:        parser,
		credentials:   deps.Credentials,
		bus:           deps.Bus,
		now:           now,
		ttl:           ttl,
		prompts:       make(map[string]pendingPrompt),
		registrations: make(map[string]pendingRegistration),
	}, nil
}

// ForDevice returns the gate's biometric capability for one device.
func (s *Service) ForDevice(deviceID string) gate.Biometrics {
	return deviceBiometrics{service: s, deviceID: strings.TrimSpace(deviceID)}
}

// Enrolled reports whether the device has at least one credential.
func (s *Service) Enrolled(ctx context.Context, deviceID string) (bool, error) {
	user, err := s.loadUser(ctx, deviceID)
	if err != nil {
		return false, err
	}
	return len(user.credentials) > 0, nil
}

// Challenge returns the assertion options parked by Prompt.
func (s *Service) Challenge(deviceID string, promptID string) (*protocol.CredentialAssertion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending, ok := s.pendingLocked(deviceID, promptID)
	if !ok {
		return nil, ErrNoPendingPrompt
	}
	return pending.assertion, nil
}

// Verify checks a browser assertion for promptID and publishes the outcome.
// An assertion that fails validation publishes a failed completion and
// returns false with no error.
func (s *Service) Verify(ctx context.Context, deviceID string, promptID string, response []byte) (bool, error) {
	s.mu.Lock()
	pending, ok := s.pendingLocked(deviceID, promptID)
	if ok {
		delete(s.prompts, promptID)
	}
	s.mu.Unlock()
	if !ok {
		return false, ErrNoPendingPrompt
	}

	success := s.validate(ctx, pending, response)
	if err := s.publish(ctx, promptID, success); err != nil {
		return success, err
	}
	return success, nil
}

// Cancel records a prompt the user dismissed as a failed completion.
func (s *Service) Cancel(ctx context.Context, deviceID string, promptID string) error {
	s.mu.Lock()
	_, ok := s.pendingLocked(deviceID, promptID)
	if ok {
		delete(s.prompts, promptID)
	}
	s.mu.Unlock()
	if !ok {
		return ErrNoPendingPrompt
	}
	return s.publish(ctx, promptID, false)
}

func (s *Service) validate(ctx context.Context, pending pendingPrompt, response []byte) bool {
	parsed, err := s.parser.ParseCredentialRequestResponseBytes(response)
	if err != nil {
		return false
	}
	user, err := s.loadUser(ctx, pending.deviceID)
	if err != nil || len(user.credentials) == 0 {
		return false
	}
	credential, err := s.rp.ValidateLogin(user, pending.session, parsed)
	if err != nil || credential == nil {
		return false
	}
	if err := s.storeCredential(ctx, pending.deviceID, *credential, true); err != nil {
		return false
	}
	return true
}

func (s *Service) publish(ctx context.Context, promptID string, success bool) error {
	completion := gate.Completion{PromptID: promptID, Success: success}
	if err := s.bus.Publish(ctx, Topic(promptID), completion); err != nil {
		return fmt.Errorf("publish biometric completion: %w", err)
	}
	return nil
}

// BeginRegistration starts enrolling a platform authenticator for deviceID.
func (s *Service) BeginRegistration(ctx context.Context, deviceID string, displayName string) (*protocol.CredentialCreation, error) {
	user, err := s.loadUser(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	user.displayName = strings.TrimSpace(displayName)

	options := []webauthn.RegistrationOption{
		webauthn.WithAuthenticatorSelection(protocol.AuthenticatorSelection{
			AuthenticatorAttachment: protocol.Platform,
			ResidentKey:             protocol.ResidentKeyRequirementDiscouraged,
			UserVerification:        protocol.VerificationRequired,
		}),
	}
	if len(user.credentials) > 0 {
		options = append(options, webauthn.WithExclusions(webauthn.Credentials(user.credentials).CredentialDescriptors()))
	}
	creation, session, err := s.rp.BeginRegistration(user, options...)
	if err != nil {
		return nil, fmt.Errorf("begin biometric registration: %w", err)
	}

	s.mu.Lock()
	s.registrations[user.deviceID] = pendingRegistration{session: *session, createdAt: s.now()}
	s.mu.Unlock()
	return creation, nil
}

// FinishRegistration validates the attestation and stores the credential.
func (s *Service) FinishRegistration(ctx context.Context, deviceID string, response []byte) error {
	deviceID = strings.TrimSpace(deviceID)
	s.mu.Lock()
	pending, ok := s.registrations[deviceID]
	delete(s.registrations, deviceID)
	s.mu.Unlock()
	if !ok || s.expired(pending.createdAt) {
		return ErrNoPendingRegistration
	}

	parsed, err := s.parser.ParseCredentialCreationResponseBytes(response)
	if err != nil {
		return fmt.Errorf("parse credential response: %w", err)
	}
	user, err := s.loadUser(ctx, deviceID)
	if err != nil {
		return err
	}
	credential, err := s.rp.CreateCredential(user, pending.session, parsed)
	if err != nil {
		return fmt.Errorf("validate credential response: %w", err)
	}
	return s.storeCredential(ctx, deviceID, *credential, false)
}

// Forget drops every credential and pending prompt for a device.
func (s *Service) Forget(ctx context.Context, deviceID string) error {
	deviceID = strings.TrimSpace(deviceID)
	s.mu.Lock()
	for id, pending := range s.prompts {
		if pending.deviceID == deviceID {
			delete(s.prompts, id)
		}
	}
	delete(s.registrations, deviceID)
	s.mu.Unlock()
	return s.credentials.DeleteBiometricCredentials(ctx, deviceID)
}

func (s *Service) prompt(ctx context.Context, deviceID string, promptID string) error {
	promptID = strings.TrimSpace(promptID)
	if promptID == "" {
		return errors.New("prompt id is required")
	}
	user, err := s.loadUser(ctx, deviceID)
	if err != nil {
		return err
	}
	if len(user.credentials) == 0 {
		return ErrNotEnrolled
	}
	assertion, session, err := s.rp.BeginLogin(user, webauthn.WithUserVerification(protocol.VerificationRequired))
	if err != nil {
		return fmt.Errorf("begin biometric assertion: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()
	s.prompts[promptID] = pendingPrompt{
		deviceID:  user.deviceID,
		assertion: assertion,
		session:   *session,
		createdAt: s.now(),
	}
	return nil
}

func (s *Service) pendingLocked(deviceID string, promptID string) (pendingPrompt, bool) {
	pending, ok := s.prompts[strings.TrimSpace(promptID)]
	if !ok || pending.deviceID != strings.TrimSpace(deviceID) || s.expired(pending.createdAt) {
		return pendingPrompt{}, false
	}
	return pending, true
}

func (s *Service) pruneLocked() {
	for id, pending := range s.prompts {
		if s.expired(pending.createdAt) {
			delete(s.prompts, id)
		}
	}
	for id, pending := range s.registrations {
		if s.expired(pending.createdAt) {
			delete(s.registrations, id)
		}
	}
}

func (s *Service) expired(createdAt time.Time) bool {
	return s.now().Sub(createdAt) > s.ttl
}

func (s *Service) loadUser(ctx context.Context, deviceID string) (*deviceUser, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return nil, errors.New("device id is required")
	}
	records, err := s.credentials.ListBiometricCredentials(ctx, deviceID)
	if err != nil {
		return nil, fmt.Errorf("load biometric credentials: %w", err)
	}
	credentials := make([]webauthn.Credential, 0, len(records))
	for _, record := range records {
		var credential webauthn.Credential
		if err := json.Unmarshal([]byte(record.CredentialJSON), &credential); err != nil {
			return nil, fmt.Errorf("decode credential %s: %w", record.CredentialID, err)
		}
		credentials = append(credentials, credential)
	}
	return &deviceUser{deviceID: deviceID, credentials: credentials}, nil
}

func (s *Service) storeCredential(ctx context.Context, deviceID string, credential webauthn.Credential, used bool) error {
	payload, err := json.Marshal(credential)
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}
	now := s.now().UTC()
	record := webstorage.BiometricCredential{
		CredentialID:   encodeCredentialID(credential.ID),
		DeviceID:       deviceID,
		CredentialJSON: string(payload),
		CreatedAt:      now,
	}
	if used {
		record.LastUsedAt = &now
	}
	if err := s.credentials.PutBiometricCredential(ctx, record); err != nil {
		return fmt.Errorf("store biometric credential: %w", err)
	}
	return nil
}

func encodeCredentialID(raw []byte) string {
	return base64.RawURLEncoding.EncodeToString(raw)
}

type deviceUser struct {
	deviceID    string
	displayName string
	credentials []webauthn.Credential
}

func (u *deviceUser) WebAuthnID() []byte {
	return []byte(u.deviceID)
}

func (u *deviceUser) WebAuthnName() string {
	return u.deviceID
}

func (u *deviceUser) WebAuthnDisplayName() string {
	if u.displayName != "" {
		return u.displayName
	}
	return u.deviceID
}

func (u *deviceUser) WebAuthnCredentials() []webauthn.Credential {
	return u.credentials
}

// deviceBiometrics adapts the service to gate.Biometrics for one device.
type deviceBiometrics struct {
	service  *Service
	deviceID string
}

func (d deviceBiometrics) Prompt(ctx context.Context, promptID string) error {
	return d.service.prompt(ctx, d.deviceID, promptID)
}

func (d deviceBiometrics) Subscribe(promptID string) (<-chan gate.Completion, func(), error) {
	raw, cancelRaw, err := d.service.bus.Subscribe(Topic(promptID))
	if err != nil {
		return nil, nil, err
	}
	out := make(chan gate.Completion, 1)
	done := make(chan struct{})
	go func() {
		defer close(out)
		for payload := range raw {
			var completion gate.Completion
			if err := json.Unmarshal(payload, &completion); err != nil {
				continue
			}
			select {
			case out <- completion:
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			cancelRaw()
		})
	}
	return out, cancel, nil
}
