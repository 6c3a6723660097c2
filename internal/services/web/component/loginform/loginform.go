// Package loginform implements the email and password sign-in form.
package loginform

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// Field names a form input.
type Field string

const (
	FieldEmail    Field = "email"
	FieldPassword Field = "password"
)

// Localization keys for messages the form produces itself. Rejection
// messages come from the authenticator verbatim.
const (
	KeyEmailRequired    = "login.error.email_required"
	KeyPasswordRequired = "login.error.password_required"
	KeyUnavailable      = "login.error.unavailable"
)

// ErrSubmissionInFlight is returned when a submission for the same form key
// is already running.
var ErrSubmissionInFlight = errors.New("login submission already in flight")

// Session is what a successful authentication yields.
type Session struct {
	Token string
	Email string
	Name  string
}

// Rejection is an authentication failure the user can act on.
type Rejection struct {
	Message       string
	ClearPassword bool
}

func (r *Rejection) Error() string {
	if r == nil || strings.TrimSpace(r.Message) == "" {
		return "authentication rejected"
	}
	return r.Message
}

// Authenticator verifies credentials. A *Rejection error means the
// credentials were refused; any other error means the check could not run.
type Authenticator interface {
	Authenticate(ctx context.Context, email string, password string) (Session, error)
}

// Outcome is where the form sends the user after a submission.
type Outcome int

const (
	OutcomeStay Outcome = iota
	OutcomeNavigateHome
)

// State is the rendered form state.
type State struct {
	Email string
	// Password is echoed back only when the authenticator did not ask for it
	// to be cleared.
	Password     string
	ErrorMessage string
	// ErrorKey is set instead of ErrorMessage for form-owned messages.
	ErrorKey    string
	FieldErrors map[Field]string
}

// HasErrors reports whether anything should be shown as an error.
func (s State) HasErrors() bool {
	return s.ErrorMessage != "" || s.ErrorKey != "" || len(s.FieldErrors) > 0
}

// Result is the outcome of one submission.
type Result struct {
	State   State
	Outcome Outcome
	Session Session
}

// Form serializes submissions per key. It is safe for concurrent use.
type Form struct {
	auth Authenticator

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// New returns a form backed by auth.
func New(auth Authenticator) (*Form, error) {
	if auth == nil {
		return nil, errors.New("authenticator is required")
	}
	return &Form{auth: auth, inFlight: make(map[string]struct{})}, nil
}

// Submit validates the inputs and calls the authenticator. Only
// ErrSubmissionInFlight is returned as an error; every other failure is
// reported through the returned State.
func (f *Form) Submit(ctx context.Context, key string, email string, password string) (Result, error) {
	email = strings.TrimSpace(email)
	state := State{Email: email, Password: password}

	fieldErrors := make(map[Field]string)
	if email == "" {
		fieldErrors[FieldEmail] = KeyEmailRequired
	}
	if password == "" {
		fieldErrors[FieldPassword] = KeyPasswordRequired
	}
	if len(fieldErrors) > 0 {
		state.FieldErrors = fieldErrors
		return Result{State: state, Outcome: OutcomeStay}, nil
	}

	if !f.acquire(key) {
		return Result{State: state, Outcome: OutcomeStay}, ErrSubmissionInFlight
	}
	defer f.release(key)

	session, err := f.auth.Authenticate(ctx, email, password)
	if err == nil {
		return Result{State: State{Email: email}, Outcome: OutcomeNavigateHome, Session: session}, nil
	}

	var rejection *Rejection
	if errors.As(err, &rejection) {
		state.ErrorMessage = rejection.Error()
		if rejection.ClearPassword {
			state.Password = ""
		}
		return Result{State: state, Outcome: OutcomeStay}, nil
	}
	state.ErrorKey = KeyUnavailable
	return Result{State: state, Outcome: OutcomeStay}, nil
}

// InFlight reports whether a submission for key is running.
func (f *Form) InFlight(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.inFlight[key]
	return ok
}

func (f *Form) acquire(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.inFlight[key]; ok {
		return false
	}
	f.inFlight[key] = struct{}{}
	return true
}

func (f *Form) release(key string) {
	f.mu.Lock()
	delete(f.inFlight, key)
	f.mu.Unlock()
}
