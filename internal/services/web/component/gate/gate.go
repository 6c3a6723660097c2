// Package gate implements the access gate shown when the app opens.
//
// A gate checks whether the device holds a session credential. Without one it
// navigates to the login route and stops. With one it prompts for a biometric
// check and waits for a completion event; only a successful completion
// navigates to the home route.
package gate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// CredentialKey is the secure storage key holding the session credential.
const CredentialKey = "api_token"

// State is the gate lifecycle position.
type State int

const (
	Checking State = iota
	AwaitingBiometric
	Granted
	Redirected
)

func (s State) String() string {
	switch s {
	case Checking:
		return "checking"
	case AwaitingBiometric:
		return "awaiting_biometric"
	case Granted:
		return "granted"
	case Redirected:
		return "redirected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == Granted || s == Redirected
}

// Route names a navigation target.
type Route string

const (
	RouteLogin Route = "login"
	RouteHome  Route = "home"
)

// Completion is the result of one biometric prompt.
type Completion struct {
	PromptID string `json:"prompt_id"`
	Success  bool   `json:"success"`
}

// CredentialReader reads values from the device's secure storage.
// A missing key returns an empty string and no error.
type CredentialReader interface {
	Get(ctx context.Context, key string) (string, error)
}

// Biometrics starts prompts and delivers their completions.
type Biometrics interface {
	// Prompt starts a prompt and returns without waiting for its result.
	Prompt(ctx context.Context, promptID string) error
	// Subscribe delivers completions for promptID until cancel is called.
	Subscribe(promptID string) (<-chan Completion, func(), error)
}

// Navigator performs navigation requested by the gate. Navigate is called
// with the gate lock held and must not call back into the gate.
type Navigator interface {
	Navigate(route Route)
}

var (
	// ErrAlreadyMounted is returned when Mount runs twice on one gate.
	ErrAlreadyMounted = errors.New("gate already mounted")
	// ErrNotPending is returned when a re-prompt is requested outside AwaitingBiometric.
	ErrNotPending = errors.New("gate is not awaiting a biometric result")
	// ErrClosed is returned by operations on a closed gate.
	ErrClosed = errors.New("gate is closed")
)

// Deps holds the gate collaborators.
type Deps struct {
	Credentials CredentialReader
	Biometrics  Biometrics
	Navigator   Navigator
	Now         func() time.Time
}

// View is a point-in-time copy of the gate's observable state.
type View struct {
	ID          string
	State       State
	Failed      bool
	Unavailable bool
	Attempts    int
}

// Gate is one access check. It is safe for concurrent use.
type Gate struct {
	id    string
	creds CredentialReader
	bio   Biometrics
	nav   Navigator
	now   func() time.Time

	mu          sync.Mutex
	state       State
	mounted     bool
	closed      bool
	failed      bool
	unavailable bool
	attempts    int
	lastActive  time.Time
	cancel      func()
}

// New builds an unmounted gate in the Checking state.
func New(id string, deps Deps) (*Gate, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("gate id is required")
	}
	if deps.Credentials == nil {
		return nil, errors.New("credential reader is required")
	}
	if deps.Biometrics == nil {
		return nil, errors.New("biometrics is required")
	}
	if deps.Navigator == nil {
		return nil, errors.New("navigator is required")
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Gate{
		id:         id,
		creds:      deps.Credentials,
		bio:        deps.Biometrics,
		nav:        deps.Navigator,
		now:        now,
		state:      Checking,
		lastActive: now(),
	}, nil
}

// ID returns the gate id, also used as the biometric prompt id.
func (g *Gate) ID() string {
	return g.id
}

// Mount runs the credential check. A blank, missing, or unreadable credential
// redirects to login without prompting. Otherwise the gate subscribes to its
// completion stream and starts a prompt; a prompt failure is returned and the
// gate stays in AwaitingBiometric marked unavailable.
func (g *Gate) Mount(ctx context.Context) error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return ErrClosed
	}
	if g.mounted {
		g.mu.Unlock()
		return ErrAlreadyMounted
	}
	g.mounted = true
	g.lastActive = g.now()
	g.mu.Unlock()

	token, err := g.creds.Get(ctx, CredentialKey)
	if err != nil || strings.TrimSpace(token) == "" {
		g.mu.Lock()
		defer g.mu.Unlock()
		g.transitionLocked(Redirected, RouteLogin)
		return nil
	}

	completions, cancel, err := g.bio.Subscribe(g.id)
	if err != nil {
		g.mu.Lock()
		g.state = AwaitingBiometric
		g.unavailable = true
		g.mu.Unlock()
		return fmt.Errorf("subscribe biometric completions: %w", err)
	}

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		cancel()
		return ErrClosed
	}
	g.state = AwaitingBiometric
	g.cancel = cancel
	g.mu.Unlock()

	go g.listen(completions)

	return g.prompt(ctx)
}

// Reprompt starts a new prompt after a failed or unavailable one.
func (g *Gate) Reprompt(ctx context.Context) error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return ErrClosed
	}
	if g.state != AwaitingBiometric {
		g.mu.Unlock()
		return ErrNotPending
	}
	g.failed = false
	g.unavailable = false
	g.lastActive = g.now()
	g.mu.Unlock()

	return g.prompt(ctx)
}

func (g *Gate) prompt(ctx context.Context) error {
	g.mu.Lock()
	g.attempts++
	g.mu.Unlock()

	if err := g.bio.Prompt(ctx, g.id); err != nil {
		g.mu.Lock()
		if g.state == AwaitingBiometric {
			g.unavailable = true
		}
		g.mu.Unlock()
		return fmt.Errorf("prompt biometric: %w", err)
	}
	return nil
}

func (g *Gate) listen(completions <-chan Completion) {
	for completion := range completions {
		g.complete(completion)
	}
}

func (g *Gate) complete(completion Completion) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed || g.state != AwaitingBiometric {
		return
	}
	if id := strings.TrimSpace(completion.PromptID); id != "" && id != g.id {
		return
	}
	g.lastActive = g.now()
	if !completion.Success {
		g.failed = true
		return
	}
	g.failed = false
	g.unavailable = false
	g.transitionLocked(Granted, RouteHome)
	g.unsubscribeLocked()
}

func (g *Gate) transitionLocked(state State, route Route) {
	if g.state.Terminal() {
		return
	}
	g.state = state
	g.nav.Navigate(route)
}

func (g *Gate) unsubscribeLocked() {
	if g.cancel == nil {
		return
	}
	cancel := g.cancel
	g.cancel = nil
	cancel()
}

// Close cancels the completion subscription. Late events are ignored.
func (g *Gate) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	g.closed = true
	g.unsubscribeLocked()
}

// Snapshot returns the current view of the gate.
func (g *Gate) Snapshot() View {
	g.mu.Lock()
	defer g.mu.Unlock()
	return View{
		ID:          g.id,
		State:       g.state,
		Failed:      g.failed,
		Unavailable: g.unavailable,
		Attempts:    g.attempts,
	}
}

// Touch records activity so the registry keeps the gate alive.
func (g *Gate) Touch() {
	g.mu.Lock()
	g.lastActive = g.now()
	g.mu.Unlock()
}

// LastActive returns the time of the last observed activity.
func (g *Gate) LastActive() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastActive
}

// RouteRecorder is a Navigator for request-scoped gates: the HTTP layer
// mounts a gate, then reads the recorded route to decide between a redirect
// and rendering the pending page.
type RouteRecorder struct {
	mu    sync.Mutex
	route Route
	count int
}

// Navigate records route.
func (r *RouteRecorder) Navigate(route Route) {
	r.mu.Lock()
	r.route = route
	r.count++
	r.mu.Unlock()
}

// Route returns the recorded route and whether one was recorded.
func (r *RouteRecorder) Route() (Route, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.route, r.count > 0
}

// Count returns how many navigations were recorded.
func (r *RouteRecorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}
