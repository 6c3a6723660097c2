// Package news serves the unlocked home page and the news list.
package news

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/louisbranch/newsgate/internal/services/web/component/newslist"
	module "github.com/louisbranch/newsgate/internal/services/web/module"
	"github.com/louisbranch/newsgate/internal/services/web/routepath"
)

// EnrollmentChecker reports whether a device has biometric unlock set up.
type EnrollmentChecker interface {
	Enrolled(ctx context.Context, deviceID string) (bool, error)
}

// Config carries the news module collaborators.
type Config struct {
	Source     newslist.Source
	Enrollment EnrollmentChecker
	Now        func() time.Time
}

// Module provides the protected home and news routes.
type Module struct {
	cfg Config
}

// New returns a news module.
func New(cfg Config) Module {
	return Module{cfg: cfg}
}

// ID returns a stable module identifier.
func (Module) ID() string { return "news" }

// Mount wires news route handlers under the app prefix.
func (m Module) Mount() (module.Mount, error) {
	if m.cfg.Source == nil {
		return module.Mount{}, errors.New("news source is required")
	}
	now := m.cfg.Now
	if now == nil {
		now = time.Now
	}
	mux := http.NewServeMux()
	registerRoutes(mux, newHandlers(m.cfg.Source, m.cfg.Enrollment, now))
	return module.Mount{Prefix: routepath.AppPrefix, Handler: mux}, nil
}
