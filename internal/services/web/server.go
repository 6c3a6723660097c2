package web

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/louisbranch/newsgate/internal/platform/eventbus"
	"github.com/louisbranch/newsgate/internal/platform/securestore"
	"github.com/louisbranch/newsgate/internal/platform/timeouts"
	"github.com/louisbranch/newsgate/internal/services/web/app"
	"github.com/louisbranch/newsgate/internal/services/web/authn"
	"github.com/louisbranch/newsgate/internal/services/web/biometric"
	"github.com/louisbranch/newsgate/internal/services/web/component/gate"
	"github.com/louisbranch/newsgate/internal/services/web/credential"
	"github.com/louisbranch/newsgate/internal/services/web/feed"
	"github.com/louisbranch/newsgate/internal/services/web/modules"
	"github.com/louisbranch/newsgate/internal/services/web/modules/check"
	"github.com/louisbranch/newsgate/internal/services/web/modules/login"
	"github.com/louisbranch/newsgate/internal/services/web/modules/news"
	"github.com/louisbranch/newsgate/internal/services/web/platform/devicecookie"
	"github.com/louisbranch/newsgate/internal/services/web/platform/httpx"
	"github.com/louisbranch/newsgate/internal/services/web/platform/observability"
	"github.com/louisbranch/newsgate/internal/services/web/platform/requestmeta"
	"github.com/louisbranch/newsgate/internal/services/web/platform/sessioncookie"
	"github.com/louisbranch/newsgate/internal/services/web/static"
	"github.com/louisbranch/newsgate/internal/services/web/storage/sqlite"
)

// Config defines the inputs for the web server.
type Config struct {
	HTTPAddr            string
	DBPath              string
	AuthBaseURL         string
	FeedURL             string
	FeedLimit           int
	FeedCacheTTL        time.Duration
	NATSURL             string
	SecretKey           []byte
	GateTTL             time.Duration
	UnlockTTL           time.Duration
	TrustForwardedProto bool
	SignupURL           string
	WebAuthn            biometric.Config
}

// Server hosts the web HTTP server and its background sweeps.
type Server struct {
	httpAddr   string
	httpServer *http.Server
	handler    http.Handler
	registry   *gate.Registry
	store      *sqlite.Store
	bus        eventbus.Bus
}

// NewServer builds a configured web server.
func NewServer(ctx context.Context, config Config) (*Server, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	httpAddr := strings.TrimSpace(config.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}

	store, err := sqlite.Open(config.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open web store: %w", err)
	}
	bus, err := eventbus.Open(config.NATSURL)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("open event bus: %w", err)
	}
	srv := &Server{httpAddr: httpAddr, store: store, bus: bus}

	handler, err := srv.buildHandler(config)
	if err != nil {
		srv.Close()
		return nil, err
	}
	srv.handler = handler
	srv.httpServer = &http.Server{
		Addr:              httpAddr,
		Handler:           handler,
		ReadHeaderTimeout: timeouts.ReadHeader,
	}
	return srv, nil
}

func (s *Server) buildHandler(config Config) (http.Handler, error) {
	policy := requestmeta.SchemePolicy{TrustForwardedProto: config.TrustForwardedProto}

	sealer, err := securestore.NewSealer(config.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("build sealer: %w", err)
	}
	credentials, err := credential.NewStore(s.store, sealer)
	if err != nil {
		return nil, fmt.Errorf("build credential store: %w", err)
	}
	unlock, err := sessioncookie.NewManager(config.SecretKey, config.UnlockTTL, policy)
	if err != nil {
		return nil, fmt.Errorf("build unlock sessions: %w", err)
	}
	relyingParty, err := biometric.NewWebAuthn(config.WebAuthn)
	if err != nil {
		return nil, err
	}
	biometrics, err := biometric.NewService(config.WebAuthn, biometric.Deps{
		RelyingParty: relyingParty,
		Credentials:  s.store,
		Bus:          s.bus,
	})
	if err != nil {
		return nil, fmt.Errorf("build biometric service: %w", err)
	}
	authClient, err := authn.NewHTTPClient(config.AuthBaseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build authenticator: %w", err)
	}
	feedSource, err := feed.NewHTTPSource(config.FeedURL, config.FeedLimit, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed source: %w", err)
	}
	newsSource, err := feed.NewCachedSource(feedSource, s.store, feedSource.URL(), config.FeedCacheTTL)
	if err != nil {
		return nil, fmt.Errorf("build feed cache: %w", err)
	}
	s.registry = gate.NewRegistry(config.GateTTL, nil)

	deps := modules.Dependencies{
		Check: check.Config{
			Registry:    s.registry,
			Credentials: func(deviceID string) gate.CredentialReader { return credentials.ForDevice(deviceID) },
			Biometrics:  biometrics,
			Unlock:      unlock,
		},
		Login: login.Config{
			Authenticator: authClient,
			Credentials:   func(deviceID string) login.DeviceCredentials { return credentials.ForDevice(deviceID) },
			Unlock:        unlock,
			SignupURL:     config.SignupURL,
			Healthy:       s.healthy,
		},
		News: news.Config{
			Source:     newsSource,
			Enrollment: biometrics,
		},
		Registrar: biometrics,
	}
	root, err := app.BuildRootHandler(app.Config{
		PublicModules:       modules.DefaultPublicModules(deps),
		ProtectedModules:    modules.DefaultProtectedModules(deps),
		RequestSchemePolicy: policy,
		Static:              static.FS,
	}, func(r *http.Request) bool {
		_, err := unlock.Authenticate(r, devicecookie.FromRequest(r))
		return err == nil
	})
	if err != nil {
		return nil, fmt.Errorf("compose web modules: %w", err)
	}

	return httpx.Chain(root,
		httpx.RecoverPanic(),
		httpx.RequestID(),
		observability.Tracing(nil),
		observability.RequestLogger(nil),
		devicecookie.Middleware(policy),
	), nil
}

// Handler returns the composed root handler.
func (s *Server) Handler() http.Handler {
	if s == nil {
		return nil
	}
	return s.handler
}

// ListenAndServe serves HTTP until ctx is canceled, sweeping idle gates and
// expired feed cache entries in the background.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("web server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	sweepCtx, stopSweeps := context.WithCancel(ctx)
	defer stopSweeps()
	go s.registry.Run(sweepCtx, timeouts.GateSweep)
	go s.pruneCache(sweepCtx, timeouts.GateSweep)

	serveErr := make(chan error, 1)
	log.Printf("web listening addr=%s", s.httpAddr)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// Close releases gates, the event bus, and the store.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.registry != nil {
		s.registry.CloseAll()
	}
	if s.bus != nil {
		if err := s.bus.Close(); err != nil {
			log.Printf("close event bus: %v", err)
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close web store: %v", err)
		}
	}
}

func (s *Server) healthy() bool {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return s.store.Ping(ctx) == nil
}

func (s *Server) pruneCache(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			removed, err := s.store.DeleteExpiredCacheEntries(ctx, now)
			if err != nil {
				log.Printf("prune feed cache: %v", err)
				continue
			}
			if removed > 0 {
				log.Printf("pruned feed cache entries=%d", removed)
			}
		}
	}
}
