// Package web parses web command flags and launches the browser service.
package web

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	entrypoint "github.com/louisbranch/newsgate/internal/platform/cmd"
	"github.com/louisbranch/newsgate/internal/platform/config"
	"github.com/louisbranch/newsgate/internal/platform/securestore"
	"github.com/louisbranch/newsgate/internal/services/web"
	"github.com/louisbranch/newsgate/internal/services/web/biometric"
)

// Config holds the web command configuration.
type Config struct {
	HTTPAddr            string        `env:"NEWSGATE_WEB_HTTP_ADDR"            envDefault:"localhost:8080"`
	DBPath              string        `env:"NEWSGATE_WEB_DB_PATH"              envDefault:"data/newsgate-web.db"`
	AuthBaseURL         string        `env:"NEWSGATE_AUTH_BASE_URL"            envDefault:"http://localhost:8000"`
	FeedURL             string        `env:"NEWSGATE_FEED_URL"                 envDefault:"https://hnrss.org/frontpage"`
	FeedLimit           int           `env:"NEWSGATE_FEED_LIMIT"               envDefault:"20"`
	FeedCacheTTL        time.Duration `env:"NEWSGATE_FEED_CACHE_TTL"           envDefault:"10m"`
	NATSURL             string        `env:"NEWSGATE_NATS_URL"`
	SecretKey           string        `env:"NEWSGATE_SECRET_KEY"`
	GateTTL             time.Duration `env:"NEWSGATE_GATE_TTL"                 envDefault:"5m"`
	UnlockTTL           time.Duration `env:"NEWSGATE_UNLOCK_TTL"               envDefault:"12h"`
	TrustForwardedProto bool          `env:"NEWSGATE_TRUST_FORWARDED_PROTO"    envDefault:"false"`
	SignupURL           string        `env:"NEWSGATE_SIGNUP_URL"`
	RPID                string        `env:"NEWSGATE_WEBAUTHN_RP_ID"           envDefault:"localhost"`
	RPDisplayName       string        `env:"NEWSGATE_WEBAUTHN_RP_DISPLAY_NAME" envDefault:"Newsgate"`
	RPOrigins           []string      `env:"NEWSGATE_WEBAUTHN_RP_ORIGINS"      envDefault:"http://localhost:8080" envSeparator:","`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "Web SQLite database path")
	fs.StringVar(&cfg.AuthBaseURL, "auth-base-url", cfg.AuthBaseURL, "Auth service HTTP base URL")
	fs.StringVar(&cfg.FeedURL, "feed-url", cfg.FeedURL, "RSS or Atom feed URL for the news list")
	fs.IntVar(&cfg.FeedLimit, "feed-limit", cfg.FeedLimit, "Maximum articles shown in the news list")
	fs.StringVar(&cfg.NATSURL, "nats-url", cfg.NATSURL, "NATS server URL; empty keeps events in process")
	fs.BoolVar(&cfg.TrustForwardedProto, "trust-forwarded-proto", cfg.TrustForwardedProto, "Trust X-Forwarded-Proto for secure cookies")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the web service.
func Run(ctx context.Context, cfg Config) error {
	secret, err := config.DecodeSecret(cfg.SecretKey, securestore.MinSecretLen)
	if err != nil {
		return fmt.Errorf("web secret key: %w", err)
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceWeb, func(ctx context.Context) error {
		server, err := web.NewServer(ctx, web.Config{
			HTTPAddr:            cfg.HTTPAddr,
			DBPath:              cfg.DBPath,
			AuthBaseURL:         cfg.AuthBaseURL,
			FeedURL:             cfg.FeedURL,
			FeedLimit:           cfg.FeedLimit,
			FeedCacheTTL:        cfg.FeedCacheTTL,
			NATSURL:             cfg.NATSURL,
			SecretKey:           secret,
			GateTTL:             cfg.GateTTL,
			UnlockTTL:           cfg.UnlockTTL,
			TrustForwardedProto: cfg.TrustForwardedProto,
			SignupURL:           strings.TrimSpace(cfg.SignupURL),
			WebAuthn: biometric.Config{
				RPID:          cfg.RPID,
				RPDisplayName: cfg.RPDisplayName,
				RPOrigins:     cfg.RPOrigins,
				PromptTTL:     cfg.GateTTL,
			},
		})
		if err != nil {
			return fmt.Errorf("init web server: %w", err)
		}
		defer server.Close()

		if err := server.ListenAndServe(ctx); err != nil {
			return fmt.Errorf("serve web: %w", err)
		}
		return nil
	})
}
