package web

import (
	"context"
	"flag"
	"testing"
	"time"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("web", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.HTTPAddr != "localhost:8080" {
		t.Fatalf("HTTPAddr = %q, want %q", cfg.HTTPAddr, "localhost:8080")
	}
	if cfg.DBPath != "data/newsgate-web.db" {
		t.Fatalf("DBPath = %q, want %q", cfg.DBPath, "data/newsgate-web.db")
	}
	if cfg.FeedLimit != 20 {
		t.Fatalf("FeedLimit = %d, want 20", cfg.FeedLimit)
	}
	if cfg.GateTTL != 5*time.Minute {
		t.Fatalf("GateTTL = %v, want 5m", cfg.GateTTL)
	}
	if cfg.UnlockTTL != 12*time.Hour {
		t.Fatalf("UnlockTTL = %v, want 12h", cfg.UnlockTTL)
	}
	if len(cfg.RPOrigins) != 1 || cfg.RPOrigins[0] != "http://localhost:8080" {
		t.Fatalf("RPOrigins = %v, want [http://localhost:8080]", cfg.RPOrigins)
	}
	if cfg.TrustForwardedProto {
		t.Fatalf("TrustForwardedProto = true, want false")
	}
}

func TestParseConfigEnvThenFlags(t *testing.T) {
	t.Setenv("NEWSGATE_WEB_HTTP_ADDR", "env:9000")
	t.Setenv("NEWSGATE_FEED_LIMIT", "7")
	t.Setenv("NEWSGATE_WEBAUTHN_RP_ORIGINS", "https://a.example,https://b.example")

	fs := flag.NewFlagSet("web", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-http-addr", "127.0.0.1:9002"})
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.HTTPAddr != "127.0.0.1:9002" {
		t.Fatalf("HTTPAddr = %q, want %q", cfg.HTTPAddr, "127.0.0.1:9002")
	}
	if cfg.FeedLimit != 7 {
		t.Fatalf("FeedLimit = %d, want 7", cfg.FeedLimit)
	}
	if len(cfg.RPOrigins) != 2 {
		t.Fatalf("RPOrigins = %v, want two origins", cfg.RPOrigins)
	}
}

func TestParseConfigRejectsBadDuration(t *testing.T) {
	t.Setenv("NEWSGATE_GATE_TTL", "soon")

	fs := flag.NewFlagSet("web", flag.ContinueOnError)
	if _, err := ParseConfig(fs, nil); err == nil {
		t.Fatalf("expected error for invalid duration")
	}
}

func TestRunRequiresSecret(t *testing.T) {
	t.Parallel()

	err := Run(context.Background(), Config{HTTPAddr: "127.0.0.1:0", SecretKey: "short"})
	if err == nil {
		t.Fatalf("expected error for short secret")
	}
}
