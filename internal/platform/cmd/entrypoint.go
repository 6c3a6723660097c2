// Package cmd holds the shared startup path for Newsgate commands: env then
// flags, then a run loop wrapped in telemetry setup and teardown.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/louisbranch/newsgate/internal/platform/config"
	"github.com/louisbranch/newsgate/internal/platform/otel"
	"github.com/louisbranch/newsgate/internal/platform/timeouts"
)

// ServiceWeb identifies the browser-facing service in telemetry and logs.
const ServiceWeb = "newsgate-web"

// ParseConfig loads environment defaults into cfg.
func ParseConfig[T any](cfg *T) error {
	if cfg == nil {
		return errors.New("config target is required")
	}
	return config.ParseEnv(cfg)
}

// ParseArgs parses command-line flags over env-loaded defaults.
func ParseArgs(fs *flag.FlagSet, args []string) error {
	if fs == nil {
		return errors.New("flag parser is required")
	}
	if args == nil {
		args = []string{}
	}
	return fs.Parse(args)
}

// RunWithTelemetry installs the tracer provider for service, runs the loop,
// and flushes spans once the loop returns.
func RunWithTelemetry(ctx context.Context, service string, run func(context.Context) error) error {
	service = strings.TrimSpace(service)
	if service == "" {
		return errors.New("service name is required")
	}
	if run == nil {
		return errors.New("run function is required")
	}
	shutdown, err := otel.Setup(ctx, service)
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			log.Printf("telemetry shutdown service=%s err=%v", service, err)
		}
	}()

	log.Printf("service starting service=%s", service)
	err = run(ctx)
	log.Printf("service stopped service=%s", service)
	return err
}
