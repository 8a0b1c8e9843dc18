// Package cmd holds the startup plumbing shared by service commands: env and
// flag parsing plus the telemetry-wrapped run loop.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/louisbranch/tasks/internal/platform/config"
	"github.com/louisbranch/tasks/internal/platform/otel"
	"github.com/louisbranch/tasks/internal/platform/timeouts"
)

// ServiceTasks names the tasks HTTP service in telemetry resources and logs.
const ServiceTasks = "tasks"

// ParseConfigFromArgs fills cfg from the environment and then applies args.
//
// Flags must already be registered on fs against fields of cfg. Only flags
// present in args override the environment; absent flags leave the env (or
// envDefault) value in place.
func ParseConfigFromArgs[T any](cfg *T, fs *flag.FlagSet, args []string) error {
	if cfg == nil {
		return errors.New("config target is required")
	}
	if fs == nil {
		return errors.New("flag parser is required")
	}
	if err := config.ParseEnv(cfg); err != nil {
		return err
	}
	if args == nil {
		args = []string{}
	}
	return fs.Parse(args)
}

// RunWithTelemetry installs the tracer provider for service, calls run, and
// flushes telemetry within timeouts.TelemetryShutdown once run returns.
func RunWithTelemetry(ctx context.Context, service string, run func(context.Context) error) error {
	service = strings.TrimSpace(service)
	if service == "" {
		return fmt.Errorf("service name is required")
	}
	if run == nil {
		return fmt.Errorf("run function is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	shutdown, err := otel.Setup(ctx, service)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.TelemetryShutdown)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Printf("%s otel shutdown: %v", service, err)
		}
	}()
	return run(ctx)
}
