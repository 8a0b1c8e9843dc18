// Package tasks parses tasks service flags and launches the service.
package tasks

import (
	"context"
	"flag"

	entrypoint "github.com/louisbranch/tasks/internal/platform/cmd"
	server "github.com/louisbranch/tasks/internal/services/tasks/app"
)

// Config holds tasks command configuration.
type Config struct {
	Addr   string `env:"TASKS_HTTP_ADDR" envDefault:":8000"`
	DBPath string `env:"TASKS_DB_PATH" envDefault:"tasks.db"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	fs.StringVar(&cfg.Addr, "addr", "", "The tasks HTTP listen address (default $TASKS_HTTP_ADDR or :8000)")
	fs.StringVar(&cfg.DBPath, "db", "", "Path to the tasks SQLite database file (default $TASKS_DB_PATH or tasks.db)")
	if err := entrypoint.ParseConfigFromArgs(&cfg, fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the tasks HTTP API service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceTasks, func(ctx context.Context) error {
		return server.Run(ctx, server.Config{Addr: cfg.Addr, DBPath: cfg.DBPath})
	})
}
