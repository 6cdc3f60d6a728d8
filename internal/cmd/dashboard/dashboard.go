// Package dashboard parses dashboard flags and launches the service.
package dashboard

import (
	"context"
	"flag"

	entrypoint "github.com/tillworks/till/internal/platform/cmd"
	"github.com/tillworks/till/internal/services/dashboard"
)

// Config holds dashboard command configuration.
type Config struct {
	HTTPAddr string `env:"TILL_DASHBOARD_HTTP_ADDR" envDefault:":8090"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "The dashboard listen address")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the dashboard service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceDashboard, func(context.Context) error {
		return dashboard.Run(ctx, cfg.HTTPAddr)
	})
}
