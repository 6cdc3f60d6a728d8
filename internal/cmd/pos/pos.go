// Package pos parses pos service flags and launches the service.
package pos

import (
	"context"
	"flag"

	entrypoint "github.com/tillworks/till/internal/platform/cmd"
	server "github.com/tillworks/till/internal/services/pos/app"
)

// Config holds pos command configuration.
type Config struct {
	HTTPAddr string `env:"TILL_POS_HTTP_ADDR" envDefault:":8080"`
	GRPCAddr string `env:"TILL_POS_GRPC_ADDR" envDefault:":8081"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "The kiosk API listen address")
	fs.StringVar(&cfg.GRPCAddr, "grpc-addr", cfg.GRPCAddr, "The health listener address")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the pos service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServicePOS, func(context.Context) error {
		return server.Run(ctx, cfg.HTTPAddr, cfg.GRPCAddr)
	})
}
