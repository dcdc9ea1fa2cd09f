// Package playd parses play service flags and launches the service.
package playd

import (
	"context"
	"flag"
	"fmt"
	"log"

	entrypoint "github.com/louisbranch/storyloom/internal/platform/cmd"
	platformgrpc "github.com/louisbranch/storyloom/internal/platform/grpc"
	"github.com/louisbranch/storyloom/internal/platform/timeouts"
	playservice "github.com/louisbranch/storyloom/internal/services/play/api/grpc/play"
	server "github.com/louisbranch/storyloom/internal/services/play/app"
)

// Config holds playd command configuration.
type Config struct {
	Port int `env:"PLAYD_PORT" envDefault:"8090"`
	// HealthCheck probes a running server on Port instead of starting one.
	HealthCheck bool
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The play gRPC server port")
	fs.BoolVar(&cfg.HealthCheck, "healthcheck", cfg.HealthCheck, "check a running server and exit")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the play gRPC API service.
func Run(ctx context.Context, cfg Config) error {
	if cfg.HealthCheck {
		return Probe(ctx, fmt.Sprintf("127.0.0.1:%d", cfg.Port))
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServicePlayd, func(ctx context.Context) error {
		return server.Run(ctx, cfg.Port)
	})
}

// Probe reports whether the play service at addr is serving.
func Probe(ctx context.Context, addr string) error {
	conn, err := platformgrpc.DialWithHealth(ctx, addr, playservice.ServiceName, timeouts.GRPCDial, log.Printf)
	if err != nil {
		return err
	}
	return conn.Close()
}
