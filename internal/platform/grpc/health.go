// Package grpc holds client helpers for reaching storyloom gRPC services.
package grpc

import (
	"context"
	"fmt"
	"time"

	"github.com/louisbranch/storyloom/internal/platform/timeouts"
	gogrpc "google.golang.org/grpc"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

const maxHealthBackoff = time.Second

// WaitForHealth polls the health service for service until it reports
// SERVING or ctx ends. The empty service name checks the whole server.
func WaitForHealth(ctx context.Context, conn gogrpc.ClientConnInterface, service string, logf func(string, ...any)) error {
	if conn == nil {
		return fmt.Errorf("gRPC connection is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	healthClient := grpc_health_v1.NewHealthClient(conn)
	backoff := 200 * time.Millisecond
	for {
		callCtx, cancel := context.WithTimeout(ctx, timeouts.HealthCheck)
		response, err := healthClient.Check(callCtx, &grpc_health_v1.HealthCheckRequest{Service: service})
		cancel()
		if err == nil && response.GetStatus() == grpc_health_v1.HealthCheckResponse_SERVING {
			if logf != nil {
				logf("%s is SERVING", serviceLabel(service))
			}
			return nil
		}
		if logf != nil {
			if err != nil {
				logf("waiting for %s: %v", serviceLabel(service), err)
			} else {
				logf("waiting for %s: status %s", serviceLabel(service), response.GetStatus().String())
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for gRPC health: %w", ctx.Err())
		case <-time.After(backoff):
		}

		backoff = min(backoff*2, maxHealthBackoff)
	}
}

func serviceLabel(service string) string {
	if service == "" {
		return "gRPC server"
	}
	return service
}
