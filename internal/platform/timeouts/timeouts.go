// Package timeouts defines shared timeout constants for storyloom
// services and their clients.
package timeouts

import "time"

// GRPCDial caps the wait for a gRPC peer to become healthy.
const GRPCDial = 2 * time.Second

// HealthCheck caps a single health check call.
const HealthCheck = time.Second
