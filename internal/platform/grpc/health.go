package grpc

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	gogrpc "google.golang.org/grpc"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	healthInitialInterval = 200 * time.Millisecond
	healthMaxInterval     = time.Second
	healthCheckTimeout    = time.Second
)

// WaitForHealth blocks until the gRPC health check reports SERVING or the context ends.
func WaitForHealth(ctx context.Context, conn *gogrpc.ClientConn, service string, logf func(string, ...any)) error {
	if conn == nil {
		return fmt.Errorf("gRPC connection is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	healthClient := grpc_health_v1.NewHealthClient(conn)
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = healthInitialInterval
	policy.MaxInterval = healthMaxInterval

	check := func() (struct{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		response, err := healthClient.Check(callCtx, &grpc_health_v1.HealthCheckRequest{Service: service})
		cancel()
		if err != nil {
			if logf != nil {
				logf("waiting for gRPC health: %v", err)
			}
			return struct{}{}, err
		}
		if response.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
			if logf != nil {
				logf("waiting for gRPC health: status %s", response.GetStatus().String())
			}
			return struct{}{}, fmt.Errorf("health status %s", response.GetStatus().String())
		}
		return struct{}{}, nil
	}

	if _, err := backoff.Retry(ctx, check,
		backoff.WithBackOff(policy),
		backoff.WithMaxElapsedTime(0),
	); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("wait for gRPC health: %w", ctxErr)
		}
		return fmt.Errorf("wait for gRPC health: %w", err)
	}
	if logf != nil {
		logf("gRPC health check is SERVING")
	}
	return nil
}
