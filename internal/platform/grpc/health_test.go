package grpc

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

const testServiceName = "cryptopoly.test.v1.Probe"

// logRecorder collects WaitForHealth progress lines.
type logRecorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *logRecorder) logf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, fmt.Sprintf(format, args...))
}

func (r *logRecorder) contains(fragment string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, line := range r.lines {
		if strings.Contains(line, fragment) {
			return true
		}
	}
	return false
}

func TestWaitForHealthServing(t *testing.T) {
	addr, _, stop := startHealthServer(t, grpc_health_v1.HealthCheckResponse_SERVING)
	defer stop()

	conn := dialHealthServer(t, addr)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	recorder := &logRecorder{}
	if err := WaitForHealth(ctx, conn, "", recorder.logf); err != nil {
		t.Fatalf("wait for health: %v", err)
	}
	if !recorder.contains("SERVING") {
		t.Fatalf("expected serving log line, got %v", recorder.lines)
	}
}

func TestWaitForHealthNamedService(t *testing.T) {
	addr, setStatus, stop := startHealthServer(t, grpc_health_v1.HealthCheckResponse_SERVING)
	defer stop()
	setStatus(testServiceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	conn := dialHealthServer(t, addr)
	defer conn.Close()

	go func() {
		time.Sleep(200 * time.Millisecond)
		setStatus(testServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	recorder := &logRecorder{}
	if err := WaitForHealth(ctx, conn, testServiceName, recorder.logf); err != nil {
		t.Fatalf("wait for named service: %v", err)
	}
	if !recorder.contains("NOT_SERVING") {
		t.Fatalf("expected a waiting line before serving, got %v", recorder.lines)
	}
}

func TestWaitForHealthUnknownServiceTimesOut(t *testing.T) {
	addr, _, stop := startHealthServer(t, grpc_health_v1.HealthCheckResponse_SERVING)
	defer stop()

	conn := dialHealthServer(t, addr)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	err := WaitForHealth(ctx, conn, "missing.Service", nil)
	if err == nil {
		t.Fatal("expected error for unregistered service")
	}
	if !strings.Contains(err.Error(), "wait for gRPC health") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWaitForHealthRequiresConnection(t *testing.T) {
	if err := WaitForHealth(context.Background(), nil, "", nil); err == nil {
		t.Fatal("expected error for nil connection")
	}
}

// startHealthServer serves the health service on a loopback port. The
// returned setter updates the status of any service name.
func startHealthServer(t *testing.T, status grpc_health_v1.HealthCheckResponse_ServingStatus) (string, func(string, grpc_health_v1.HealthCheckResponse_ServingStatus), func()) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	server := gogrpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)
	healthServer.SetServingStatus("", status)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = server.Serve(listener)
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			server.Stop()
			select {
			case <-done:
			case <-time.After(2 * time.Second):
			}
		})
	}
	t.Cleanup(stop)

	return listener.Addr().String(), healthServer.SetServingStatus, stop
}

func dialHealthServer(t *testing.T, addr string) *gogrpc.ClientConn {
	t.Helper()

	conn, err := gogrpc.NewClient(addr, gogrpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial %s: %v", addr, err)
	}
	return conn
}
