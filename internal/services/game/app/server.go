package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/louisbranch/cryptopoly/internal/platform/id"
	"github.com/louisbranch/cryptopoly/internal/platform/timeouts"
	gamegrpc "github.com/louisbranch/cryptopoly/internal/services/game/api/grpc/game"
	"github.com/louisbranch/cryptopoly/internal/services/game/api/grpc/interceptors"
	grpcmeta "github.com/louisbranch/cryptopoly/internal/services/game/api/grpc/metadata"
	"github.com/louisbranch/cryptopoly/internal/services/game/api/httpapi"
	"github.com/louisbranch/cryptopoly/internal/services/game/pipeline"
	"github.com/louisbranch/cryptopoly/internal/services/game/storage"
	"github.com/louisbranch/cryptopoly/internal/services/game/subscription"
)

// Server hosts the HTTP and gRPC surfaces over one store.
type Server struct {
	httpListener net.Listener
	grpcListener net.Listener
	httpServer   *http.Server
	grpcServer   *grpc.Server
	health       *health.Server
	broker       *subscription.Broker
	store        storage.Store
}

// observable is implemented by stores that report commits.
type observable interface {
	AddObserver(fn storage.CommitObserver)
}

// New opens storage and binds both listeners.
func New(ctx context.Context, cfg Config) (*Server, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	httpListener, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("listen on %s: %w", cfg.HTTPAddr, err)
	}
	grpcListener, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		_ = httpListener.Close()
		_ = store.Close()
		return nil, fmt.Errorf("listen on %s: %w", cfg.GRPCAddr, err)
	}

	broker := subscription.NewBroker(store.GetState)
	if obs, ok := store.(observable); ok {
		obs.AddObserver(broker.Publish)
	} else {
		log.Printf("storage %q does not report commits; subscribers only see initial state", cfg.Storage)
	}

	opts := []pipeline.Option{pipeline.WithMaxAttempts(cfg.ApplyMaxAttempts)}
	if cfg.Keyring != nil {
		opts = append(opts, pipeline.WithSigner(cfg.Keyring))
	}
	p := pipeline.New(store, opts...)

	httpCfg := httpapi.Config{
		Pipeline:  p,
		Store:     store,
		Broker:    broker,
		NewRoomID: id.NewID,
	}
	// Assigned only when set so a nil *auth.Tokens stays a nil interface.
	var authorizer gamegrpc.Authorizer
	if cfg.Tokens != nil {
		httpCfg.Tokens = cfg.Tokens
		authorizer = cfg.Tokens
	}

	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			grpcmeta.UnaryServerInterceptor(nil),
			interceptors.AccessLogUnaryInterceptor(nil),
		),
		grpc.ChainStreamInterceptor(
			grpcmeta.StreamServerInterceptor(nil),
			interceptors.AccessLogStreamInterceptor(nil),
		),
	)
	gamegrpc.Register(grpcServer, gamegrpc.NewService(p, store, broker, authorizer))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(gamegrpc.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	return &Server{
		httpListener: httpListener,
		grpcListener: grpcListener,
		httpServer: &http.Server{
			Handler:           httpapi.NewHandler(httpCfg),
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
		grpcServer: grpcServer,
		health:     healthServer,
		broker:     broker,
		store:      store,
	}, nil
}

// HTTPAddr returns the bound HTTP address.
func (s *Server) HTTPAddr() string {
	if s == nil || s.httpListener == nil {
		return ""
	}
	return s.httpListener.Addr().String()
}

// GRPCAddr returns the bound gRPC address.
func (s *Server) GRPCAddr() string {
	if s == nil || s.grpcListener == nil {
		return ""
	}
	return s.grpcListener.Addr().String()
}

// Run creates and serves a game server until the context ends.
func Run(ctx context.Context, cfg Config) error {
	srv, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	return srv.Serve(ctx)
}

// Serve blocks until ctx ends or either listener fails, then shuts both
// down and closes the store.
func (s *Server) Serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	defer func() {
		if err := s.store.Close(); err != nil {
			log.Printf("close store: %v", err)
		}
	}()

	log.Printf("game server listening at http=%v grpc=%v", s.httpListener.Addr(), s.grpcListener.Addr())
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return handleErr(s.httpServer.Serve(s.httpListener), "HTTP")
	})
	group.Go(func() error {
		return handleErr(s.grpcServer.Serve(s.grpcListener), "gRPC")
	})
	group.Go(func() error {
		<-groupCtx.Done()
		s.health.Shutdown()
		// Ending subscriptions lets hijacked WebSocket handlers return.
		s.broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		err := s.httpServer.Shutdown(shutdownCtx)
		s.grpcServer.GracefulStop()
		if err != nil {
			return fmt.Errorf("shutdown HTTP: %w", err)
		}
		return nil
	})
	return group.Wait()
}

func handleErr(err error, surface string) error {
	if err == nil || errors.Is(err, http.ErrServerClosed) || errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return fmt.Errorf("serve %s: %w", surface, err)
}
