// Package server wires the play runtime and gRPC lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/louisbranch/storyloom/internal/platform/config"
	"github.com/louisbranch/storyloom/internal/saves"
	"github.com/louisbranch/storyloom/internal/saves/memory"
	savesqlite "github.com/louisbranch/storyloom/internal/saves/sqlite"
	playservice "github.com/louisbranch/storyloom/internal/services/play/api/grpc/play"
	"github.com/louisbranch/storyloom/internal/services/play/session"
	"github.com/louisbranch/storyloom/internal/story"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

type serverEnv struct {
	StoryFile   string `env:"STORY_FILE"`
	SavesDB     string `env:"SAVES_DB"`
	StepLimit   int    `env:"STEP_LIMIT"       envDefault:"100000"`
	MaxSessions int    `env:"PLAYD_MAX_SESSIONS" envDefault:"128"`
}

func loadServerEnv() (serverEnv, error) {
	var cfg serverEnv
	if err := config.ParseEnv(&cfg); err != nil {
		return serverEnv{}, fmt.Errorf("load play env: %w", err)
	}
	if strings.TrimSpace(cfg.SavesDB) == "" {
		cfg.SavesDB = filepath.Join("data", "saves.db")
	}
	return cfg, nil
}

// Server hosts the play gRPC API and storage lifecycle.
type Server struct {
	listener   net.Listener
	grpcServer *grpc.Server
	health     *health.Server
	store      *savesqlite.Store
}

// New creates a configured play server listening on the provided port.
func New(ctx context.Context, port int) (*Server, error) {
	return NewWithAddr(ctx, fmt.Sprintf(":%d", port))
}

// NewWithAddr creates a configured play server for the provided address.
func NewWithAddr(ctx context.Context, addr string) (*Server, error) {
	env, err := loadServerEnv()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(env.StoryFile) == "" {
		return nil, errors.New("story file is required")
	}
	data, err := os.ReadFile(env.StoryFile)
	if err != nil {
		return nil, fmt.Errorf("read story: %w", err)
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	store, err := openSaveStore(ctx, env.SavesDB)
	if err != nil {
		_ = listener.Close()
		return nil, err
	}
	var saveStore saves.Store = store
	if store == nil {
		saveStore = memory.New()
	}

	storyID := strings.TrimSuffix(filepath.Base(env.StoryFile), filepath.Ext(env.StoryFile))
	manager, err := session.NewManager(storyID, data, saveStore, env.MaxSessions,
		story.WithStepLimit(env.StepLimit),
		story.WithLogger(log.Default()),
	)
	if err != nil {
		_ = listener.Close()
		if store != nil {
			_ = store.Close()
		}
		return nil, err
	}

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	playservice.RegisterPlayServiceServer(grpcServer, playservice.NewService(manager))
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(playservice.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	return &Server{
		listener:   listener,
		grpcServer: grpcServer,
		health:     healthServer,
		store:      store,
	}, nil
}

// Addr returns the listener address for the server.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run creates and serves a play server until context cancellation.
func Run(ctx context.Context, port int) error {
	server, err := New(ctx, port)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve starts the gRPC server until context cancellation.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	log.Printf("play server listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpcServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		if s.health != nil {
			s.health.Shutdown()
		}
		s.grpcServer.GracefulStop()
		err := <-serveErr
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	case err := <-serveErr:
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	}
}

// Close releases play server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.health != nil {
		s.health.Shutdown()
	}
	if s.grpcServer != nil {
		s.grpcServer.Stop()
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close save store: %v", err)
		}
	}
}

// openSaveStore opens the SQLite save store. The path "memory" keeps
// saves in process and returns a nil store.
func openSaveStore(ctx context.Context, path string) (*savesqlite.Store, error) {
	if path == "memory" {
		return nil, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := savesqlite.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open save sqlite store: %w", err)
	}
	return store, nil
}
