// Package server wires the tasks runtime and HTTP lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/louisbranch/tasks/internal/platform/timeouts"
	taskshttp "github.com/louisbranch/tasks/internal/services/tasks/api/http/tasks"
	taskssqlite "github.com/louisbranch/tasks/internal/services/tasks/storage/sqlite"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultDBPath is used when no database path is configured.
const DefaultDBPath = "tasks.db"

// Config holds the runtime settings for one server.
type Config struct {
	Addr   string
	DBPath string
}

// Server hosts the tasks HTTP API.
type Server struct {
	listener   net.Listener
	httpServer *http.Server
	store      *taskssqlite.Store
}

// New opens and initializes the store, then binds the listener.
func New(ctx context.Context, cfg Config) (*Server, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	dbPath := strings.TrimSpace(cfg.DBPath)
	if dbPath == "" {
		dbPath = DefaultDBPath
	}
	store, err := openTasksStore(ctx, dbPath)
	if err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.Addr, err)
	}

	mux := http.NewServeMux()
	taskshttp.NewHandler(store).RegisterRoutes(mux)

	httpServer := &http.Server{
		Handler:           otelhttp.NewHandler(withRequestID(withRequestLog(mux)), "tasks"),
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	return &Server{
		listener:   listener,
		httpServer: httpServer,
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

// Run creates and serves a tasks server until context cancellation.
func Run(ctx context.Context, cfg Config) error {
	server, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve handles HTTP requests until the context ends, then shuts down
// gracefully within timeouts.Shutdown.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	log.Printf("tasks server listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.Serve(s.listener)
	}()

	handleErr := func(err error) error {
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve HTTP: %w", err)
	}

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown tasks server: %v", err)
		}
		return handleErr(<-serveErr)
	case err := <-serveErr:
		return handleErr(err)
	}
}

// Close stops the HTTP server and releases the listener.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.httpServer != nil {
		_ = s.httpServer.Close()
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
}

func openTasksStore(ctx context.Context, path string) (*taskssqlite.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := taskssqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open tasks sqlite store: %w", err)
	}
	if err := store.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("initialize tasks sqlite store: %w", err)
	}
	return store, nil
}
