package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"gorm.io/gorm"

	"github.com/SamuelRM25/codispro/internal/store"
	"github.com/SamuelRM25/codispro/pkg/logger"
	"github.com/SamuelRM25/codispro/pkg/metrics"
)

// Server wires the tracking service together: database, hub, retention
// sweeper and the HTTP listener carrying the websocket endpoint.
type Server struct {
	logger     *slog.Logger
	db         *gorm.DB
	hub        *Hub
	sweeper    *Sweeper
	httpServer *http.Server
	upgrader   websocket.Upgrader
	config     *ServerConfig
}

// ServerConfig holds the configuration for the Server.
type ServerConfig struct {
	Logger  *slog.Logger
	Metrics *metrics.TrackerMetrics // Optional metrics

	// Database configuration
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBPort     int

	// Listener configuration
	ListenPort int

	// AllowedOrigins restricts websocket upgrades to the listed origins.
	// Empty means any origin is accepted.
	AllowedOrigins []string

	// Retention configuration
	RetentionHorizon time.Duration
	SweepInterval    time.Duration
}

// NewServer creates a new Server instance.
func NewServer(cfg *ServerConfig) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("server config cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.DBHost == "" {
		return nil, errors.New("database host cannot be empty")
	}

	if cfg.DBPort <= 0 {
		return nil, errors.New("database port must be positive")
	}

	if cfg.DBUser == "" {
		return nil, errors.New("database user cannot be empty")
	}

	if cfg.DBName == "" {
		return nil, errors.New("database name cannot be empty")
	}

	if cfg.ListenPort <= 0 {
		return nil, errors.New("listen port must be positive")
	}

	if cfg.RetentionHorizon <= 0 {
		return nil, errors.New("retention horizon must be positive")
	}

	if cfg.SweepInterval <= 0 {
		return nil, errors.New("sweep interval must be positive")
	}

	s := &Server{
		logger: cfg.Logger,
		config: cfg,
	}

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	return s, nil
}

// Run starts the tracking service and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting tracker server")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	// Initialize database
	db, err := store.NewDB(&store.DBConfig{
		Host:     s.config.DBHost,
		Port:     s.config.DBPort,
		User:     s.config.DBUser,
		Password: s.config.DBPassword,
		DBName:   s.config.DBName,
		SSLMode:  s.config.DBSSLMode,
		Logger:   s.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	s.db = db

	locations, err := store.NewStore(logger.ForComponent(s.logger, "store"), s.db, s.config.Metrics)
	if err != nil {
		return fmt.Errorf("failed to initialize location store: %w", err)
	}

	// Initialize hub
	hub, err := NewHub(&HubConfig{
		Logger:  logger.ForComponent(s.logger, "hub"),
		Store:   locations,
		Metrics: s.config.Metrics,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize hub: %w", err)
	}
	s.hub = hub

	// Initialize retention sweeper
	sweeper, err := NewSweeper(&SweeperConfig{
		Logger:   logger.ForComponent(s.logger, "sweeper"),
		Store:    locations,
		Metrics:  s.config.Metrics,
		Horizon:  s.config.RetentionHorizon,
		Interval: s.config.SweepInterval,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize sweeper: %w", err)
	}
	s.sweeper = sweeper

	go s.sweeper.Run(ctx)

	// Create HTTP server. Read/write timeouts stay unset: websocket
	// connections are long-lived and guarded by their own deadlines.
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.ListenPort),
		Handler:           s.setupRoutes(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("starting HTTP server", "address", s.httpServer.Addr)

	httpErr := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErr <- fmt.Errorf("HTTP server error: %w", err)
		}
		close(httpErr)
	}()

	s.logger.Info("tracker server started successfully")

	select {
	case sig := <-sigChan:
		s.logger.Info("received shutdown signal", "signal", sig.String())
		cancel()
	case <-ctx.Done():
		s.logger.Info("context canceled")
	case err := <-httpErr:
		if err != nil {
			s.logger.Error("HTTP server error", "error", err)
			cancel()
			return err
		}
	}

	return s.Shutdown()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	s.logger.Info("shutting down tracker server")

	var shutdownErr error

	if s.httpServer != nil {
		s.logger.Info("stopping HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("failed to shutdown HTTP server", "error", err)
			shutdownErr = fmt.Errorf("HTTP server shutdown error: %w", err)
		}
		s.logger.Info("HTTP server stopped")
	}

	if s.db != nil {
		if err := store.CloseDB(s.db, s.logger); err != nil {
			s.logger.Error("failed to close database", "error", err)
			if shutdownErr != nil {
				shutdownErr = fmt.Errorf("%w; database close error: %w", shutdownErr, err)
			} else {
				shutdownErr = fmt.Errorf("database close error: %w", err)
			}
		}
	}

	if shutdownErr != nil {
		s.logger.Error("tracker server shutdown completed with errors", "error", shutdownErr)
		return shutdownErr
	}

	s.logger.Info("tracker server shutdown completed successfully")
	return nil
}

// setupRoutes configures the HTTP routes.
func (s *Server) setupRoutes(ctx context.Context) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
		s.handleWebSocket(ctx, w, r)
	})

	return mux
}

// handleHealth responds to health checks.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// handleWebSocket upgrades the connection and runs the session until it
// closes. The server context bounds every session's lifetime.
func (s *Server) handleWebSocket(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	client := newClient(s.hub, conn, s.logger)
	client.run(ctx)
}

// checkOrigin enforces the configured origin allowlist.
func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.config.AllowedOrigins) == 0 {
		return true
	}

	origin := r.Header.Get("Origin")
	for _, allowed := range s.config.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}
