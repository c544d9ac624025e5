// Package server runs the API over HTTP with graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Server wraps http.Server with shutdown hooks
type Server struct {
	httpServer *http.Server
	config     *Config
	logger     *zap.Logger

	mu        sync.Mutex
	listener  net.Listener
	hooks     []ShutdownHook
	listening chan struct{}
}

// ShutdownHook is called after the HTTP server has stopped
type ShutdownHook func(ctx context.Context) error

// Config holds server configuration
type Config struct {
	// Address is the listen address, e.g. "localhost:3000"
	Address string

	// Handler is the HTTP handler for the server
	Handler http.Handler

	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration

	MaxHeaderBytes int
}

// DefaultConfig returns a production-ready server configuration
func DefaultConfig(handler http.Handler) *Config {
	return &Config{
		Address:           ":3000",
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		ShutdownTimeout:   10 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
	}
}

// New creates a server
func New(config *Config, logger *zap.Logger) (*Server, error) {
	if config == nil {
		return nil, fmt.Errorf("server config cannot be nil")
	}
	if config.Handler == nil {
		return nil, fmt.Errorf("handler cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Server{
		httpServer: &http.Server{
			Addr:              config.Address,
			Handler:           config.Handler,
			ReadTimeout:       config.ReadTimeout,
			WriteTimeout:      config.WriteTimeout,
			IdleTimeout:       config.IdleTimeout,
			ReadHeaderTimeout: config.ReadHeaderTimeout,
			MaxHeaderBytes:    config.MaxHeaderBytes,
			ErrorLog:          zap.NewStdLog(logger),
		},
		config:    config,
		logger:    logger,
		listening: make(chan struct{}),
	}, nil
}

// RegisterHook registers a hook to run during shutdown
func (s *Server) RegisterHook(hook ShutdownHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, hook)
}

// Run serves until ctx is canceled, then shuts down gracefully and runs the hooks.
// It returns nil after a clean shutdown.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	close(s.listening)

	s.logger.Info("server listening", zap.String("addr", listener.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	return s.shutdown()
}

func (s *Server) shutdown() error {
	s.logger.Info("shutting down", zap.Duration("timeout", s.config.ShutdownTimeout))

	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown: %w", err))
	}

	s.mu.Lock()
	hooks := make([]ShutdownHook, len(s.hooks))
	copy(hooks, s.hooks)
	s.mu.Unlock()

	for i, hook := range hooks {
		if err := hook(ctx); err != nil {
			s.logger.Warn("shutdown hook failed", zap.Int("hook", i), zap.Error(err))
			errs = append(errs, err)
		}
	}

	if len(errs) == 0 {
		s.logger.Info("shutdown complete")
	}
	return errors.Join(errs...)
}

// Addr returns the bound address once Run is listening, else the configured one
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Address
}

// Listening is closed once Run has bound its listener
func (s *Server) Listening() <-chan struct{} {
	return s.listening
}
