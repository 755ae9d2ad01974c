// Package server runs the cross-origin isolated static file server.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/f4ah6o/coiserve/internal/accesslog"
	"github.com/f4ah6o/coiserve/internal/config"
	"github.com/f4ah6o/coiserve/internal/fileserver"
	"github.com/f4ah6o/coiserve/internal/isolation"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Server serves cfg.Root on the configured loopback address.
type Server struct {
	cfg       *config.Config
	accessLog io.Writer
	listener  net.Listener
	http      *http.Server
}

// Option customizes a Server.
type Option func(*Server)

// WithAccessLog sets the destination of the per-request log. The default is
// standard error.
func WithAccessLog(w io.Writer) Option {
	return func(s *Server) {
		s.accessLog = w
	}
}

// New creates a Server for cfg. It does not bind until Listen is called.
func New(cfg *config.Config, opts ...Option) *Server {
	s := &Server{
		cfg:       cfg,
		accessLog: os.Stderr,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.http = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s
}

// Handler returns the full handler chain: access logging around header
// injection around static file serving.
func (s *Server) Handler() http.Handler {
	files := fileserver.New(s.cfg.Root)
	return accesslog.New(s.accessLog).Wrap(isolation.Wrap(files))
}

// Listen binds the TCP listener. Connections accepted from it add the
// isolation headers to error replies that net/http writes without a handler.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr(), err)
	}
	s.listener = isolation.Listener(ln)
	return nil
}

// Addr returns the bound address, or nil before Listen succeeds.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// URL returns the base URL clients use to reach the server.
func (s *Server) URL() string {
	if addr := s.Addr(); addr != nil {
		return "http://" + addr.String()
	}
	return "http://" + s.cfg.Addr()
}

// Serve accepts connections until ctx is cancelled, then shuts down
// gracefully. It returns nil after a clean shutdown.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		return errors.New("server: Serve called before Listen")
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.Serve(s.listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown did not complete cleanly: %v", err)
		s.http.Close()
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
