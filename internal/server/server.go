package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/barflysocial/bar-match-relay/internal/config"
	"github.com/barflysocial/bar-match-relay/internal/metrics"
	"github.com/barflysocial/bar-match-relay/internal/relay"
)

// Server is the relay's HTTP listener.
type Server struct {
	cfg  *config.Config
	log  *slog.Logger
	http *http.Server
}

// New builds a server around an existing hub.
func New(cfg *config.Config, hub *relay.Hub, m *metrics.Metrics, logger *slog.Logger) *Server {
	return &Server{
		cfg: cfg,
		log: logger,
		http: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           NewRouter(cfg, hub, m, logger),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Run listens on the configured port until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts the
// HTTP server down within the configured timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.Info("server listening", "addr", ln.Addr().String())
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		s.log.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
