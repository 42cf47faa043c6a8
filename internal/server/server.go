package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"crypto_dash/internal/domain"
	"crypto_dash/internal/infra"
	"crypto_dash/internal/service"

	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 10 * time.Second

// Backend is the dashboard as seen by the Presentation Layer.
type Backend interface {
	View() service.View
	Scroll(sig domain.ScrollSignal) bool
	Refresh() uint64
	Trend(ctx context.Context, id string) (domain.Trend, error)
	Icon(id string) (path, imageRef string, ok bool)
	Subscribe(fn func(service.Change))
}

// Server exposes the view-model over HTTP and pushes every new version to
// connected browsers.
type Server struct {
	addr       string
	backend    Backend
	hub        *Hub
	metrics    *infra.Metrics
	router     *gin.Engine
	httpServer *http.Server
	logger     *slog.Logger

	notify   chan struct{}
	kindMu   sync.Mutex
	lastKind string
	wg       sync.WaitGroup
}

// New builds the router and subscribes to backend changes.
func New(addr string, backend Backend, metrics *infra.Metrics) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		addr:    addr,
		backend: backend,
		hub:     NewHub(metrics),
		metrics: metrics,
		router:  gin.New(),
		logger:  slog.Default().With("module", "server"),
		notify:  make(chan struct{}, 1),
	}
	s.setupMiddleware()
	s.setupRoutes()

	backend.Subscribe(s.onChange)
	return s
}

// Handler returns the HTTP handler (for tests and custom listeners).
func (s *Server) Handler() http.Handler {
	return s.router
}

// Hub returns the browser connection hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start runs the push broadcaster until ctx ends.
func (s *Server) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.broadcastLoop(ctx)
}

// Run starts the broadcaster and serves HTTP until ctx ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.Start(ctx)

	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", slog.String("addr", s.addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	s.logger.Info("Shutdown signal received, shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.hub.CloseAll()
	err := s.httpServer.Shutdown(shutdownCtx)
	s.wg.Wait()

	s.logger.Info("Server exited gracefully")
	return err
}

// onChange runs on the engine loop goroutine; it only flags that a push is due.
// Bursts of changes coalesce into one push of the latest version.
func (s *Server) onChange(ch service.Change) {
	s.kindMu.Lock()
	s.lastKind = ch.Kind
	s.kindMu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Server) broadcastLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.notify:
			if s.hub.Count() == 0 {
				continue
			}
			s.kindMu.Lock()
			kind := s.lastKind
			s.kindMu.Unlock()

			msg, err := s.viewMessage(kind)
			if err != nil {
				s.logger.Error("Failed to marshal view", slog.Any("error", err))
				continue
			}
			s.hub.Broadcast(msg)
		}
	}
}

func (s *Server) viewMessage(kind string) ([]byte, error) {
	return json.Marshal(NewViewResponse(s.backend.View(), kind))
}
