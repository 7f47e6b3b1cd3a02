// Package health serves the liveness endpoint hosting platforms probe, plus
// the Prometheus scrape endpoint.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"dex-sniper/internal/infra/log"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Server struct {
	router *mux.Router
	status *Status
	now    func() time.Time
	port   int
}

func NewServer(port int, status *Status, gatherer prometheus.Gatherer) *Server {
	s := &Server{
		router: mux.NewRouter(),
		status: status,
		now:    time.Now,
		port:   port,
	}

	s.router.HandleFunc("/", s.handleRoot).Methods(http.MethodGet, http.MethodHead)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Sniper bot is running\n"))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.status.Snapshot(s.now())); err != nil {
		log.LogWarn("Failed to encode health response", zap.Error(err))
	}
}

// Start binds the port and serves until ctx is cancelled. A bind failure is
// returned before Start spawns anything.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to bind port %d: %w", s.port, err)
	}

	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	go func() {
		log.LogInfo("Liveness server listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.LogError("Liveness server stopped", zap.Error(err))
		}
	}()
	return nil
}
