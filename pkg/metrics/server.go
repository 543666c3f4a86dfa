package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Koplal/tai-discord-bot/pkg/logx"
	"github.com/Koplal/tai-discord-bot/pkg/version"
)

const shutdownGrace = 5 * time.Second

// Server exposes the Prometheus scrape endpoint and a health check.
type Server struct {
	srv    *http.Server
	logger *logx.Logger
}

// NewServer creates the observability HTTP server on the given listen
// address.
func NewServer(listen string, logger *logx.Logger) *Server {
	if logger == nil {
		logger = logx.NewLogger("metrics")
	}

	s := &Server{logger: logger}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", s.handleHealth)
	s.srv = &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start begins serving in the background and shuts the server down when
// ctx is canceled.
func (s *Server) Start(ctx context.Context) {
	s.logger.Info("observability endpoint listening on %s", s.srv.Addr)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server error: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		// The parent context is already done, so shutdown gets its own
		// deadline.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace) //nolint:contextcheck
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("metrics server shutdown: %v", err)
		}
	}()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	response := map[string]string{
		"status":  "ok",
		"version": version.Version,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error("failed to encode health response: %v", err)
	}
}
