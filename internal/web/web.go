// Package web serves run status over HTTP for scheduled deployments:
// /health for liveness and /api/summary for the last run's outcome.
package web

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"sync"

	"rostersync/internal/config"
	appLog "rostersync/internal/log"
	rsync "rostersync/internal/sync"
)

// Server exposes the last run summary. It holds no other state; the
// sync loop publishes a fresh summary after every run.
type Server struct {
	cfg *config.Config
	mux *http.ServeMux

	mu   sync.RWMutex
	last *rsync.Summary
}

// NewServer constructs a Server for the given config.
func NewServer(cfg *config.Config) *Server {
	s := &Server{cfg: cfg, mux: http.NewServeMux()}
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/summary", s.handleSummary)
	return s
}

// Publish records the most recent run summary.
func (s *Server) Publish(sum *rsync.Summary) {
	s.mu.Lock()
	s.last = sum
	s.mu.Unlock()
}

// Handler returns the HTTP handler, wrapped in basic auth when
// configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.cfg.BasicAuth != nil && s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != "" {
		appLog.Info("status server basic auth enabled", "listen", s.cfg.Listen)
		return s.basicAuth(h)
	}
	return h
}

// basicAuth protects everything except /health.
func (s *Server) basicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, s.cfg.BasicAuth.Username) || !secureCompare(p, s.cfg.BasicAuth.Password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="rostersync", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.RLock()
	last := s.last
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	if last == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := json.NewEncoder(w).Encode(last); err != nil {
		appLog.Error("summary encode failed", err)
	}
}

func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
