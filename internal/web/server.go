// Package web serves the dashboard, the JSON API, and Prometheus metrics on
// top of the poll cache. Handlers only ever read snapshots; nothing here
// triggers a poll.
package web

import (
	"context"
	"embed"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gpuwatch/internal/logger"
	"gpuwatch/internal/poll"
)

//go:embed static
var staticFS embed.FS

// Server is the HTTP face of gpuwatch.
type Server struct {
	cache    *poll.Cache
	hosts    []string
	interval time.Duration
	log      logger.Logger
	srv      *http.Server
}

// New creates a server bound to addr, reading from cache. hosts is the
// configured alias list in display order; interval feeds the staleness
// computation.
func New(addr string, hosts []string, interval time.Duration, cache *poll.Cache, log logger.Logger) *Server {
	if log == nil {
		log = logger.Noop()
	}

	s := &Server{
		cache:    cache,
		hosts:    hosts,
		interval: interval,
		log:      log,
	}

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Router builds the route table. Exposed for handler tests.
func (s *Server) Router() *mux.Router {
	registry := prometheus.NewRegistry()
	registry.MustRegister(NewClusterCollector(s.cache, s.hosts, s.interval))

	r := mux.NewRouter()
	r.HandleFunc("/api/hosts", s.handleHosts).Methods(http.MethodGet)
	r.HandleFunc("/api/summary", s.handleSummary).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("dashboard listening on http://%s", s.srv.Addr)
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		http.Error(w, "dashboard page missing", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}
