package gomodeworker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/tomtom215/gomode/service"
)

// DebugMux is a small chi-routed HTTP server exposing three read-only
// endpoints alongside a supervised tree: /healthz (root state),
// /metrics (Prometheus exposition), and /debug/tree (the names of any
// member that hasn't reached Shutdown). It is itself plain net/http
// wrapped for the supervised-start/stop shape Worker expects -- it is not
// a service.Base member, since a debug mux that crashed would otherwise
// take the whole tree down with it.
type DebugMux struct {
	root   *service.Base
	server *http.Server
}

// NewDebugMux builds a DebugMux bound to addr, reporting on root. Pass a
// nil gatherer to use prometheus.DefaultGatherer.
func NewDebugMux(addr string, root *service.Base, gatherer prometheus.Gatherer) *DebugMux {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	limiter := newPerIPLimiter(rate.Limit(5), 10)

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)

	r.Get("/healthz", healthzHandler(root))
	r.With(rateLimitMiddleware(limiter)).Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.With(rateLimitMiddleware(limiter)).Get("/debug/tree", debugTreeHandler(root))

	return &DebugMux{
		root:   root,
		server: &http.Server{Addr: addr, Handler: r},
	}
}

func healthzHandler(root *service.Base) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		state := root.State()
		status := http.StatusOK
		if state != service.Running {
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"node":  root.Name(),
			"state": state.String(),
		})
	}
}

func debugTreeHandler(root *service.Base) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		unstopped := root.UnstoppedReport()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"node":      root.Name(),
			"state":     root.State().String(),
			"unstopped": unstopped,
		})
	}
}

// Start begins serving in the background. A listen failure that occurs
// within the first 50ms is returned to the caller; one that occurs later
// is dropped -- the debug mux is diagnostic tooling, not something worth
// crashing the tree over.
func (m *DebugMux) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- m.server.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-time.After(50 * time.Millisecond):
		return nil
	}
}

// Stop shuts the mux down gracefully within ctx's deadline.
func (m *DebugMux) Stop(ctx context.Context) error {
	return m.server.Shutdown(ctx)
}
