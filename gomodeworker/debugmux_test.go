package gomodeworker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/gomode/service"
)

type noopService struct{}

func (noopService) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func doGet(mux *DebugMux, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	mux.server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestDebugMuxHealthzReflectsState(t *testing.T) {
	root := service.New("root", noopService{})
	mux := NewDebugMux("127.0.0.1:0", root, prometheus.NewRegistry())

	// Before Start, root is Init: healthz should report unavailable.
	rec := doGet(mux, "/healthz")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "init", body["state"])

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, root.Start(ctx))
	defer root.Stop(context.Background())

	rec = doGet(mux, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestDebugMuxDebugTreeReportsUnstopped(t *testing.T) {
	root := service.New("root", noopService{})
	mux := NewDebugMux("127.0.0.1:0", root, prometheus.NewRegistry())

	rec := doGet(mux, "/debug/tree")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Node      string   `json:"node"`
		State     string   `json:"state"`
		Unstopped []string `json:"unstopped"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "root", body.Node)
}

func TestDebugMuxMetricsServesExposition(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "probe_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	root := service.New("root", noopService{})
	mux := NewDebugMux("127.0.0.1:0", root, reg)

	rec := doGet(mux, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "probe_total 1")
}
