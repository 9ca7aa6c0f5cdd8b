package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error {
	return p.err
}

func serve(t *testing.T, h http.Handler, path string) (int, string) {
	t.Helper()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	return rec.Code, string(body)
}

func TestOpsRouter_Healthz(t *testing.T) {
	t.Parallel()

	code, body := serve(t, NewOpsRouter(stubPinger{}, prometheus.NewRegistry()), "/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body)
}

func TestOpsRouter_Readyz(t *testing.T) {
	t.Parallel()

	code, _ := serve(t, NewOpsRouter(stubPinger{}, prometheus.NewRegistry()), "/readyz")
	assert.Equal(t, http.StatusOK, code)

	code, _ = serve(t, NewOpsRouter(stubPinger{err: errors.New("connection refused")}, prometheus.NewRegistry()), "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestOpsRouter_Metrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "worklog_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	code, body := serve(t, NewOpsRouter(nil, reg), "/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, strings.Contains(body, "worklog_test_total 1"), body)
}

func TestOpsRouter_UnknownPath(t *testing.T) {
	t.Parallel()

	code, _ := serve(t, NewOpsRouter(nil, prometheus.NewRegistry()), "/debug")
	assert.Equal(t, http.StatusNotFound, code)
}
