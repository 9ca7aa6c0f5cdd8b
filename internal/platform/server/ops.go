package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	readinessTimeout = 2 * time.Second
	shutdownTimeout  = 5 * time.Second
)

// Pinger は readiness 判定に使う依存先です。*pgxpool.Pool が満たします。
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewOpsRouter は /healthz, /readyz, /metrics を提供するルーターを生成します。
func NewOpsRouter(pinger Pinger, gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		if pinger != nil {
			ctx, cancel := context.WithTimeout(req.Context(), readinessTimeout)
			defer cancel()
			if err := pinger.Ping(ctx); err != nil {
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return r
}

// OpsServer はヘルスチェックとメトリクス用の HTTP サーバーです。
type OpsServer struct {
	httpServer *http.Server
}

// NewOpsServer は OpsServer を生成します。
func NewOpsServer(listenAddr string, h http.Handler) *OpsServer {
	return &OpsServer{httpServer: &http.Server{
		Addr:              listenAddr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

// Run はサーバーを起動し、コンテキストがキャンセルされると Shutdown します。
func (s *OpsServer) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve ops http: %w", err)
	}
	return nil
}
