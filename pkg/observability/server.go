package observability

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/kevin07696/billing-service/internal/domain/ports"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsDrainTimeout = 5 * time.Second

// MetricsServer exposes Prometheus metrics next to the liveness and readiness
// endpoints the orchestrator polls. Readiness drops before the listener closes
// so load balancers stop routing while in-flight scrapes finish.
type MetricsServer struct {
	srv    *http.Server
	health *HealthChecker
	logger ports.Logger
	ready  atomic.Bool
}

func NewMetricsServer(addr string, health *HealthChecker, logger ports.Logger) *MetricsServer {
	m := &MetricsServer{health: health, logger: logger}
	m.srv = &http.Server{
		Addr:              addr,
		Handler:           m.Handler(),
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}
	return m
}

func (m *MetricsServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	if m.health != nil {
		mux.Handle("GET /health", m.health.HealthHandler())
	}
	mux.HandleFunc("GET /ready", m.serveReady)
	return mux
}

func (m *MetricsServer) serveReady(w http.ResponseWriter, _ *http.Request) {
	if !m.ready.Load() {
		http.Error(w, "draining", http.StatusServiceUnavailable)
		return
	}
	_, _ = w.Write([]byte("ready"))
}

// Start binds the listener synchronously so a taken port fails startup
// instead of surfacing later from a goroutine.
func (m *MetricsServer) Start() error {
	ln, err := net.Listen("tcp", m.srv.Addr)
	if err != nil {
		return err
	}
	m.ready.Store(true)
	m.logger.Info("Metrics server listening", ports.String("addr", ln.Addr().String()))

	go func() {
		if err := m.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("Metrics server stopped", ports.Err(err))
		}
	}()
	return nil
}

func (m *MetricsServer) Shutdown(ctx context.Context) error {
	m.ready.Store(false)
	ctx, cancel := context.WithTimeout(ctx, metricsDrainTimeout)
	defer cancel()
	return m.srv.Shutdown(ctx)
}
