package telemetry

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/modelverse/weblab/common/config"
	"github.com/modelverse/weblab/common/logger"
)

// Telemetry holds observability components
type Telemetry struct {
	log           *logger.Logger
	pprofAddr     string
	metricsAddr   string
	enablePprof   bool
	enableMetrics bool
}

// endpoint is one listener Start will launch
type endpoint struct {
	name    string
	addr    string
	handler http.Handler
}

// New creates telemetry components; each listener starts only when its
// config flag enables it
func New(cfg config.TelemetryConfig, log *logger.Logger) *Telemetry {
	return &Telemetry{
		log:           log,
		pprofAddr:     fmt.Sprintf("localhost:%d", cfg.PprofPort),
		metricsAddr:   fmt.Sprintf("localhost:%d", cfg.MetricsPort),
		enablePprof:   cfg.EnablePprof,
		enableMetrics: cfg.EnableMetrics,
	}
}

// endpoints lists the listeners the configuration asks for
func (t *Telemetry) endpoints() []endpoint {
	var out []endpoint

	if t.enablePprof {
		// pprof registers itself on the default mux at import time
		out = append(out, endpoint{name: "pprof", addr: t.pprofAddr, handler: nil})
	}

	if t.enableMetrics {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		out = append(out, endpoint{name: "metrics", addr: t.metricsAddr, handler: mux})
	}

	return out
}

// Start starts the enabled telemetry endpoints
func (t *Telemetry) Start(ctx context.Context) error {
	for _, ep := range t.endpoints() {
		ep := ep
		go func() {
			t.log.Info(ep.name+" server starting", "addr", ep.addr)
			if err := http.ListenAndServe(ep.addr, ep.handler); err != nil {
				t.log.Error(ep.name+" server error", "error", err)
			}
		}()
	}

	return nil
}
