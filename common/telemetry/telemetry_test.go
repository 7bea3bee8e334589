package telemetry

import (
	"testing"

	"github.com/modelverse/weblab/common/config"
	"github.com/modelverse/weblab/common/logger"
)

func endpointNames(t *Telemetry) []string {
	eps := t.endpoints()
	names := make([]string, 0, len(eps))
	for _, ep := range eps {
		names = append(names, ep.name)
	}
	return names
}

func TestEndpointsRespectFlags(t *testing.T) {
	log := logger.New("error", "text")

	cases := []struct {
		name    string
		pprof   bool
		metrics bool
		want    []string
	}{
		{"both enabled", true, true, []string{"pprof", "metrics"}},
		{"metrics only", false, true, []string{"metrics"}},
		{"pprof only", true, false, []string{"pprof"}},
		{"both disabled", false, false, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tel := New(config.TelemetryConfig{
				EnablePprof:   tc.pprof,
				PprofPort:     6060,
				EnableMetrics: tc.metrics,
				MetricsPort:   9090,
			}, log)

			got := endpointNames(tel)
			if len(got) != len(tc.want) {
				t.Fatalf("endpoints = %v, want %v", got, tc.want)
			}
			for i := range tc.want {
				if got[i] != tc.want[i] {
					t.Errorf("endpoint[%d] = %q, want %q", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestMetricsEndpointAddr(t *testing.T) {
	log := logger.New("error", "text")
	tel := New(config.TelemetryConfig{EnableMetrics: true, MetricsPort: 9191}, log)

	eps := tel.endpoints()
	if len(eps) != 1 {
		t.Fatalf("expected one endpoint, got %d", len(eps))
	}
	if eps[0].addr != "localhost:9191" {
		t.Errorf("metrics addr = %q, want localhost:9191", eps[0].addr)
	}
	if eps[0].handler == nil {
		t.Error("metrics endpoint should carry its own mux")
	}
}
