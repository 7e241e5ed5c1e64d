package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestMetricsExposition(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveFetch("live", "ok", 300*time.Millisecond)
	m.ObserveFetch("fallback", "timeout", 20*time.Second)
	m.ObserveRefresh(4*time.Second, nil)
	m.ObserveRefresh(time.Second, errors.New("canceled"))
	m.SetOpportunities(map[string]int{"seasonal": 3, "realtime": 2})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	text := string(body)

	for _, want := range []string{
		`rateintel_collector_observations_total{outcome="fallback",reason="timeout"} 1`,
		`rateintel_collector_observations_total{outcome="live",reason="ok"} 1`,
		`rateintel_pipeline_refresh_errors_total 1`,
		`rateintel_detector_opportunities{origin="seasonal"} 3`,
		`rateintel_pipeline_refresh_duration_seconds_count 1`,
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("指标输出缺少 %q:\n%s", want, text)
		}
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveFetch("live", "ok", time.Second)
	m.ObserveRefresh(time.Second, nil)
	m.SetOpportunities(map[string]int{"seasonal": 1})
}
