package metrics

import (
	"strings"
	"time"

	"github.com/plugwise/p1-legacy/internal/core/domain"
	"github.com/plugwise/p1-legacy/pkg/smile_p1"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "p1legacy"

const (
	REFRESH_FETCHED   = "fetched"
	REFRESH_THROTTLED = "throttled"
	REFRESH_FAILED    = "failed"
	RESOLVE_OK        = "ok"
	RESOLVE_ERROR     = "error"
	// key label of every measurement outside the catalog
	KEY_UNKNOWN = "unknown"
)

type Metrics struct {
	GatewayLatency *prometheus.HistogramVec
	Refreshes      *prometheus.CounterVec
	Resolutions    *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		GatewayLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_request_duration_seconds",
			Help:      "Duration of requests to the Smile P1 gateway.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_refresh_total",
			Help:      "Meter data cache refresh calls by outcome.",
		}, []string{"result"}),
		Resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reading_resolve_total",
			Help:      "Measurement resolutions by catalog key and outcome.",
		}, []string{"key", "result"}),
	}
	if reg != nil {
		reg.MustRegister(m.GatewayLatency, m.Refreshes, m.Resolutions)
	}
	return m
}

// ReaderInstrument feeds gateway request timings into GatewayLatency.
func (m *Metrics) ReaderInstrument() *smile_p1.ReaderInstrument {
	return &smile_p1.ReaderInstrument{
		RecordTime: func(fnName string, readTime time.Duration) {
			method, _, _ := strings.Cut(fnName, "/")
			m.GatewayLatency.WithLabelValues(method).Observe(readTime.Seconds())
		},
	}
}

func (m *Metrics) RefreshResult(result string) {
	if m == nil {
		return
	}
	m.Refreshes.WithLabelValues(result).Inc()
}

func (m *Metrics) ResolveResult(key string, err error) {
	if m == nil {
		return
	}
	result := RESOLVE_OK
	if err != nil {
		result = RESOLVE_ERROR
	}
	if !domain.IsKnownMeasurement(key) {
		key = KEY_UNKNOWN
	}
	m.Resolutions.WithLabelValues(key, result).Inc()
}
