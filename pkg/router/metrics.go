package router

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Selection outcomes recorded by Metrics.
const (
	outcomeMatched  = "matched"
	outcomeNoMatch  = "no_match"
	outcomeError    = "error"
	outcomeRedirect = "redirect"
)

// Metrics are the Prometheus collectors of a Matcher and Router.
type Metrics struct {
	cacheHits     prometheus.Counter
	cacheMisses   prometheus.Counter
	cacheSize     prometheus.Gauge
	compileErrors prometheus.Counter
	selections    *prometheus.CounterVec
	redirects     prometheus.Counter
}

// NewMetrics registers the router collectors under namespace on reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "vroute"
	}
	factory := promauto.With(reg)

	return &Metrics{
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "pattern_cache_hits_total",
			Help:      "Total number of compiled pattern cache hits",
		}),
		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "pattern_cache_misses_total",
			Help:      "Total number of compiled pattern cache misses",
		}),
		cacheSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "pattern_cache_size",
			Help:      "Current number of entries in the compiled pattern cache",
		}),
		compileErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "pattern_compile_errors_total",
			Help:      "Total number of patterns rejected by the compiler",
		}),
		selections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "selections_total",
			Help:      "Total number of route selections by outcome",
		}, []string{"outcome"}),
		redirects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "redirects_total",
			Help:      "Total number of redirects issued by the navigation router",
		}),
	}
}

func (m *Metrics) observeCache(hit bool, size int) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
		return
	}
	m.cacheMisses.Inc()
	m.cacheSize.Set(float64(size))
}

func (m *Metrics) observeCompileError() {
	if m == nil {
		return
	}
	m.compileErrors.Inc()
}

func (m *Metrics) observeSelection(outcome string) {
	if m == nil {
		return
	}
	m.selections.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeRedirect() {
	if m == nil {
		return
	}
	m.redirects.Inc()
	m.selections.WithLabelValues(outcomeRedirect).Inc()
}
