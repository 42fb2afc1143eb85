package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type apiMetrics struct {
	reg             *prometheus.Registry
	discoveryRuns   prometheus.Counter
	poolsDiscovered prometheus.Gauge
	planRequests    *prometheus.CounterVec
}

func newAPIMetrics() *apiMetrics {
	m := &apiMetrics{reg: prometheus.NewRegistry()}
	m.discoveryRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zforge_discovery_runs_total",
		Help: "Completed pool discovery passes.",
	})
	m.poolsDiscovered = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "zforge_pools_discovered",
		Help: "Pools found by the most recent discovery pass.",
	})
	m.planRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zforge_plan_requests_total",
		Help: "Selection validation requests by outcome.",
	}, []string{"outcome"})
	m.reg.MustRegister(m.discoveryRuns, m.poolsDiscovered, m.planRequests)
	return m
}

func (m *apiMetrics) handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
