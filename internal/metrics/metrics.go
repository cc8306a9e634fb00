package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	FetchRequests   *prometheus.CounterVec
	FetchDuration   *prometheus.HistogramVec
	HTTPRequests    *prometheus.CounterVec
	Commands        *prometheus.CounterVec
	CacheLookups    *prometheus.CounterVec
	ArchivedRaces   *prometheus.CounterVec
	LiveSubscribers prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		FetchRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keiba_fetch_requests_total",
				Help: "Upstream page fetches by host and outcome",
			},
			[]string{"host", "outcome"},
		),
		FetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "keiba_fetch_duration_seconds",
				Help:    "Upstream page fetch latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"host"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keiba_http_requests_total",
				Help: "API requests by route and status code",
			},
			[]string{"route", "status"},
		),
		Commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keiba_chat_commands_total",
				Help: "Chat commands executed by name and transport",
			},
			[]string{"command", "source"},
		),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keiba_cache_lookups_total",
				Help: "Race cache lookups by product and result",
			},
			[]string{"product", "result"},
		),
		ArchivedRaces: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keiba_archived_races_total",
				Help: "Races written to the archive by outcome",
			},
			[]string{"outcome"},
		),
		LiveSubscribers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "keiba_live_odds_subscribers",
				Help: "Open live-odds websocket connections",
			},
		),
	}

	m.registry.MustRegister(m.FetchRequests, m.FetchDuration, m.HTTPRequests)
	m.registry.MustRegister(m.Commands, m.CacheLookups, m.ArchivedRaces, m.LiveSubscribers)
	m.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
