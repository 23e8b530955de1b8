package app

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metrics bundles the Prometheus instrumentation of the viewer server. Each
// server owns its own registry so tests can run instances side by side.
type metrics struct {
	registry *prometheus.Registry

	Requests           *prometheus.CounterVec
	CatalogFrames      prometheus.Gauge
	SitesRefreshes     prometheus.Counter
	SitesRefreshErrors prometheus.Counter
}

func newMetrics() *metrics {
	m := metrics{
		registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "viewer_requests_total",
			Help: "Total number of handled HTTP requests, labeled by route.",
		}, []string{"route"}),
		CatalogFrames: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "viewer_catalog_frames",
			Help: "Number of frames currently indexed in the catalog.",
		}),
		SitesRefreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "viewer_sites_refreshes_total",
			Help: "Total number of site marker refresh attempts.",
		}),
		SitesRefreshErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "viewer_sites_refresh_errors_total",
			Help: "Total number of failed site marker refreshes.",
		}),
	}

	m.registry.MustRegister(m.Requests, m.CatalogFrames, m.SitesRefreshes, m.SitesRefreshErrors)
	return &m
}

// Handler exposes a ready-to-use /metrics handler.
func (m *metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
