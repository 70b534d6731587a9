package api

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ZentaChain/lcdrelay/pkg/network"
)

const metricsNamespace = "lcdrelay"

// registryCollector exports registry counters at scrape time
type registryCollector struct {
	registry *network.Registry

	accepted   *prometheus.Desc
	active     *prometheus.Desc
	routed     *prometheus.Desc
	dropped    *prometheus.Desc
	violations *prometheus.Desc
}

func newRegistryCollector(registry *network.Registry) *registryCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(metricsNamespace, "", name), help, nil, nil)
	}
	return &registryCollector{
		registry:   registry,
		accepted:   desc("sessions_accepted_total", "Terminal sessions accepted since start."),
		active:     desc("sessions_active", "Terminal sessions currently in the roster."),
		routed:     desc("messages_routed_total", "Messages forwarded to a connected receiver."),
		dropped:    desc("messages_dropped_total", "Messages dropped because the receiver was not connected."),
		violations: desc("protocol_violations_total", "INIT or ROSTER envelopes sent by terminals."),
	}
}

func (c *registryCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.accepted
	ch <- c.active
	ch <- c.routed
	ch <- c.dropped
	ch <- c.violations
}

func (c *registryCollector) Collect(ch chan<- prometheus.Metric) {
	stats := c.registry.Stats()
	ch <- prometheus.MustNewConstMetric(c.accepted, prometheus.CounterValue, float64(stats.Accepted))
	ch <- prometheus.MustNewConstMetric(c.active, prometheus.GaugeValue, float64(stats.Active))
	ch <- prometheus.MustNewConstMetric(c.routed, prometheus.CounterValue, float64(stats.Routed))
	ch <- prometheus.MustNewConstMetric(c.dropped, prometheus.CounterValue, float64(stats.Dropped))
	ch <- prometheus.MustNewConstMetric(c.violations, prometheus.CounterValue, float64(stats.Violations))
}

// newMetrics builds a private prometheus registry so several servers can
// live in one process (tests do this).
func newMetrics(registry *network.Registry) (*prometheus.Registry, *prometheus.CounterVec) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(newRegistryCollector(registry))

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "http_requests_total",
		Help:      "HTTP API requests by route and status.",
	}, []string{"method", "route", "code"})
	reg.MustRegister(requests)

	return reg, requests
}

// MetricsMiddleware counts requests by matched route
func MetricsMiddleware(requests *prometheus.CounterVec) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

func metricsHandler(reg *prometheus.Registry) gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
}
