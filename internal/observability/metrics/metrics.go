package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every prometheus collector the storefront exposes.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	OrderTransitions *prometheus.CounterVec
	WebhookEvents    *prometheus.CounterVec
	SweeperRuns      *prometheus.CounterVec
	SweeperDuration  prometheus.Histogram
	EntitlementGrant *prometheus.CounterVec
	OrdersInFailure  *prometheus.GaugeVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storefront_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		OrderTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_order_transitions_total",
			Help: "Order status transitions by target status.",
		}, []string{"to_status"}),
		WebhookEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_webhook_events_total",
			Help: "Payment webhook deliveries by outcome.",
		}, []string{"outcome"}),
		SweeperRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_sweeper_runs_total",
			Help: "Reconciliation sweeps by result.",
		}, []string{"result"}),
		SweeperDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "storefront_sweeper_duration_seconds",
			Help:    "Duration of a full reconciliation sweep.",
			Buckets: prometheus.DefBuckets,
		}),
		EntitlementGrant: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_entitlement_grants_total",
			Help: "Entitlement grant attempts by result.",
		}, []string{"result"}),
		OrdersInFailure: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "storefront_orders_in_failure_state",
			Help: "Orders currently parked in a failure status.",
		}, []string{"status"}),
	}
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// GinMiddleware records request counts and latency per route.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method

		m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}
