// Package metrics exposes the service counters to Prometheus.
package metrics

import (
	"strconv"
	"time"

	"estatehub/internal/services/credit"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "estatehub"

// Metrics owns a private registry and implements the collector interfaces
// of the credit, interest and notification services.
type Metrics struct {
	Registry *prometheus.Registry

	httpInFlight prometheus.Gauge
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	settlements  *prometheus.CounterVec
	purchases    *prometheus.CounterVec
	gatewayCalls *prometheus.HistogramVec
	reconciled   *prometheus.CounterVec

	unlocks   *prometheus.CounterVec
	interests *prometheus.CounterVec

	notificationsQueued    *prometheus.CounterVec
	notificationsDropped   *prometheus.CounterVec
	notificationsDelivered *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),

		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}, []string{"method", "route"}),

		settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "credits",
			Name:      "settlements_total",
			Help:      "Settlement attempts by entry point and outcome.",
		}, []string{"source", "outcome"}),
		purchases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "credits",
			Name:      "purchases_total",
			Help:      "Purchase initializations by gateway and result.",
		}, []string{"gateway", "result"}),
		gatewayCalls: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "payment",
			Name:      "gateway_call_duration_seconds",
			Help:      "Duration of payment provider calls.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 9),
		}, []string{"gateway", "operation", "success"}),
		reconciled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "credits",
			Name:      "reconciled_total",
			Help:      "Pending purchases handled by the reconciler by result.",
		}, []string{"result"}),

		unlocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "interests",
			Name:      "unlocks_total",
			Help:      "Interest unlock attempts by result.",
		}, []string{"result"}),
		interests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "interests",
			Name:      "created_total",
			Help:      "Interest registrations by result.",
		}, []string{"result"}),

		notificationsQueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "queued_total",
			Help:      "Notifications accepted by the dispatcher.",
		}, []string{"type"}),
		notificationsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "dropped_total",
			Help:      "Notifications dropped because the queue was full or closed.",
		}, []string{"type"}),
		notificationsDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "processed_total",
			Help:      "Notifications processed by the workers by final state.",
		}, []string{"type", "result"}),
	}

	m.Registry.MustRegister(
		m.httpInFlight, m.httpRequests, m.httpDuration,
		m.settlements, m.purchases, m.gatewayCalls, m.reconciled,
		m.unlocks, m.interests,
		m.notificationsQueued, m.notificationsDropped, m.notificationsDelivered,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return m
}

// GaugeFunc registers a gauge read from fn at scrape time.
func (m *Metrics) GaugeFunc(subsystem, name, help string, fn func() float64) {
	m.Registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	}, fn))
}

// Handler serves the registry on a fiber route.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
}

// Middleware records request counts and latency per matched route.
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Path() == "/metrics" {
			return c.Next()
		}
		start := time.Now()
		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		route := "unmatched"
		if r := c.Route(); r != nil && r.Path != "" && r.Path != "/" {
			route = r.Path
		}
		m.httpRequests.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

func (m *Metrics) RecordSettlement(source, outcome string) {
	m.settlements.WithLabelValues(source, outcome).Inc()
}

func (m *Metrics) RecordPurchase(gateway, result string) {
	m.purchases.WithLabelValues(gateway, result).Inc()
}

func (m *Metrics) RecordGatewayCall(gateway, operation string, d time.Duration, err error) {
	m.gatewayCalls.WithLabelValues(gateway, operation, strconv.FormatBool(err == nil)).Observe(d.Seconds())
}

func (m *Metrics) RecordReconcile(report *credit.ReconcileReport) {
	if report == nil {
		return
	}
	m.reconciled.WithLabelValues("settled").Add(float64(report.Settled))
	m.reconciled.WithLabelValues("failed").Add(float64(report.Failed))
	m.reconciled.WithLabelValues("expired").Add(float64(report.Expired))
	m.reconciled.WithLabelValues("pending").Add(float64(report.Pending))
}

func (m *Metrics) RecordUnlock(result string) {
	m.unlocks.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordInterest(result string) {
	m.interests.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordEnqueued(kind string) {
	m.notificationsQueued.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordDropped(kind string) {
	m.notificationsDropped.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordDelivery(kind, result string) {
	m.notificationsDelivered.WithLabelValues(kind, result).Inc()
}
