package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pcprep/pcprep-api/internal/domain"
)

const namespace = "pcprep"

// Metrics owns a private registry carrying the Go and process collectors plus
// the application counters.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	Verifications   *prometheus.CounterVec
	ParentLoads     *prometheus.CounterVec
	LoginBlocked    prometheus.Counter
	LiveSubscribers prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"method", "route", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		Verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_total",
			Help:      "Ledger entries appended, by source and status.",
		}, []string{"source", "status"}),
		ParentLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parent_load_attempts_total",
			Help:      "Kit load state changes, by result.",
		}, []string{"result"}),
		LoginBlocked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_blocked_total",
			Help:      "Login attempts refused by the rate limiter.",
		}),
		LiveSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_subscribers",
			Help:      "Connected websocket subscribers.",
		}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequests,
		m.HTTPDuration,
		m.Verifications,
		m.ParentLoads,
		m.LoginBlocked,
		m.LiveSubscribers,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

func (m *Metrics) ObserveHTTP(method, route string, code int, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveVerification(source domain.VerificationSource, status domain.VerificationStatus) {
	m.Verifications.WithLabelValues(string(source), string(status)).Inc()
}

func (m *Metrics) ObserveParentLoad(result string) {
	m.ParentLoads.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveLoginBlocked() {
	m.LoginBlocked.Inc()
}

func (m *Metrics) SubscriberJoined() {
	m.LiveSubscribers.Inc()
}

func (m *Metrics) SubscriberLeft() {
	m.LiveSubscribers.Dec()
}
