// Package metrics exposes Prometheus collectors for sessions and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dtroode/authkeeper/internal/model"
)

const namespace = "authkeeper"

var _ model.SessionMetrics = (*Sessions)(nil)

// Sessions counts session lifecycle transitions.
type Sessions struct {
	issued  prometheus.Counter
	rotated prometheus.Counter
	reused  prometheus.Counter
	expired prometheus.Counter
}

func NewSessions(reg prometheus.Registerer) *Sessions {
	factory := promauto.With(reg)
	return &Sessions{
		issued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_issued_total",
			Help:      "The total number of issued sessions",
		}),
		rotated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_rotated_total",
			Help:      "The total number of rotated refresh tokens",
		}),
		reused: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_token_reuse_detected_total",
			Help:      "The total number of detected refresh token replays",
		}),
		expired: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_tokens_expired_total",
			Help:      "The total number of expired refresh tokens presented for rotation",
		}),
	}
}

func (m *Sessions) SessionIssued()  { m.issued.Inc() }
func (m *Sessions) SessionRotated() { m.rotated.Inc() }
func (m *Sessions) ReuseDetected()  { m.reused.Inc() }
func (m *Sessions) SessionExpired() { m.expired.Inc() }

// Noop discards session metrics.
type Noop struct{}

func (Noop) SessionIssued()  {}
func (Noop) SessionRotated() {}
func (Noop) ReuseDetected()  {}
func (Noop) SessionExpired() {}

// HTTP records request counts and latencies per route.
type HTTP struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewHTTP(reg prometheus.Registerer) *HTTP {
	factory := promauto.With(reg)
	return &HTTP{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "The total number of HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "The HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Observe records a finished request.
func (m *HTTP) Observe(method, route string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
