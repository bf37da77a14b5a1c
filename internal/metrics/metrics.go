// ABOUTME: Prometheus counters for authentication, passcode reset and moderation outcomes
// ABOUTME: A nil *Metrics is valid and records nothing

package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	AuthAttemptsTotal     *prometheus.CounterVec
	PasscodeRequestsTotal *prometheus.CounterVec
	PasscodeVerifiesTotal *prometheus.CounterVec
	ModerationApprovals   *prometheus.CounterVec
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
}

// New creates and registers all metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		AuthAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "socialcore_auth_attempts_total",
				Help: "Signup and login attempts by method and outcome",
			},
			[]string{"operation", "outcome"},
		),
		PasscodeRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "socialcore_passcode_requests_total",
				Help: "Passcode reset requests by outcome",
			},
			[]string{"outcome"},
		),
		PasscodeVerifiesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "socialcore_passcode_verifications_total",
				Help: "Passcode verifications by outcome",
			},
			[]string{"outcome"},
		),
		ModerationApprovals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "socialcore_comment_approvals_total",
				Help: "Comment approvals by source and outcome",
			},
			[]string{"source", "outcome"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "socialcore_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "socialcore_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	reg.MustRegister(
		m.AuthAttemptsTotal,
		m.PasscodeRequestsTotal,
		m.PasscodeVerifiesTotal,
		m.ModerationApprovals,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)
	return m
}

// Auth records one signup or login attempt.
func (m *Metrics) Auth(operation, outcome string) {
	if m == nil {
		return
	}
	m.AuthAttemptsTotal.WithLabelValues(operation, outcome).Inc()
}

// PasscodeRequest records one reset request.
func (m *Metrics) PasscodeRequest(outcome string) {
	if m == nil {
		return
	}
	m.PasscodeRequestsTotal.WithLabelValues(outcome).Inc()
}

// PasscodeVerify records one verification attempt.
func (m *Metrics) PasscodeVerify(outcome string) {
	if m == nil {
		return
	}
	m.PasscodeVerifiesTotal.WithLabelValues(outcome).Inc()
}

// Approval records count approvals from source ("single" or "bulk").
func (m *Metrics) Approval(source, outcome string, count int) {
	if m == nil || count == 0 {
		return
	}
	m.ModerationApprovals.WithLabelValues(source, outcome).Add(float64(count))
}

// HTTP records a served request.
func (m *Metrics) HTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
