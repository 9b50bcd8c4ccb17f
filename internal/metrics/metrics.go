// Package metrics exposes Prometheus instrumentation for HTTP traffic,
// authentication, email delivery and the admin audit trail.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mathwizard_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mathwizard_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Auth Metrics
	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mathwizard_login_attempts_total",
			Help: "Login attempts by role and result",
		},
		[]string{"role", "result"}, // result: "success", "invalid", "unverified", "error"
	)

	LegacyPasswordUpgrades = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mathwizard_legacy_password_upgrades_total",
			Help: "Plaintext passwords rehashed after a successful login",
		},
		[]string{"account"},
	)

	LegacyRosterLogins = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mathwizard_legacy_roster_logins_total",
			Help: "Child logins accepted through a roster entry with no child account",
		},
	)

	Registrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mathwizard_registrations_total",
			Help: "Accounts created by kind",
		},
		[]string{"kind"}, // "parent", "school", "child", "partner"
	)

	// Email Metrics
	EmailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mathwizard_emails_sent_total",
			Help: "Verification emails by provider and result",
		},
		[]string{"provider", "result"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mathwizard_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mathwizard_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Audit Metrics
	AuditEntries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mathwizard_audit_entries_total",
			Help: "Audit entries recorded by type and result",
		},
		[]string{"type", "result"},
	)
)

// RecordAPIRequest records an HTTP request's status and latency
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordLogin records the outcome of a login attempt
func RecordLogin(role, result string) {
	LoginAttempts.WithLabelValues(role, result).Inc()
}

// RecordEmail records a delivery attempt
func RecordEmail(provider string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	EmailsSent.WithLabelValues(provider, result).Inc()
}

// RecordAuditEntry records whether an audit write succeeded
func RecordAuditEntry(logType string, ok bool) {
	result := "success"
	if !ok {
		result = "failure"
	}
	AuditEntries.WithLabelValues(logType, result).Inc()
}
