package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "techauth_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "techauth_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "techauth_logins_total",
		Help: "Login attempts by result",
	}, []string{"result"})

	refreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "techauth_token_refreshes_total",
		Help: "Access token refreshes by result",
	}, []string{"result"})

	registrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "techauth_registrations_total",
		Help: "Account registrations by path and result",
	}, []string{"path", "result"})

	provisionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "techauth_provision_duration_seconds",
		Help:    "Duration of project provisioning attempts",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})

	notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "techauth_notifications_total",
		Help: "Outbound notifications by kind and result",
	}, []string{"kind", "result"})

	housekeepingDeleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "techauth_housekeeping_deleted_total",
		Help: "Rows removed by housekeeping, per table",
	}, []string{"table"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveLogin increments the login counter, e.g. "success", "invalid_credentials".
func ObserveLogin(result string) {
	logins.WithLabelValues(result).Inc()
}

func ObserveRefresh(result string) {
	refreshes.WithLabelValues(result).Inc()
}

// ObserveRegistration records a registration; path is "tenant" or "bootstrap".
func ObserveRegistration(path, result string) {
	registrations.WithLabelValues(path, result).Inc()
}

// ObserveProvision records the duration of a provisioning attempt with a result label.
func ObserveProvision(result string, duration time.Duration) {
	provisionDuration.WithLabelValues(result).Observe(duration.Seconds())
}

func ObserveNotification(kind, result string) {
	notifications.WithLabelValues(kind, result).Inc()
}

func ObserveHousekeeping(table string, deleted int64) {
	if deleted <= 0 {
		return
	}
	housekeepingDeleted.WithLabelValues(table).Add(float64(deleted))
}

// Result maps an error to a coarse "success"/"error" label.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
