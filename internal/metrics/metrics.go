// Package metrics registers the Prometheus metrics exported by teleauth.
// Counters are process-global; the daemon serves them on /metrics when a
// metrics address is configured.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Check outcomes used as the "result" label of ChecksTotal.
const (
	CheckAdmin   = "admin"
	CheckGranted = "granted"
	CheckDenied  = "denied"
	CheckError   = "error"
)

var (
	// ChecksTotal counts authentication checks labelled by result.
	ChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teleauth_checks_total",
			Help: "Total authentication checks by result.",
		},
		[]string{"result"},
	)

	// GrantsTotal counts authorize calls labelled by status ("success", "error").
	GrantsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teleauth_grants_total",
			Help: "Total access grants.",
		},
		[]string{"status"},
	)

	// RevokesTotal counts revoke calls labelled by status ("success", "error").
	RevokesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teleauth_revokes_total",
			Help: "Total access revocations.",
		},
		[]string{"status"},
	)

	// ExpiredTotal counts grants observed crossing their expiry.
	ExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "teleauth_expired_total",
			Help: "Total grants observed expiring.",
		},
	)

	// ActiveUsers is the number of unexpired grants at the last expiry check.
	ActiveUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "teleauth_active_users",
			Help: "Unexpired grants at the last expiry check.",
		},
	)
)

// Status returns the status label for an operation result.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
