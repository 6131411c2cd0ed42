package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LoginAttempts counts login attempts by outcome
	// (success, failure, locked).
	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "access_core_login_attempts_total",
		Help: "Login attempts by outcome",
	}, []string{"outcome"})

	// AuthzDecisions counts authorization decisions by outcome.
	AuthzDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "access_core_authz_decisions_total",
		Help: "Authorization decisions by outcome",
	}, []string{"outcome"})

	// GDPRRequests counts data-subject requests by kind and outcome.
	GDPRRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "access_core_gdpr_requests_total",
		Help: "Data-subject requests by kind and outcome",
	}, []string{"kind", "outcome"})

	// RetentionPurged counts rows purged by the retention sweep per table.
	RetentionPurged = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "access_core_retention_purged_rows_total",
		Help: "Rows purged by the retention sweep per table",
	}, []string{"table"})
)
