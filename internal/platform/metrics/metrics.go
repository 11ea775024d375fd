// Package metrics exposes Prometheus instrumentation for the credit ledger
// services. Counters are registered on the default registry and served by the
// /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthorizationsTotal counts authorization decisions by outcome
	// (approved, denied_insufficient_credits, denied_limit_exceeded)
	AuthorizationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "credit_ledger",
		Name:      "authorizations_total",
		Help:      "Total number of entitlement authorization decisions by outcome.",
	}, []string{"outcome"})

	// LedgerEntriesTotal counts appended ledger entries by kind
	LedgerEntriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "credit_ledger",
		Name:      "entries_total",
		Help:      "Total number of ledger entries appended by kind.",
	}, []string{"kind"})

	// BillingEventsTotal counts reconciled billing events by terminal status
	// (applied, duplicate, rejected, ignored)
	BillingEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "credit_ledger",
		Name:      "billing_events_total",
		Help:      "Total number of billing events reconciled by terminal status.",
	}, []string{"status"})

	// ProjectionDriftTotal counts drift detections between the incremental
	// balance projection and the ledger fold
	ProjectionDriftTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "credit_ledger",
		Name:      "projection_drift_total",
		Help:      "Total number of balance projection drift detections.",
	})

	// ProjectionRebuildsTotal counts full projection rebuilds
	ProjectionRebuildsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "credit_ledger",
		Name:      "projection_rebuilds_total",
		Help:      "Total number of balance projection rebuilds.",
	})

	// ReservationsExpiredTotal counts reservations discarded by the lease sweeper
	ReservationsExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "credit_ledger",
		Name:      "reservations_expired_total",
		Help:      "Total number of credit reservations expired by the sweeper.",
	})

	// ConsumedMessagesTotal counts billing event deliveries by consumer
	// outcome (committed, retried)
	ConsumedMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "credit_ledger",
		Name:      "consumed_messages_total",
		Help:      "Total number of Kafka billing event deliveries by consumer outcome.",
	}, []string{"outcome"})

	// ArchiveShippedTotal counts archive outbox records shipped to the audit store
	ArchiveShippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "credit_ledger",
		Name:      "archive_shipped_total",
		Help:      "Total number of archive records shipped by result (shipped, failed).",
	}, []string{"result"})

	// AuthorizationDuration observes end-to-end authorization latency
	AuthorizationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "credit_ledger",
		Name:      "authorization_duration_seconds",
		Help:      "End-to-end latency of authorization decisions.",
		Buckets:   prometheus.DefBuckets,
	})
)
