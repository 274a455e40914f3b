// Package metrics exposes Prometheus collectors for the tracker's mutation
// surface. Everything registers on the default registry and is served on
// /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransactionsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pondo_transactions_created_total",
		Help: "Transactions added to the active ledger, by type.",
	}, []string{"type"})

	TransactionsArchived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pondo_transactions_archived_total",
		Help: "Transactions soft-deleted into the archive.",
	})

	TransactionsRestored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pondo_transactions_restored_total",
		Help: "Transactions restored from the archive.",
	})

	TransactionsPurged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pondo_transactions_purged_total",
		Help: "Archive entries permanently removed, including retention sweeps.",
	})

	BudgetEntries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pondo_budget_entries_total",
		Help: "Budget history rows appended.",
	})

	SessionActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pondo_session_active",
		Help: "1 while a user is logged in, else 0.",
	})

	StoreErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pondo_store_errors_total",
		Help: "Persistence operations that returned an error.",
	})

	RetentionSweeps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pondo_retention_sweeps_total",
		Help: "Completed archive retention sweeps.",
	})
)
