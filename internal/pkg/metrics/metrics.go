package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LedgerTransactions counts stock movements by transaction type.
	LedgerTransactions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_transactions_total",
		Help: "Stock movements recorded in the inventory ledger.",
	}, []string{"type"})

	// RequisitionTransitions counts lifecycle transitions by target status.
	RequisitionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "requisition_transitions_total",
		Help: "Requisition lifecycle transitions.",
	}, []string{"status"})

	// ReconciliationFailures counts receipt-to-ledger credits that failed
	// and are awaiting a retry.
	ReconciliationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_reconciliation_failures_total",
		Help: "Receipt reconciliation attempts that did not reach the ledger.",
	})
)
