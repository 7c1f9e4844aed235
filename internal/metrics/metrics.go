// Package metrics holds the domain counters shared by the services.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "homeledger"

var (
	// TransactionsApplied counts ledger effects by transaction type and
	// direction ("apply" or "rollback").
	TransactionsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_applied_total",
			Help:      "Transaction effects applied to or rolled back from account state",
		},
		[]string{"type", "direction"},
	)
	DebtPayments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "debt_payments_total",
			Help:      "Payments recorded against credits and mortgages",
		},
		[]string{"kind", "extra"},
	)
	TaxReservesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tax_reserves_created_total",
			Help:      "Tax reserves computed from business income",
		},
	)
	// InvestmentOps counts position changes by op ("buy", "sell", "dividend").
	InvestmentOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "investment_ops_total",
			Help:      "Buys, sales and dividends recorded against investment positions",
		},
		[]string{"op"},
	)
	AmortizationDegenerate = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "amortization_degenerate_total",
			Help:      "Schedules or term solves where the payment did not cover interest",
		},
	)
)

// Bool renders a label value.
func Bool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
