// Package metrics exposes Prometheus counters for the ledger and payment
// paths, served on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SnapshotReloads counts snapshot builds by outcome (ok, degraded).
	SnapshotReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "honesty_snapshot_reloads_total",
		Help: "Number of ledger snapshot builds, by outcome.",
	}, []string{"outcome"})

	// LedgerAppends counts order sheet appends by row kind.
	LedgerAppends = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "honesty_ledger_appends_total",
		Help: "Number of rows appended to the ledger, by kind.",
	}, []string{"kind"})

	// PaymentPolls counts gateway status polls by result (pending, paid, error).
	PaymentPolls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "honesty_payment_polls_total",
		Help: "Number of payment gateway status polls, by result.",
	}, []string{"result"})
)
