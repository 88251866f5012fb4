package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TokensIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jam_tokens_issued_total",
		Help: "Tokens minted and recorded in the registry",
	}, []string{"type"})

	RevocationChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jam_token_revocation_changes_total",
		Help: "Revoke and unrevoke operations applied to the registry",
	}, []string{"action"})

	GateDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jam_gate_decisions_total",
		Help: "Revocation gate outcomes",
	}, []string{"decision", "reason"})

	TokensPruned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jam_tokens_pruned_total",
		Help: "Expired token records removed",
	})

	LoginFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jam_login_failures_total",
		Help: "Rejected token requests by reason",
	}, []string{"reason"})
)
