package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Batch submissions partitioned by outcome (accepted, invalid, insufficient_credits, error)
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sms_submissions_total",
			Help: "Total number of batch submissions by outcome",
		},
		[]string{"outcome"},
	)

	// Final status of each dispatch attempt (sent, failed, skipped)
	DispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sms_dispatch_total",
			Help: "Total number of message dispatch attempts by result",
		},
		[]string{"result"},
	)

	GatewayLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sms_gateway_request_duration_seconds",
			Help:    "Gateway transport latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	CreditsCharged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sms_credits_charged_total",
			Help: "Total credits debited at batch settlement",
		},
	)

	LedgerConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sms_ledger_cas_conflicts_total",
			Help: "Number of balance compare-and-swap retries",
		},
	)

	// Recovery actions partitioned by action (requeued, failed)
	RecoveryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sms_recovery_actions_total",
			Help: "Stuck-message recovery actions",
		},
		[]string{"action"},
	)

	SchedulerRuns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sms_scheduler_runs_total",
			Help: "Number of scheduler sweeps executed",
		},
	)
)
