package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics covers the ledger and settlement pipeline.
type BusinessMetrics struct {
	RewardsPaidTotal       prometheus.Counter
	StakesOpenedTotal      *prometheus.CounterVec
	StakesCompletedTotal   *prometheus.CounterVec
	SettlementRunDuration  prometheus.Histogram
	SettlementErrorsTotal  prometheus.Counter
	DepositSweptTotal      prometheus.Counter
	SweepJobDuration       prometheus.Histogram
	SweepFailuresTotal     prometheus.Counter
	WithdrawRequestedTotal prometheus.Counter
	WithdrawSettledTotal   *prometheus.CounterVec
	OperatorAlertsTotal    *prometheus.CounterVec
	LedgerConflictRetries  prometheus.Counter
}

// Global Metrics Instance
var Business *BusinessMetrics

// InitBusinessMetrics initializes the business metrics.
func InitBusinessMetrics() {
	Business = &BusinessMetrics{
		RewardsPaidTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledger_rewards_paid_total",
			Help: "The total amount of staking rewards credited",
		}),
		StakesOpenedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_stakes_opened_total",
			Help: "The total number of stakes opened",
		}, []string{"plan"}),
		StakesCompletedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_stakes_completed_total",
			Help: "The total number of stakes completed",
		}, []string{"plan"}),
		SettlementRunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "ledger_settlement_run_duration_seconds",
			Help:    "Duration of settlement runs",
			Buckets: prometheus.DefBuckets,
		}),
		SettlementErrorsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledger_settlement_account_errors_total",
			Help: "Per-account failures during settlement runs",
		}),
		DepositSweptTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledger_deposit_swept_total",
			Help: "The total amount of deposits swept into custody",
		}),
		SweepJobDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "ledger_sweep_job_duration_seconds",
			Help:    "Duration of deposit sweep runs",
			Buckets: prometheus.DefBuckets,
		}),
		SweepFailuresTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledger_sweep_failures_total",
			Help: "Sweep transfers that failed and were left for manual reconciliation",
		}),
		WithdrawRequestedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledger_withdraw_requested_total",
			Help: "The total number of withdrawal requests accepted",
		}),
		WithdrawSettledTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_withdraw_settled_total",
			Help: "Withdrawal requests reaching a terminal status",
		}, []string{"status"}),
		OperatorAlertsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_operator_alerts_total",
			Help: "Operator alerts raised",
		}, []string{"subject"}),
		LedgerConflictRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledger_optimistic_conflict_retries_total",
			Help: "Optimistic lock conflicts retried on account updates",
		}),
	}
}
