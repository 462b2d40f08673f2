package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

const namespace = "kredo"

// LedgerMetrics holds the collectors for ledger activity.
// All methods are safe on a nil receiver so metrics stay optional.
type LedgerMetrics struct {
	accrualRuns      *prometheus.CounterVec
	accrualDuration  prometheus.Histogram
	loansAccrued     *prometheus.CounterVec
	interestAccrued  prometheus.Counter
	payments         *prometheus.CounterVec
	amountPaid       prometheus.Counter
	statusTransition *prometheus.CounterVec
}

// NewLedgerMetrics registers the ledger collectors with reg
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	factory := promauto.With(reg)

	return &LedgerMetrics{
		accrualRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accrual_runs_total",
			Help:      "Batch accrual runs by trigger and outcome.",
		}, []string{"trigger", "outcome"}),
		accrualDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "accrual_run_duration_seconds",
			Help:      "Wall time of batch accrual runs.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		loansAccrued: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loan_accruals_total",
			Help:      "Single-loan accruals by result.",
		}, []string{"result"}),
		interestAccrued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interest_accrued_total",
			Help:      "Interest added to outstanding balances.",
		}),
		payments: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_total",
			Help:      "Payments recorded by type.",
		}, []string{"type"}),
		amountPaid: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_amount_total",
			Help:      "Sum of recorded payment amounts.",
		}),
		statusTransition: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loan_status_transitions_total",
			Help:      "Loan status changes by target status.",
		}, []string{"status"}),
	}
}

// ObserveAccrual records one single-loan accrual
func (m *LedgerMetrics) ObserveAccrual(err error, interest decimal.Decimal) {
	if m == nil {
		return
	}
	if err != nil {
		m.loansAccrued.WithLabelValues("error").Inc()
		return
	}
	m.loansAccrued.WithLabelValues("ok").Inc()
	m.interestAccrued.Add(interest.InexactFloat64())
}

// ObservePayment records one applied payment
func (m *LedgerMetrics) ObservePayment(paymentType string, amount decimal.Decimal) {
	if m == nil {
		return
	}
	m.payments.WithLabelValues(paymentType).Inc()
	m.amountPaid.Add(amount.InexactFloat64())
}

// ObserveTransition records a loan moving into status
func (m *LedgerMetrics) ObserveTransition(status string) {
	if m == nil {
		return
	}
	m.statusTransition.WithLabelValues(status).Inc()
}

// ObserveRun records a finished batch run
func (m *LedgerMetrics) ObserveRun(trigger, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.accrualRuns.WithLabelValues(trigger, outcome).Inc()
	m.accrualDuration.Observe(elapsed.Seconds())
}
