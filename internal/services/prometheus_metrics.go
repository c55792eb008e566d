package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	MetricRecurringProcessed   = "recurring.processed"
	MetricRecurringSkipped     = "recurring.skipped"
	MetricRecurringFailed      = "recurring.failed"
	MetricRecurringRetry       = "recurring.retry"
	MetricRecurringThrottled   = "recurring.throttled"
	MetricRecurringEnqueued    = "recurring.enqueued"
	MetricRecurringDuration    = "recurring.processing"
	MetricQueueDepth           = "recurring.queue_depth"
	MetricBudgetAlertSent      = "budget.alert.sent"
	MetricBudgetAlertFailed    = "budget.alert.failed"
	MetricBudgetCheckDuration  = "budget.check"
	MetricTransactionCreated   = "transaction.created"
	MetricTransactionsDeleted  = "transaction.deleted"
	MetricTransactionThrottled = "transaction.throttled"
	MetricEmailSent            = "email.sent"
	MetricEmailFailed          = "email.failed"
	MetricCircuitBreakerState  = "circuit_breaker.state"
)

type PrometheusMetrics struct {
	recurringProcessed  *prometheus.CounterVec
	recurringDuration   prometheus.Histogram
	recurringEnqueued   prometheus.Counter
	queueDepth          *prometheus.GaugeVec
	retryAttempts       prometheus.Counter
	circuitBreakerState *prometheus.GaugeVec
	budgetAlerts        *prometheus.CounterVec
	budgetCheckDuration prometheus.Histogram
	transactionsTotal   *prometheus.CounterVec
	rateLimitedTotal    *prometheus.CounterVec
	emailsTotal         *prometheus.CounterVec
}

func NewPrometheusMetrics() MetricsRecorderInterface {
	return newPrometheusMetrics(prometheus.DefaultRegisterer)
}

func newPrometheusMetrics(registerer prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(registerer)

	return &PrometheusMetrics{
		recurringProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recurring_transactions_processed_total",
				Help: "Total number of recurring jobs processed, by outcome",
			},
			[]string{"status"},
		),
		recurringDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "recurring_transaction_duration_milliseconds",
				Help:    "Recurring job processing duration in milliseconds",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
		),
		recurringEnqueued: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "recurring_trigger_runs_total",
				Help: "Total number of recurring trigger runs",
			},
		),
		queueDepth: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "recurring_queue_depth",
				Help: "Current number of recurring jobs per status",
			},
			[]string{"status"},
		),
		retryAttempts: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "recurring_retry_attempts_total",
				Help: "Total number of recurring job retry attempts",
			},
		),
		circuitBreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
			},
			[]string{"service"},
		),
		budgetAlerts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budget_alerts_total",
				Help: "Total number of budget alert emails, by outcome",
			},
			[]string{"status"},
		),
		budgetCheckDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "budget_check_duration_seconds",
				Help:    "Duration of a full budget alert run in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		transactionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transactions_total",
				Help: "Total number of transactions written through the API",
			},
			[]string{"operation"},
		),
		rateLimitedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_limited_total",
				Help: "Total number of requests or jobs held back by a rate limit",
			},
			[]string{"limiter"},
		),
		emailsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "emails_total",
				Help: "Total number of emails handed to the provider, by outcome",
			},
			[]string{"status"},
		),
	}
}

func (m *PrometheusMetrics) IncrementCounter(name string, tags map[string]string) {
	switch name {
	case MetricRecurringProcessed:
		m.recurringProcessed.WithLabelValues("completed").Inc()
	case MetricRecurringSkipped:
		m.recurringProcessed.WithLabelValues("skipped").Inc()
	case MetricRecurringFailed:
		m.recurringProcessed.WithLabelValues("failed").Inc()
	case MetricRecurringRetry:
		m.retryAttempts.Inc()
	case MetricRecurringEnqueued:
		m.recurringEnqueued.Inc()
	case MetricRecurringThrottled:
		m.rateLimitedTotal.WithLabelValues("recurring").Inc()
	case MetricTransactionThrottled:
		m.rateLimitedTotal.WithLabelValues("transaction_create").Inc()
	case MetricTransactionCreated:
		m.transactionsTotal.WithLabelValues("create").Inc()
	case MetricTransactionsDeleted:
		m.transactionsTotal.WithLabelValues("delete").Inc()
	case MetricBudgetAlertSent:
		m.budgetAlerts.WithLabelValues("sent").Inc()
	case MetricBudgetAlertFailed:
		m.budgetAlerts.WithLabelValues("failed").Inc()
	case MetricEmailSent:
		m.emailsTotal.WithLabelValues("sent").Inc()
	case MetricEmailFailed:
		m.emailsTotal.WithLabelValues("failed").Inc()
	}
}

func (m *PrometheusMetrics) RecordProcessingTime(name string, duration time.Duration) {
	switch name {
	case MetricRecurringDuration:
		m.recurringDuration.Observe(float64(duration.Milliseconds()))
	case MetricBudgetCheckDuration:
		m.budgetCheckDuration.Observe(duration.Seconds())
	}
}

func (m *PrometheusMetrics) RecordGauge(name string, value float64, tags map[string]string) {
	switch name {
	case MetricQueueDepth:
		if status := tags["status"]; status != "" {
			m.queueDepth.WithLabelValues(status).Set(value)
		}
	case MetricCircuitBreakerState:
		if service := tags["service"]; service != "" {
			m.circuitBreakerState.WithLabelValues(service).Set(value)
		}
	}
}
