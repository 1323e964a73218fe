package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics and implements
// usecase.MetricsRecorder.
type Metrics struct {
	// Journal metrics
	JournalsPosted   *prometheus.CounterVec
	JournalsReversed prometheus.Counter
	JournalAmount    *prometheus.HistogramVec

	// Transaction metrics
	TransactionsProcessed *prometheus.CounterVec

	// Unit of work metrics
	CommitsSucceeded prometheus.Counter
	CommitsFailed    prometheus.Counter
	Rollbacks        prometheus.Counter
	CommitDuration   prometheus.Histogram

	// Outbox metrics
	EventsRelayed    prometheus.Counter
	EventRelayErrors prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		JournalsPosted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_journals_posted_total",
				Help: "Total number of journal entries posted",
			},
			[]string{"currency"},
		),
		JournalsReversed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledger_journals_reversed_total",
			Help: "Total number of journal entries reversed",
		}),
		JournalAmount: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_journal_amount",
				Help:    "Posted journal entry amounts",
				Buckets: []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
			},
			[]string{"currency"},
		),
		TransactionsProcessed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_transactions_processed_total",
				Help: "Total number of business transactions processed by type",
			},
			[]string{"type"},
		),
		CommitsSucceeded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledger_uow_commits_total",
			Help: "Total number of successful unit of work commits",
		}),
		CommitsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledger_uow_commit_failures_total",
			Help: "Total number of failed unit of work commits",
		}),
		Rollbacks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledger_uow_rollbacks_total",
			Help: "Total number of unit of work rollbacks",
		}),
		CommitDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "ledger_uow_commit_duration_seconds",
			Help:    "Duration of unit of work commits",
			Buckets: prometheus.DefBuckets,
		}),
		EventsRelayed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledger_outbox_events_relayed_total",
			Help: "Total number of outbox events relayed to consumers",
		}),
		EventRelayErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledger_outbox_relay_errors_total",
			Help: "Total number of outbox relay failures",
		}),
	}
}

// JournalPosted records a posted journal entry.
func (m *Metrics) JournalPosted(currency string, amount float64) {
	m.JournalsPosted.WithLabelValues(currency).Inc()
	m.JournalAmount.WithLabelValues(currency).Observe(amount)
}

// JournalReversed records a reversal.
func (m *Metrics) JournalReversed() {
	m.JournalsReversed.Inc()
}

// TransactionProcessed records a processed business transaction.
func (m *Metrics) TransactionProcessed(transactionType string) {
	m.TransactionsProcessed.WithLabelValues(transactionType).Inc()
}

// CommitSucceeded records a successful commit and its duration.
func (m *Metrics) CommitSucceeded(duration time.Duration) {
	m.CommitsSucceeded.Inc()
	m.CommitDuration.Observe(duration.Seconds())
}

// CommitFailed records a failed commit.
func (m *Metrics) CommitFailed() {
	m.CommitsFailed.Inc()
}

// RollbackIssued records a rollback.
func (m *Metrics) RollbackIssued() {
	m.Rollbacks.Inc()
}

// EventRelayed records a successfully relayed outbox event.
func (m *Metrics) EventRelayed() {
	m.EventsRelayed.Inc()
}

// EventRelayFailed records a failed relay attempt.
func (m *Metrics) EventRelayFailed() {
	m.EventRelayErrors.Inc()
}
