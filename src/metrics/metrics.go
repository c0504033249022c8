package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/username/banksync/src/models"
)

// Collector owns the sync metrics on a private registry so tests can build
// isolated instances.
type Collector struct {
	registry *prometheus.Registry

	syncRuns            prometheus.Counter
	syncRunsFailed      prometheus.Counter
	accountsCreated     prometheus.Counter
	accountsUpdated     prometheus.Counter
	transactionsNew     prometheus.Counter
	transactionsUpdated prometheus.Counter
	transactionsSkipped prometheus.Counter
	syncErrors          prometheus.Counter
	webhooksReceived    *prometheus.CounterVec
	runDuration         prometheus.Histogram
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	return &Collector{
		registry: registry,
		syncRuns: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "banksync_runs_total",
			Help: "Total number of sync runs",
		}),
		syncRunsFailed: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "banksync_runs_failed_total",
			Help: "Sync runs that finished with at least one error",
		}),
		accountsCreated: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "banksync_accounts_created_total",
			Help: "Accounts created from the bank gateway",
		}),
		accountsUpdated: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "banksync_accounts_updated_total",
			Help: "Accounts updated from the bank gateway",
		}),
		transactionsNew: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "banksync_transactions_new_total",
			Help: "Transactions inserted during sync",
		}),
		transactionsUpdated: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "banksync_transactions_updated_total",
			Help: "Transactions amended during sync",
		}),
		transactionsSkipped: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "banksync_transactions_skipped_total",
			Help: "Transactions already up to date during sync",
		}),
		syncErrors: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "banksync_errors_total",
			Help: "Per-account and per-chunk sync errors",
		}),
		webhooksReceived: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "banksync_webhooks_received_total",
			Help: "Webhook notifications by outcome",
		}, []string{"outcome"}),
		runDuration: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "banksync_run_duration_seconds",
			Help:    "Wall-clock duration of sync runs",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		}),
	}
}

// ObserveRun records one finished orchestrator run.
func (c *Collector) ObserveRun(result *models.SyncResult) {
	c.syncRuns.Inc()
	if result.HasErrors() {
		c.syncRunsFailed.Inc()
	}
	c.accountsCreated.Add(float64(result.Accounts.Created))
	c.accountsUpdated.Add(float64(result.Accounts.Updated))
	c.transactionsNew.Add(float64(result.Transactions.NewTransactions))
	c.transactionsUpdated.Add(float64(result.Transactions.UpdatedTransactions))
	c.transactionsSkipped.Add(float64(result.Transactions.SkippedTransactions))
	c.syncErrors.Add(float64(len(result.Errors)))
	c.runDuration.Observe(result.FinishedAt.Sub(result.StartedAt).Seconds())
}

// ObserveWebhook records one webhook delivery outcome
// ("created", "updated", "skipped", "rejected", "unknown_account").
func (c *Collector) ObserveWebhook(outcome string) {
	c.webhooksReceived.WithLabelValues(outcome).Inc()
}

// Handler exposes the private registry for scraping.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
