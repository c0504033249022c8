package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/username/banksync/src/bank"
	"github.com/username/banksync/src/models"
	"github.com/username/banksync/src/repository"
)

// DefaultEarliestSyncPeriod bounds how far back a first sync reaches when no
// explicit earliest date is configured.
const DefaultEarliestSyncPeriod = 90 * 24 * time.Hour

// Orchestrator runs a full sync: accounts first (transaction sync needs
// current account records), then transactions per active bank account, all
// sequentially to respect the gateway's single global rate limit.
type Orchestrator struct {
	accountRepo repository.AccountRepository
	accountSync *AccountSynchronizer
	txSync      *TransactionSynchronizer
	logger      *slog.Logger
	now         func() time.Time
}

func NewOrchestrator(
	gateway bank.Gateway,
	accountRepo repository.AccountRepository,
	txRepo repository.TransactionRepository,
	maxSpan time.Duration,
	pacer Pacer,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		accountRepo: accountRepo,
		accountSync: NewAccountSynchronizer(gateway, accountRepo, logger),
		txSync:      NewTransactionSynchronizer(gateway, accountRepo, txRepo, maxSpan, pacer, logger),
		logger:      logger,
		now:         time.Now,
	}
}

// Execute performs one run and always returns a SyncResult; the returned
// error is non-nil only for configuration problems detected before or instead
// of I/O. The orchestrator never retries: re-invoking it is naturally
// idempotent because all reconciliation is upsert-by-external-id.
func (o *Orchestrator) Execute(ctx context.Context, opts Options) (*models.SyncResult, error) {
	result := &models.SyncResult{
		RunID:     uuid.NewString(),
		StartedAt: o.now().UTC(),
	}
	runLogger := o.logger.With(slog.String("runID", result.RunID))

	if opts.EarliestSyncDate.IsZero() {
		if opts.ForceFromDate {
			return nil, fmt.Errorf("forced backfill requires an explicit earliest sync date")
		}
		opts.EarliestSyncDate = o.now().UTC().Add(-DefaultEarliestSyncPeriod)
	}

	runLogger.InfoContext(ctx, "Sync run starting",
		slog.Duration("requestDelay", opts.RequestDelay),
		slog.Time("earliestSyncDate", opts.EarliestSyncDate),
		slog.Bool("forceFromDate", opts.ForceFromDate))

	var accountErrs []string
	result.Accounts, accountErrs = o.accountSync.Execute(ctx)
	result.Errors = append(result.Errors, accountErrs...)

	// The account listing was this run's first gateway call; every
	// transactions request after it is paced.
	o.txSync.issuedRequest = true

	accounts, err := o.accountRepo.FindActive(ctx)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("listing active accounts: %v", err))
		result.FinishedAt = o.now().UTC()
		return result, nil
	}

	for _, account := range accounts {
		if account.Source != models.AccountSourceBank {
			continue
		}
		result.Transactions.TotalAccounts++

		outcome, err := o.txSync.Execute(ctx, account, opts)
		if err != nil {
			// Configuration error: pointless to continue or retry without a fix.
			return nil, err
		}

		result.Transactions.NewTransactions += outcome.New
		result.Transactions.UpdatedTransactions += outcome.Updated
		result.Transactions.SkippedTransactions += outcome.Skipped
		if len(outcome.Errors) == 0 {
			result.Transactions.SyncedAccounts++
		}
		result.Errors = append(result.Errors, outcome.Errors...)
	}

	result.FinishedAt = o.now().UTC()
	runLogger.InfoContext(ctx, "Sync run finished",
		slog.Int("accountsCreated", result.Accounts.Created),
		slog.Int("accountsUpdated", result.Accounts.Updated),
		slog.Int("newTransactions", result.Transactions.NewTransactions),
		slog.Int("updatedTransactions", result.Transactions.UpdatedTransactions),
		slog.Int("skippedTransactions", result.Transactions.SkippedTransactions),
		slog.Int("errors", len(result.Errors)),
		slog.Duration("took", result.FinishedAt.Sub(result.StartedAt)))

	return result, nil
}
