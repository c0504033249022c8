package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/username/banksync/src/bank"
	"github.com/username/banksync/src/models"
	"github.com/username/banksync/src/repository"
	"github.com/username/banksync/src/security/validation"
)

// Options carries the per-run sync settings shared by every account.
type Options struct {
	// RequestDelay is the pause inserted between consecutive gateway calls.
	RequestDelay time.Duration

	// EarliestSyncDate is the inclusive lower bound for fetching. Accounts
	// whose checkpoint is older (or absent) start here.
	EarliestSyncDate time.Time

	// ForceFromDate makes EarliestSyncDate override each account's stored
	// checkpoint unconditionally (manual backfill).
	ForceFromDate bool
}

// TransactionOutcome counts one account's transaction reconciliation.
type TransactionOutcome struct {
	New     int
	Updated int
	Skipped int
	Errors  []string
}

// TransactionSynchronizer walks an account's unsynced date range in bounded
// chunks, oldest first, deduplicating against stored transactions and
// advancing the account checkpoint after every fully committed chunk.
type TransactionSynchronizer struct {
	gateway     bank.Gateway
	accountRepo repository.AccountRepository
	txRepo      repository.TransactionRepository
	maxSpan     time.Duration
	pacer       Pacer
	now         func() time.Time
	logger      *slog.Logger

	// issuedRequest tracks whether any gateway call happened this run, so the
	// delay applies between calls across accounts, not before the first one.
	issuedRequest bool
}

func NewTransactionSynchronizer(
	gateway bank.Gateway,
	accountRepo repository.AccountRepository,
	txRepo repository.TransactionRepository,
	maxSpan time.Duration,
	pacer Pacer,
	logger *slog.Logger,
) *TransactionSynchronizer {
	if maxSpan == 0 {
		maxSpan = bank.MaxWindow
	}
	if pacer == nil {
		pacer = SleepPacer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TransactionSynchronizer{
		gateway:     gateway,
		accountRepo: accountRepo,
		txRepo:      txRepo,
		maxSpan:     maxSpan,
		pacer:       pacer,
		now:         time.Now,
		logger:      logger,
	}
}

// Execute syncs one account. The returned error is non-nil only for
// configuration problems (invalid chunk span); everything recoverable lands
// in the outcome's error list and leaves the checkpoint at the last fully
// committed chunk.
func (s *TransactionSynchronizer) Execute(ctx context.Context, account *models.Account, opts Options) (TransactionOutcome, error) {
	var outcome TransactionOutcome

	if account.Source == models.AccountSourceManual {
		return outcome, nil
	}

	start := s.effectiveStart(account, opts)
	end := s.now().UTC()

	chunks, err := ChunkDateRange(start, end, s.maxSpan)
	if err != nil {
		return outcome, err
	}
	if len(chunks) == 0 {
		s.logger.DebugContext(ctx, "Account already up to date",
			slog.String("externalID", account.ExternalID))
		return outcome, nil
	}

	s.logger.InfoContext(ctx, "Syncing transactions",
		slog.String("externalID", account.ExternalID),
		slog.Time("from", start),
		slog.Time("to", end),
		slog.Int("chunks", len(chunks)))

	for _, chunk := range chunks {
		if s.issuedRequest {
			s.pacer(ctx, opts.RequestDelay)
		}
		s.issuedRequest = true

		fetched, err := s.gateway.ListTransactions(ctx, account.ExternalID, chunk.From, chunk.To)
		if err != nil {
			outcome.Errors = append(outcome.Errors, chunkError(account, chunk, "fetching", err))
			return outcome, nil
		}

		if err := s.reconcileChunk(ctx, account, fetched, &outcome); err != nil {
			outcome.Errors = append(outcome.Errors, chunkError(account, chunk, "persisting", err))
			return outcome, nil
		}

		// Persist the checkpoint immediately; a crash now loses at most the
		// next chunk.
		if err := s.accountRepo.UpdateLastSyncTime(ctx, account.ID, chunk.To); err != nil {
			outcome.Errors = append(outcome.Errors, chunkError(account, chunk, "advancing checkpoint", err))
			return outcome, nil
		}
		checkpoint := chunk.To
		account.LastSyncTime = &checkpoint
	}

	return outcome, nil
}

func (s *TransactionSynchronizer) effectiveStart(account *models.Account, opts Options) time.Time {
	if opts.ForceFromDate {
		return opts.EarliestSyncDate.UTC()
	}
	start := opts.EarliestSyncDate.UTC()
	if account.LastSyncTime != nil && account.LastSyncTime.After(start) {
		start = account.LastSyncTime.UTC()
	}
	return start
}

func (s *TransactionSynchronizer) reconcileChunk(ctx context.Context, account *models.Account, fetched []*models.Transaction, outcome *TransactionOutcome) error {
	var toInsert []*models.Transaction

	for _, incoming := range fetched {
		incoming.AccountID = account.ID
		incoming.Description = validation.CleanBankText(incoming.Description)
		incoming.Counterparty = validation.CleanBankText(incoming.Counterparty)

		existing, err := s.txRepo.FindByExternalID(ctx, account.ID, incoming.ExternalID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			toInsert = append(toInsert, incoming)

		case err != nil:
			return fmt.Errorf("looking up transaction %q: %w", incoming.ExternalID, err)

		case existing.ContentEqual(incoming):
			outcome.Skipped++

		default:
			// Banks amend transactions post-posting (merchant name fixes and
			// the like); categorization stays ours.
			existing.ApplyBankContent(incoming)
			if err := s.txRepo.Update(ctx, existing); err != nil {
				return fmt.Errorf("updating transaction %q: %w", incoming.ExternalID, err)
			}
			outcome.Updated++
		}
	}

	if err := s.txRepo.CreateBatch(ctx, toInsert); err != nil {
		return fmt.Errorf("inserting %d transactions: %w", len(toInsert), err)
	}
	outcome.New += len(toInsert)
	return nil
}

func chunkError(account *models.Account, chunk DateChunk, action string, err error) string {
	return fmt.Sprintf("account %s: chunk %s..%s: %s: %v",
		account.ExternalID,
		chunk.From.Format("2006-01-02"),
		chunk.To.Format("2006-01-02"),
		action, err)
}
