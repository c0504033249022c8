package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/username/banksync/src/bank"
	"github.com/username/banksync/src/models"
	"github.com/username/banksync/src/repository"
	"github.com/username/banksync/src/security/validation"
)

// AccountSynchronizer reconciles the gateway's account list against the
// repository, classifying each account as created, updated, or unchanged.
// Manual accounts are never matched or written.
type AccountSynchronizer struct {
	gateway     bank.Gateway
	accountRepo repository.AccountRepository
	logger      *slog.Logger
}

func NewAccountSynchronizer(gateway bank.Gateway, accountRepo repository.AccountRepository, logger *slog.Logger) *AccountSynchronizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountSynchronizer{
		gateway:     gateway,
		accountRepo: accountRepo,
		logger:      logger,
	}
}

// Execute fetches all accounts and upserts them by external id. A failure on
// one account is recorded and does not stop the others; only a failed account
// listing aborts the pass.
func (s *AccountSynchronizer) Execute(ctx context.Context) (models.AccountSyncStats, []string) {
	var stats models.AccountSyncStats
	var errs []string

	fetched, err := s.gateway.ListAccounts(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list accounts from bank gateway", "error", err)
		return stats, []string{fmt.Sprintf("listing accounts: %v", err)}
	}

	for _, incoming := range fetched {
		incoming.Name = validation.CleanBankText(incoming.Name)
		incoming.ExternalName = validation.CleanBankText(incoming.ExternalName)

		existing, err := s.accountRepo.FindByExternalID(ctx, incoming.ExternalID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			incoming.Source = models.AccountSourceBank
			if err := s.accountRepo.Create(ctx, incoming); err != nil {
				errs = append(errs, fmt.Sprintf("account %s: creating: %v", incoming.ExternalID, err))
				continue
			}
			s.logger.InfoContext(ctx, "Account created from bank",
				slog.String("externalID", incoming.ExternalID),
				slog.String("name", incoming.Name))
			stats.Created++

		case err != nil:
			errs = append(errs, fmt.Sprintf("account %s: looking up: %v", incoming.ExternalID, err))

		case existing.BankDetailsEqual(incoming):
			// No write on a no-change re-run.
			stats.Unchanged++

		default:
			existing.ApplyBankDetails(incoming)
			if err := s.accountRepo.Update(ctx, existing); err != nil {
				errs = append(errs, fmt.Sprintf("account %s: updating: %v", incoming.ExternalID, err))
				continue
			}
			s.logger.DebugContext(ctx, "Account updated from bank",
				slog.String("externalID", incoming.ExternalID))
			stats.Updated++
		}
	}

	return stats, errs
}
