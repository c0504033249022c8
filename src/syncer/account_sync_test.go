package syncer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/banksync/src/bank"
	"github.com/username/banksync/src/models"
	"github.com/username/banksync/src/repository"
	"github.com/username/banksync/src/repository/memory"
)

func bankAccount(externalID, name string, balance int64) *models.Account {
	return &models.Account{
		ExternalID:   externalID,
		Name:         name,
		ExternalName: name,
		Type:         models.AccountTypeDebit,
		Currency:     "EUR",
		Balance:      balance,
		Source:       models.AccountSourceBank,
	}
}

func TestAccountSynchronizer_CreatesUnseenAccount(t *testing.T) {
	ctx := context.Background()
	accountRepo := memory.NewAccountRepository()
	gateway := bank.NewMockGateway()
	gateway.Accounts = []*models.Account{bankAccount("acc-1", "Checking", 10_000)}

	s := NewAccountSynchronizer(gateway, accountRepo, nil)
	stats, errs := s.Execute(ctx)

	assert.Empty(t, errs)
	assert.Equal(t, models.AccountSyncStats{Created: 1}, stats)

	stored, err := accountRepo.FindByExternalID(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, models.AccountSourceBank, stored.Source)
	assert.Equal(t, int64(10_000), stored.Balance)
}

func TestAccountSynchronizer_SecondRunWritesNothing(t *testing.T) {
	ctx := context.Background()
	accountRepo := memory.NewAccountRepository()
	gateway := bank.NewMockGateway()
	gateway.Accounts = []*models.Account{
		bankAccount("acc-1", "Checking", 10_000),
		bankAccount("acc-2", "Savings", 250_000),
	}

	s := NewAccountSynchronizer(gateway, accountRepo, nil)

	stats, errs := s.Execute(ctx)
	require.Empty(t, errs)
	assert.Equal(t, models.AccountSyncStats{Created: 2}, stats)
	writesAfterFirstRun := accountRepo.WriteCount

	stats, errs = s.Execute(ctx)
	require.Empty(t, errs)
	assert.Equal(t, models.AccountSyncStats{Unchanged: 2}, stats)
	assert.Equal(t, writesAfterFirstRun, accountRepo.WriteCount, "unchanged re-run must not touch storage")
}

func TestAccountSynchronizer_SecondRunSeesAmendedBalance(t *testing.T) {
	ctx := context.Background()
	accountRepo := memory.NewAccountRepository()
	gateway := bank.NewMockGateway()
	gateway.Accounts = []*models.Account{bankAccount("acc-1", "Checking", 10_000)}

	s := NewAccountSynchronizer(gateway, accountRepo, nil)

	_, errs := s.Execute(ctx)
	require.Empty(t, errs)

	// The bank amends the balance between two closely spaced runs.
	gateway.Accounts = []*models.Account{bankAccount("acc-1", "Checking", 99_999)}

	stats, errs := s.Execute(ctx)
	require.Empty(t, errs)
	assert.Equal(t, models.AccountSyncStats{Updated: 1}, stats)

	stored, err := accountRepo.FindByExternalID(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, int64(99_999), stored.Balance)
}

func TestAccountSynchronizer_UpdatePreservesUserFields(t *testing.T) {
	ctx := context.Background()
	accountRepo := memory.NewAccountRepository()

	seeded := bankAccount("acc-1", "Bank-Reported Name", 10_000)
	require.NoError(t, accountRepo.Create(ctx, seeded))

	// The user renamed and archived the account since the last sync.
	seeded.Name = "My Checking"
	seeded.IsArchived = true
	require.NoError(t, accountRepo.Update(ctx, seeded))

	gateway := bank.NewMockGateway()
	gateway.Accounts = []*models.Account{bankAccount("acc-1", "Bank-Reported Name", 13_370)}

	s := NewAccountSynchronizer(gateway, accountRepo, nil)
	stats, errs := s.Execute(ctx)

	assert.Empty(t, errs)
	assert.Equal(t, models.AccountSyncStats{Updated: 1}, stats)

	stored, err := accountRepo.FindByExternalID(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, int64(13_370), stored.Balance)
	assert.Equal(t, "My Checking", stored.Name, "user-set name must survive a sync")
	assert.True(t, stored.IsArchived, "archived flag must survive a sync")
	assert.Equal(t, seeded.ID, stored.ID)
}

func TestAccountSynchronizer_GatewayFailureReported(t *testing.T) {
	gateway := bank.NewMockGateway()
	gateway.ListAccountsErr = errors.New("connection reset")

	s := NewAccountSynchronizer(gateway, memory.NewAccountRepository(), nil)
	stats, errs := s.Execute(context.Background())

	assert.Equal(t, models.AccountSyncStats{}, stats)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "listing accounts")
}

// failingAccountRepo fails Create for one external id, simulating a
// persistence error on a single account.
type failingAccountRepo struct {
	*memory.AccountRepository
	failExternalID string
}

func (r *failingAccountRepo) Create(ctx context.Context, account *models.Account) error {
	if account.ExternalID == r.failExternalID {
		return errors.New("disk full")
	}
	return r.AccountRepository.Create(ctx, account)
}

var _ repository.AccountRepository = (*failingAccountRepo)(nil)

func TestAccountSynchronizer_SingleFailureDoesNotAbortOthers(t *testing.T) {
	ctx := context.Background()
	accountRepo := &failingAccountRepo{
		AccountRepository: memory.NewAccountRepository(),
		failExternalID:    "acc-2",
	}
	gateway := bank.NewMockGateway()
	gateway.Accounts = []*models.Account{
		bankAccount("acc-1", "A", 100),
		bankAccount("acc-2", "B", 200),
		bankAccount("acc-3", "C", 300),
	}

	s := NewAccountSynchronizer(gateway, accountRepo, nil)
	stats, errs := s.Execute(ctx)

	assert.Equal(t, models.AccountSyncStats{Created: 2}, stats)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "acc-2")

	_, err := accountRepo.FindByExternalID(ctx, "acc-3")
	assert.NoError(t, err, "accounts after the failed one must still be processed")
}

func TestAccountSynchronizer_SanitizesBankText(t *testing.T) {
	ctx := context.Background()
	accountRepo := memory.NewAccountRepository()
	gateway := bank.NewMockGateway()
	gateway.Accounts = []*models.Account{
		bankAccount("acc-1", "  Checking <script>alert(1)</script> ", 100),
	}

	s := NewAccountSynchronizer(gateway, accountRepo, nil)
	_, errs := s.Execute(ctx)
	require.Empty(t, errs)

	stored, err := accountRepo.FindByExternalID(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "Checking", stored.Name)
}

func seedLastSync(t *testing.T, repo *memory.AccountRepository, account *models.Account, at time.Time) {
	t.Helper()
	require.NoError(t, repo.UpdateLastSyncTime(context.Background(), account.ID, at))
	utc := at.UTC()
	account.LastSyncTime = &utc
}
