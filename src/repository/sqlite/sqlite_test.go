package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/banksync/src/models"
	"github.com/username/banksync/src/repository"
	_ "modernc.org/sqlite"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db")+"?_pragma=foreign_keys(on)")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	for _, migration := range []string{
		"../../../db/migrations/000001_create_accounts_table.up.sql",
		"../../../db/migrations/000002_create_transactions_table.up.sql",
	} {
		schema, err := os.ReadFile(migration)
		require.NoError(t, err)
		_, err = db.Exec(string(schema))
		require.NoError(t, err)
	}
	return db
}

func TestAccountRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewAccountRepository(newTestDB(t))

	iban := "NL91ABNA0417164300"
	limit := int64(150_000)
	account := &models.Account{
		ExternalID:   "acc-1",
		Name:         "Checking",
		ExternalName: "Checking",
		Type:         models.AccountTypeCredit,
		Currency:     "EUR",
		Balance:      -20_000,
		CreditLimit:  &limit,
		IBAN:         &iban,
		Source:       models.AccountSourceBank,
	}
	require.NoError(t, repo.Create(ctx, account))
	require.NotZero(t, account.ID)

	stored, err := repo.FindByExternalID(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, account.ID, stored.ID)
	assert.Equal(t, int64(-20_000), stored.Balance)
	require.NotNil(t, stored.CreditLimit)
	assert.Equal(t, limit, *stored.CreditLimit)
	require.NotNil(t, stored.IBAN)
	assert.Equal(t, iban, *stored.IBAN)
	assert.Nil(t, stored.LastSyncTime)
}

func TestAccountRepository_FindByExternalIDIgnoresManual(t *testing.T) {
	ctx := context.Background()
	repo := NewAccountRepository(newTestDB(t))

	require.NoError(t, repo.Create(ctx, &models.Account{
		Name: "Wallet", Source: models.AccountSourceManual, Currency: "EUR",
	}))

	_, err := repo.FindByExternalID(ctx, "")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAccountRepository_UpdateLastSyncTime(t *testing.T) {
	ctx := context.Background()
	repo := NewAccountRepository(newTestDB(t))

	account := &models.Account{
		ExternalID: "acc-1", Name: "Checking", Source: models.AccountSourceBank, Currency: "EUR",
	}
	require.NoError(t, repo.Create(ctx, account))

	checkpoint := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateLastSyncTime(ctx, account.ID, checkpoint))

	stored, err := repo.FindByID(ctx, account.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastSyncTime)
	assert.True(t, stored.LastSyncTime.Equal(checkpoint))

	err = repo.UpdateLastSyncTime(ctx, 9999, checkpoint)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAccountRepository_FindActiveInsertionOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewAccountRepository(newTestDB(t))

	for _, externalID := range []string{"acc-b", "acc-a", "acc-c"} {
		require.NoError(t, repo.Create(ctx, &models.Account{
			ExternalID: externalID, Name: externalID, Source: models.AccountSourceBank, Currency: "EUR",
		}))
	}
	require.NoError(t, repo.Create(ctx, &models.Account{
		ExternalID: "acc-archived", Name: "old", Source: models.AccountSourceBank,
		Currency: "EUR", IsArchived: true,
	}))

	active, err := repo.FindActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 3)
	assert.Equal(t, "acc-b", active[0].ExternalID)
	assert.Equal(t, "acc-a", active[1].ExternalID)
	assert.Equal(t, "acc-c", active[2].ExternalID)
}

func TestTransactionRepository_DedupKeyEnforced(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	accountRepo := NewAccountRepository(db)
	txRepo := NewTransactionRepository(db)

	account := &models.Account{
		ExternalID: "acc-1", Name: "Checking", Source: models.AccountSourceBank, Currency: "EUR",
	}
	require.NoError(t, accountRepo.Create(ctx, account))

	tx := &models.Transaction{
		AccountID:  account.ID,
		ExternalID: "tx-1",
		PostedAt:   time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		Amount:     -1250,
		Currency:   "EUR",
	}
	require.NoError(t, txRepo.CreateBatch(ctx, []*models.Transaction{tx}))

	dup := *tx
	dup.ID = 0
	err := txRepo.CreateBatch(ctx, []*models.Transaction{&dup})
	assert.Error(t, err, "the unique index must reject a second (account, externalId) pair")

	stored, err := txRepo.FindByExternalID(ctx, account.ID, "tx-1")
	require.NoError(t, err)
	assert.Equal(t, int64(-1250), stored.Amount)
}

func TestTransactionRepository_UpdatePreservesIdentity(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	accountRepo := NewAccountRepository(db)
	txRepo := NewTransactionRepository(db)

	account := &models.Account{
		ExternalID: "acc-1", Name: "Checking", Source: models.AccountSourceBank, Currency: "EUR",
	}
	require.NoError(t, accountRepo.Create(ctx, account))

	tx := &models.Transaction{
		AccountID:  account.ID,
		ExternalID: "tx-1",
		PostedAt:   time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		Amount:     -1250,
		Currency:   "EUR",
	}
	require.NoError(t, txRepo.CreateBatch(ctx, []*models.Transaction{tx}))

	tx.Description = "ACME GROCERIES"
	tx.CategoryStatus = models.CategoryStatusCategorized
	tx.Category = "groceries"
	require.NoError(t, txRepo.Update(ctx, tx))

	stored, err := txRepo.FindByExternalID(ctx, account.ID, "tx-1")
	require.NoError(t, err)
	assert.Equal(t, tx.ID, stored.ID)
	assert.Equal(t, "ACME GROCERIES", stored.Description)
	assert.Equal(t, models.CategoryStatusCategorized, stored.CategoryStatus)
}

func TestTransactionRepository_FindUncategorized(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	accountRepo := NewAccountRepository(db)
	txRepo := NewTransactionRepository(db)

	account := &models.Account{
		ExternalID: "acc-1", Name: "Checking", Source: models.AccountSourceBank, Currency: "EUR",
	}
	require.NoError(t, accountRepo.Create(ctx, account))

	require.NoError(t, txRepo.CreateBatch(ctx, []*models.Transaction{
		{AccountID: account.ID, ExternalID: "tx-1", PostedAt: time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC), Amount: -1, Currency: "EUR"},
		{AccountID: account.ID, ExternalID: "tx-2", PostedAt: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), Amount: -2, Currency: "EUR"},
		{AccountID: account.ID, ExternalID: "tx-3", PostedAt: time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC), Amount: -3, Currency: "EUR", CategoryStatus: models.CategoryStatusVerified},
	}))

	pending, err := txRepo.FindUncategorized(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "tx-2", pending[0].ExternalID, "oldest pending first")
	assert.Equal(t, "tx-1", pending[1].ExternalID)
}
