package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/username/banksync/src/models"
	"github.com/username/banksync/src/repository"
)

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `id, external_id, name, external_name, type, currency, balance,
	credit_limit, iban, source, is_archived, last_sync_time, created_at, updated_at`

func (r *AccountRepository) FindByID(ctx context.Context, id int64) (*models.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	return scanAccount(row)
}

func (r *AccountRepository) FindByExternalID(ctx context.Context, externalID string) (*models.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE external_id = ? AND source = ?`,
		externalID, models.AccountSourceBank)
	return scanAccount(row)
}

// FindActive returns non-archived accounts in insertion order.
func (r *AccountRepository) FindActive(ctx context.Context) ([]*models.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE is_archived = 0 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying active accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (external_id, name, external_name, type, currency, balance,
			credit_limit, iban, source, is_archived, last_sync_time, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		account.ExternalID, account.Name, account.ExternalName, account.Type,
		account.Currency, account.Balance, account.CreditLimit, account.IBAN,
		account.Source, account.IsArchived, account.LastSyncTime,
		account.CreatedAt, account.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting account %q: %w", account.ExternalID, err)
	}

	account.ID, err = result.LastInsertId()
	return err
}

func (r *AccountRepository) Update(ctx context.Context, account *models.Account) error {
	account.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET name = ?, external_name = ?, type = ?, currency = ?, balance = ?,
			credit_limit = ?, iban = ?, is_archived = ?, updated_at = ?
		WHERE id = ?`,
		account.Name, account.ExternalName, account.Type, account.Currency,
		account.Balance, account.CreditLimit, account.IBAN, account.IsArchived,
		account.UpdatedAt, account.ID)
	if err != nil {
		return fmt.Errorf("updating account %d: %w", account.ID, err)
	}
	return requireRowAffected(result)
}

func (r *AccountRepository) UpdateLastSyncTime(ctx context.Context, id int64, t time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET last_sync_time = ?, updated_at = ? WHERE id = ?`,
		t.UTC(), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("updating last sync time for account %d: %w", id, err)
	}
	return requireRowAffected(result)
}

func requireRowAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var a models.Account
	var creditLimit sql.NullInt64
	var iban sql.NullString
	var lastSync sql.NullTime

	err := row.Scan(&a.ID, &a.ExternalID, &a.Name, &a.ExternalName, &a.Type,
		&a.Currency, &a.Balance, &creditLimit, &iban, &a.Source, &a.IsArchived,
		&lastSync, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning account: %w", err)
	}

	if creditLimit.Valid {
		a.CreditLimit = &creditLimit.Int64
	}
	if iban.Valid {
		a.IBAN = &iban.String
	}
	if lastSync.Valid {
		t := lastSync.Time.UTC()
		a.LastSyncTime = &t
	}
	return &a, nil
}
