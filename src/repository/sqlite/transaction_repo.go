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

type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = `id, account_id, external_id, posted_at, amount, currency,
	description, counterparty, category_status, category, raw_source, created_at, updated_at`

func (r *TransactionRepository) FindByExternalID(ctx context.Context, accountID int64, externalID string) (*models.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE account_id = ? AND external_id = ?`,
		accountID, externalID)
	return scanTransaction(row)
}

func (r *TransactionRepository) FindUncategorized(ctx context.Context, limit int) ([]*models.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE category_status = ? ORDER BY posted_at, id LIMIT ?`,
		models.CategoryStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("querying uncategorized transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}

// CreateBatch inserts all transactions in a single database transaction so a
// mid-batch failure leaves no partial chunk behind.
func (r *TransactionRepository) CreateBatch(ctx context.Context, transactions []*models.Transaction) error {
	if len(transactions) == 0 {
		return nil
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning batch insert: %w", err)
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.PrepareContext(ctx, `
		INSERT INTO transactions (account_id, external_id, posted_at, amount, currency,
			description, counterparty, category_status, category, raw_source, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing batch insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, tx := range transactions {
		if tx.CategoryStatus == "" {
			tx.CategoryStatus = models.CategoryStatusPending
		}
		tx.CreatedAt = now
		tx.UpdatedAt = now

		result, err := stmt.ExecContext(ctx,
			tx.AccountID, tx.ExternalID, tx.PostedAt.UTC(), tx.Amount, tx.Currency,
			tx.Description, tx.Counterparty, tx.CategoryStatus, tx.Category,
			tx.RawSource, tx.CreatedAt, tx.UpdatedAt)
		if err != nil {
			return fmt.Errorf("inserting transaction %q for account %d: %w", tx.ExternalID, tx.AccountID, err)
		}
		if tx.ID, err = result.LastInsertId(); err != nil {
			return err
		}
	}

	return dbTx.Commit()
}

func (r *TransactionRepository) Update(ctx context.Context, transaction *models.Transaction) error {
	transaction.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET posted_at = ?, amount = ?, currency = ?, description = ?, counterparty = ?,
			category_status = ?, category = ?, updated_at = ?
		WHERE id = ?`,
		transaction.PostedAt.UTC(), transaction.Amount, transaction.Currency,
		transaction.Description, transaction.Counterparty, transaction.CategoryStatus,
		transaction.Category, transaction.UpdatedAt, transaction.ID)
	if err != nil {
		return fmt.Errorf("updating transaction %d: %w", transaction.ID, err)
	}
	return requireRowAffected(result)
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.ID, &t.AccountID, &t.ExternalID, &t.PostedAt, &t.Amount,
		&t.Currency, &t.Description, &t.Counterparty, &t.CategoryStatus,
		&t.Category, &t.RawSource, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning transaction: %w", err)
	}
	t.PostedAt = t.PostedAt.UTC()
	return &t, nil
}
