package repository

import (
	"context"
	"errors"
	"time"

	"github.com/username/banksync/src/models"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate entry")
)

// AccountRepository is keyed storage for canonical accounts. FindByExternalID
// only matches bank-sourced accounts; manual accounts are invisible to the
// synchronizer.
type AccountRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Account, error)
	FindByExternalID(ctx context.Context, externalID string) (*models.Account, error)
	FindActive(ctx context.Context) ([]*models.Account, error)
	Create(ctx context.Context, account *models.Account) error
	Update(ctx context.Context, account *models.Account) error
	UpdateLastSyncTime(ctx context.Context, id int64, t time.Time) error
}

// TransactionRepository is keyed storage for canonical transactions. The pair
// (accountID, externalID) is unique.
type TransactionRepository interface {
	FindByExternalID(ctx context.Context, accountID int64, externalID string) (*models.Transaction, error)
	FindUncategorized(ctx context.Context, limit int) ([]*models.Transaction, error)
	CreateBatch(ctx context.Context, transactions []*models.Transaction) error
	Update(ctx context.Context, transaction *models.Transaction) error
}
