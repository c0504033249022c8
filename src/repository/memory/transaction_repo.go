package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/username/banksync/src/models"
	"github.com/username/banksync/src/repository"
)

type txKey struct {
	accountID  int64
	externalID string
}

// TransactionRepository is the in-memory TransactionRepository counterpart.
type TransactionRepository struct {
	mu           sync.RWMutex
	transactions map[txKey]*models.Transaction
	nextID       int64

	WriteCount int
}

func NewTransactionRepository() *TransactionRepository {
	return &TransactionRepository{
		transactions: make(map[txKey]*models.Transaction),
		nextID:       1,
	}
}

func (r *TransactionRepository) FindByExternalID(ctx context.Context, accountID int64, externalID string) (*models.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tx, exists := r.transactions[txKey{accountID, externalID}]
	if !exists {
		return nil, fmt.Errorf("%w: transaction %q for account %d", repository.ErrNotFound, externalID, accountID)
	}
	copied := *tx
	return &copied, nil
}

func (r *TransactionRepository) FindUncategorized(ctx context.Context, limit int) ([]*models.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*models.Transaction
	for _, tx := range r.transactions {
		if tx.CategoryStatus == models.CategoryStatusPending {
			copied := *tx
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].PostedAt.Equal(result[j].PostedAt) {
			return result[i].PostedAt.Before(result[j].PostedAt)
		}
		return result[i].ID < result[j].ID
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *TransactionRepository) CreateBatch(ctx context.Context, transactions []*models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Reject the whole batch on any duplicate, like the sqlite unique index would.
	for _, tx := range transactions {
		if _, exists := r.transactions[txKey{tx.AccountID, tx.ExternalID}]; exists {
			return fmt.Errorf("%w: transaction %q for account %d", repository.ErrDuplicate, tx.ExternalID, tx.AccountID)
		}
	}

	now := time.Now().UTC()
	for _, tx := range transactions {
		tx.ID = r.nextID
		r.nextID++
		if tx.CategoryStatus == "" {
			tx.CategoryStatus = models.CategoryStatusPending
		}
		tx.CreatedAt = now
		tx.UpdatedAt = now

		copied := *tx
		r.transactions[txKey{tx.AccountID, tx.ExternalID}] = &copied
		r.WriteCount++
	}
	return nil
}

func (r *TransactionRepository) Update(ctx context.Context, transaction *models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := txKey{transaction.AccountID, transaction.ExternalID}
	if _, exists := r.transactions[key]; !exists {
		return fmt.Errorf("%w: transaction %q for account %d", repository.ErrNotFound, transaction.ExternalID, transaction.AccountID)
	}

	transaction.UpdatedAt = time.Now().UTC()
	copied := *transaction
	r.transactions[key] = &copied
	r.WriteCount++
	return nil
}

// All returns every stored transaction, ordered by id. Test helper.
func (r *TransactionRepository) All() []*models.Transaction {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*models.Transaction
	for _, tx := range r.transactions {
		copied := *tx
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}
