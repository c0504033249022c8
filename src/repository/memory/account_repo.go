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

// AccountRepository is an in-memory AccountRepository used by tests and by
// the offline wiring. FindActive preserves insertion order like the sqlite
// implementation does.
type AccountRepository struct {
	mu       sync.RWMutex
	accounts map[int64]*models.Account
	nextID   int64

	// WriteCount counts every mutating call, letting tests assert idempotence.
	WriteCount int
}

func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		accounts: make(map[int64]*models.Account),
		nextID:   1,
	}
}

func (r *AccountRepository) FindByID(ctx context.Context, id int64) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, exists := r.accounts[id]
	if !exists {
		return nil, fmt.Errorf("%w: account %d", repository.ErrNotFound, id)
	}
	copied := *account
	return &copied, nil
}

func (r *AccountRepository) FindByExternalID(ctx context.Context, externalID string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, account := range r.accounts {
		if account.Source == models.AccountSourceBank && account.ExternalID == externalID {
			copied := *account
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("%w: account %q", repository.ErrNotFound, externalID)
}

func (r *AccountRepository) FindActive(ctx context.Context) ([]*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*models.Account
	for _, account := range r.accounts {
		if !account.IsArchived {
			copied := *account
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if account.Source == models.AccountSourceBank {
		for _, existing := range r.accounts {
			if existing.Source == models.AccountSourceBank && existing.ExternalID == account.ExternalID {
				return fmt.Errorf("%w: account %q", repository.ErrDuplicate, account.ExternalID)
			}
		}
	}

	account.ID = r.nextID
	r.nextID++
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now

	copied := *account
	r.accounts[account.ID] = &copied
	r.WriteCount++
	return nil
}

func (r *AccountRepository) Update(ctx context.Context, account *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.accounts[account.ID]
	if !exists {
		return fmt.Errorf("%w: account %d", repository.ErrNotFound, account.ID)
	}

	account.LastSyncTime = existing.LastSyncTime
	account.UpdatedAt = time.Now().UTC()
	copied := *account
	r.accounts[account.ID] = &copied
	r.WriteCount++
	return nil
}

func (r *AccountRepository) UpdateLastSyncTime(ctx context.Context, id int64, t time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, exists := r.accounts[id]
	if !exists {
		return fmt.Errorf("%w: account %d", repository.ErrNotFound, id)
	}

	utc := t.UTC()
	account.LastSyncTime = &utc
	account.UpdatedAt = time.Now().UTC()
	r.WriteCount++
	return nil
}
