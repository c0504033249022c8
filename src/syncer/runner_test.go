package syncer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/banksync/src/metrics"
	"github.com/username/banksync/src/models"
)

func TestRunner_RunUsesDefaultOptions(t *testing.T) {
	now := date(2024, 2, 1)
	f := newOrchestratorFixture(t, now)
	f.gateway.Accounts = []*models.Account{bankAccount("acc-1", "Checking", 10_000)}
	f.gateway.Transactions["acc-1"] = []*models.Transaction{
		bankTransaction("tx-1", date(2024, 1, 10), -1250, "Groceries"),
	}

	runner := NewRunner(f.orch, Options{EarliestSyncDate: date(2024, 1, 1)}, metrics.NewCollector())

	result, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Transactions.NewTransactions)
	assert.False(t, result.HasErrors())
}

func TestRunner_RejectsOverlappingRuns(t *testing.T) {
	now := date(2024, 2, 1)
	f := newOrchestratorFixture(t, now)
	f.gateway.Accounts = []*models.Account{bankAccount("acc-1", "Checking", 10_000)}

	// The pacer fires before every transactions request once the account
	// listing has gone out, so the first run blocks mid-flight while the
	// second is attempted.
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	f.orch.txSync.pacer = func(ctx context.Context, _ time.Duration) {
		once.Do(func() {
			close(started)
			<-release
		})
	}
	f.gateway.Transactions["acc-1"] = []*models.Transaction{
		bankTransaction("tx-1", date(2024, 1, 10), -1250, "Groceries"),
	}

	runner := NewRunner(f.orch, Options{
		EarliestSyncDate: date(2023, 12, 1),
		RequestDelay:     time.Millisecond,
	}, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := runner.Run(context.Background())
		assert.NoError(t, err)
	}()

	<-started
	_, err := runner.Run(context.Background())
	assert.ErrorIs(t, err, ErrSyncInProgress)

	close(release)
	wg.Wait()
}
