package bank

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/username/banksync/src/models"
)

// MockGateway is a scripted Gateway for tests and offline runs. Accounts and
// transactions are assigned up front; optional error hooks simulate transport
// failures on specific calls.
type MockGateway struct {
	Accounts     []*models.Account
	Transactions map[string][]*models.Transaction // keyed by account external id

	// ListAccountsErr, when set, fails every ListAccounts call.
	ListAccountsErr error

	// FailTransactionsCall makes the nth ListTransactions call (1-based,
	// counted per account external id) fail with a transport error.
	FailTransactionsCall map[string]int

	// Calls records every ListTransactions window issued, in order.
	Calls []TransactionsCall

	RegisteredWebhooks []string

	callCounts map[string]int
}

type TransactionsCall struct {
	AccountExternalID string
	From              time.Time
	To                time.Time
}

var _ Gateway = (*MockGateway)(nil)

func NewMockGateway() *MockGateway {
	return &MockGateway{
		Transactions:         make(map[string][]*models.Transaction),
		FailTransactionsCall: make(map[string]int),
		callCounts:           make(map[string]int),
	}
}

func (m *MockGateway) ListAccounts(ctx context.Context) ([]*models.Account, error) {
	if m.ListAccountsErr != nil {
		return nil, &TransportError{Op: "list accounts", Err: m.ListAccountsErr}
	}
	result := make([]*models.Account, len(m.Accounts))
	for i, account := range m.Accounts {
		copied := *account
		result[i] = &copied
	}
	return result, nil
}

func (m *MockGateway) ListTransactions(ctx context.Context, accountExternalID string, from, to time.Time) ([]*models.Transaction, error) {
	m.callCounts[accountExternalID]++
	m.Calls = append(m.Calls, TransactionsCall{AccountExternalID: accountExternalID, From: from, To: to})

	if n, ok := m.FailTransactionsCall[accountExternalID]; ok && m.callCounts[accountExternalID] == n {
		return nil, &TransportError{Op: "list transactions", StatusCode: 502}
	}

	var result []*models.Transaction
	for _, tx := range m.Transactions[accountExternalID] {
		if !tx.PostedAt.Before(from) && tx.PostedAt.Before(to) {
			copied := *tx
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (m *MockGateway) RegisterWebhook(ctx context.Context, url string) error {
	m.RegisteredWebhooks = append(m.RegisteredWebhooks, url)
	return nil
}

func (m *MockGateway) ParseWebhookPayload(payload []byte, signature string) (*models.WebhookTransactionData, error) {
	var data models.WebhookTransactionData
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("decoding mock webhook payload: %w", err)
	}
	return &data, nil
}
