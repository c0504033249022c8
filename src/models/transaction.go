package models

import "time"

type CategoryStatus string

const (
	CategoryStatusPending     CategoryStatus = "pending"
	CategoryStatusCategorized CategoryStatus = "categorized"
	CategoryStatusVerified    CategoryStatus = "verified"
)

// Transaction is a single posted movement on an account. The pair
// (AccountID, ExternalID) is the dedup key; ExternalID is never reassigned.
type Transaction struct {
	ID             int64          `json:"id"`
	AccountID      int64          `json:"accountId"`
	ExternalID     string         `json:"externalId"`
	PostedAt       time.Time      `json:"postedAt"`
	Amount         int64          `json:"amount"` // integer minor units, signed
	Currency       string         `json:"currency"`
	Description    string         `json:"description"`
	Counterparty   string         `json:"counterparty"`
	CategoryStatus CategoryStatus `json:"categoryStatus"`
	Category       string         `json:"category"`
	RawSource      bool           `json:"rawSource"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// ContentEqual reports whether the bank-reported fields match. Categorization
// fields are excluded: banks amend descriptions and amounts post-posting, but
// categorization belongs to us.
func (t *Transaction) ContentEqual(other *Transaction) bool {
	return t.PostedAt.Equal(other.PostedAt) &&
		t.Amount == other.Amount &&
		t.Currency == other.Currency &&
		t.Description == other.Description &&
		t.Counterparty == other.Counterparty
}

// ApplyBankContent copies the bank-reported fields from a freshly fetched
// transaction, leaving identity and categorization untouched.
func (t *Transaction) ApplyBankContent(other *Transaction) {
	t.PostedAt = other.PostedAt
	t.Amount = other.Amount
	t.Currency = other.Currency
	t.Description = other.Description
	t.Counterparty = other.Counterparty
}

// WebhookTransactionData is the parsed form of a bank webhook notification:
// one transaction plus the external id of the account it belongs to.
type WebhookTransactionData struct {
	AccountExternalID string      `json:"accountExternalId"`
	Transaction       Transaction `json:"transaction"`
}
