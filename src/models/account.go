package models

import "time"

type AccountType string

const (
	AccountTypeDebit  AccountType = "debit"
	AccountTypeCredit AccountType = "credit"
)

type AccountSource string

const (
	// AccountSourceManual marks accounts created by the user; the synchronizer never touches them.
	AccountSourceManual AccountSource = "manual"
	AccountSourceBank   AccountSource = "bank"
)

// Account is the canonical record for a bank or manual account.
// ExternalID is the bank-assigned identifier and is immutable once set.
type Account struct {
	ID           int64         `json:"id"`
	ExternalID   string        `json:"externalId"`
	Name         string        `json:"name"`
	ExternalName string        `json:"externalName"`
	Type         AccountType   `json:"type"`
	Currency     string        `json:"currency"`
	Balance      int64         `json:"balance"` // integer minor units
	CreditLimit  *int64        `json:"creditLimit,omitempty"`
	IBAN         *string       `json:"iban,omitempty"`
	Source       AccountSource `json:"source"`
	IsArchived   bool          `json:"isArchived"`
	LastSyncTime *time.Time    `json:"lastSyncTime,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// BankDetailsEqual reports whether the bank-owned mutable fields match the
// gateway snapshot. Internal id, user-set name, and the archived flag are
// deliberately excluded: those survive a sync.
func (a *Account) BankDetailsEqual(other *Account) bool {
	if a.ExternalName != other.ExternalName || a.Balance != other.Balance {
		return false
	}
	if !int64PtrEqual(a.CreditLimit, other.CreditLimit) {
		return false
	}
	return stringPtrEqual(a.IBAN, other.IBAN)
}

// ApplyBankDetails copies the bank-owned mutable fields from the gateway
// snapshot onto the stored record.
func (a *Account) ApplyBankDetails(other *Account) {
	a.ExternalName = other.ExternalName
	a.Balance = other.Balance
	a.CreditLimit = other.CreditLimit
	a.IBAN = other.IBAN
}

func int64PtrEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func stringPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
