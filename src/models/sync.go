package models

import "time"

// AccountSyncStats counts the outcome of one account reconciliation pass.
type AccountSyncStats struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
}

// TransactionSyncStats aggregates transaction reconciliation across accounts.
type TransactionSyncStats struct {
	SyncedAccounts      int `json:"syncedAccounts"`
	TotalAccounts       int `json:"totalAccounts"`
	NewTransactions     int `json:"newTransactions"`
	UpdatedTransactions int `json:"updatedTransactions"`
	SkippedTransactions int `json:"skippedTransactions"`
}

// SyncResult is the write-once output of one orchestrator run. It is never
// persisted; the calling shell decides exit status from len(Errors).
type SyncResult struct {
	RunID        string               `json:"runId"`
	Accounts     AccountSyncStats     `json:"accounts"`
	Transactions TransactionSyncStats `json:"transactions"`
	Errors       []string             `json:"errors"`
	StartedAt    time.Time            `json:"startedAt"`
	FinishedAt   time.Time            `json:"finishedAt"`
}

// HasErrors reports whether any account or chunk failed during the run.
func (r *SyncResult) HasErrors() bool {
	return len(r.Errors) > 0
}
