package bank

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/username/banksync/src/models"
)

// Gateway is the consumed banking capability. The sync engine depends only on
// this interface; concrete variants are the HTTP client and the mock.
type Gateway interface {
	// ListAccounts returns every account visible to the API credentials.
	ListAccounts(ctx context.Context) ([]*models.Account, error)

	// ListTransactions returns the transactions posted to the account in
	// [from, to). The API rejects windows longer than MaxWindow.
	ListTransactions(ctx context.Context, accountExternalID string, from, to time.Time) ([]*models.Transaction, error)

	// RegisterWebhook subscribes url to per-transaction notifications.
	RegisterWebhook(ctx context.Context, url string) error

	// ParseWebhookPayload verifies and decodes a webhook notification body.
	ParseWebhookPayload(payload []byte, signature string) (*models.WebhookTransactionData, error)
}

// MaxWindow is the widest half-open [from, to) span one transactions request
// may cover. The API's 31-day limit counts both endpoint dates, so the span
// between them is 30 days.
const MaxWindow = 30 * 24 * time.Hour

// ErrInvalidSignature is returned when a webhook payload fails HMAC verification.
var ErrInvalidSignature = errors.New("webhook signature mismatch")

// TransportError wraps a failed gateway call. Synchronizers treat it as
// recoverable at the chunk/account level.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("bank gateway %s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("bank gateway %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
