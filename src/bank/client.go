package bank

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/banksync/src/models"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

// --- API Response Structs ---

type apiAccount struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	IBAN        *string `json:"iban"`
	Currency    string  `json:"currency"`
	Type        string  `json:"type"`
	Balance     string  `json:"balance"`
	CreditLimit *string `json:"credit_limit"`
}

type apiAccountList struct {
	Accounts []apiAccount `json:"accounts"`
}

type apiTransaction struct {
	ID           string `json:"id"`
	BookingDate  string `json:"booking_date"`
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
	Description  string `json:"description"`
	Counterparty string `json:"counterparty"`
}

type apiTransactionList struct {
	Transactions []apiTransaction `json:"transactions"`
}

type webhookEnvelope struct {
	AccountID   string         `json:"account_id"`
	Transaction apiTransaction `json:"transaction"`
}

// ClientConfig carries the settings the HTTP gateway client needs.
type ClientConfig struct {
	BaseURL       string
	TokenURL      string
	ClientID      string
	ClientSecret  string
	WebhookSecret string
	Timeout       time.Duration
	RatePerSecond int
}

// Client talks to the bank's REST API. Every request goes through a shared
// rate limiter; the API enforces a single global limit per credential.
type Client struct {
	baseURL       string
	webhookSecret string
	httpClient    *http.Client
	limiter       *rate.Limiter
	logger        *slog.Logger
}

var _ Gateway = (*Client)(nil)

// NewClient builds the HTTP gateway. Token handling is OAuth2 client
// credentials; the oauth2 transport refreshes tokens as they expire.
func NewClient(cfg ClientConfig) *Client {
	base := &http.Client{Timeout: cfg.Timeout}

	httpClient := base
	if cfg.ClientID != "" {
		conf := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		httpClient = conf.Client(ctx)
	}

	ratePerSecond := cfg.RatePerSecond
	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}

	return &Client{
		baseURL:       strings.TrimSuffix(cfg.BaseURL, "/"),
		webhookSecret: cfg.WebhookSecret,
		httpClient:    httpClient,
		limiter:       rate.NewLimiter(rate.Limit(ratePerSecond), 1),
		logger:        slog.Default(),
	}
}

// ListAccounts always hits the API. Reconciliation needs the bank's current
// snapshot; new accounts and amended balances must be visible on every run.
func (c *Client) ListAccounts(ctx context.Context) ([]*models.Account, error) {
	var payload apiAccountList
	if err := c.get(ctx, "/api/v1/accounts", nil, &payload); err != nil {
		return nil, err
	}

	accounts := make([]*models.Account, 0, len(payload.Accounts))
	for _, raw := range payload.Accounts {
		account, err := convertAccount(raw)
		if err != nil {
			return nil, &TransportError{Op: "list accounts", Err: err}
		}
		accounts = append(accounts, account)
	}

	return accounts, nil
}

func (c *Client) ListTransactions(ctx context.Context, accountExternalID string, from, to time.Time) ([]*models.Transaction, error) {
	params := url.Values{}
	params.Set("date_from", from.UTC().Format("2006-01-02"))
	params.Set("date_to", to.UTC().Format("2006-01-02"))

	path := fmt.Sprintf("/api/v1/accounts/%s/transactions", url.PathEscape(accountExternalID))
	var payload apiTransactionList
	if err := c.get(ctx, path, params, &payload); err != nil {
		return nil, err
	}

	transactions := make([]*models.Transaction, 0, len(payload.Transactions))
	for _, raw := range payload.Transactions {
		tx, err := convertTransaction(raw)
		if err != nil {
			return nil, &TransportError{Op: "list transactions", Err: err}
		}
		transactions = append(transactions, tx)
	}
	return transactions, nil
}

func (c *Client) RegisterWebhook(ctx context.Context, hookURL string) error {
	body, _ := json.Marshal(map[string]string{"url": hookURL})
	if err := c.post(ctx, "/api/v1/webhooks", body); err != nil {
		return err
	}
	c.logger.Info("Webhook registered with bank API", "url", hookURL)
	return nil
}

// ParseWebhookPayload verifies the hex-encoded HMAC-SHA256 signature over the
// raw body, then decodes the notification.
func (c *Client) ParseWebhookPayload(payload []byte, signature string) (*models.WebhookTransactionData, error) {
	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature))) {
		return nil, ErrInvalidSignature
	}

	var envelope webhookEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("decoding webhook payload: %w", err)
	}

	tx, err := convertTransaction(envelope.Transaction)
	if err != nil {
		return nil, fmt.Errorf("converting webhook transaction: %w", err)
	}

	return &models.WebhookTransactionData{
		AccountExternalID: envelope.AccountID,
		Transaction:       *tx,
	}, nil
}

// --- HTTP plumbing ---

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &TransportError{Op: "GET " + path, Err: err}
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return &TransportError{Op: "GET " + path, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: "GET " + path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return &TransportError{Op: "GET " + path, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: "GET " + path, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body []byte) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &TransportError{Op: "POST " + path, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(string(body)))
	if err != nil {
		return &TransportError{Op: "POST " + path, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: "POST " + path, Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return &TransportError{Op: "POST " + path, StatusCode: resp.StatusCode}
	}
	return nil
}

// --- Conversions ---

func convertAccount(raw apiAccount) (*models.Account, error) {
	balance, err := parseMinorUnits(raw.Balance)
	if err != nil {
		return nil, fmt.Errorf("account %q balance: %w", raw.ID, err)
	}

	account := &models.Account{
		ExternalID:   raw.ID,
		Name:         raw.Name,
		ExternalName: raw.Name,
		Currency:     raw.Currency,
		Balance:      balance,
		IBAN:         raw.IBAN,
		Source:       models.AccountSourceBank,
	}

	switch raw.Type {
	case "credit":
		account.Type = models.AccountTypeCredit
	default:
		account.Type = models.AccountTypeDebit
	}

	if raw.CreditLimit != nil {
		limit, err := parseMinorUnits(*raw.CreditLimit)
		if err != nil {
			return nil, fmt.Errorf("account %q credit limit: %w", raw.ID, err)
		}
		account.CreditLimit = &limit
	}
	return account, nil
}

func convertTransaction(raw apiTransaction) (*models.Transaction, error) {
	amount, err := parseMinorUnits(raw.Amount)
	if err != nil {
		return nil, fmt.Errorf("transaction %q amount: %w", raw.ID, err)
	}

	postedAt, err := time.Parse(time.RFC3339, raw.BookingDate)
	if err != nil {
		return nil, fmt.Errorf("transaction %q booking date: %w", raw.ID, err)
	}

	return &models.Transaction{
		ExternalID:     raw.ID,
		PostedAt:       postedAt.UTC(),
		Amount:         amount,
		Currency:       raw.Currency,
		Description:    raw.Description,
		Counterparty:   raw.Counterparty,
		CategoryStatus: models.CategoryStatusPending,
		RawSource:      true,
	}, nil
}

// parseMinorUnits converts the API's decimal string ("123.45") into integer
// minor units. Exponent-2 currencies only; conversion is out of scope here.
func parseMinorUnits(s string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	return d.Shift(2).Round(0).IntPart(), nil
}
