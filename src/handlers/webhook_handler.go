package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/banksync/src/bank"
	"github.com/username/banksync/src/logger"
	"github.com/username/banksync/src/metrics"
	"github.com/username/banksync/src/models"
	"github.com/username/banksync/src/repository"
	"github.com/username/banksync/src/security/validation"
	"github.com/username/banksync/src/utils"
)

const maxWebhookBodyBytes = 1 << 20 // 1MB

// WebhookHandler ingests single-transaction notifications from the bank,
// applying the same (account, externalId) dedup rule as the bulk sync.
// Resolved accounts are cached by external id; only the immutable internal
// id is read from a cached entry.
type WebhookHandler struct {
	gateway      bank.Gateway
	accountRepo  repository.AccountRepository
	txRepo       repository.TransactionRepository
	collector    *metrics.Collector
	accountCache *cache.Cache
}

func NewWebhookHandler(
	gateway bank.Gateway,
	accountRepo repository.AccountRepository,
	txRepo repository.TransactionRepository,
	collector *metrics.Collector,
	accountCacheTTL time.Duration,
) *WebhookHandler {
	if accountCacheTTL <= 0 {
		accountCacheTTL = 5 * time.Minute
	}
	return &WebhookHandler{
		gateway:      gateway,
		accountRepo:  accountRepo,
		txRepo:       txRepo,
		collector:    collector,
		accountCache: cache.New(accountCacheTTL, 10*time.Minute),
	}
}

func (h *WebhookHandler) HandleBankWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
	if err != nil {
		utils.SendJSONError(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	data, err := h.gateway.ParseWebhookPayload(body, r.Header.Get("X-Bank-Signature"))
	if err != nil {
		if errors.Is(err, bank.ErrInvalidSignature) {
			logger.ErrorFromContext(r.Context(), "Webhook signature verification failed")
			h.observe("rejected")
			utils.SendJSONError(w, "invalid signature", http.StatusUnauthorized)
			return
		}
		logger.ErrorFromContext(r.Context(), "Webhook payload rejected", "error", err)
		h.observe("rejected")
		utils.SendJSONError(w, "invalid payload", http.StatusBadRequest)
		return
	}

	account, err := h.resolveAccount(r, data.AccountExternalID)
	if errors.Is(err, repository.ErrNotFound) {
		// Not fatal: the next full sync will discover the account and its
		// transactions.
		logger.FromContext(r.Context()).Warn("Webhook for unknown account",
			"accountExternalID", data.AccountExternalID)
		h.observe("unknown_account")
		utils.SendJSON(w, map[string]string{"status": "account not yet synced"}, http.StatusAccepted)
		return
	}
	if err != nil {
		logger.ErrorFromContext(r.Context(), "Webhook account lookup failed", "error", err)
		utils.SendJSONError(w, "account lookup failed", http.StatusInternalServerError)
		return
	}

	incoming := data.Transaction
	incoming.AccountID = account.ID
	incoming.Description = validation.CleanBankText(incoming.Description)
	incoming.Counterparty = validation.CleanBankText(incoming.Counterparty)
	if incoming.CategoryStatus == "" {
		incoming.CategoryStatus = models.CategoryStatusPending
	}

	outcome, err := h.upsert(r, account, &incoming)
	if err != nil {
		logger.ErrorFromContext(r.Context(), "Webhook transaction upsert failed",
			"accountExternalID", data.AccountExternalID,
			"transactionExternalID", incoming.ExternalID,
			"error", err)
		utils.SendJSONError(w, "persistence failed", http.StatusInternalServerError)
		return
	}

	h.observe(outcome)
	utils.SendJSON(w, map[string]string{"status": outcome}, http.StatusOK)
}

// resolveAccount maps a bank external id to the stored account, consulting
// the cache first. Unknown ids are not cached: the next full sync may create
// the account at any moment.
func (h *WebhookHandler) resolveAccount(r *http.Request, externalID string) (*models.Account, error) {
	if cached, found := h.accountCache.Get(externalID); found {
		return cached.(*models.Account), nil
	}

	account, err := h.accountRepo.FindByExternalID(r.Context(), externalID)
	if err != nil {
		return nil, err
	}
	h.accountCache.SetDefault(externalID, account)
	return account, nil
}

func (h *WebhookHandler) upsert(r *http.Request, account *models.Account, incoming *models.Transaction) (string, error) {
	existing, err := h.txRepo.FindByExternalID(r.Context(), account.ID, incoming.ExternalID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		if err := h.txRepo.CreateBatch(r.Context(), []*models.Transaction{incoming}); err != nil {
			return "", err
		}
		return "created", nil

	case err != nil:
		return "", err

	case existing.ContentEqual(incoming):
		return "skipped", nil

	default:
		existing.ApplyBankContent(incoming)
		if err := h.txRepo.Update(r.Context(), existing); err != nil {
			return "", err
		}
		return "updated", nil
	}
}

func (h *WebhookHandler) observe(outcome string) {
	if h.collector != nil {
		h.collector.ObserveWebhook(outcome)
	}
}
