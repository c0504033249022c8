package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/username/banksync/src/logger"
	"github.com/username/banksync/src/syncer"
	"github.com/username/banksync/src/utils"
)

type SyncHandler struct {
	runner      *syncer.Runner
	defaultOpts syncer.Options
}

func NewSyncHandler(runner *syncer.Runner, defaultOpts syncer.Options) *SyncHandler {
	return &SyncHandler{runner: runner, defaultOpts: defaultOpts}
}

// syncRequest is the optional JSON body of a manual trigger. "from" forces a
// backfill starting at that date.
type syncRequest struct {
	From string `json:"from,omitempty"`
}

// HandleTriggerSync runs a sync synchronously and returns its SyncResult.
// Overlapping triggers get 409.
func (h *SyncHandler) HandleTriggerSync(w http.ResponseWriter, r *http.Request) {
	opts := h.defaultOpts

	if r.ContentLength > 0 {
		var req syncRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.SendJSONError(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.From != "" {
			from, err := time.Parse("2006-01-02", req.From)
			if err != nil {
				utils.SendJSONError(w, "invalid 'from' date, expected YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			opts.EarliestSyncDate = from
			opts.ForceFromDate = true
		}
	}

	logger.InfoFromContext(r.Context(), "Manual sync triggered",
		"forceFromDate", opts.ForceFromDate)

	result, err := h.runner.RunWith(r.Context(), opts)
	if err != nil {
		if errors.Is(err, syncer.ErrSyncInProgress) {
			utils.SendJSONError(w, err.Error(), http.StatusConflict)
			return
		}
		logger.ErrorFromContext(r.Context(), "Sync run failed to start", "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	status := http.StatusOK
	if result.HasErrors() {
		// Partial failure: counts reflect what was committed.
		status = http.StatusMultiStatus
	}
	utils.SendJSON(w, result, status)
}

// HandleHealthz reports liveness.
func (h *SyncHandler) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	utils.SendJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}
