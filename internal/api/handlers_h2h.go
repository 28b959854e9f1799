package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ReyGenteng/galaxy/internal/app"
)

// CreateDepositHandler handles GET /h2h/deposit/create.
func (h *Handlers) CreateDepositHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	// A malformed nominal is passed on as zero so it fails with the same invalid_request
	// reason, after the key checks.
	nominal, err := strconv.ParseInt(strings.TrimSpace(q.Get("nominal")), 10, 64)
	if err != nil {
		nominal = 0
	}

	txn, err := h.service.CreateDeposit(r.Context(), q.Get("apikey"), q.Get("reff_id"), nominal)
	if err != nil {
		h.writeDepositError(w, "deposit_create", err)
		return
	}

	writeJSON(w, http.StatusOK, depositResponse{
		Status: true,
		Data:   newTransactionData(txn),
		Code:   http.StatusOK,
	})
}

// DepositStatusHandler handles GET /h2h/deposit/status.
func (h *Handlers) DepositStatusHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	txn, err := h.service.DepositStatus(r.Context(), q.Get("apikey"), q.Get("reff_id"))
	if err != nil {
		h.writeDepositError(w, "deposit_status", err)
		return
	}

	writeJSON(w, http.StatusOK, depositResponse{
		Status: true,
		Data:   newTransactionData(txn),
		Code:   http.StatusOK,
	})
}

// PollDepositHandler handles GET /h2h/deposit/poll. It always answers 200.
func (h *Handlers) PollDepositHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	result, err := h.service.PollDeposit(r.Context(), q.Get("apikey"), q.Get("reff_id"))
	if err != nil {
		h.logger.Error("poll failed", "component", "api", "endpoint", "deposit_poll", "err", err)
		writeJSON(w, http.StatusOK, app.PollResult{Status: app.CodeInternal, Message: app.ErrorMessage(err)})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// AtlanticWebhookHandler handles POST /webhook/atlantic. The processor always gets an
// acknowledgement; processing outcomes are only logged.
func (h *Handlers) AtlanticWebhookHandler(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		h.logger.Warn("failed to read webhook body", "component", "webhook", "err", err)
	}
	h.service.HandleWebhook(r.Context(), body)
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
