/**
 * @description
 * This file holds the handler set shared by the H2H API, the webhook receiver and the
 * browser pages, plus the JSON and redirect helpers they write responses with.
 *
 * @dependencies
 * - encoding/json, net/http, net/url: Standard Go libraries.
 * - internal/app: For the gateway service and its error mapping.
 */

package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ReyGenteng/galaxy/internal/app"
	"github.com/ReyGenteng/galaxy/internal/domain"
)

const (
	timestampLayout = "2006-01-02 15:04:05"
	maxWebhookBody  = 1 << 20
)

// Handlers holds the application service and collaborators the handlers use.
type Handlers struct {
	service  *app.Service
	sessions *SessionManager
	views    *views
	logger   *slog.Logger
}

// NewHandlers creates a new instance of Handlers.
func NewHandlers(service *app.Service, sessions *SessionManager, logger *slog.Logger) (*Handlers, error) {
	if logger == nil {
		logger = slog.Default()
	}
	v, err := loadViews()
	if err != nil {
		return nil, err
	}
	return &Handlers{service: service, sessions: sessions, views: v, logger: logger}, nil
}

type statusResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message,omitempty"`
}

type transactionData struct {
	ID        int64  `json:"id"`
	ReffID    string `json:"reff_id"`
	Nominal   int64  `json:"nominal"`
	QRString  string `json:"qr_string"`
	QRImage   string `json:"qr_image"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	ExpiredAt string `json:"expired_at"`
}

// depositResponse is the envelope of the create and status endpoints. Code mirrors the
// HTTP status of the response.
type depositResponse struct {
	Status  bool             `json:"status"`
	Message string           `json:"message,omitempty"`
	Error   string           `json:"error,omitempty"`
	Data    *transactionData `json:"data,omitempty"`
	Code    int              `json:"code"`
}

func newTransactionData(txn *domain.Transaction) *transactionData {
	return &transactionData{
		ID:        txn.ID,
		ReffID:    txn.ReffID,
		Nominal:   txn.Nominal,
		QRString:  txn.QRString,
		QRImage:   txn.QRImage,
		Status:    txn.Status,
		CreatedAt: formatTimestamp(txn.CreatedAt),
		ExpiredAt: formatTimestamp(txn.ExpiredAt),
	}
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timestampLayout)
}

// httpStatusFor maps a service error to the HTTP status of the H2H envelope.
func httpStatusFor(err error) int {
	switch {
	case errors.Is(err, app.ErrInvalidAPIKey):
		return http.StatusUnauthorized
	case errors.Is(err, app.ErrAPIKeyNotVerified):
		return http.StatusForbidden
	case errors.Is(err, app.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, app.ErrDuplicateReffID):
		return http.StatusConflict
	case errors.Is(err, app.ErrTransactionNotFound):
		return http.StatusNotFound
	case errors.Is(err, app.ErrUpstreamFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON is a helper for writing JSON responses.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func (h *Handlers) writeDepositError(w http.ResponseWriter, endpoint string, err error) {
	status := httpStatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("h2h request failed", "component", "api", "endpoint", endpoint, "err", err)
	} else {
		h.logger.Warn("h2h request rejected", "component", "api", "endpoint", endpoint, "reason", app.ErrorCode(err))
	}
	writeJSON(w, status, depositResponse{
		Status:  false,
		Message: app.ErrorMessage(err),
		Error:   app.ErrorCode(err),
		Code:    status,
	})
}

// redirectWith sends the browser to path with a flash message in the query string.
func redirectWith(w http.ResponseWriter, r *http.Request, path, key, message string) {
	http.Redirect(w, r, path+"?"+key+"="+url.QueryEscape(message), http.StatusFound)
}

// parseAmount accepts plain digits as well as the "Rp 10.000" format the dashboard input produces.
// Signed input is rejected.
func parseAmount(raw string) (int64, bool) {
	if strings.ContainsRune(raw, '-') {
		return 0, false
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
	if digits == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func readBody(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
}
