/**
 * @description
 * Browser handlers: public pages, registration and login, the user dashboard and the
 * hosted payment page. Failures are reported back through `?error=` redirects.
 */

package api

import (
	"errors"
	"net/http"

	"github.com/ReyGenteng/galaxy/internal/app"
	"github.com/go-chi/chi/v5"
)

func (h *Handlers) IndexPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "index", viewData{})
}

func (h *Handlers) SupportPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "support", viewData{})
}

func (h *Handlers) DocsPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "docs", viewData{Endpoints: h2hEndpoints, FeeLabel: h.service.Fees().String()})
}

func (h *Handlers) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "login", viewData{})
}

// LoginHandler authenticates any account; admins land on the admin panel.
func (h *Handlers) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirectWith(w, r, "/auth/login", "error", "Invalid form")
		return
	}

	user, err := h.service.Login(r.Context(), r.PostFormValue("email"), r.PostFormValue("password"), false)
	if err != nil {
		h.logger.Warn("login rejected", "component", "api", "reason", err)
		redirectWith(w, r, "/auth/login", "error", app.ErrorMessage(err))
		return
	}
	if err := h.sessions.Issue(w, user); err != nil {
		h.logger.Error("issue session failed", "component", "api", "user_id", user.ID, "err", err)
		redirectWith(w, r, "/auth/login", "error", "Login failed")
		return
	}

	if user.IsAdmin {
		http.Redirect(w, r, "/admin", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

func (h *Handlers) RegisterPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "register", viewData{})
}

func (h *Handlers) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirectWith(w, r, "/auth/register", "error", "Registration failed")
		return
	}

	_, err := h.service.Register(r.Context(), r.PostFormValue("username"), r.PostFormValue("email"), r.PostFormValue("password"))
	if err != nil {
		if !errors.Is(err, app.ErrUserExists) && !errors.Is(err, app.ErrInvalidRequest) {
			h.logger.Error("registration failed", "component", "api", "err", err)
		}
		redirectWith(w, r, "/auth/register", "error", "Registration failed")
		return
	}
	redirectWith(w, r, "/auth/login", "success", "Registration successful")
}

func (h *Handlers) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(w)
	http.Redirect(w, r, "/", http.StatusFound)
}

// DashboardPage shows balance, recent deposits and withdrawals. A session whose user no
// longer exists is dropped.
func (h *Handlers) DashboardPage(w http.ResponseWriter, r *http.Request) {
	claims, _ := GetSession(r.Context())

	dashboard, err := h.service.Dashboard(r.Context(), claims.UserID())
	if err != nil {
		if errors.Is(err, app.ErrUserNotFound) {
			h.sessions.Clear(w)
			http.Redirect(w, r, "/auth/login", http.StatusFound)
			return
		}
		h.logger.Error("load dashboard failed", "component", "api", "user_id", claims.UserID(), "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.render(w, r, "dashboard", viewData{Session: claims, Dashboard: dashboard})
}

func (h *Handlers) APIKeysPage(w http.ResponseWriter, r *http.Request) {
	claims, _ := GetSession(r.Context())

	keys, err := h.service.ListAPIKeys(r.Context(), claims.UserID())
	if err != nil {
		h.logger.Error("list api keys failed", "component", "api", "user_id", claims.UserID(), "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.render(w, r, "api_keys", viewData{Session: claims, APIKeys: keys})
}

func (h *Handlers) GenerateAPIKeyHandler(w http.ResponseWriter, r *http.Request) {
	claims, _ := GetSession(r.Context())

	if _, err := h.service.GenerateAPIKey(r.Context(), claims.UserID()); err != nil {
		h.logger.Error("generate api key failed", "component", "api", "user_id", claims.UserID(), "err", err)
		redirectWith(w, r, "/dashboard/api-keys", "error", "Failed to generate API key")
		return
	}
	redirectWith(w, r, "/dashboard/api-keys", "success", "API key generated")
}

// WithdrawHandler debits the balance and sends the user to WhatsApp to finish the payout.
func (h *Handlers) WithdrawHandler(w http.ResponseWriter, r *http.Request) {
	claims, _ := GetSession(r.Context())

	if err := r.ParseForm(); err != nil {
		redirectWith(w, r, "/dashboard", "error", "Withdrawal failed")
		return
	}
	nominal, ok := parseAmount(r.PostFormValue("nominal"))
	if !ok {
		redirectWith(w, r, "/dashboard", "error", "Invalid amount")
		return
	}

	receipt, err := h.service.RequestWithdrawal(r.Context(), claims.UserID(), nominal)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInsufficientBalance):
			redirectWith(w, r, "/dashboard", "error", "Insufficient balance")
		default:
			h.logger.Error("withdrawal failed", "component", "api", "user_id", claims.UserID(), "err", err)
			redirectWith(w, r, "/dashboard", "error", "Withdrawal failed")
		}
		return
	}
	http.Redirect(w, r, receipt.RedirectURL, http.StatusFound)
}

// BalanceHandler handles GET /api/balance.
func (h *Handlers) BalanceHandler(w http.ResponseWriter, r *http.Request) {
	claims, _ := GetSession(r.Context())

	balance, err := h.service.Balance(r.Context(), claims.UserID())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, app.ErrUserNotFound) {
			status = http.StatusNotFound
		} else {
			h.logger.Error("load balance failed", "component", "api", "user_id", claims.UserID(), "err", err)
		}
		writeJSON(w, status, statusResponse{Status: false, Message: app.ErrorMessage(err)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": true, "balance": balance})
}

// PaymentPage renders the hosted QR page at /pg/{reff_id}/{apikey}.
func (h *Handlers) PaymentPage(w http.ResponseWriter, r *http.Request) {
	txn, err := h.service.PaymentPage(r.Context(), chi.URLParam(r, "reff_id"), chi.URLParam(r, "apikey"))
	if err != nil {
		if !errors.Is(err, app.ErrTransactionNotFound) {
			h.logger.Error("load payment page failed", "component", "api", "err", err)
		}
		http.Error(w, "Transaction not found", http.StatusNotFound)
		return
	}
	h.render(w, r, "payment", viewData{Transaction: txn})
}
