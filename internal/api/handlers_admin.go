package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ReyGenteng/galaxy/internal/app"
	"github.com/go-chi/chi/v5"
)

func (h *Handlers) AdminLoginPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "admin_login", viewData{})
}

// AdminLoginHandler only accepts admin accounts.
func (h *Handlers) AdminLoginHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirectWith(w, r, "/admin/login", "error", "Invalid form")
		return
	}

	user, err := h.service.Login(r.Context(), r.PostFormValue("email"), r.PostFormValue("password"), true)
	if err != nil {
		h.logger.Warn("admin login rejected", "component", "admin", "reason", err)
		redirectWith(w, r, "/admin/login", "error", app.ErrorMessage(err))
		return
	}
	if err := h.sessions.Issue(w, user); err != nil {
		h.logger.Error("issue session failed", "component", "admin", "user_id", user.ID, "err", err)
		redirectWith(w, r, "/admin/login", "error", "Login failed")
		return
	}
	http.Redirect(w, r, "/admin", http.StatusFound)
}

func (h *Handlers) AdminPanelPage(w http.ResponseWriter, r *http.Request) {
	claims, _ := GetSession(r.Context())

	users, err := h.service.AdminListUsers(r.Context())
	if err != nil {
		h.logger.Error("list users failed", "component", "admin", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.render(w, r, "admin_panel", viewData{Session: claims, Users: users})
}

func (h *Handlers) AdminVerifyAPIKeyHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil {
		redirectWith(w, r, "/admin", "error", "Verification failed")
		return
	}

	if err := h.service.AdminVerifyAPIKey(r.Context(), userID); err != nil {
		h.logger.Error("verify api key failed", "component", "admin", "user_id", userID, "err", err)
		redirectWith(w, r, "/admin", "error", "Verification failed")
		return
	}
	redirectWith(w, r, "/admin", "success", "API Key verified")
}

func (h *Handlers) AdminDeleteUserHandler(w http.ResponseWriter, r *http.Request) {
	claims, _ := GetSession(r.Context())

	userID, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil {
		redirectWith(w, r, "/admin", "error", "User not found")
		return
	}

	if err := h.service.AdminDeleteUser(r.Context(), claims.UserID(), userID); err != nil {
		switch {
		case errors.Is(err, app.ErrCannotDeleteSelf), errors.Is(err, app.ErrUserNotFound):
			redirectWith(w, r, "/admin", "error", app.ErrorMessage(err))
		default:
			h.logger.Error("delete user failed", "component", "admin", "user_id", userID, "err", err)
			redirectWith(w, r, "/admin", "error", "Failed to delete user")
		}
		return
	}
	redirectWith(w, r, "/admin", "success", "User deleted successfully")
}
