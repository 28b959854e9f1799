/**
 * @description
 * This file sets up the HTTP router for the gateway. It defines the H2H API, the webhook
 * receiver and the browser pages, and applies the middleware they need: request logging,
 * panic recovery, timeouts, CORS, metrics, sessions and rate limiting.
 *
 * @dependencies
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 * - github.com/go-chi/cors: CORS handling for the JSON endpoints.
 * - github.com/prometheus/client_golang/prometheus/promhttp: The /metrics endpoint.
 */

package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ReyGenteng/galaxy/internal/app"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterOptions carries the router's tunables.
type RouterOptions struct {
	AllowedOrigins        []string
	Limiter               app.RateLimiter
	H2HRateLimitPerMinute int
	Logger                *slog.Logger
}

// GatewayRoutes creates and returns the router of the gateway.
func GatewayRoutes(h *Handlers, opts RouterOptions) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})
	r.Handle("/metrics", promhttp.Handler())

	// Public pages.
	r.Get("/", h.IndexPage)
	r.Get("/support", h.SupportPage)
	r.Get("/docs", h.DocsPage)
	r.Get("/pg/{reff_id}/{apikey}", h.PaymentPage)

	r.Route("/auth", func(r chi.Router) {
		r.Get("/login", h.LoginPage)
		r.Post("/login", h.LoginHandler)
		r.Get("/register", h.RegisterPage)
		r.Post("/register", h.RegisterHandler)
	})
	r.Get("/logout", h.LogoutHandler)

	// H2H API, keyed by the apikey query parameter.
	r.Route("/h2h/deposit", func(r chi.Router) {
		r.Use(RateLimitH2H(opts.Limiter, opts.H2HRateLimitPerMinute, logger))
		r.Get("/create", h.CreateDepositHandler)
		r.Get("/status", h.DepositStatusHandler)
		r.Get("/poll", h.PollDepositHandler)
	})

	r.Post("/webhook/atlantic", h.AtlanticWebhookHandler)

	r.Group(func(r chi.Router) {
		r.Use(h.sessions.RequireLoginJSON)
		r.Get("/api/balance", h.BalanceHandler)
	})

	r.Route("/dashboard", func(r chi.Router) {
		r.Use(h.sessions.RequireLogin)
		r.Get("/", h.DashboardPage)
		r.Get("/api-keys", h.APIKeysPage)
		r.Post("/api-keys/generate", h.GenerateAPIKeyHandler)
		r.Post("/withdraw", h.WithdrawHandler)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Get("/login", h.AdminLoginPage)
		r.Post("/login", h.AdminLoginHandler)

		r.Group(func(r chi.Router) {
			r.Use(h.sessions.RequireAdmin)
			r.Get("/", h.AdminPanelPage)
			r.Post("/verify-api-key/{userId}", h.AdminVerifyAPIKeyHandler)
			r.Post("/delete-user/{userId}", h.AdminDeleteUserHandler)
		})
	})

	return r
}
