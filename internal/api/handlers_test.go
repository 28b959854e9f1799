package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ReyGenteng/galaxy/internal/app"
	"github.com/ReyGenteng/galaxy/internal/domain"
	"github.com/ReyGenteng/galaxy/internal/store"
	"github.com/ReyGenteng/galaxy/pkg/atlanticclient"
)

// fakeUpstream emulates the processor's deposit endpoints.
type fakeUpstream struct {
	mu      sync.Mutex
	status  string
	qrImage string
	down    bool
	calls   int
}

func (f *fakeUpstream) set(status string, down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
	f.down = down
}

func (f *fakeUpstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.down {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	reffID := r.URL.Query().Get("reff_id")
	qrImage := f.qrImage
	if qrImage == "" {
		qrImage = "https://qr.example/" + reffID + ".png"
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  true,
		"message": "ok",
		"data": map[string]string{
			"qr_string": "00020101021226" + reffID,
			"qr_image":  qrImage,
			"status":    f.status,
		},
	})
}

type testEnv struct {
	router   http.Handler
	repo     *store.SQLRepository
	sessions *SessionManager
	upstream *fakeUpstream
}

func newTestEnv(t *testing.T, limiter app.RateLimiter) *testEnv {
	t.Helper()

	repo, err := store.Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "rpay-api.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	if err := repo.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	upstream := &fakeUpstream{status: domain.StatusPending}
	server := httptest.NewServer(upstream)
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := atlanticclient.NewClient(server.URL, "upstream-secret", 2*time.Second)
	client.RetryDelay = time.Millisecond
	client.Logger = logger

	service := app.NewService(repo, client, nil, app.Options{
		Fees:                  app.DefaultFeeSchedule(),
		DepositExpiry:         time.Hour,
		WithdrawWhatsAppPhone: "6289525036410",
	}, logger)
	sessions := NewSessionManager("test-secret", time.Hour, false)
	handlers, err := NewHandlers(service, sessions, logger)
	if err != nil {
		t.Fatalf("NewHandlers returned error: %v", err)
	}

	return &testEnv{
		router: GatewayRoutes(handlers, RouterOptions{
			Limiter:               limiter,
			H2HRateLimitPerMinute: 60,
			Logger:                logger,
		}),
		repo:     repo,
		sessions: sessions,
		upstream: upstream,
	}
}

func (e *testEnv) seedUser(t *testing.T, username string, saldo int64, admin bool) *domain.User {
	t.Helper()
	user := &domain.User{Username: username, Email: username + "@example.com", PasswordHash: "hash", Saldo: saldo, IsAdmin: admin}
	if err := e.repo.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func (e *testEnv) seedKey(t *testing.T, userID int64, key string, verified bool) {
	t.Helper()
	if _, err := e.repo.CreateAPIKey(context.Background(), userID, key); err != nil {
		t.Fatalf("create api key: %v", err)
	}
	if verified {
		if _, err := e.repo.VerifyAPIKeysForUser(context.Background(), userID); err != nil {
			t.Fatalf("verify api key: %v", err)
		}
	}
}

func (e *testEnv) cookieFor(t *testing.T, user *domain.User) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	if err := e.sessions.Issue(rec, user); err != nil {
		t.Fatalf("issue session: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one session cookie, got %d", len(cookies))
	}
	return cookies[0]
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) balance(t *testing.T, userID int64) int64 {
	t.Helper()
	balance, err := e.repo.GetBalance(context.Background(), userID)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	return balance
}

func postForm(path string, values url.Values, cookie *http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return req
}

func decodeDeposit(t *testing.T, rec *httptest.ResponseRecorder) depositResponse {
	t.Helper()
	var resp depositResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestHealthHandler(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "healthy" {
		t.Fatalf("unexpected health response: %d %q", rec.Code, rec.Body.String())
	}
}

func TestCreateDepositHandler(t *testing.T) {
	env := newTestEnv(t, nil)
	owner := env.seedUser(t, "merchant", 0, false)
	env.seedKey(t, owner.ID, "verified-key", true)
	other := env.seedUser(t, "pending", 0, false)
	env.seedKey(t, other.ID, "unverified-key", false)

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantError  string
	}{
		{name: "unknown key", query: "apikey=nope&reff_id=INV-1&nominal=10000", wantStatus: http.StatusUnauthorized, wantError: app.CodeInvalidAPIKey},
		{name: "unverified key", query: "apikey=unverified-key&reff_id=INV-1&nominal=10000", wantStatus: http.StatusForbidden, wantError: app.CodeAPIKeyNotVerified},
		{name: "non numeric nominal", query: "apikey=verified-key&reff_id=INV-1&nominal=abc", wantStatus: http.StatusBadRequest, wantError: app.CodeInvalidRequest},
		{name: "missing reff id", query: "apikey=verified-key&nominal=10000", wantStatus: http.StatusBadRequest, wantError: app.CodeInvalidRequest},
		{name: "created", query: "apikey=verified-key&reff_id=INV-1&nominal=10000", wantStatus: http.StatusOK},
		{name: "duplicate", query: "apikey=verified-key&reff_id=INV-1&nominal=10000", wantStatus: http.StatusConflict, wantError: app.CodeDuplicateReffID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(httptest.NewRequest(http.MethodGet, "/h2h/deposit/create?"+tt.query, nil))
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected HTTP %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			resp := decodeDeposit(t, rec)
			if resp.Code != tt.wantStatus {
				t.Fatalf("expected code %d to mirror HTTP status, got %d", tt.wantStatus, resp.Code)
			}
			if resp.Error != tt.wantError {
				t.Fatalf("expected error %q, got %q", tt.wantError, resp.Error)
			}
			if tt.wantError != "" {
				if resp.Status || resp.Data != nil {
					t.Fatalf("expected failure envelope, got %+v", resp)
				}
				return
			}
			if !resp.Status || resp.Data == nil || resp.Data.Status != domain.StatusPending || resp.Data.Nominal != 10000 {
				t.Fatalf("unexpected success envelope: %+v", resp)
			}
			if _, err := time.Parse(timestampLayout, resp.Data.ExpiredAt); err != nil {
				t.Fatalf("expired_at %q not in %s layout", resp.Data.ExpiredAt, timestampLayout)
			}
		})
	}
}

func TestCreateDepositHandlerUpstreamDown(t *testing.T) {
	env := newTestEnv(t, nil)
	owner := env.seedUser(t, "merchant", 0, false)
	env.seedKey(t, owner.ID, "verified-key", true)
	env.upstream.set(domain.StatusPending, true)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/h2h/deposit/create?apikey=verified-key&reff_id=INV-9&nominal=10000", nil))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	if resp := decodeDeposit(t, rec); resp.Error != app.CodeUpstreamFailed || resp.Message != "Failed to create QRIS payment" {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
	if exists, _ := env.repo.ReffIDExists(context.Background(), "INV-9"); exists {
		t.Fatal("no transaction should be stored when upstream fails")
	}
}

func TestDepositStatusThenWebhookCreditsOnce(t *testing.T) {
	env := newTestEnv(t, nil)
	owner := env.seedUser(t, "merchant", 0, false)
	env.seedKey(t, owner.ID, "verified-key", true)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/h2h/deposit/create?apikey=verified-key&reff_id=INV-1&nominal=10000", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("create failed: %d %s", rec.Code, rec.Body.String())
	}

	// Upstream unreachable: the stored record is served.
	env.upstream.set(domain.StatusSuccess, true)
	rec = env.do(httptest.NewRequest(http.MethodGet, "/h2h/deposit/status?apikey=verified-key&reff_id=INV-1", nil))
	if resp := decodeDeposit(t, rec); rec.Code != http.StatusOK || resp.Data.Status != domain.StatusPending {
		t.Fatalf("expected local pending state, got %d %+v", rec.Code, resp.Data)
	}

	env.upstream.set(domain.StatusSuccess, false)
	rec = env.do(httptest.NewRequest(http.MethodGet, "/h2h/deposit/status?apikey=verified-key&reff_id=INV-1", nil))
	if resp := decodeDeposit(t, rec); resp.Data == nil || resp.Data.Status != domain.StatusSuccess {
		t.Fatalf("expected success after refresh, got %s", rec.Body.String())
	}
	if got := env.balance(t, owner.ID); got != 9560 {
		t.Fatalf("expected balance 9560, got %d", got)
	}

	webhook := httptest.NewRequest(http.MethodPost, "/webhook/atlantic", strings.NewReader(`{"reff_id":"INV-1","status":"success"}`))
	webhook.Header.Set("Content-Type", "application/json")
	rec = env.do(webhook)
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != `{"received":true}` {
		t.Fatalf("unexpected webhook ack: %d %s", rec.Code, rec.Body.String())
	}
	if got := env.balance(t, owner.ID); got != 9560 {
		t.Fatalf("balance must not be credited twice, got %d", got)
	}
}

func TestDepositStatusHandlerScopesToOwner(t *testing.T) {
	env := newTestEnv(t, nil)
	owner := env.seedUser(t, "merchant", 0, false)
	env.seedKey(t, owner.ID, "owner-key", true)
	other := env.seedUser(t, "other", 0, false)
	env.seedKey(t, other.ID, "other-key", true)

	env.do(httptest.NewRequest(http.MethodGet, "/h2h/deposit/create?apikey=owner-key&reff_id=INV-1&nominal=10000", nil))

	rec := env.do(httptest.NewRequest(http.MethodGet, "/h2h/deposit/status?apikey=other-key&reff_id=INV-1", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if resp := decodeDeposit(t, rec); resp.Error != app.CodeTransactionNotFound {
		t.Fatalf("unexpected error code %q", resp.Error)
	}
}

func TestDepositStatusHandlerRejectsUnverifiedKey(t *testing.T) {
	env := newTestEnv(t, nil)
	owner := env.seedUser(t, "merchant", 0, false)
	env.seedKey(t, owner.ID, "verified-key", true)
	pending := env.seedUser(t, "pending", 0, false)
	env.seedKey(t, pending.ID, "unverified-key", false)
	env.do(httptest.NewRequest(http.MethodGet, "/h2h/deposit/create?apikey=verified-key&reff_id=INV-1&nominal=10000", nil))

	rec := env.do(httptest.NewRequest(http.MethodGet, "/h2h/deposit/status?apikey=unverified-key&reff_id=INV-1", nil))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeDeposit(t, rec)
	if resp.Status || resp.Code != http.StatusForbidden || resp.Error != app.CodeAPIKeyNotVerified || resp.Data != nil {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
}

func TestWebhookUnknownReferenceIsLogged(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, body := range []string{`{"reff_id":"GHOST","status":"success"}`, `not json`} {
		rec := env.do(httptest.NewRequest(http.MethodPost, "/webhook/atlantic", strings.NewReader(body)))
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"received":true`) {
			t.Fatalf("expected ack for %q, got %d %s", body, rec.Code, rec.Body.String())
		}
	}

	logs, err := env.repo.ListWebhookLogs(context.Background(), "GHOST")
	if err != nil {
		t.Fatalf("list webhook logs: %v", err)
	}
	if len(logs) != 1 || logs[0].Status != domain.StatusSuccess {
		t.Fatalf("expected the unknown reference to be logged, got %+v", logs)
	}
}

func TestPollDepositHandler(t *testing.T) {
	env := newTestEnv(t, nil)
	owner := env.seedUser(t, "merchant", 0, false)
	env.seedKey(t, owner.ID, "verified-key", true)
	env.do(httptest.NewRequest(http.MethodGet, "/h2h/deposit/create?apikey=verified-key&reff_id=INV-1&nominal=10000", nil))
	callsBefore := env.upstream.calls

	tests := []struct {
		name  string
		query string
		want  app.PollResult
	}{
		{name: "invalid key", query: "apikey=nope&reff_id=INV-1", want: app.PollResult{Status: app.PollInvalidAPI}},
		{name: "unknown reference", query: "apikey=verified-key&reff_id=NOPE", want: app.PollResult{Status: app.PollNotFound}},
		{name: "pending", query: "apikey=verified-key&reff_id=INV-1", want: app.PollResult{Status: domain.StatusPending, Message: "Waiting for payment"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(httptest.NewRequest(http.MethodGet, "/h2h/deposit/poll?"+tt.query, nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
			var got app.PollResult
			if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
	if env.upstream.calls != callsBefore {
		t.Fatal("poll must not reach upstream")
	}
}

type denyLimiter struct{}

func (denyLimiter) Allow(ctx context.Context, scope, subject string, limit int, window time.Duration) (app.RateDecision, error) {
	return app.RateDecision{Allowed: false, Count: limit + 1, Limit: limit, RetryAfter: 30 * time.Second}, nil
}

func TestH2HRateLimit(t *testing.T) {
	env := newTestEnv(t, denyLimiter{})

	rec := env.do(httptest.NewRequest(http.MethodGet, "/h2h/deposit/poll?apikey=any&reff_id=INV-1", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "30" {
		t.Fatalf("expected Retry-After 30, got %q", rec.Header().Get("Retry-After"))
	}
	var resp statusResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Status || resp.Message != "Rate limit exceeded" {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestGuards(t *testing.T) {
	env := newTestEnv(t, nil)
	user := env.seedUser(t, "alice", 0, false)
	userCookie := env.cookieFor(t, user)

	tests := []struct {
		name         string
		path         string
		cookie       *http.Cookie
		wantStatus   int
		wantLocation string
	}{
		{name: "dashboard without session", path: "/dashboard", wantStatus: http.StatusFound, wantLocation: "/auth/login"},
		{name: "admin without session", path: "/admin", wantStatus: http.StatusFound, wantLocation: "/admin/login"},
		{name: "admin with user session", path: "/admin", cookie: userCookie, wantStatus: http.StatusFound, wantLocation: "/admin/login"},
		{name: "balance without session", path: "/api/balance", wantStatus: http.StatusUnauthorized},
		{name: "dashboard with session", path: "/dashboard", cookie: userCookie, wantStatus: http.StatusOK},
		{name: "tampered cookie", path: "/dashboard", cookie: &http.Cookie{Name: sessionCookieName, Value: userCookie.Value + "x"}, wantStatus: http.StatusFound, wantLocation: "/auth/login"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			rec := env.do(req)
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.wantLocation != "" && rec.Header().Get("Location") != tt.wantLocation {
				t.Fatalf("expected redirect to %s, got %s", tt.wantLocation, rec.Header().Get("Location"))
			}
		})
	}
}

func TestBalanceHandler(t *testing.T) {
	env := newTestEnv(t, nil)
	user := env.seedUser(t, "alice", 12345, false)

	req := httptest.NewRequest(http.MethodGet, "/api/balance", nil)
	req.AddCookie(env.cookieFor(t, user))
	rec := env.do(req)

	var got struct {
		Status  bool  `json:"status"`
		Balance int64 `json:"balance"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Code != http.StatusOK || !got.Status || got.Balance != 12345 {
		t.Fatalf("unexpected balance response: %d %s", rec.Code, rec.Body.String())
	}
}

func TestWithdrawHandler(t *testing.T) {
	env := newTestEnv(t, nil)
	user := env.seedUser(t, "alice", 50000, false)
	cookie := env.cookieFor(t, user)

	rec := env.do(postForm("/dashboard/withdraw", url.Values{"nominal": {"Rp 60.000"}}, cookie))
	if loc := rec.Header().Get("Location"); loc != "/dashboard?error=Insufficient+balance" {
		t.Fatalf("unexpected redirect %q", loc)
	}
	if got := env.balance(t, user.ID); got != 50000 {
		t.Fatalf("balance must be unchanged, got %d", got)
	}

	rec = env.do(postForm("/dashboard/withdraw", url.Values{"nominal": {"Rp 20.000"}}, cookie))
	if rec.Code != http.StatusFound || !strings.HasPrefix(rec.Header().Get("Location"), "https://wa.me/6289525036410?text=") {
		t.Fatalf("expected WhatsApp redirect, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
	if got := env.balance(t, user.ID); got != 30000 {
		t.Fatalf("expected balance 30000, got %d", got)
	}
}

func TestRegisterAndLoginFlow(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(postForm("/auth/register", url.Values{"username": {"bob"}, "email": {"bob@example.com"}, "password": {"hunter2"}}, nil))
	if loc := rec.Header().Get("Location"); loc != "/auth/login?success=Registration+successful" {
		t.Fatalf("unexpected register redirect %q", loc)
	}

	rec = env.do(postForm("/auth/register", url.Values{"username": {"bob"}, "email": {"bob@example.com"}, "password": {"hunter2"}}, nil))
	if loc := rec.Header().Get("Location"); loc != "/auth/register?error=Registration+failed" {
		t.Fatalf("unexpected duplicate register redirect %q", loc)
	}

	rec = env.do(postForm("/auth/login", url.Values{"email": {"bob@example.com"}, "password": {"wrong"}}, nil))
	if loc := rec.Header().Get("Location"); loc != "/auth/login?error=Invalid+password" {
		t.Fatalf("unexpected bad-password redirect %q", loc)
	}

	rec = env.do(postForm("/auth/login", url.Values{"email": {"bob@example.com"}, "password": {"hunter2"}}, nil))
	if loc := rec.Header().Get("Location"); loc != "/dashboard" {
		t.Fatalf("unexpected login redirect %q", loc)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != sessionCookieName || !cookies[0].HttpOnly {
		t.Fatalf("expected an HttpOnly session cookie, got %+v", cookies)
	}

	rec = env.do(postForm("/admin/login", url.Values{"email": {"bob@example.com"}, "password": {"hunter2"}}, nil))
	if loc := rec.Header().Get("Location"); loc != "/admin/login?error=Admin+not+found" {
		t.Fatalf("non-admin must not log into the admin panel, got %q", loc)
	}
}

func TestAdminActions(t *testing.T) {
	env := newTestEnv(t, nil)
	admin := env.seedUser(t, "root", 0, true)
	user := env.seedUser(t, "alice", 0, false)
	env.seedKey(t, user.ID, "alice-key", false)
	cookie := env.cookieFor(t, admin)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(cookie)
	if rec := env.do(req); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "alice") {
		t.Fatalf("expected panel listing alice, got %d", rec.Code)
	}

	rec := env.do(postForm("/admin/verify-api-key/"+itoa(user.ID), nil, cookie))
	if loc := rec.Header().Get("Location"); loc != "/admin?success=API+Key+verified" {
		t.Fatalf("unexpected verify redirect %q", loc)
	}
	key, err := env.repo.FindAPIKey(context.Background(), "alice-key")
	if err != nil || !key.Verified {
		t.Fatalf("expected key verified, got %+v %v", key, err)
	}

	rec = env.do(postForm("/admin/delete-user/"+itoa(admin.ID), nil, cookie))
	if loc := rec.Header().Get("Location"); loc != "/admin?error=Cannot+delete+your+own+account" {
		t.Fatalf("unexpected self-delete redirect %q", loc)
	}

	rec = env.do(postForm("/admin/delete-user/"+itoa(user.ID), nil, cookie))
	if loc := rec.Header().Get("Location"); loc != "/admin?success=User+deleted+successfully" {
		t.Fatalf("unexpected delete redirect %q", loc)
	}

	rec = env.do(postForm("/admin/delete-user/"+itoa(user.ID), nil, cookie))
	if loc := rec.Header().Get("Location"); loc != "/admin?error=User+not+found" {
		t.Fatalf("unexpected missing-user redirect %q", loc)
	}
}

func TestPaymentPage(t *testing.T) {
	env := newTestEnv(t, nil)
	owner := env.seedUser(t, "merchant", 0, false)
	env.seedKey(t, owner.ID, "verified-key", true)
	env.do(httptest.NewRequest(http.MethodGet, "/h2h/deposit/create?apikey=verified-key&reff_id=INV-1&nominal=10000", nil))

	rec := env.do(httptest.NewRequest(http.MethodGet, "/pg/INV-1/verified-key", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "merchant") || !strings.Contains(rec.Body.String(), "Rp 10.000") {
		t.Fatalf("unexpected payment page: %d", rec.Code)
	}

	rec = env.do(httptest.NewRequest(http.MethodGet, "/pg/INV-1/someone-else", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for a foreign key, got %d", rec.Code)
	}
}

func TestPaymentPageQRImage(t *testing.T) {
	tests := []struct {
		name    string
		qrImage string
		want    string
	}{
		{name: "inline image", qrImage: "data:image/png;base64,iVBORw0KGgo=", want: `src="data:image/png;base64,iVBORw0KGgo="`},
		{name: "https url", qrImage: "https://qr.example/code.png", want: `src="https://qr.example/code.png"`},
		{name: "other scheme dropped", qrImage: "javascript:alert(1)", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			owner := env.seedUser(t, "merchant", 0, false)
			env.seedKey(t, owner.ID, "verified-key", true)
			env.upstream.qrImage = tt.qrImage
			env.do(httptest.NewRequest(http.MethodGet, "/h2h/deposit/create?apikey=verified-key&reff_id=INV-1&nominal=10000", nil))

			rec := env.do(httptest.NewRequest(http.MethodGet, "/pg/INV-1/verified-key", nil))
			body := rec.Body.String()
			if rec.Code != http.StatusOK || strings.Contains(body, "ZgotmplZ") {
				t.Fatalf("unexpected payment page: %d", rec.Code)
			}
			if tt.want == "" {
				if strings.Contains(body, `alt="QRIS"`) {
					t.Fatal("expected the qr image to be omitted")
				}
				return
			}
			if !strings.Contains(body, tt.want) {
				t.Fatalf("expected %s in payment page", tt.want)
			}
		})
	}
}

func TestPublicPagesRender(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, path := range []string{"/", "/support", "/docs", "/auth/login", "/auth/register", "/admin/login"} {
		rec := env.do(httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw  string
		want int64
		ok   bool
	}{
		{raw: "10000", want: 10000, ok: true},
		{raw: "Rp 1.500.000", want: 1500000, ok: true},
		{raw: "", ok: false},
		{raw: "Rp 0", ok: false},
		{raw: "abc", ok: false},
		{raw: "-500", ok: false},
		{raw: "Rp -500", ok: false},
	}
	for _, tt := range tests {
		got, ok := parseAmount(tt.raw)
		if got != tt.want || ok != tt.ok {
			t.Fatalf("parseAmount(%q) = (%d, %t), want (%d, %t)", tt.raw, got, ok, tt.want, tt.ok)
		}
	}
}

func TestFormatRupiah(t *testing.T) {
	tests := map[int64]string{0: "Rp 0", 999: "Rp 999", 1000: "Rp 1.000", 9560: "Rp 9.560", 1500000: "Rp 1.500.000"}
	for in, want := range tests {
		if got := formatRupiah(in); got != want {
			t.Fatalf("formatRupiah(%d) = %q, want %q", in, got, want)
		}
	}
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
