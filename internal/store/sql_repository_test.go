package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ReyGenteng/galaxy/internal/domain"
)

func newTestRepository(t *testing.T) *SQLRepository {
	t.Helper()
	repo, err := Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "rpay-test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	if err := repo.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repo
}

func seedUser(t *testing.T, repo *SQLRepository, username string, saldo int64) *domain.User {
	t.Helper()
	user := &domain.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
		Saldo:        saldo,
	}
	if err := repo.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

func seedPending(t *testing.T, repo *SQLRepository, userID int64, reffID string, nominal int64, expiresIn time.Duration) *domain.Transaction {
	t.Helper()
	now := time.Now()
	txn := &domain.Transaction{
		UserID:    userID,
		ReffID:    reffID,
		Nominal:   nominal,
		QRString:  "000201",
		Status:    domain.StatusPending,
		CreatedAt: now,
		ExpiredAt: now.Add(expiresIn),
	}
	if err := repo.CreateTransaction(context.Background(), txn); err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	return txn
}

func TestRebindNumbersPlaceholdersForPostgres(t *testing.T) {
	got := postgresDialect.rebind("UPDATE users SET saldo = saldo + ? WHERE id = ?")
	if got != "UPDATE users SET saldo = saldo + $1 WHERE id = $2" {
		t.Fatalf("unexpected rebind output: %s", got)
	}
	if sqliteDialect.rebind("a = ?") != "a = ?" {
		t.Fatal("sqlite queries must be left untouched")
	}
}

func TestDialectForRejectsUnknownDriver(t *testing.T) {
	if _, err := dialectFor("mysql"); !errors.Is(err, ErrUnsupportedDBDriver) {
		t.Fatalf("expected ErrUnsupportedDBDriver, got %v", err)
	}
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	repo := newTestRepository(t)
	seedUser(t, repo, "alice", 0)

	err := repo.CreateUser(context.Background(), &domain.User{Username: "alice2", Email: "alice@example.com", PasswordHash: "x"})
	if !errors.Is(err, ErrDuplicateUser) {
		t.Fatalf("expected ErrDuplicateUser, got %v", err)
	}
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	created, err := repo.EnsureAdmin(ctx, &domain.User{Username: "admin", Email: "admin@rpay.xyz", PasswordHash: "h"})
	if err != nil || !created {
		t.Fatalf("expected admin to be created, created=%t err=%v", created, err)
	}
	created, err = repo.EnsureAdmin(ctx, &domain.User{Username: "admin", Email: "admin@rpay.xyz", PasswordHash: "h"})
	if err != nil || created {
		t.Fatalf("expected second call to be a no-op, created=%t err=%v", created, err)
	}

	admin, err := repo.FindUserByEmail(ctx, "admin@rpay.xyz")
	if err != nil {
		t.Fatalf("find admin: %v", err)
	}
	if !admin.IsAdmin {
		t.Fatal("expected seeded user to be an admin")
	}
}

func TestCreateTransactionRejectsDuplicateReffID(t *testing.T) {
	repo := newTestRepository(t)
	user := seedUser(t, repo, "alice", 0)
	seedPending(t, repo, user.ID, "INV-1", 10000, time.Hour)

	err := repo.CreateTransaction(context.Background(), &domain.Transaction{UserID: user.ID, ReffID: "INV-1", Nominal: 5000})
	if !errors.Is(err, ErrDuplicateReffID) {
		t.Fatalf("expected ErrDuplicateReffID, got %v", err)
	}
}

func TestFindTransactionForUserIsScopedToOwner(t *testing.T) {
	repo := newTestRepository(t)
	alice := seedUser(t, repo, "alice", 0)
	bob := seedUser(t, repo, "bob", 0)
	seedPending(t, repo, alice.ID, "INV-A", 10000, time.Hour)

	if _, err := repo.FindTransactionForUser(context.Background(), "INV-A", bob.ID); !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound for foreign owner, got %v", err)
	}
	txn, err := repo.FindTransactionForUser(context.Background(), "INV-A", alice.ID)
	if err != nil {
		t.Fatalf("owner lookup failed: %v", err)
	}
	if txn.Nominal != 10000 || txn.Status != domain.StatusPending {
		t.Fatalf("unexpected transaction: %+v", txn)
	}
}

func TestApplyStatusTransitionCreditsOnce(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	user := seedUser(t, repo, "alice", 0)
	seedPending(t, repo, user.ID, "INV-1", 10000, time.Hour)

	transition := domain.StatusTransition{ReffID: "INV-1", Status: domain.StatusSuccess, Credit: 9560}

	txn, settled, err := repo.ApplyStatusTransition(ctx, transition)
	if err != nil {
		t.Fatalf("first transition: %v", err)
	}
	if !settled || txn.Status != domain.StatusSuccess {
		t.Fatalf("expected settlement, got settled=%t status=%s", settled, txn.Status)
	}

	_, settled, err = repo.ApplyStatusTransition(ctx, transition)
	if err != nil {
		t.Fatalf("second transition: %v", err)
	}
	if settled {
		t.Fatal("second success must not settle again")
	}

	balance, err := repo.GetBalance(ctx, user.ID)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if balance != 9560 {
		t.Fatalf("expected balance 9560, got %d", balance)
	}
}

func TestApplyStatusTransitionConcurrentSuccessCreditsOnce(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	user := seedUser(t, repo, "alice", 0)
	seedPending(t, repo, user.ID, "INV-RACE", 20000, time.Hour)

	const workers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		settles  int
		failures []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, settled, err := repo.ApplyStatusTransition(ctx, domain.StatusTransition{
				ReffID: "INV-RACE",
				Status: domain.StatusSuccess,
				Credit: 19420,
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, err)
				return
			}
			if settled {
				settles++
			}
		}()
	}
	wg.Wait()

	if len(failures) > 0 {
		t.Fatalf("unexpected errors: %v", failures)
	}
	if settles != 1 {
		t.Fatalf("expected exactly one settlement, got %d", settles)
	}
	balance, _ := repo.GetBalance(ctx, user.ID)
	if balance != 19420 {
		t.Fatalf("expected balance 19420, got %d", balance)
	}
}

func TestApplyStatusTransitionKeepsQRWhenEmpty(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	user := seedUser(t, repo, "alice", 0)
	seedPending(t, repo, user.ID, "INV-QR", 10000, time.Hour)

	txn, settled, err := repo.ApplyStatusTransition(ctx, domain.StatusTransition{ReffID: "INV-QR", Status: domain.StatusFailed})
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if settled {
		t.Fatal("failed status must not settle")
	}
	if txn.QRString != "000201" {
		t.Fatalf("expected QR string to be kept, got %q", txn.QRString)
	}
}

func TestApplyStatusTransitionUnknownReff(t *testing.T) {
	repo := newTestRepository(t)
	_, _, err := repo.ApplyStatusTransition(context.Background(), domain.StatusTransition{ReffID: "missing", Status: domain.StatusSuccess})
	if !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}
}

func TestExpireTransactionOnlyTouchesDuePending(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	user := seedUser(t, repo, "alice", 0)
	seedPending(t, repo, user.ID, "INV-OLD", 10000, -time.Minute)
	seedPending(t, repo, user.ID, "INV-NEW", 10000, time.Hour)

	expired, err := repo.ExpireTransaction(ctx, "INV-OLD", time.Now())
	if err != nil || !expired {
		t.Fatalf("expected INV-OLD to expire, expired=%t err=%v", expired, err)
	}
	expired, err = repo.ExpireTransaction(ctx, "INV-NEW", time.Now())
	if err != nil || expired {
		t.Fatalf("expected INV-NEW to stay pending, expired=%t err=%v", expired, err)
	}

	pending, err := repo.ListPendingTransactions(ctx, 10)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ReffID != "INV-NEW" {
		t.Fatalf("unexpected pending list: %+v", pending)
	}
}

func TestCreateWithdrawalDebitsAtomically(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	user := seedUser(t, repo, "alice", 50000)

	w, err := repo.CreateWithdrawal(ctx, user.ID, 20000)
	if err != nil {
		t.Fatalf("create withdrawal: %v", err)
	}
	if w.Status != domain.StatusPending || w.Nominal != 20000 {
		t.Fatalf("unexpected withdrawal: %+v", w)
	}

	if _, err := repo.CreateWithdrawal(ctx, user.ID, 40000); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if _, err := repo.CreateWithdrawal(ctx, 9999, 1); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	balance, _ := repo.GetBalance(ctx, user.ID)
	if balance != 30000 {
		t.Fatalf("expected balance 30000, got %d", balance)
	}
	list, err := repo.ListWithdrawalsByUser(ctx, user.ID, 10)
	if err != nil || len(list) != 1 {
		t.Fatalf("expected one withdrawal row, got %d err=%v", len(list), err)
	}
}

func TestAPIKeyLifecycleAndAdminListing(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	user := seedUser(t, repo, "alice", 0)
	seedUser(t, repo, "bob", 0)

	if _, err := repo.CreateAPIKey(ctx, user.ID, "key-1"); err != nil {
		t.Fatalf("create key: %v", err)
	}
	if _, err := repo.FindVerifiedAPIKeyByUser(ctx, user.ID); !errors.Is(err, ErrAPIKeyNotFound) {
		t.Fatalf("expected no verified key yet, got %v", err)
	}

	n, err := repo.VerifyAPIKeysForUser(ctx, user.ID)
	if err != nil || n != 1 {
		t.Fatalf("expected one key verified, n=%d err=%v", n, err)
	}
	key, err := repo.FindAPIKey(ctx, "key-1")
	if err != nil {
		t.Fatalf("find key: %v", err)
	}
	if !key.Verified || key.Username != "alice" {
		t.Fatalf("unexpected key: %+v", key)
	}

	users, err := repo.ListNonAdminUsers(ctx)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
	byName := map[string]domain.UserWithKey{}
	for _, u := range users {
		byName[u.Username] = u
	}
	if alice := byName["alice"]; alice.APIKey == nil || *alice.APIKey != "key-1" || !alice.Verified {
		t.Fatalf("expected alice to carry her verified key, got %+v", alice)
	}
	if bob := byName["bob"]; bob.APIKey != nil {
		t.Fatalf("expected bob to have no key, got %v", *bob.APIKey)
	}
}

func TestDeleteUserCascades(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	user := seedUser(t, repo, "alice", 0)
	if _, err := repo.CreateAPIKey(ctx, user.ID, "key-1"); err != nil {
		t.Fatalf("create key: %v", err)
	}
	seedPending(t, repo, user.ID, "INV-1", 10000, time.Hour)

	if err := repo.DeleteUser(ctx, user.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if _, err := repo.FindAPIKey(ctx, "key-1"); !errors.Is(err, ErrAPIKeyNotFound) {
		t.Fatalf("expected key to cascade, got %v", err)
	}
	if exists, _ := repo.ReffIDExists(ctx, "INV-1"); exists {
		t.Fatal("expected transaction to cascade")
	}
	if err := repo.DeleteUser(ctx, user.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound on second delete, got %v", err)
	}
}

func TestWebhookLogsAcceptUnknownReference(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	entry := &domain.WebhookLog{ReffID: "ghost", Status: "success", Payload: `{"reff_id":"ghost"}`}
	if err := repo.CreateWebhookLog(ctx, entry); err != nil {
		t.Fatalf("create webhook log: %v", err)
	}
	logs, err := repo.ListWebhookLogs(ctx, "ghost")
	if err != nil || len(logs) != 1 {
		t.Fatalf("expected one log row, got %d err=%v", len(logs), err)
	}
}
