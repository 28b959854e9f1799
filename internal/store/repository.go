/**
 * @description
 * This file defines the `Repository` interface, the contract for every data access
 * operation the gateway needs. The application layer depends only on this interface,
 * which keeps it independent of the SQL backend and lets tests substitute stubs.
 */

package store

import (
	"context"
	"errors"
	"time"

	"github.com/ReyGenteng/galaxy/internal/domain"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrDuplicateUser        = errors.New("username or email already registered")
	ErrAPIKeyNotFound       = errors.New("api key not found")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrDuplicateReffID      = errors.New("reff_id already used")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrUnsupportedDBDriver  = errors.New("unsupported database driver")
	ErrInvalidTransitionArg = errors.New("invalid status transition")
)

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error

	// User methods
	CreateUser(ctx context.Context, user *domain.User) error
	EnsureAdmin(ctx context.Context, user *domain.User) (bool, error)
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	FindUserByID(ctx context.Context, userID int64) (*domain.User, error)
	GetBalance(ctx context.Context, userID int64) (int64, error)
	ListNonAdminUsers(ctx context.Context) ([]domain.UserWithKey, error)
	DeleteUser(ctx context.Context, userID int64) error

	// API key methods
	CreateAPIKey(ctx context.Context, userID int64, key string) (*domain.APIKey, error)
	FindAPIKey(ctx context.Context, key string) (*domain.APIKey, error)
	ListAPIKeysByUser(ctx context.Context, userID int64) ([]domain.APIKey, error)
	FindVerifiedAPIKeyByUser(ctx context.Context, userID int64) (*domain.APIKey, error)
	VerifyAPIKeysForUser(ctx context.Context, userID int64) (int64, error)

	// Transaction methods
	CreateTransaction(ctx context.Context, tx *domain.Transaction) error
	ReffIDExists(ctx context.Context, reffID string) (bool, error)
	FindTransactionByReffID(ctx context.Context, reffID string) (*domain.Transaction, error)
	FindTransactionForUser(ctx context.Context, reffID string, userID int64) (*domain.Transaction, error)
	FindTransactionForPaymentPage(ctx context.Context, reffID string, apiKey string) (*domain.Transaction, error)
	ListTransactionsByUser(ctx context.Context, userID int64, limit int) ([]domain.Transaction, error)
	ListPendingTransactions(ctx context.Context, limit int) ([]domain.Transaction, error)
	// ApplyStatusTransition updates status and QR fields unless the deposit is already
	// successful. When the update moves the deposit into success, Credit is added to the
	// owner's balance in the same database transaction. The returned bool reports whether
	// this call performed the settlement.
	ApplyStatusTransition(ctx context.Context, transition domain.StatusTransition) (*domain.Transaction, bool, error)
	ExpireTransaction(ctx context.Context, reffID string, now time.Time) (bool, error)

	// Withdrawal methods
	CreateWithdrawal(ctx context.Context, userID int64, nominal int64) (*domain.Withdrawal, error)
	ListWithdrawalsByUser(ctx context.Context, userID int64, limit int) ([]domain.Withdrawal, error)

	// Webhook audit methods
	CreateWebhookLog(ctx context.Context, entry *domain.WebhookLog) error
	ListWebhookLogs(ctx context.Context, reffID string) ([]domain.WebhookLog, error)
}
