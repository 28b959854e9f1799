/**
 * @description
 * This file provides the database/sql implementation of the `Repository` interface.
 * The same queries run against the embedded SQLite file (mattn/go-sqlite3) and against
 * PostgreSQL through the pgx stdlib driver; placeholders are rebound per dialect.
 *
 * @dependencies
 * - database/sql: Connection pooling and transactions shared by both drivers.
 * - github.com/mattn/go-sqlite3: Embedded SQLite driver, the default backend.
 * - github.com/jackc/pgx/v5/stdlib: PostgreSQL driver registered as "pgx".
 * - internal/domain: Contains the domain models used for data transfer.
 *
 * @notes
 * - Balance changes only ever happen inside ApplyStatusTransition and CreateWithdrawal,
 *   each in a single database transaction with a conditional UPDATE.
 * - SQLite connections open transactions with BEGIN IMMEDIATE so the write lock is
 *   taken up front; Postgres uses SELECT ... FOR UPDATE for the same effect.
 */

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ReyGenteng/galaxy/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/mattn/go-sqlite3"
)

// SQLRepository is a concrete implementation of the Repository interface over database/sql.
type SQLRepository struct {
	db      *sql.DB
	dialect dialect
}

// Open connects to the configured backend and verifies the connection.
// For sqlite the dsn is a file path; for postgres it is a connection URL.
func Open(ctx context.Context, driver, dsn string) (*SQLRepository, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}

	source := dsn
	if d.name == sqliteDialect.name {
		source = sqliteDSN(dsn)
	}

	db, err := sql.Open(d.driverName, source)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", d.name, err)
	}

	if d.name == postgresDialect.name {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
		db.SetConnMaxIdleTime(5 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s database: %w", d.name, err)
	}

	return &SQLRepository{db: db, dialect: d}, nil
}

// NewSQLRepository wraps an already opened handle.
func NewSQLRepository(db *sql.DB, driver string) (*SQLRepository, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	return &SQLRepository{db: db, dialect: d}, nil
}

func sqliteDSN(path string) string {
	path = strings.TrimPrefix(strings.TrimSpace(path), "sqlite://")
	if path == "" {
		path = "rpay.db"
	}
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_fk=1&_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate"
}

// Driver reports the dialect name in use ("sqlite" or "postgres").
func (r *SQLRepository) Driver() string {
	return r.dialect.name
}

func (r *SQLRepository) q(query string) string {
	return r.dialect.rebind(query)
}

// Migrate creates any missing tables and indexes. It is safe to run on every start.
func (r *SQLRepository) Migrate(ctx context.Context) error {
	for _, stmt := range r.dialect.schema() {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLRepository) Close() error {
	return r.db.Close()
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func storedTime(t time.Time) time.Time {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Truncate(time.Second)
}

// --- Users -----------------------------------------------------------------

const userColumns = `id, username, email, password, saldo, is_admin, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.Saldo, &user.IsAdmin, &user.CreatedAt); err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser inserts a new user and fills in its generated ID.
func (r *SQLRepository) CreateUser(ctx context.Context, user *domain.User) error {
	user.CreatedAt = storedTime(user.CreatedAt)
	query := `INSERT INTO users (username, email, password, saldo, is_admin, created_at) VALUES (?, ?, ?, ?, ?, ?) RETURNING id`
	err := r.db.QueryRowContext(ctx, r.q(query),
		user.Username, user.Email, user.PasswordHash, user.Saldo, user.IsAdmin, user.CreatedAt,
	).Scan(&user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateUser
		}
		return err
	}
	return nil
}

// EnsureAdmin inserts the admin account if no user holds its username or email yet.
// It reports whether a row was created.
func (r *SQLRepository) EnsureAdmin(ctx context.Context, user *domain.User) (bool, error) {
	var existing int64
	err := r.db.QueryRowContext(ctx, r.q(`SELECT id FROM users WHERE username = ? OR email = ? LIMIT 1`), user.Username, user.Email).Scan(&existing)
	if err == nil {
		user.ID = existing
		return false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, err
	}

	user.IsAdmin = true
	if err := r.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicateUser) {
			// Another instance seeded it first.
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// FindUserByEmail retrieves a user by exact email match.
func (r *SQLRepository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, r.q(`SELECT `+userColumns+` FROM users WHERE email = ?`), email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// FindUserByID retrieves a user from the database by their ID.
func (r *SQLRepository) FindUserByID(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, r.q(`SELECT `+userColumns+` FROM users WHERE id = ?`), userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (r *SQLRepository) GetBalance(ctx context.Context, userID int64) (int64, error) {
	var saldo int64
	err := r.db.QueryRowContext(ctx, r.q(`SELECT saldo FROM users WHERE id = ?`), userID).Scan(&saldo)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}
	return saldo, nil
}

// ListNonAdminUsers returns every non-admin user joined with their earliest API key, if any.
func (r *SQLRepository) ListNonAdminUsers(ctx context.Context) ([]domain.UserWithKey, error) {
	query := `
		SELECT u.id, u.username, u.email, u.password, u.saldo, u.is_admin, u.created_at,
			k.api_key, k.verified
		FROM users u
		LEFT JOIN api_keys k ON k.id = (
			SELECT MIN(k2.id) FROM api_keys k2 WHERE k2.user_id = u.id
		)
		WHERE u.is_admin = ?
		ORDER BY u.created_at DESC, u.id DESC
	`
	rows, err := r.db.QueryContext(ctx, r.q(query), false)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.UserWithKey
	for rows.Next() {
		var (
			item     domain.UserWithKey
			apiKey   sql.NullString
			verified sql.NullBool
		)
		if err := rows.Scan(
			&item.ID, &item.Username, &item.Email, &item.PasswordHash, &item.Saldo, &item.IsAdmin, &item.CreatedAt,
			&apiKey, &verified,
		); err != nil {
			return nil, err
		}
		if apiKey.Valid {
			key := apiKey.String
			item.APIKey = &key
		}
		item.Verified = verified.Valid && verified.Bool
		users = append(users, item)
	}
	return users, rows.Err()
}

// DeleteUser removes a user; dependent rows go with it through ON DELETE CASCADE.
func (r *SQLRepository) DeleteUser(ctx context.Context, userID int64) error {
	result, err := r.db.ExecContext(ctx, r.q(`DELETE FROM users WHERE id = ?`), userID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// --- API keys --------------------------------------------------------------

// CreateAPIKey stores a new unverified key for the user.
func (r *SQLRepository) CreateAPIKey(ctx context.Context, userID int64, key string) (*domain.APIKey, error) {
	apiKey := &domain.APIKey{UserID: userID, Key: key, CreatedAt: storedTime(time.Time{})}
	query := `INSERT INTO api_keys (user_id, api_key, verified, created_at) VALUES (?, ?, ?, ?) RETURNING id`
	err := r.db.QueryRowContext(ctx, r.q(query), userID, key, false, apiKey.CreatedAt).Scan(&apiKey.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("api key collision: %w", err)
		}
		return nil, err
	}
	return apiKey, nil
}

// FindAPIKey resolves a key together with its owner's username.
func (r *SQLRepository) FindAPIKey(ctx context.Context, key string) (*domain.APIKey, error) {
	query := `
		SELECT k.id, k.user_id, k.api_key, k.verified, k.created_at, u.username
		FROM api_keys k
		JOIN users u ON u.id = k.user_id
		WHERE k.api_key = ?
	`
	var apiKey domain.APIKey
	err := r.db.QueryRowContext(ctx, r.q(query), key).Scan(
		&apiKey.ID, &apiKey.UserID, &apiKey.Key, &apiKey.Verified, &apiKey.CreatedAt, &apiKey.Username,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAPIKeyNotFound
		}
		return nil, err
	}
	return &apiKey, nil
}

func (r *SQLRepository) ListAPIKeysByUser(ctx context.Context, userID int64) ([]domain.APIKey, error) {
	query := `SELECT id, user_id, api_key, verified, created_at FROM api_keys WHERE user_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, r.q(query), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []domain.APIKey
	for rows.Next() {
		var k domain.APIKey
		if err := rows.Scan(&k.ID, &k.UserID, &k.Key, &k.Verified, &k.CreatedAt); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (r *SQLRepository) FindVerifiedAPIKeyByUser(ctx context.Context, userID int64) (*domain.APIKey, error) {
	query := `SELECT id, user_id, api_key, verified, created_at FROM api_keys WHERE user_id = ? AND verified = ? ORDER BY id LIMIT 1`
	var k domain.APIKey
	err := r.db.QueryRowContext(ctx, r.q(query), userID, true).Scan(&k.ID, &k.UserID, &k.Key, &k.Verified, &k.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAPIKeyNotFound
		}
		return nil, err
	}
	return &k, nil
}

// VerifyAPIKeysForUser marks every key the user owns as verified and returns how many changed.
func (r *SQLRepository) VerifyAPIKeysForUser(ctx context.Context, userID int64) (int64, error) {
	result, err := r.db.ExecContext(ctx, r.q(`UPDATE api_keys SET verified = ? WHERE user_id = ?`), true, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// --- Transactions ----------------------------------------------------------

const transactionColumns = `id, user_id, reff_id, nominal, qr_string, qr_image, status, created_at, expired_at`

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var txn domain.Transaction
	if err := row.Scan(
		&txn.ID, &txn.UserID, &txn.ReffID, &txn.Nominal, &txn.QRString, &txn.QRImage,
		&txn.Status, &txn.CreatedAt, &txn.ExpiredAt,
	); err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *SQLRepository) queryTransactions(ctx context.Context, query string, args ...any) ([]domain.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, r.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, *txn)
	}
	return txns, rows.Err()
}

// CreateTransaction inserts a new deposit record.
func (r *SQLRepository) CreateTransaction(ctx context.Context, txn *domain.Transaction) error {
	txn.CreatedAt = storedTime(txn.CreatedAt)
	txn.ExpiredAt = storedTime(txn.ExpiredAt)
	if txn.Status == "" {
		txn.Status = domain.StatusPending
	}
	query := `
		INSERT INTO transactions (user_id, reff_id, nominal, qr_string, qr_image, status, created_at, expired_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, r.q(query),
		txn.UserID, txn.ReffID, txn.Nominal, txn.QRString, txn.QRImage, txn.Status, txn.CreatedAt, txn.ExpiredAt,
	).Scan(&txn.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateReffID
		}
		return err
	}
	return nil
}

func (r *SQLRepository) ReffIDExists(ctx context.Context, reffID string) (bool, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, r.q(`SELECT id FROM transactions WHERE reff_id = ?`), reffID).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *SQLRepository) FindTransactionByReffID(ctx context.Context, reffID string) (*domain.Transaction, error) {
	txn, err := scanTransaction(r.db.QueryRowContext(ctx, r.q(`SELECT `+transactionColumns+` FROM transactions WHERE reff_id = ?`), reffID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return txn, nil
}

// FindTransactionForUser scopes the lookup to one owner so keys cannot read each other's deposits.
func (r *SQLRepository) FindTransactionForUser(ctx context.Context, reffID string, userID int64) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE reff_id = ? AND user_id = ?`
	txn, err := scanTransaction(r.db.QueryRowContext(ctx, r.q(query), reffID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return txn, nil
}

// FindTransactionForPaymentPage returns the deposit only when the key belongs to its owner.
func (r *SQLRepository) FindTransactionForPaymentPage(ctx context.Context, reffID string, apiKey string) (*domain.Transaction, error) {
	query := `
		SELECT t.id, t.user_id, t.reff_id, t.nominal, t.qr_string, t.qr_image, t.status, t.created_at, t.expired_at,
			u.username
		FROM transactions t
		JOIN api_keys k ON k.user_id = t.user_id
		JOIN users u ON u.id = t.user_id
		WHERE t.reff_id = ? AND k.api_key = ?
	`
	var txn domain.Transaction
	err := r.db.QueryRowContext(ctx, r.q(query), reffID, apiKey).Scan(
		&txn.ID, &txn.UserID, &txn.ReffID, &txn.Nominal, &txn.QRString, &txn.QRImage,
		&txn.Status, &txn.CreatedAt, &txn.ExpiredAt, &txn.Username,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &txn, nil
}

// ListTransactionsByUser returns the user's deposits, newest first.
func (r *SQLRepository) ListTransactionsByUser(ctx context.Context, userID int64, limit int) ([]domain.Transaction, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`
	return r.queryTransactions(ctx, query, userID, limit)
}

// ListPendingTransactions returns the oldest pending deposits first.
func (r *SQLRepository) ListPendingTransactions(ctx context.Context, limit int) ([]domain.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE status = ? ORDER BY created_at ASC, id ASC LIMIT ?`
	return r.queryTransactions(ctx, query, domain.StatusPending, limit)
}

// ApplyStatusTransition performs the guarded status update and balance credit atomically.
func (r *SQLRepository) ApplyStatusTransition(ctx context.Context, transition domain.StatusTransition) (*domain.Transaction, bool, error) {
	if transition.ReffID == "" || transition.Status == "" || transition.Credit < 0 {
		return nil, false, ErrInvalidTransitionArg
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	selectQuery := `SELECT ` + transactionColumns + ` FROM transactions WHERE reff_id = ?` + r.dialect.lockClause
	current, err := scanTransaction(tx.QueryRowContext(ctx, r.q(selectQuery), transition.ReffID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, ErrTransactionNotFound
		}
		return nil, false, err
	}
	if current.IsSettled() {
		return current, false, nil
	}

	qrString := current.QRString
	if transition.QRString != "" {
		qrString = transition.QRString
	}
	qrImage := current.QRImage
	if transition.QRImage != "" {
		qrImage = transition.QRImage
	}

	updateQuery := `UPDATE transactions SET status = ?, qr_string = ?, qr_image = ? WHERE reff_id = ? AND status <> ?`
	result, err := tx.ExecContext(ctx, r.q(updateQuery), transition.Status, qrString, qrImage, transition.ReffID, domain.StatusSuccess)
	if err != nil {
		return nil, false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, false, err
	}
	if affected == 0 {
		// Settled between the read and the update.
		return current, false, tx.Commit()
	}

	settled := transition.Status == domain.StatusSuccess
	if settled && transition.Credit > 0 {
		creditResult, err := tx.ExecContext(ctx, r.q(`UPDATE users SET saldo = saldo + ? WHERE id = ?`), transition.Credit, current.UserID)
		if err != nil {
			return nil, false, err
		}
		if n, err := creditResult.RowsAffected(); err != nil {
			return nil, false, err
		} else if n == 0 {
			return nil, false, ErrUserNotFound
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, false, err
	}

	current.Status = transition.Status
	current.QRString = qrString
	current.QRImage = qrImage
	return current, settled, nil
}

// ExpireTransaction moves a pending deposit past its expiry to expired.
// It reports false when the deposit was no longer pending or not yet due.
func (r *SQLRepository) ExpireTransaction(ctx context.Context, reffID string, now time.Time) (bool, error) {
	query := `UPDATE transactions SET status = ? WHERE reff_id = ? AND status = ? AND expired_at < ?`
	result, err := r.db.ExecContext(ctx, r.q(query), domain.StatusExpired, reffID, domain.StatusPending, storedTime(now))
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// --- Withdrawals -----------------------------------------------------------

// CreateWithdrawal debits the balance and records a pending payout in one transaction.
func (r *SQLRepository) CreateWithdrawal(ctx context.Context, userID int64, nominal int64) (*domain.Withdrawal, error) {
	if nominal <= 0 {
		return nil, ErrInsufficientBalance
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, r.q(`UPDATE users SET saldo = saldo - ? WHERE id = ? AND saldo >= ?`), nominal, userID, nominal)
	if err != nil {
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		var id int64
		if err := tx.QueryRowContext(ctx, r.q(`SELECT id FROM users WHERE id = ?`), userID).Scan(&id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, ErrUserNotFound
			}
			return nil, err
		}
		return nil, ErrInsufficientBalance
	}

	withdrawal := &domain.Withdrawal{
		UserID:    userID,
		Nominal:   nominal,
		Status:    domain.StatusPending,
		CreatedAt: storedTime(time.Time{}),
	}
	query := `INSERT INTO withdrawals (user_id, nominal, status, created_at) VALUES (?, ?, ?, ?) RETURNING id`
	if err := tx.QueryRowContext(ctx, r.q(query), userID, nominal, withdrawal.Status, withdrawal.CreatedAt).Scan(&withdrawal.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return withdrawal, nil
}

func (r *SQLRepository) ListWithdrawalsByUser(ctx context.Context, userID int64, limit int) ([]domain.Withdrawal, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `SELECT id, user_id, nominal, status, created_at FROM withdrawals WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, r.q(query), userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var withdrawals []domain.Withdrawal
	for rows.Next() {
		var w domain.Withdrawal
		if err := rows.Scan(&w.ID, &w.UserID, &w.Nominal, &w.Status, &w.CreatedAt); err != nil {
			return nil, err
		}
		withdrawals = append(withdrawals, w)
	}
	return withdrawals, rows.Err()
}

// --- Webhook logs ----------------------------------------------------------

// CreateWebhookLog appends an audit row. Unknown references are logged too.
func (r *SQLRepository) CreateWebhookLog(ctx context.Context, entry *domain.WebhookLog) error {
	entry.ReceivedAt = storedTime(entry.ReceivedAt)
	query := `INSERT INTO webhook_logs (reff_id, status, payload, received_at) VALUES (?, ?, ?, ?) RETURNING id`
	return r.db.QueryRowContext(ctx, r.q(query), entry.ReffID, entry.Status, entry.Payload, entry.ReceivedAt).Scan(&entry.ID)
}

func (r *SQLRepository) ListWebhookLogs(ctx context.Context, reffID string) ([]domain.WebhookLog, error) {
	query := `SELECT id, reff_id, status, payload, received_at FROM webhook_logs WHERE reff_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, r.q(query), reffID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []domain.WebhookLog
	for rows.Next() {
		var entry domain.WebhookLog
		if err := rows.Scan(&entry.ID, &entry.ReffID, &entry.Status, &entry.Payload, &entry.ReceivedAt); err != nil {
			return nil, err
		}
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}
