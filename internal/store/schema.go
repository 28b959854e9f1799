package store

import (
	"fmt"
	"strconv"
	"strings"
)

// dialect captures the few places where SQLite and Postgres disagree.
type dialect struct {
	name          string
	driverName    string
	idColumn      string
	timestampType string
	lockClause    string
	numbered      bool
}

var (
	sqliteDialect = dialect{
		name:          "sqlite",
		driverName:    "sqlite3",
		idColumn:      "INTEGER PRIMARY KEY AUTOINCREMENT",
		timestampType: "DATETIME",
		lockClause:    "",
	}
	postgresDialect = dialect{
		name:          "postgres",
		driverName:    "pgx",
		idColumn:      "BIGSERIAL PRIMARY KEY",
		timestampType: "TIMESTAMPTZ",
		lockClause:    " FOR UPDATE",
		numbered:      true,
	}
)

func dialectFor(driver string) (dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite", "sqlite3":
		return sqliteDialect, nil
	case "postgres", "postgresql", "pgx":
		return postgresDialect, nil
	default:
		return dialect{}, fmt.Errorf("%w: %q", ErrUnsupportedDBDriver, driver)
	}
}

// rebind rewrites `?` placeholders into `$n` for drivers that need numbered parameters.
// Queries in this package never contain a literal question mark.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

func (d dialect) schema() []string {
	r := strings.NewReplacer("{{id}}", d.idColumn, "{{ts}}", d.timestampType)
	stmts := make([]string, 0, len(schemaStatements))
	for _, stmt := range schemaStatements {
		stmts = append(stmts, r.Replace(stmt))
	}
	return stmts
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id {{id}},
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		saldo BIGINT NOT NULL DEFAULT 0,
		is_admin BOOLEAN NOT NULL DEFAULT FALSE,
		created_at {{ts}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS api_keys (
		id {{id}},
		user_id BIGINT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		api_key TEXT NOT NULL UNIQUE,
		verified BOOLEAN NOT NULL DEFAULT FALSE,
		created_at {{ts}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id {{id}},
		user_id BIGINT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		reff_id TEXT NOT NULL UNIQUE,
		nominal BIGINT NOT NULL,
		qr_string TEXT NOT NULL DEFAULT '',
		qr_image TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		created_at {{ts}} NOT NULL,
		expired_at {{ts}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS withdrawals (
		id {{id}},
		user_id BIGINT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		nominal BIGINT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at {{ts}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS webhook_logs (
		id {{id}},
		reff_id TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT '',
		payload TEXT NOT NULL,
		received_at {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_api_keys_user ON api_keys (user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions (user_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_status ON transactions (status)`,
	`CREATE INDEX IF NOT EXISTS idx_withdrawals_user ON withdrawals (user_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_webhook_logs_reff ON webhook_logs (reff_id)`,
}
