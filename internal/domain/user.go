package domain

import "time"

// User is a gateway account holder. Saldo is the spendable balance.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Saldo        int64     `json:"saldo"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

// APIKey is an opaque H2H token bound to exactly one user.
type APIKey struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Key       string    `json:"api_key"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`

	// Username is filled by lookups that join the owning user.
	Username string `json:"username,omitempty"`
}

// UserWithKey is one row of the admin panel listing.
type UserWithKey struct {
	User
	APIKey   *string `json:"api_key,omitempty"`
	Verified bool    `json:"verified"`
}

// Dashboard aggregates what the user dashboard shows.
type Dashboard struct {
	User         User
	Saldo        int64
	APIKey       *string
	Transactions []Transaction
	Withdrawals  []Withdrawal
}
