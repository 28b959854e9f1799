/**
 * @description
 * This file defines the core domain models for the gateway. These structs map to the
 * tables owned by the store package and are passed between the API, application and
 * persistence layers.
 *
 * @notes
 * - Amounts (`nominal`, `saldo`) are whole rupiah stored as int64.
 * - A transaction's owning user is always resolved from the API key used to create it.
 */

package domain

import "time"

// Deposit statuses. Upstream may report other strings; those are stored verbatim.
const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusExpired = "expired"
)

// Transaction is a QRIS deposit. It maps to the `transactions` table.
type Transaction struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	ReffID    string    `json:"reff_id"`
	Nominal   int64     `json:"nominal"`
	QRString  string    `json:"qr_string"`
	QRImage   string    `json:"qr_image"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	ExpiredAt time.Time `json:"expired_at"`

	// Username is only populated by joins that need it (payment page).
	Username string `json:"-"`
}

// IsSettled reports whether the deposit has reached the terminal success state.
func (t *Transaction) IsSettled() bool {
	return t.Status == StatusSuccess
}

// IsExpired reports whether a still-pending deposit has passed its expiry time.
func (t *Transaction) IsExpired(now time.Time) bool {
	return t.Status == StatusPending && !t.ExpiredAt.IsZero() && now.After(t.ExpiredAt)
}

// Withdrawal is a manual payout request. It maps to the `withdrawals` table and is
// created as pending; settlement happens out of band.
type Withdrawal struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Nominal   int64     `json:"nominal"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// WebhookLog is an append-only audit row for every inbound webhook call.
type WebhookLog struct {
	ID         int64     `json:"id"`
	ReffID     string    `json:"reff_id"`
	Status     string    `json:"status"`
	Payload    string    `json:"payload"`
	ReceivedAt time.Time `json:"received_at"`
}

// WebhookPayload is the subset of the processor's webhook body the gateway acts on.
type WebhookPayload struct {
	ReffID string `json:"reff_id"`
	Status string `json:"status"`
}

// Settlement describes the balance credit produced by a deposit reaching success.
type Settlement struct {
	Nominal  int64 `json:"nominal"`
	Fee      int64 `json:"fee"`
	Credited int64 `json:"credited"`
}

// StatusTransition is the input to the store's atomic conditional status update.
type StatusTransition struct {
	ReffID   string
	Status   string
	QRString string
	QRImage  string
	// Credit is added to the owner's balance only when the transition moves the
	// deposit into success.
	Credit int64
}
