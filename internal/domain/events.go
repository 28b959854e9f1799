package domain

import "time"

// DepositSettledEvent is published when a deposit is credited to its owner.
type DepositSettledEvent struct {
	EventID   string    `json:"event_id"`
	ReffID    string    `json:"reff_id"`
	UserID    int64     `json:"user_id"`
	Nominal   int64     `json:"nominal"`
	Fee       int64     `json:"fee"`
	Credited  int64     `json:"credited"`
	Source    string    `json:"source"` // "status", "webhook" or "reconcile"
	Timestamp time.Time `json:"timestamp"`
}

// WithdrawalRequestedEvent is published when a user requests a manual payout.
type WithdrawalRequestedEvent struct {
	EventID      string    `json:"event_id"`
	WithdrawalID int64     `json:"withdrawal_id"`
	UserID       int64     `json:"user_id"`
	Nominal      int64     `json:"nominal"`
	Timestamp    time.Time `json:"timestamp"`
}
