package app

import "errors"

var (
	ErrInvalidAPIKey       = errors.New("invalid api key")
	ErrAPIKeyNotVerified   = errors.New("api key not verified")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrDuplicateReffID     = errors.New("reff_id already used")
	ErrUpstreamFailed      = errors.New("failed to create qris payment")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInsufficientBalance = errors.New("insufficient balance")

	ErrUserExists       = errors.New("username or email already registered")
	ErrUserNotFound     = errors.New("user not found")
	ErrAdminNotFound    = errors.New("admin not found")
	ErrInvalidPassword  = errors.New("invalid password")
	ErrCannotDeleteSelf = errors.New("cannot delete your own account")
)

// Machine-readable reasons surfaced by the H2H API.
const (
	CodeInvalidAPIKey       = "invalid_api_key"
	CodeAPIKeyNotVerified   = "api_key_not_verified"
	CodeInvalidRequest      = "invalid_request"
	CodeDuplicateReffID     = "duplicate_reff_id"
	CodeUpstreamFailed      = "upstream_failed"
	CodeTransactionNotFound = "transaction_not_found"
	CodeInsufficientBalance = "insufficient_balance"
	CodeInternal            = "internal_error"
)

// ErrorCode maps a service error to its machine-readable reason.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidAPIKey):
		return CodeInvalidAPIKey
	case errors.Is(err, ErrAPIKeyNotVerified):
		return CodeAPIKeyNotVerified
	case errors.Is(err, ErrInvalidRequest):
		return CodeInvalidRequest
	case errors.Is(err, ErrDuplicateReffID):
		return CodeDuplicateReffID
	case errors.Is(err, ErrUpstreamFailed):
		return CodeUpstreamFailed
	case errors.Is(err, ErrTransactionNotFound):
		return CodeTransactionNotFound
	case errors.Is(err, ErrInsufficientBalance):
		return CodeInsufficientBalance
	default:
		return CodeInternal
	}
}

// ErrorMessage returns the human-readable text shown to API consumers and in browser redirects.
func ErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrInvalidAPIKey):
		return "Invalid API Key"
	case errors.Is(err, ErrAPIKeyNotVerified):
		return "API Key not verified"
	case errors.Is(err, ErrInvalidRequest):
		return "Invalid request parameters"
	case errors.Is(err, ErrDuplicateReffID):
		return "reff_id already used"
	case errors.Is(err, ErrUpstreamFailed):
		return "Failed to create QRIS payment"
	case errors.Is(err, ErrTransactionNotFound):
		return "Transaction not found"
	case errors.Is(err, ErrInsufficientBalance):
		return "Insufficient balance"
	case errors.Is(err, ErrUserExists):
		return "Registration failed"
	case errors.Is(err, ErrUserNotFound):
		return "User not found"
	case errors.Is(err, ErrAdminNotFound):
		return "Admin not found"
	case errors.Is(err, ErrInvalidPassword):
		return "Invalid password"
	case errors.Is(err, ErrCannotDeleteSelf):
		return "Cannot delete your own account"
	default:
		return "Internal server error"
	}
}
