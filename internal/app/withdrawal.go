package app

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/ReyGenteng/galaxy/internal/domain"
	"github.com/ReyGenteng/galaxy/internal/store"
	"github.com/google/uuid"
)

const defaultWithdrawMessage = "Halo Admin RPay, saya ingin melakukan pencairan sebesar Rp {nominal}"

// WithdrawalReceipt is the result of an accepted withdrawal request.
type WithdrawalReceipt struct {
	Withdrawal  *domain.Withdrawal
	RedirectURL string
}

// RequestWithdrawal debits the balance, records a pending payout and returns the
// WhatsApp link the user is sent to for manual processing.
func (s *Service) RequestWithdrawal(ctx context.Context, userID int64, nominal int64) (*WithdrawalReceipt, error) {
	if nominal <= 0 {
		return nil, ErrInvalidRequest
	}

	withdrawal, err := s.repo.CreateWithdrawal(ctx, userID, nominal)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrInsufficientBalance):
			return nil, ErrInsufficientBalance
		case errors.Is(err, store.ErrUserNotFound):
			return nil, ErrUserNotFound
		default:
			return nil, fmt.Errorf("create withdrawal: %w", err)
		}
	}

	withdrawalsRequested.Inc()
	s.logger.Info("withdrawal requested", "component", "withdrawal", "user_id", userID, "withdrawal_id", withdrawal.ID, "nominal", nominal)

	event := domain.WithdrawalRequestedEvent{
		EventID:      uuid.NewString(),
		WithdrawalID: withdrawal.ID,
		UserID:       userID,
		Nominal:      nominal,
		Timestamp:    s.now().UTC(),
	}
	if err := s.publisher.PublishWithdrawalRequested(ctx, event); err != nil {
		s.logger.Warn("failed to publish withdrawal event", "component", "withdrawal", "withdrawal_id", withdrawal.ID, "err", err)
	}

	return &WithdrawalReceipt{
		Withdrawal:  withdrawal,
		RedirectURL: whatsAppLink(s.waPhone, s.waMessage, nominal),
	}, nil
}

// whatsAppLink builds https://wa.me/{phone}?text=... with the amount substituted into the template.
func whatsAppLink(phone, template string, nominal int64) string {
	message := strings.ReplaceAll(template, "{nominal}", strconv.FormatInt(nominal, 10))
	// wa.me expects %20 rather than '+' for spaces.
	text := strings.ReplaceAll(url.QueryEscape(message), "+", "%20")
	return "https://wa.me/" + phone + "?text=" + text
}
