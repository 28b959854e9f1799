/**
 * @description
 * This file contains the deposit lifecycle of the gateway. The `Service` struct
 * coordinates the repository, the upstream payment processor and the event publisher
 * to create QRIS deposits and settle them exactly once, whichever path (status pull,
 * webhook push or the reconcile job) observes the success first.
 *
 * @dependencies
 * - context, errors, log/slog, time: Standard Go libraries.
 * - github.com/google/uuid: Event identifiers.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/atlanticclient, pkg/rabbitmq: For external service communication.
 *
 * @notes
 * - Balance credits are applied by store.ApplyStatusTransition only; this file never
 *   writes saldo directly.
 */

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ReyGenteng/galaxy/internal/domain"
	"github.com/ReyGenteng/galaxy/internal/store"
	"github.com/ReyGenteng/galaxy/pkg/atlanticclient"
	"github.com/ReyGenteng/galaxy/pkg/rabbitmq"
	"github.com/google/uuid"
)

const (
	SourceStatus    = "status"
	SourceWebhook   = "webhook"
	SourceReconcile = "reconcile"

	PollInvalidAPI = "invalid_api"
	PollNotFound   = "not_found"
)

// PaymentGateway is the subset of the upstream processor the service depends on.
type PaymentGateway interface {
	CreateDeposit(ctx context.Context, reffID string, nominal int64) (*atlanticclient.Deposit, error)
	DepositStatus(ctx context.Context, reffID string) (*atlanticclient.Deposit, error)
}

// Options carries the tunables of the service.
type Options struct {
	Fees                    FeeSchedule
	DepositExpiry           time.Duration
	WithdrawWhatsAppPhone   string
	WithdrawMessageTemplate string
}

// Service provides the core business logic of the gateway.
type Service struct {
	repo      store.Repository
	gateway   PaymentGateway
	publisher rabbitmq.Publisher
	fees      FeeSchedule
	expiry    time.Duration
	waPhone   string
	waMessage string
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a new gateway service instance.
func NewService(repo store.Repository, gateway PaymentGateway, publisher rabbitmq.Publisher, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if publisher == nil {
		publisher = &rabbitmq.EventProducerFallback{Logger: logger}
	}
	if opts.DepositExpiry <= 0 {
		opts.DepositExpiry = time.Hour
	}
	if strings.TrimSpace(opts.WithdrawMessageTemplate) == "" {
		opts.WithdrawMessageTemplate = defaultWithdrawMessage
	}
	return &Service{
		repo:      repo,
		gateway:   gateway,
		publisher: publisher,
		fees:      opts.Fees,
		expiry:    opts.DepositExpiry,
		waPhone:   opts.WithdrawWhatsAppPhone,
		waMessage: opts.WithdrawMessageTemplate,
		logger:    logger,
		now:       time.Now,
	}
}

// Fees exposes the configured fee schedule for display.
func (s *Service) Fees() FeeSchedule {
	return s.fees
}

// authorizeAPIKey resolves a key and requires it to be verified.
func (s *Service) authorizeAPIKey(ctx context.Context, apiKey string) (*domain.APIKey, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrInvalidAPIKey
	}
	key, err := s.repo.FindAPIKey(ctx, apiKey)
	if err != nil {
		if errors.Is(err, store.ErrAPIKeyNotFound) {
			return nil, ErrInvalidAPIKey
		}
		return nil, fmt.Errorf("lookup api key: %w", err)
	}
	if !key.Verified {
		return nil, ErrAPIKeyNotVerified
	}
	return key, nil
}

// CreateDeposit issues a QRIS charge upstream and records it as pending.
func (s *Service) CreateDeposit(ctx context.Context, apiKey, reffID string, nominal int64) (*domain.Transaction, error) {
	key, err := s.authorizeAPIKey(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	reffID = strings.TrimSpace(reffID)
	if reffID == "" || nominal <= 0 {
		return nil, ErrInvalidRequest
	}

	exists, err := s.repo.ReffIDExists(ctx, reffID)
	if err != nil {
		return nil, fmt.Errorf("check reff_id: %w", err)
	}
	if exists {
		return nil, ErrDuplicateReffID
	}

	deposit, err := s.gateway.CreateDeposit(ctx, reffID, nominal)
	if err != nil {
		upstreamFailures.WithLabelValues("create_deposit").Inc()
		s.logger.Error("upstream create failed", "component", "deposit_service", "reff_id", reffID, "user_id", key.UserID, "err", err)
		return nil, fmt.Errorf("%w: %v", ErrUpstreamFailed, err)
	}

	now := s.now()
	txn := &domain.Transaction{
		UserID:    key.UserID,
		ReffID:    reffID,
		Nominal:   nominal,
		QRString:  deposit.QRString,
		QRImage:   deposit.QRImage,
		Status:    domain.StatusPending,
		CreatedAt: now,
		ExpiredAt: now.Add(s.expiry),
	}
	if err := s.repo.CreateTransaction(ctx, txn); err != nil {
		if errors.Is(err, store.ErrDuplicateReffID) {
			return nil, ErrDuplicateReffID
		}
		return nil, fmt.Errorf("save transaction: %w", err)
	}

	depositsCreated.Inc()
	s.logger.Info("deposit created", "component", "deposit_service", "reff_id", reffID, "user_id", key.UserID, "nominal", nominal)
	return txn, nil
}

// DepositStatus refreshes a deposit from upstream and returns the reconciled record.
// Upstream failures degrade to the last known local state.
func (s *Service) DepositStatus(ctx context.Context, apiKey, reffID string) (*domain.Transaction, error) {
	key, err := s.authorizeAPIKey(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	txn, err := s.repo.FindTransactionForUser(ctx, strings.TrimSpace(reffID), key.UserID)
	if err != nil {
		if errors.Is(err, store.ErrTransactionNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("load transaction: %w", err)
	}

	updated, _ := s.refresh(ctx, txn, SourceStatus)
	return updated, nil
}

// refresh pulls the upstream view of a non-settled deposit and applies it. It never fails;
// on any error the given record is returned unchanged. The bool reports a settlement.
func (s *Service) refresh(ctx context.Context, txn *domain.Transaction, source string) (*domain.Transaction, bool) {
	if txn.IsSettled() {
		return txn, false
	}

	deposit, err := s.gateway.DepositStatus(ctx, txn.ReffID)
	if err != nil {
		upstreamFailures.WithLabelValues("deposit_status").Inc()
		s.logger.Warn("upstream status failed; serving local state", "component", "deposit_service", "reff_id", txn.ReffID, "err", err)
		return txn, false
	}
	return s.applyUpstream(ctx, txn, deposit, source)
}

// applyUpstream merges an upstream answer into the stored deposit.
func (s *Service) applyUpstream(ctx context.Context, txn *domain.Transaction, deposit *atlanticclient.Deposit, source string) (*domain.Transaction, bool) {
	status := strings.TrimSpace(deposit.Status)
	if status == "" {
		status = txn.Status
	}
	qrChanged := (deposit.QRString != "" && deposit.QRString != txn.QRString) ||
		(deposit.QRImage != "" && deposit.QRImage != txn.QRImage)
	if status == txn.Status && !qrChanged {
		return txn, false
	}

	updated, settled, err := s.applyTransition(ctx, txn, status, deposit.QRString, deposit.QRImage, source)
	if err != nil {
		s.logger.Error("apply status transition failed", "component", "deposit_service", "reff_id", txn.ReffID, "status", status, "err", err)
		return txn, false
	}
	return updated, settled
}

// applyTransition runs the store's conditional transition and emits the settlement side effects.
func (s *Service) applyTransition(ctx context.Context, txn *domain.Transaction, status, qrString, qrImage, source string) (*domain.Transaction, bool, error) {
	settlement := s.fees.Settle(txn.Nominal)
	updated, settled, err := s.repo.ApplyStatusTransition(ctx, domain.StatusTransition{
		ReffID:   txn.ReffID,
		Status:   status,
		QRString: qrString,
		QRImage:  qrImage,
		Credit:   settlement.Credited,
	})
	if err != nil {
		return nil, false, err
	}
	if settled {
		s.onSettled(ctx, updated, settlement, source)
	}
	return updated, settled, nil
}

func (s *Service) onSettled(ctx context.Context, txn *domain.Transaction, settlement domain.Settlement, source string) {
	depositSettlements.WithLabelValues(source).Inc()
	creditedAmount.Add(float64(settlement.Credited))
	s.logger.Info("deposit settled",
		"component", "deposit_service",
		"reff_id", txn.ReffID,
		"user_id", txn.UserID,
		"nominal", settlement.Nominal,
		"fee", settlement.Fee,
		"credited", settlement.Credited,
		"source", source,
	)

	event := domain.DepositSettledEvent{
		EventID:   uuid.NewString(),
		ReffID:    txn.ReffID,
		UserID:    txn.UserID,
		Nominal:   settlement.Nominal,
		Fee:       settlement.Fee,
		Credited:  settlement.Credited,
		Source:    source,
		Timestamp: s.now().UTC(),
	}
	if err := s.publisher.PublishDepositSettled(ctx, event); err != nil {
		s.logger.Warn("failed to publish deposit settled event", "component", "deposit_service", "reff_id", txn.ReffID, "err", err)
	}
}

// HandleWebhook records the raw callback and settles the referenced deposit when the
// callback reports success. It reports whether this call credited a balance. Errors are
// logged, never returned, so the caller can always acknowledge.
func (s *Service) HandleWebhook(ctx context.Context, body []byte) bool {
	payload, err := parseWebhookPayload(body)
	if err != nil {
		s.logger.Warn("webhook payload is not valid json", "component", "webhook", "err", err)
	}

	entry := &domain.WebhookLog{
		ReffID:     payload.ReffID,
		Status:     payload.Status,
		Payload:    string(body),
		ReceivedAt: s.now(),
	}
	if err := s.repo.CreateWebhookLog(ctx, entry); err != nil {
		s.logger.Error("failed to record webhook", "component", "webhook", "reff_id", payload.ReffID, "err", err)
	}

	if payload.Status != domain.StatusSuccess || payload.ReffID == "" {
		webhooksReceived.WithLabelValues("ignored").Inc()
		return false
	}

	txn, err := s.repo.FindTransactionByReffID(ctx, payload.ReffID)
	if err != nil {
		if errors.Is(err, store.ErrTransactionNotFound) {
			webhooksReceived.WithLabelValues("unknown_reference").Inc()
			s.logger.Warn("webhook for unknown reference", "component", "webhook", "reff_id", payload.ReffID)
			return false
		}
		webhooksReceived.WithLabelValues("error").Inc()
		s.logger.Error("webhook transaction lookup failed", "component", "webhook", "reff_id", payload.ReffID, "err", err)
		return false
	}
	if txn.IsSettled() {
		webhooksReceived.WithLabelValues("already_settled").Inc()
		return false
	}

	_, settled, err := s.applyTransition(ctx, txn, domain.StatusSuccess, "", "", SourceWebhook)
	if err != nil {
		webhooksReceived.WithLabelValues("error").Inc()
		s.logger.Error("webhook settlement failed", "component", "webhook", "reff_id", payload.ReffID, "err", err)
		return false
	}
	if settled {
		webhooksReceived.WithLabelValues("settled").Inc()
	} else {
		webhooksReceived.WithLabelValues("already_settled").Inc()
	}
	return settled
}

// parseWebhookPayload reads each field on its own so one oddly typed value does not
// hide the reference of an otherwise usable callback.
func parseWebhookPayload(body []byte) (domain.WebhookPayload, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return domain.WebhookPayload{}, err
	}
	return domain.WebhookPayload{
		ReffID: webhookField(fields, "reff_id"),
		Status: webhookField(fields, "status"),
	}, nil
}

// webhookField returns a string or numeric field as text; any other type reads as empty.
func webhookField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}
	var number json.Number
	if err := json.Unmarshal(raw, &number); err == nil {
		return number.String()
	}
	return ""
}

// PollResult is the lightweight answer of PollDeposit.
type PollResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// PollDeposit reports the stored status of a deposit without contacting upstream.
func (s *Service) PollDeposit(ctx context.Context, apiKey, reffID string) (PollResult, error) {
	key, err := s.authorizeAPIKey(ctx, apiKey)
	if err != nil {
		if errors.Is(err, ErrInvalidAPIKey) || errors.Is(err, ErrAPIKeyNotVerified) {
			return PollResult{Status: PollInvalidAPI}, nil
		}
		return PollResult{}, err
	}

	txn, err := s.repo.FindTransactionForUser(ctx, strings.TrimSpace(reffID), key.UserID)
	if err != nil {
		if errors.Is(err, store.ErrTransactionNotFound) {
			return PollResult{Status: PollNotFound}, nil
		}
		return PollResult{}, err
	}

	return PollResult{Status: txn.Status, Message: pollMessage(txn.Status)}, nil
}

func pollMessage(status string) string {
	switch status {
	case domain.StatusSuccess:
		return "Payment successful"
	case domain.StatusPending:
		return "Waiting for payment"
	default:
		return "Payment expired/failed"
	}
}

// PaymentPage returns the deposit rendered by the hosted payment page.
func (s *Service) PaymentPage(ctx context.Context, reffID, apiKey string) (*domain.Transaction, error) {
	txn, err := s.repo.FindTransactionForPaymentPage(ctx, reffID, apiKey)
	if err != nil {
		if errors.Is(err, store.ErrTransactionNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return txn, nil
}

// Balance returns the user's current saldo.
func (s *Service) Balance(ctx context.Context, userID int64) (int64, error) {
	balance, err := s.repo.GetBalance(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}
	return balance, nil
}
