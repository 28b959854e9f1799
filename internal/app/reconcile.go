package app

import (
	"context"
	"fmt"

	"github.com/ReyGenteng/galaxy/internal/domain"
)

// ReconcileReport summarises one reconcile pass.
type ReconcileReport struct {
	Checked int
	Settled int
	Expired int
	Failed  int
}

// ReconcilePending walks pending deposits oldest first. Deposits past their expiry are
// checked upstream once more and expired unless upstream reports success; the others
// are pull-reconciled like a status request.
func (s *Service) ReconcilePending(ctx context.Context, limit int) (ReconcileReport, error) {
	var report ReconcileReport

	pending, err := s.repo.ListPendingTransactions(ctx, limit)
	if err != nil {
		return report, fmt.Errorf("list pending transactions: %w", err)
	}

	for i := range pending {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		txn := &pending[i]
		report.Checked++

		deposit, err := s.gateway.DepositStatus(ctx, txn.ReffID)
		if err != nil {
			upstreamFailures.WithLabelValues("deposit_status").Inc()
			report.Failed++
			s.logger.Warn("reconcile status check failed", "component", "reconcile", "reff_id", txn.ReffID, "err", err)
			if txn.IsExpired(s.now()) {
				s.expire(ctx, txn, &report)
			}
			continue
		}

		if _, settled := s.applyUpstream(ctx, txn, deposit, SourceReconcile); settled {
			report.Settled++
			continue
		}
		if txn.IsExpired(s.now()) {
			s.expire(ctx, txn, &report)
		}
	}

	return report, nil
}

func (s *Service) expire(ctx context.Context, txn *domain.Transaction, report *ReconcileReport) {
	expired, err := s.repo.ExpireTransaction(ctx, txn.ReffID, s.now())
	if err != nil {
		report.Failed++
		s.logger.Error("failed to expire deposit", "component", "reconcile", "reff_id", txn.ReffID, "err", err)
		return
	}
	if expired {
		report.Expired++
		depositsExpired.Inc()
		s.logger.Info("deposit expired", "component", "reconcile", "reff_id", txn.ReffID, "user_id", txn.UserID)
	}
}
