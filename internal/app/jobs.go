/**
 * @description
 * Scheduled job implementations for the gateway.
 */
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/ReyGenteng/galaxy/internal/config"
)

// Reconciler is the service surface the jobs need.
type Reconciler interface {
	ReconcilePending(ctx context.Context, limit int) (ReconcileReport, error)
}

// Jobs contains the logic for all scheduled tasks.
type Jobs struct {
	reconciler Reconciler
	logger     *slog.Logger
	config     config.Config
	timeout    time.Duration
}

// NewJobs creates a new Jobs runner.
func NewJobs(reconciler Reconciler, logger *slog.Logger, cfg config.Config) *Jobs {
	return &Jobs{
		reconciler: reconciler,
		logger:     logger,
		config:     cfg,
		timeout:    2 * time.Minute,
	}
}

// ReconcilePendingDeposits settles paid deposits and expires overdue ones.
func (j *Jobs) ReconcilePendingDeposits() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	report, err := j.reconciler.ReconcilePending(ctx, j.config.ReconcileBatchSize)
	if err != nil {
		j.logger.Error("pending deposit reconciliation failed", "error", err, "checked", report.Checked)
		return
	}
	if report.Checked == 0 {
		return
	}

	j.logger.Info("pending deposit reconciliation finished",
		"checked", report.Checked,
		"settled", report.Settled,
		"expired", report.Expired,
		"failed", report.Failed,
	)
}
