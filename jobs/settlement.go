package jobs

import (
	"context"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/javascriptando/vips.lat-sub001/services"
	tasks "github.com/javascriptando/vips.lat-sub001/task"
)

// StartSettlementScheduler runs the background sweeps: polling the
// gateway for payouts stuck in processing, settling outstanding
// chargeback penalties, and pruning stale fingerprints. All tickers
// stop when ctx is cancelled.
func StartSettlementScheduler(
	ctx context.Context,
	db *gorm.DB,
	payouts *services.PayoutService,
	chargebacks *services.ChargebackService,
	logger *zap.SugaredLogger,
) {
	reconcileEvery := envDurationMinutes("RECONCILE_INTERVAL_MINUTES", 5)
	reconcileAfter := envDurationMinutes("RECONCILE_AFTER_MINUTES", 10)
	sweepEvery := envDurationMinutes("PENALTY_SWEEP_INTERVAL_MINUTES", 15)

	go func() {
		ticker := time.NewTicker(reconcileEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := payouts.ReconcilePending(ctx, reconcileAfter); err != nil {
					logger.Warnw("payout reconciliation sweep failed", "error", err)
				}
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(sweepEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := chargebacks.SettleOutstandingPenalties(ctx); err != nil {
					logger.Warnw("penalty settlement sweep failed", "error", err)
				}
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tasks.CleanupStaleFingerprints(db.WithContext(ctx), logger)
			}
		}
	}()

	logger.Infow("settlement scheduler started",
		"reconcile_every", reconcileEvery,
		"reconcile_after", reconcileAfter,
		"penalty_sweep_every", sweepEvery,
	)
}

func envDurationMinutes(key string, fallback int) time.Duration {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return time.Duration(v) * time.Minute
		}
	}
	return time.Duration(fallback) * time.Minute
}
