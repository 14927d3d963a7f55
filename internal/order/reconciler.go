package order

import (
	"context"
	"time"

	"merchant-checkout/internal/config"
	"merchant-checkout/internal/logger"
	"merchant-checkout/internal/metrics"

	"go.uber.org/zap"
)

// Reconciler flags orders whose payment session never got attached once
// the payment window plus a grace period has passed. It only changes the
// stage; recovery stays manual.
type Reconciler struct {
	repo     Repository
	interval time.Duration
	cutoff   time.Duration
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewReconciler(repo Repository, cfg config.Merchant, m *metrics.Metrics) *Reconciler {
	return &Reconciler{
		repo:     repo,
		interval: cfg.ReconcileInterval,
		cutoff:   cfg.PaymentExpiration + cfg.OrphanGracePeriod,
		metrics:  m,
		now:      time.Now,
	}
}

// Run reconciles immediately and then on every tick until ctx is done.
func (r *Reconciler) Run(ctx context.Context) {
	log := logger.Named("reconciler")
	log.Info("orphan reconciler started",
		zap.Duration("interval", r.interval),
		zap.Duration("cutoff", r.cutoff),
	)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if _, err := r.ReconcileOnce(ctx); err != nil && ctx.Err() == nil {
			log.Error("reconcile pass failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			log.Info("orphan reconciler stopped")
			return
		case <-ticker.C:
		}
	}
}

// ReconcileOnce marks every overdue unattached order and reports how many
// changed stage.
func (r *Reconciler) ReconcileOnce(ctx context.Context) (int, error) {
	olderThan := r.now().Add(-r.cutoff)

	pending, err := r.repo.ListUnattached(ctx, olderThan)
	if err != nil {
		return 0, err
	}

	marked := 0
	for _, o := range pending {
		ok, err := r.repo.MarkOrphaned(ctx, o.ID)
		if err != nil {
			return marked, err
		}
		if !ok {
			continue
		}
		marked++
		logger.L().Warn("order orphaned",
			zap.String("order_id", o.ID.String()),
			zap.Time("created_at", o.CreatedAt),
			zap.String("total", o.TotalPrice.String()),
		)
	}

	r.metrics.AddOrphaned(marked)
	return marked, nil
}
