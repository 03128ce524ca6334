// File: internal/infra/sched/settlement_reconciler.go
package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"course-marketplace/internal/domain/ports/adapter"
	"course-marketplace/internal/domain/ports/repository"
	"course-marketplace/internal/usecase"
)

// SettlementReconciler periodically scans for stale pending purchases and
// retries capture + settlement. This covers the window where the buyer
// approved the order but the redirect callback and the webhook both failed
// to land (crash mid-settle, dropped delivery).
type SettlementReconciler struct {
	settleUC   usecase.SettlementUseCase
	purchases  repository.PurchaseRepository
	gateway    adapter.PaymentGateway
	interval   time.Duration // how often to scan
	staleAfter time.Duration // how old a pending purchase must be to retry
	log        *zerolog.Logger
}

func NewSettlementReconciler(
	settleUC usecase.SettlementUseCase,
	purchases repository.PurchaseRepository,
	gateway adapter.PaymentGateway,
	interval, staleAfter time.Duration,
	logger *zerolog.Logger,
) *SettlementReconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	return &SettlementReconciler{
		settleUC:   settleUC,
		purchases:  purchases,
		gateway:    gateway,
		interval:   interval,
		staleAfter: staleAfter,
		log:        logger,
	}
}

func (w *SettlementReconciler) Start(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *SettlementReconciler) tick(ctx context.Context) {
	cutoff := time.Now().Add(-w.staleAfter)
	pending, err := w.purchases.ListPendingOlderThan(ctx, repository.NoTX, cutoff, 200)
	if err != nil {
		w.log.Error().Err(err).Msg("settlement-reconciler: list pending failed")
		return
	}

	// Purchases sharing a provider order settle together; capture each
	// reference once.
	seen := make(map[string]struct{}, len(pending))
	for _, p := range pending {
		if p.ProviderRef == nil {
			continue
		}
		ref := *p.ProviderRef
		if _, done := seen[ref]; done {
			continue
		}
		seen[ref] = struct{}{}

		outcome, err := w.gateway.CaptureOrder(ctx, ref)
		if err != nil {
			w.log.Warn().Err(err).Str("provider_ref", ref).Msg("settlement-reconciler: capture failed")
			continue
		}
		result, err := w.settleUC.SettleOrder(ctx, ref, outcome)
		if err != nil {
			w.log.Error().Err(err).Str("provider_ref", ref).Msg("settlement-reconciler: settle failed")
			continue
		}
		if len(result.Settled) > 0 {
			w.log.Info().Str("provider_ref", ref).Int("settled", len(result.Settled)).Msg("settlement-reconciler: reconciled")
		}
	}
}
