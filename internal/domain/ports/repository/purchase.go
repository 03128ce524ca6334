package repository

import (
	"context"
	"time"

	"course-marketplace/internal/domain/model"
)

// PurchaseRepository owns the purchase (order) ledger rows.
type PurchaseRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Purchase) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Purchase, error)
	FindByIDs(ctx context.Context, tx Tx, ids []string) ([]*model.Purchase, error)
	// FindByProviderRef returns every purchase sharing one provider order id
	// (multi-course checkouts share a single reference).
	FindByProviderRef(ctx context.Context, tx Tx, providerRef string) ([]*model.Purchase, error)
	// SetProviderRef attaches the provider order id once checkout creates it.
	SetProviderRef(ctx context.Context, tx Tx, id, providerRef string) error
	// MarkPaidIfPending atomically flips status to paid only when the current
	// status is pending, reporting whether a row was changed. This single
	// conditional statement is the idempotency race guard: a false return
	// means another settlement attempt already won.
	MarkPaidIfPending(ctx context.Context, tx Tx, id string) (bool, error)
	// ListPendingOlderThan feeds the reconciliation sweep with stale pending
	// purchases that already hold a provider reference.
	ListPendingOlderThan(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.Purchase, error)
}
