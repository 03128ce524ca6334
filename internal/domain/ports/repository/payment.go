package repository

import (
	"context"

	"course-marketplace/internal/domain/model"
)

// PaymentRepository stores immutable capture receipts. Insert-only by design.
type PaymentRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Payment) error
	FindByPurchaseID(ctx context.Context, tx Tx, purchaseID string) ([]*model.Payment, error)
}
