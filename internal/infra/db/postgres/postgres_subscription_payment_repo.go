package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"course-marketplace/internal/domain"
	"course-marketplace/internal/domain/model"
	"course-marketplace/internal/domain/ports/repository"
)

var _ repository.SubscriptionPaymentRepository = (*subscriptionPaymentRepo)(nil)

type subscriptionPaymentRepo struct{ pool *pgxpool.Pool }

func NewSubscriptionPaymentRepo(pool *pgxpool.Pool) *subscriptionPaymentRepo {
	return &subscriptionPaymentRepo{pool: pool}
}

// Save appends one billing-cycle charge. Append-only: re-recording a sale id
// is preferred over silently dropping revenue on duplicate delivery.
func (r *subscriptionPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.SubscriptionPayment) error {
	const q = `
INSERT INTO subscription_payments (
  id, subscription_id, provider_sale_id, amount_cents, currency, created_at
) VALUES ($1,$2,$3,$4,$5,$6);`

	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.SubscriptionID, p.ProviderSaleID, p.AmountCents, p.Currency, p.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *subscriptionPaymentRepo) ListBySubscription(ctx context.Context, tx repository.Tx, subscriptionID string) ([]*model.SubscriptionPayment, error) {
	const q = `
SELECT id, subscription_id, provider_sale_id, amount_cents, currency, created_at
  FROM subscription_payments
 WHERE subscription_id=$1
 ORDER BY created_at ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, subscriptionID)
	if err != nil {
		return nil, mapQueryErr(err)
	}
	defer rows.Close()

	var out []*model.SubscriptionPayment
	for rows.Next() {
		p := &model.SubscriptionPayment{}
		if err := rows.Scan(&p.ID, &p.SubscriptionID, &p.ProviderSaleID, &p.AmountCents, &p.Currency, &p.CreatedAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, domain.ErrNotFound
			}
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}
