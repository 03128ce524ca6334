package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"course-marketplace/internal/domain"
	"course-marketplace/internal/domain/model"
	"course-marketplace/internal/domain/ports/repository"
)

var _ repository.PurchaseRepository = (*purchaseRepo)(nil)

type purchaseRepo struct{ pool *pgxpool.Pool }

func NewPurchaseRepo(pool *pgxpool.Pool) *purchaseRepo {
	return &purchaseRepo{pool: pool}
}

const purchaseColumns = `id, user_id, course_id, amount_cents, currency, status, provider_ref, created_at, updated_at`

func (r *purchaseRepo) Save(ctx context.Context, tx repository.Tx, p *model.Purchase) error {
	const q = `
INSERT INTO purchases (
  id, user_id, course_id, amount_cents, currency, status, provider_ref, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9
) ON CONFLICT (id) DO UPDATE SET
  user_id=$2, course_id=$3, amount_cents=$4, currency=$5, status=$6, provider_ref=$7, updated_at=$9;`

	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.UserID, p.CourseID, p.AmountCents, p.Currency, p.Status, p.ProviderRef, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *purchaseRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Purchase, error) {
	q := `SELECT ` + purchaseColumns + ` FROM purchases WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanPurchase(row)
}

func (r *purchaseRepo) FindByIDs(ctx context.Context, tx repository.Tx, ids []string) ([]*model.Purchase, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := `SELECT ` + purchaseColumns + ` FROM purchases WHERE id = ANY($1) ORDER BY created_at ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, ids)
	if err != nil {
		return nil, mapQueryErr(err)
	}
	defer rows.Close()
	return collectPurchases(rows)
}

func (r *purchaseRepo) FindByProviderRef(ctx context.Context, tx repository.Tx, providerRef string) ([]*model.Purchase, error) {
	q := `SELECT ` + purchaseColumns + ` FROM purchases WHERE provider_ref=$1 ORDER BY created_at ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, providerRef)
	if err != nil {
		return nil, mapQueryErr(err)
	}
	defer rows.Close()
	return collectPurchases(rows)
}

func (r *purchaseRepo) SetProviderRef(ctx context.Context, tx repository.Tx, id, providerRef string) error {
	const q = `UPDATE purchases SET provider_ref=$2, updated_at=NOW() WHERE id=$1;`
	_, err := execSQL(ctx, r.pool, tx, q, id, providerRef)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

// MarkPaidIfPending atomically promotes pending->paid. The WHERE clause is the
// idempotency guard: concurrent settlement attempts race on this statement,
// exactly one observes RowsAffected()==1.
func (r *purchaseRepo) MarkPaidIfPending(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	const q = `
UPDATE purchases
   SET status = 'paid',
       updated_at = NOW()
 WHERE id = $1
   AND status = 'pending';`

	cmd, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *purchaseRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Purchase, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT ` + purchaseColumns + `
  FROM purchases
 WHERE status='pending' AND provider_ref IS NOT NULL AND created_at < $1
 ORDER BY created_at ASC
 LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, olderThan, limit)
	if err != nil {
		return nil, mapQueryErr(err)
	}
	defer rows.Close()
	return collectPurchases(rows)
}

func scanPurchase(row pgx.Row) (*model.Purchase, error) {
	p := &model.Purchase{}
	if err := row.Scan(&p.ID, &p.UserID, &p.CourseID, &p.AmountCents, &p.Currency, &p.Status, &p.ProviderRef, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

func collectPurchases(rows pgx.Rows) ([]*model.Purchase, error) {
	var out []*model.Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func mapQueryErr(err error) error {
	switch err {
	case pgx.ErrNoRows:
		return domain.ErrNotFound
	case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
		return err
	default:
		return domain.ErrOperationFailed
	}
}
