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

var _ repository.CourseRepository = (*courseRepo)(nil)

type courseRepo struct{ pool *pgxpool.Pool }

func NewCourseRepo(pool *pgxpool.Pool) *courseRepo {
	return &courseRepo{pool: pool}
}

func (r *courseRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Course, error) {
	const q = `
SELECT id, title, slug, price_cents, currency, inventory, created_at, updated_at
  FROM courses
 WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}

	c := &model.Course{}
	if err := row.Scan(&c.ID, &c.Title, &c.Slug, &c.PriceCents, &c.Currency, &c.Inventory, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return c, nil
}

// DecrementInventory consumes one unit with a single guarded statement. The
// inventory > 0 predicate makes the check and the write atomic: two buyers of
// the last unit race on this UPDATE and only one affects a row. NULL
// inventory rows (unlimited) are intentionally excluded from the predicate.
func (r *courseRepo) DecrementInventory(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	const q = `
UPDATE courses
   SET inventory = inventory - 1,
       updated_at = NOW()
 WHERE id = $1
   AND inventory IS NOT NULL
   AND inventory > 0;`

	cmd, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}
