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

var _ repository.EnrollmentRepository = (*enrollmentRepo)(nil)

type enrollmentRepo struct{ pool *pgxpool.Pool }

func NewEnrollmentRepo(pool *pgxpool.Pool) *enrollmentRepo {
	return &enrollmentRepo{pool: pool}
}

const enrollmentColumns = `id, user_id, course_id, purchase_id, subscription_id, access_type, expires_at, created_at, updated_at`

// Upsert keys on the (user_id, course_id) unique composite so a duplicate
// settlement converges on the existing grant instead of erroring.
func (r *enrollmentRepo) Upsert(ctx context.Context, tx repository.Tx, e *model.Enrollment) error {
	const q = `
INSERT INTO enrollments (
  id, user_id, course_id, purchase_id, subscription_id, access_type, expires_at, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (user_id, course_id) DO UPDATE SET
  purchase_id=COALESCE($4, enrollments.purchase_id),
  subscription_id=COALESCE($5, enrollments.subscription_id),
  access_type=$6,
  expires_at=$7,
  updated_at=$9;`

	_, err := execSQL(ctx, r.pool, tx, q, e.ID, e.UserID, e.CourseID, e.PurchaseID, e.SubscriptionID, e.AccessType, e.ExpiresAt, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *enrollmentRepo) Find(ctx context.Context, tx repository.Tx, userID, courseID string) (*model.Enrollment, error) {
	q := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE user_id=$1 AND course_id=$2 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, userID, courseID)
	if err != nil {
		return nil, err
	}
	return scanEnrollment(row)
}

func (r *enrollmentRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Enrollment, error) {
	q := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE user_id=$1 ORDER BY created_at ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, mapQueryErr(err)
	}
	defer rows.Close()

	var out []*model.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *enrollmentRepo) SetExpiryBySubscription(ctx context.Context, tx repository.Tx, subscriptionID string, expiresAt time.Time) error {
	const q = `UPDATE enrollments SET expires_at=$2, updated_at=NOW() WHERE subscription_id=$1;`
	_, err := execSQL(ctx, r.pool, tx, q, subscriptionID, expiresAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func scanEnrollment(row pgx.Row) (*model.Enrollment, error) {
	e := &model.Enrollment{}
	if err := row.Scan(&e.ID, &e.UserID, &e.CourseID, &e.PurchaseID, &e.SubscriptionID, &e.AccessType, &e.ExpiresAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return e, nil
}
