package repository

import (
	"context"
	"time"

	"course-marketplace/internal/domain/model"
)

// EnrollmentRepository stores access grants, unique per (user, course).
type EnrollmentRepository interface {
	// Upsert inserts or refreshes the enrollment keyed on (user_id, course_id)
	// so repeated settlement attempts never duplicate a grant.
	Upsert(ctx context.Context, tx Tx, e *model.Enrollment) error
	Find(ctx context.Context, tx Tx, userID, courseID string) (*model.Enrollment, error)
	ListByUser(ctx context.Context, tx Tx, userID string) ([]*model.Enrollment, error)
	// SetExpiryBySubscription stamps the entitlement horizon on every
	// enrollment sourced from the given subscription.
	SetExpiryBySubscription(ctx context.Context, tx Tx, subscriptionID string, expiresAt time.Time) error
}
