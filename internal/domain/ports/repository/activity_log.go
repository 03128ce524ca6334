package repository

import (
	"context"

	"course-marketplace/internal/domain/model"
)

// ActivityLogRepository appends audit trail entries. Callers treat append
// failures as non-fatal.
type ActivityLogRepository interface {
	Append(ctx context.Context, tx Tx, e *model.ActivityLog) error
}
