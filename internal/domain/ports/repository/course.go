package repository

import (
	"context"

	"course-marketplace/internal/domain/model"
)

// CourseRepository reads catalog entries and consumes finite inventory.
type CourseRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.Course, error)
	// DecrementInventory runs a single guarded compare-and-decrement
	// (UPDATE ... SET inventory = inventory - 1 WHERE inventory > 0) and
	// reports whether a unit was consumed. Courses with nil inventory are
	// unlimited and must not be passed here.
	DecrementInventory(ctx context.Context, tx Tx, id string) (bool, error)
}
