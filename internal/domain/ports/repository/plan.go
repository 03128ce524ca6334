package repository

import (
	"context"

	"course-marketplace/internal/domain/model"
)

type PlanRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.Plan, error)
	FindByProviderPlanID(ctx context.Context, tx Tx, providerPlanID string) (*model.Plan, error)
}
