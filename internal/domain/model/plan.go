package model

import (
	"time"

	"course-marketplace/internal/domain"
)

// Plan is a purchasable recurring-billing plan mirrored from the provider.
type Plan struct {
	ID             string // UUID
	Name           string
	ProviderPlanID string // provider billing plan id
	Interval       string // month | year
	PriceCents     int64
	Currency       string
	CreatedAt      time.Time
}

func (p *Plan) IsZero() bool { return p == nil || p.ID == "" }

// NewPlan validates and constructs a plan.
func NewPlan(id, name, providerPlanID, interval string, priceCents int64, currency string) (*Plan, error) {
	if id == "" || name == "" || providerPlanID == "" || priceCents <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	if interval != "month" && interval != "year" {
		return nil, domain.ErrInvalidArgument
	}
	return &Plan{
		ID:             id,
		Name:           name,
		ProviderPlanID: providerPlanID,
		Interval:       interval,
		PriceCents:     priceCents,
		Currency:       currency,
		CreatedAt:      time.Now(),
	}, nil
}
