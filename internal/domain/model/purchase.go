package model

import (
	"time"

	"course-marketplace/internal/domain"
)

type PurchaseStatus string

const (
	PurchaseStatusPending PurchaseStatus = "pending" // checkout started; awaiting capture
	PurchaseStatusPaid    PurchaseStatus = "paid"    // capture confirmed; terminal
	PurchaseStatusFailed  PurchaseStatus = "failed"  // admin-marked failure; never set by settlement
)

// Purchase records one buyer's intent to acquire one course. The paid status
// is terminal: once set it is never reverted, and the pending->paid transition
// applies at most once per purchase id.
type Purchase struct {
	ID          string // UUID
	UserID      string // UUID
	CourseID    string // UUID
	AmountCents int64  // minor currency unit
	Currency    string // ISO code, e.g. "USD"
	Status      PurchaseStatus
	ProviderRef *string // provider order id; nil until the provider order is created
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewPurchase validates and constructs a pending purchase.
func NewPurchase(id, userID, courseID string, amountCents int64, currency string) (*Purchase, error) {
	if id == "" || userID == "" || courseID == "" || amountCents <= 0 || currency == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Purchase{
		ID:          id,
		UserID:      userID,
		CourseID:    courseID,
		AmountCents: amountCents,
		Currency:    currency,
		Status:      PurchaseStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
