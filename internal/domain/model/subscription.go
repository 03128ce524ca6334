package model

import (
	"time"

	"course-marketplace/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusPending   SubscriptionStatus = "pending"
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled" // entitled until period end
	SubscriptionStatusPastDue   SubscriptionStatus = "past_due"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
)

// Terminal reports whether the status can never transition again. A user may
// hold at most one non-terminal subscription in {pending, active} at a time;
// activation of a new subscription retires every other non-terminal one.
func (s SubscriptionStatus) Terminal() bool {
	return s == SubscriptionStatusExpired
}

// Subscription is a recurring-billing relationship with the provider.
type Subscription struct {
	ID                 string // UUID
	UserID             string // UUID
	PlanID             string // UUID -> Plan
	Status             SubscriptionStatus
	ProviderSubID      *string // provider subscription id; nil until created with provider
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	CancelAtPeriodEnd  bool
	Interval           string // month | year
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// NewSubscription constructs a pending subscription at subscribe time.
func NewSubscription(id, userID string, plan *Plan) (*Subscription, error) {
	if id == "" || userID == "" || plan.IsZero() {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Subscription{
		ID:        id,
		UserID:    userID,
		PlanID:    plan.ID,
		Status:    SubscriptionStatusPending,
		Interval:  plan.Interval,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// SubscriptionPayment is one appended row per recurring billing cycle charge.
type SubscriptionPayment struct {
	ID             string // UUID
	SubscriptionID string // UUID -> Subscription
	ProviderSaleID string // provider sale/transaction id
	AmountCents    int64
	Currency       string
	CreatedAt      time.Time
}
