package model

import "time"

type AccessType string

const (
	AccessTypePurchased    AccessType = "purchased"
	AccessTypeSubscription AccessType = "subscription"
)

// Enrollment grants a user access to a course. Unique per (UserID, CourseID);
// always written through an upsert so duplicate settlement attempts converge
// on a single row.
type Enrollment struct {
	ID             string  // UUID
	UserID         string  // UUID
	CourseID       string  // UUID
	PurchaseID     *string // set for purchased access
	SubscriptionID *string // set for subscription-sourced access
	AccessType     AccessType
	ExpiresAt      *time.Time // nil for purchased access; period end for subscription access
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
