package model

import "time"

type PaymentStatus string

const (
	PaymentStatusCompleted PaymentStatus = "completed"
)

// Payment is an immutable receipt tied to a purchase, created only after the
// purchase reached paid. One row per provider capture; never mutated.
type Payment struct {
	ID          string // UUID
	UserID      string // UUID
	PurchaseID  string // UUID -> Purchase
	Provider    string // e.g. "paypal"
	ProviderRef string // provider capture id, or the order ref when no discrete capture id exists
	AmountCents int64
	Currency    string
	Status      PaymentStatus
	CreatedAt   time.Time
}
