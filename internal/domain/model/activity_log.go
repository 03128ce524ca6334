package model

import "time"

// Account activity actions recorded by the settlement flows.
const (
	ActivityPurchaseCompleted     = "purchase_completed"
	ActivitySubscriptionActivated = "subscription_activated"
	ActivitySubscriptionCancelled = "subscription_cancelled"
	ActivitySubscriptionExpired   = "subscription_expired"
	ActivitySubscriptionRenewed   = "subscription_renewed"
)

// ActivityLog is an append-only audit trail entry. Writing it is best-effort:
// a failed append is logged and never fails the settlement it describes.
type ActivityLog struct {
	ID        string // UUID
	UserID    string // UUID
	Action    string
	Detail    map[string]interface{} // serialized as JSONB
	CreatedAt time.Time
}
