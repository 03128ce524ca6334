package adapter

import "context"

// Mailer sends buyer-facing notification emails. All calls are best-effort:
// the settlement engine invokes them only after its transaction committed and
// swallows every error.
type Mailer interface {
	SendPurchaseConfirmation(ctx context.Context, to, courseTitle string) error
	SendPaymentFailed(ctx context.Context, to, courseTitle string) error
}

// Analytics records settlement events for reporting. Best-effort, same
// isolation rules as Mailer.
type Analytics interface {
	Track(ctx context.Context, event string, props map[string]interface{}) error
}
