package adapter

import (
	"context"
	"time"
)

// CaptureOutcome is the provider's answer to a capture attempt.
type CaptureOutcome struct {
	Status    string // provider status, e.g. COMPLETED / DECLINED
	CaptureID string // discrete capture id; may be empty on some providers
}

// Completed reports whether the capture settled the funds.
func (o CaptureOutcome) Completed() bool { return o.Status == "COMPLETED" }

// CreatedOrder is the result of creating an order or subscription with the
// provider: its reference plus the URL the buyer must approve at.
type CreatedOrder struct {
	ProviderRef string
	ApproveURL  string
}

// SubscriptionDetail is the provider's current view of a subscription.
type SubscriptionDetail struct {
	ProviderSubID   string
	ProviderPlanID  string
	Status          string
	CustomID        string // our correlation id (local subscription id)
	NextBillingTime *time.Time
}

// WebhookHeaders carries the five transmission headers required to verify a
// provider-pushed event.
type WebhookHeaders struct {
	TransmissionID   string
	TransmissionTime string
	TransmissionSig  string
	CertURL          string
	AuthAlgo         string
}

// Complete reports whether every required header is present.
func (h WebhookHeaders) Complete() bool {
	return h.TransmissionID != "" && h.TransmissionTime != "" &&
		h.TransmissionSig != "" && h.CertURL != "" && h.AuthAlgo != ""
}

// PaymentGateway is the hex port for the external payment processor. Every
// call is a direct request/response translation; no state, no internal
// retries. Callers enforce timeouts through ctx.
type PaymentGateway interface {
	Name() string

	// CreateOrder registers a capture-intent order and returns the approval
	// redirect for the buyer. referenceID correlates our purchases.
	CreateOrder(ctx context.Context, amountCents int64, currency, referenceID, returnURL, cancelURL string) (CreatedOrder, error)
	// CaptureOrder finalizes a previously approved order.
	CaptureOrder(ctx context.Context, providerOrderRef string) (CaptureOutcome, error)

	// CreateSubscription starts a recurring-billing agreement; customID is our
	// local subscription id used to correlate later webhook events.
	CreateSubscription(ctx context.Context, providerPlanID, customID, returnURL, cancelURL string) (CreatedOrder, error)
	GetSubscription(ctx context.Context, providerSubID string) (*SubscriptionDetail, error)
	CancelSubscription(ctx context.Context, providerSubID, reason string) error

	// VerifyWebhook checks the transmission signature over the raw event body.
	// A nil error with false means the provider judged the signature invalid.
	VerifyWebhook(ctx context.Context, h WebhookHeaders, rawEvent []byte) (bool, error)
}
