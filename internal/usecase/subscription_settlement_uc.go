// File: internal/usecase/subscription_settlement_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"course-marketplace/internal/domain"
	"course-marketplace/internal/domain/model"
	"course-marketplace/internal/domain/ports/adapter"
	"course-marketplace/internal/domain/ports/repository"
	"course-marketplace/internal/infra/metrics"
)

// SubscriptionEventType is the closed set of provider lifecycle events the
// engine acts on. Anything else is acknowledged and ignored.
type SubscriptionEventType string

const (
	SubEventActivated SubscriptionEventType = "ACTIVATED"
	SubEventUpdated   SubscriptionEventType = "UPDATED"
	SubEventCancelled SubscriptionEventType = "CANCELLED"
	SubEventExpired   SubscriptionEventType = "EXPIRED"
	SubEventSuspended SubscriptionEventType = "SUSPENDED"
)

// SubscriptionResource is the decoded slice of the provider event payload the
// state machine consumes. CustomID carries our local subscription id when the
// subscription was created through checkout.
type SubscriptionResource struct {
	ProviderSubID   string
	ProviderPlanID  string
	CustomID        string
	NextBillingTime *time.Time
}

// fallbackPeriod extends entitlement when the provider omits the next billing
// timestamp: one month plus a day of slack.
const fallbackPeriod = 31 * 24 * time.Hour

// SubscriptionSettlementUseCase drives the subscription status state machine
// from provider events. Transitions are idempotent overwrites keyed by local
// subscription id, so duplicate delivery converges without a dedup guard.
type SubscriptionSettlementUseCase interface {
	SettleSubscriptionEvent(ctx context.Context, eventType SubscriptionEventType, res SubscriptionResource) error
	// SettleRecurringPayment records one billing-cycle charge and extends the
	// current period from the provider's next billing time (past_due recovery
	// included).
	SettleRecurringPayment(ctx context.Context, providerSubID string, amountCents int64, currency, providerSaleID string) error
}

var _ SubscriptionSettlementUseCase = (*subscriptionSettlementUC)(nil)

type subscriptionSettlementUC struct {
	subs        repository.SubscriptionRepository
	subPayments repository.SubscriptionPaymentRepository
	plans       repository.PlanRepository
	enrollments repository.EnrollmentRepository
	activity    repository.ActivityLogRepository
	gateway     adapter.PaymentGateway
	log         *zerolog.Logger
}

func NewSubscriptionSettlementUseCase(
	subs repository.SubscriptionRepository,
	subPayments repository.SubscriptionPaymentRepository,
	plans repository.PlanRepository,
	enrollments repository.EnrollmentRepository,
	activity repository.ActivityLogRepository,
	gateway adapter.PaymentGateway,
	logger *zerolog.Logger,
) *subscriptionSettlementUC {
	return &subscriptionSettlementUC{
		subs:        subs,
		subPayments: subPayments,
		plans:       plans,
		enrollments: enrollments,
		activity:    activity,
		gateway:     gateway,
		log:         logger,
	}
}

func (u *subscriptionSettlementUC) SettleSubscriptionEvent(ctx context.Context, eventType SubscriptionEventType, res SubscriptionResource) error {
	sub, err := u.resolve(ctx, res)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			u.log.Warn().
				Str("event_type", string(eventType)).
				Str("provider_sub_id", res.ProviderSubID).
				Msg("subscription settlement: unknown subscription, ignoring")
			return nil
		}
		return err
	}

	switch eventType {
	case SubEventActivated, SubEventUpdated:
		return u.activate(ctx, sub, res)
	case SubEventCancelled:
		return u.cancel(ctx, sub)
	case SubEventExpired, SubEventSuspended:
		return u.expire(ctx, sub)
	default:
		// Intentionally unhandled: acknowledge so the provider does not
		// retry events we never act on.
		u.log.Debug().Str("event_type", string(eventType)).Msg("subscription settlement: event type ignored")
		return nil
	}
}

// resolve correlates the event to a local subscription. The custom id (our
// own subscription id) is the source of truth; the provider subscription id
// is only a fallback for events created outside our checkout flow.
func (u *subscriptionSettlementUC) resolve(ctx context.Context, res SubscriptionResource) (*model.Subscription, error) {
	if res.CustomID != "" {
		sub, err := u.subs.FindByID(ctx, repository.NoTX, res.CustomID)
		if err == nil {
			return sub, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	if res.ProviderSubID == "" {
		return nil, domain.ErrNotFound
	}
	return u.subs.FindByProviderSubID(ctx, repository.NoTX, res.ProviderSubID)
}

func (u *subscriptionSettlementUC) activate(ctx context.Context, sub *model.Subscription, res SubscriptionResource) error {
	now := time.Now()
	periodEnd := now.Add(fallbackPeriod)
	if res.NextBillingTime != nil {
		periodEnd = *res.NextBillingTime
	}

	if res.ProviderSubID != "" && sub.ProviderSubID == nil {
		sub.ProviderSubID = &res.ProviderSubID
	}

	// A plan change approved at the provider arrives as UPDATED with a new
	// plan id; re-resolve so local entitlement follows.
	if res.ProviderPlanID != "" {
		plan, err := u.plans.FindByProviderPlanID(ctx, repository.NoTX, res.ProviderPlanID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if plan != nil && plan.ID != sub.PlanID {
			sub.PlanID = plan.ID
			sub.Interval = plan.Interval
		}
	}

	sub.Status = model.SubscriptionStatusActive
	sub.CurrentPeriodStart = &now
	sub.CurrentPeriodEnd = &periodEnd
	sub.CancelAtPeriodEnd = false
	sub.UpdatedAt = now
	if err := u.subs.Save(ctx, repository.NoTX, sub); err != nil {
		return err
	}
	metrics.IncSubscriptionTransition(string(model.SubscriptionStatusActive))

	if err := u.enrollments.SetExpiryBySubscription(ctx, repository.NoTX, sub.ID, periodEnd); err != nil {
		u.log.Warn().Err(err).Str("subscription_id", sub.ID).Msg("subscription settlement: enrollment expiry refresh failed")
	}

	u.appendActivity(ctx, sub.UserID, model.ActivitySubscriptionActivated, sub.ID)

	return u.retireOthers(ctx, sub)
}

// retireOthers enforces the single-active invariant: after any activation,
// every other non-terminal subscription of the same user goes terminal.
// Abandoned pending rows expire directly; live ones are cancelled with the
// provider first so billing stops, then expired locally even when the
// provider call fails (the provider cancel is retried by nothing: an
// already-cancelled remote subscription makes the call fail harmlessly).
func (u *subscriptionSettlementUC) retireOthers(ctx context.Context, current *model.Subscription) error {
	others, err := u.subs.ListNonTerminalByUser(ctx, repository.NoTX, current.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}

	now := time.Now()
	for _, other := range others {
		if other.ID == current.ID {
			continue
		}
		if other.Status != model.SubscriptionStatusPending && other.ProviderSubID != nil {
			if err := u.gateway.CancelSubscription(ctx, *other.ProviderSubID, "superseded by new subscription"); err != nil {
				u.log.Warn().Err(err).
					Str("subscription_id", other.ID).
					Str("provider_sub_id", *other.ProviderSubID).
					Msg("subscription settlement: provider cancel failed, expiring locally anyway")
			}
		}
		other.Status = model.SubscriptionStatusExpired
		other.UpdatedAt = now
		if err := u.subs.Save(ctx, repository.NoTX, other); err != nil {
			return fmt.Errorf("retire subscription %s: %w", other.ID, err)
		}
		metrics.IncSubscriptionTransition(string(model.SubscriptionStatusExpired))
	}
	return nil
}

func (u *subscriptionSettlementUC) cancel(ctx context.Context, sub *model.Subscription) error {
	// Entitlement persists until period end: enrollments stay untouched.
	sub.Status = model.SubscriptionStatusCancelled
	sub.CancelAtPeriodEnd = true
	sub.UpdatedAt = time.Now()
	if err := u.subs.Save(ctx, repository.NoTX, sub); err != nil {
		return err
	}
	metrics.IncSubscriptionTransition(string(model.SubscriptionStatusCancelled))
	u.appendActivity(ctx, sub.UserID, model.ActivitySubscriptionCancelled, sub.ID)
	return nil
}

func (u *subscriptionSettlementUC) expire(ctx context.Context, sub *model.Subscription) error {
	sub.Status = model.SubscriptionStatusExpired
	sub.UpdatedAt = time.Now()
	if err := u.subs.Save(ctx, repository.NoTX, sub); err != nil {
		return err
	}
	metrics.IncSubscriptionTransition(string(model.SubscriptionStatusExpired))
	u.appendActivity(ctx, sub.UserID, model.ActivitySubscriptionExpired, sub.ID)
	return nil
}

func (u *subscriptionSettlementUC) SettleRecurringPayment(ctx context.Context, providerSubID string, amountCents int64, currency, providerSaleID string) error {
	sub, err := u.subs.FindByProviderSubID(ctx, repository.NoTX, providerSubID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			u.log.Warn().Str("provider_sub_id", providerSubID).Msg("recurring payment: unknown subscription, ignoring")
			return nil
		}
		return err
	}

	// Append first: over-recording a duplicate charge beats dropping revenue.
	charge := &model.SubscriptionPayment{
		ID:             uuid.NewString(),
		SubscriptionID: sub.ID,
		ProviderSaleID: providerSaleID,
		AmountCents:    amountCents,
		Currency:       currency,
		CreatedAt:      time.Now(),
	}
	if err := u.subPayments.Save(ctx, repository.NoTX, charge); err != nil {
		return err
	}

	// The sale event does not carry the new period end; ask the provider.
	// On failure the charge stays recorded and the period extends on the
	// at-least-once redelivery of this event.
	detail, err := u.gateway.GetSubscription(ctx, providerSubID)
	if err != nil {
		return fmt.Errorf("fetch subscription detail for period extension: %w", err)
	}

	now := time.Now()
	periodEnd := now.Add(fallbackPeriod)
	if detail.NextBillingTime != nil {
		periodEnd = *detail.NextBillingTime
	}
	sub.CurrentPeriodStart = &now
	sub.CurrentPeriodEnd = &periodEnd
	// Covers past_due recovery: a completed charge always reactivates.
	sub.Status = model.SubscriptionStatusActive
	sub.UpdatedAt = now
	if err := u.subs.Save(ctx, repository.NoTX, sub); err != nil {
		return err
	}
	metrics.IncSubscriptionTransition(string(model.SubscriptionStatusActive))

	if err := u.enrollments.SetExpiryBySubscription(ctx, repository.NoTX, sub.ID, periodEnd); err != nil {
		u.log.Warn().Err(err).Str("subscription_id", sub.ID).Msg("recurring payment: enrollment expiry refresh failed")
	}

	u.appendActivity(ctx, sub.UserID, model.ActivitySubscriptionRenewed, sub.ID)
	return nil
}

func (u *subscriptionSettlementUC) appendActivity(ctx context.Context, userID, action, subscriptionID string) {
	entry := &model.ActivityLog{
		ID:        uuid.NewString(),
		UserID:    userID,
		Action:    action,
		Detail:    map[string]interface{}{"subscription_id": subscriptionID},
		CreatedAt: time.Now(),
	}
	if err := u.activity.Append(ctx, repository.NoTX, entry); err != nil {
		u.log.Warn().Err(err).Str("subscription_id", subscriptionID).Msg("subscription settlement: activity log append failed")
	}
}
