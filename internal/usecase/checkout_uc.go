// File: internal/usecase/checkout_uc.go
package usecase

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"course-marketplace/internal/domain"
	"course-marketplace/internal/domain/model"
	"course-marketplace/internal/domain/ports/adapter"
	"course-marketplace/internal/domain/ports/repository"
)

// CheckoutUseCase starts purchases and subscriptions with the provider. It
// writes only pending ledger rows; settlement happens later via capture.
type CheckoutUseCase interface {
	// CheckoutCourses creates one pending purchase per course and a single
	// provider order covering the total. All purchases share the provider
	// order reference. Returns the purchases and the buyer approval URL.
	CheckoutCourses(ctx context.Context, userID string, courseIDs []string) ([]*model.Purchase, string, error)
	// Subscribe creates a pending subscription and its provider agreement,
	// correlating them via the local subscription id.
	Subscribe(ctx context.Context, userID, planID string) (*model.Subscription, string, error)
}

var _ CheckoutUseCase = (*checkoutUC)(nil)

type checkoutUC struct {
	purchases repository.PurchaseRepository
	courses   repository.CourseRepository
	subs      repository.SubscriptionRepository
	plans     repository.PlanRepository
	gateway   adapter.PaymentGateway
	baseURL   string
	log       *zerolog.Logger
}

func NewCheckoutUseCase(
	purchases repository.PurchaseRepository,
	courses repository.CourseRepository,
	subs repository.SubscriptionRepository,
	plans repository.PlanRepository,
	gateway adapter.PaymentGateway,
	baseURL string,
	logger *zerolog.Logger,
) *checkoutUC {
	return &checkoutUC{
		purchases: purchases,
		courses:   courses,
		subs:      subs,
		plans:     plans,
		gateway:   gateway,
		baseURL:   strings.TrimRight(baseURL, "/"),
		log:       logger,
	}
}

func (u *checkoutUC) CheckoutCourses(ctx context.Context, userID string, courseIDs []string) ([]*model.Purchase, string, error) {
	if userID == "" || len(courseIDs) == 0 {
		return nil, "", domain.ErrInvalidArgument
	}

	var (
		batch    []*model.Purchase
		total    int64
		currency string
	)
	for _, courseID := range courseIDs {
		course, err := u.courses.FindByID(ctx, repository.NoTX, courseID)
		if err != nil {
			return nil, "", err
		}
		if currency == "" {
			currency = course.Currency
		} else if currency != course.Currency {
			// Mixed-currency carts cannot share one provider order.
			return nil, "", domain.ErrInvalidArgument
		}

		p, err := model.NewPurchase(uuid.NewString(), userID, courseID, course.PriceCents, course.Currency)
		if err != nil {
			return nil, "", err
		}
		if err := u.purchases.Save(ctx, repository.NoTX, p); err != nil {
			return nil, "", err
		}
		batch = append(batch, p)
		total += course.PriceCents
	}

	ids := make([]string, len(batch))
	for i, p := range batch {
		ids[i] = p.ID
	}
	returnURL := fmt.Sprintf("%s/checkout/capture?purchases=%s", u.baseURL, url.QueryEscape(strings.Join(ids, ",")))
	cancelURL := u.baseURL + "/checkout/cancelled"

	created, err := u.gateway.CreateOrder(ctx, total, currency, ids[0], returnURL, cancelURL)
	if err != nil {
		return nil, "", err
	}

	for _, p := range batch {
		if err := u.purchases.SetProviderRef(ctx, repository.NoTX, p.ID, created.ProviderRef); err != nil {
			return nil, "", err
		}
		ref := created.ProviderRef
		p.ProviderRef = &ref
	}

	u.log.Info().
		Str("user_id", userID).
		Str("provider_ref", created.ProviderRef).
		Int("courses", len(batch)).
		Int64("total_cents", total).
		Msg("checkout: provider order created")
	return batch, created.ApproveURL, nil
}

func (u *checkoutUC) Subscribe(ctx context.Context, userID, planID string) (*model.Subscription, string, error) {
	plan, err := u.plans.FindByID(ctx, repository.NoTX, planID)
	if err != nil {
		return nil, "", err
	}

	sub, err := model.NewSubscription(uuid.NewString(), userID, plan)
	if err != nil {
		return nil, "", err
	}
	if err := u.subs.Save(ctx, repository.NoTX, sub); err != nil {
		return nil, "", err
	}

	returnURL := u.baseURL + "/subscriptions/approved"
	cancelURL := u.baseURL + "/subscriptions/cancelled"
	created, err := u.gateway.CreateSubscription(ctx, plan.ProviderPlanID, sub.ID, returnURL, cancelURL)
	if err != nil {
		return nil, "", err
	}

	ref := created.ProviderRef
	sub.ProviderSubID = &ref
	if err := u.subs.Save(ctx, repository.NoTX, sub); err != nil {
		return nil, "", err
	}

	u.log.Info().
		Str("user_id", userID).
		Str("subscription_id", sub.ID).
		Str("provider_sub_id", ref).
		Msg("checkout: provider subscription created")
	return sub, created.ApproveURL, nil
}
