package repository

import (
	"context"

	"course-marketplace/internal/domain/model"
)

// SubscriptionRepository owns subscription lifecycle rows.
type SubscriptionRepository interface {
	Save(ctx context.Context, tx Tx, s *model.Subscription) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Subscription, error)
	FindByProviderSubID(ctx context.Context, tx Tx, providerSubID string) (*model.Subscription, error)
	// ListNonTerminalByUser returns every subscription of the user whose
	// status is not terminal, used to enforce the single-active invariant.
	ListNonTerminalByUser(ctx context.Context, tx Tx, userID string) ([]*model.Subscription, error)
}

// SubscriptionPaymentRepository is the append-only recurring charge trail.
type SubscriptionPaymentRepository interface {
	Save(ctx context.Context, tx Tx, p *model.SubscriptionPayment) error
	ListBySubscription(ctx context.Context, tx Tx, subscriptionID string) ([]*model.SubscriptionPayment, error)
}
