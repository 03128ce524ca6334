//go:build !integration

// File: internal/infra/web/mock_test.go
package web_test

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"course-marketplace/internal/config"
	"course-marketplace/internal/domain"
	"course-marketplace/internal/domain/model"
	"course-marketplace/internal/domain/ports/adapter"
	"course-marketplace/internal/domain/ports/repository"
	"course-marketplace/internal/infra/web"
	"course-marketplace/internal/usecase"
)

func newTestLogger() *zerolog.Logger { l := zerolog.Nop(); return &l }

// newTestServer wires a Server from stubs. The nil auth manager leaves the
// API unauthenticated (session auth has its own tests) and the nil rate
// limiter disables the webhook guard.
func newTestServer(deps *serverDeps) *web.Server {
	return web.NewServer(
		deps.checkout, deps.settle, deps.subSettle, deps.purchases, deps.gateway,
		nil, nil, config.WebhookGuardConfig{RateLimit: 100, RateWindow: time.Minute},
		"https://market.example.com", newTestLogger(),
	)
}

type serverDeps struct {
	checkout  *stubCheckoutUC
	settle    *stubSettlementUC
	subSettle *stubSubSettlementUC
	purchases *stubPurchaseRepo
	gateway   *stubGateway
}

func newServerDeps() *serverDeps {
	return &serverDeps{
		checkout:  &stubCheckoutUC{},
		settle:    &stubSettlementUC{},
		subSettle: &stubSubSettlementUC{},
		purchases: &stubPurchaseRepo{},
		gateway:   &stubGateway{},
	}
}

// ---- use case stubs ----

type stubSettlementUC struct {
	Calls           int
	LastRef         string
	LastOutcome     adapter.CaptureOutcome
	SettleOrderFunc func(ctx context.Context, providerOrderRef string, outcome adapter.CaptureOutcome) (*usecase.SettlementResult, error)
}

var _ usecase.SettlementUseCase = (*stubSettlementUC)(nil)

func (s *stubSettlementUC) SettleOrder(ctx context.Context, providerOrderRef string, outcome adapter.CaptureOutcome) (*usecase.SettlementResult, error) {
	s.Calls++
	s.LastRef = providerOrderRef
	s.LastOutcome = outcome
	if s.SettleOrderFunc != nil {
		return s.SettleOrderFunc(ctx, providerOrderRef, outcome)
	}
	return &usecase.SettlementResult{Settled: []*model.Purchase{{ID: "p-1"}}}, nil
}

type stubSubSettlementUC struct {
	EventCalls    int
	LastEventType usecase.SubscriptionEventType
	LastResource  usecase.SubscriptionResource

	RecurringCalls int
	LastSaleID     string
	LastAmount     int64
	LastCurrency   string
	LastProviderID string

	SettleEventFunc     func(ctx context.Context, eventType usecase.SubscriptionEventType, res usecase.SubscriptionResource) error
	SettleRecurringFunc func(ctx context.Context, providerSubID string, amountCents int64, currency, providerSaleID string) error
}

var _ usecase.SubscriptionSettlementUseCase = (*stubSubSettlementUC)(nil)

func (s *stubSubSettlementUC) SettleSubscriptionEvent(ctx context.Context, eventType usecase.SubscriptionEventType, res usecase.SubscriptionResource) error {
	s.EventCalls++
	s.LastEventType = eventType
	s.LastResource = res
	if s.SettleEventFunc != nil {
		return s.SettleEventFunc(ctx, eventType, res)
	}
	return nil
}

func (s *stubSubSettlementUC) SettleRecurringPayment(ctx context.Context, providerSubID string, amountCents int64, currency, providerSaleID string) error {
	s.RecurringCalls++
	s.LastProviderID = providerSubID
	s.LastAmount = amountCents
	s.LastCurrency = currency
	s.LastSaleID = providerSaleID
	if s.SettleRecurringFunc != nil {
		return s.SettleRecurringFunc(ctx, providerSubID, amountCents, currency, providerSaleID)
	}
	return nil
}

type stubCheckoutUC struct {
	CheckoutFunc  func(ctx context.Context, userID string, courseIDs []string) ([]*model.Purchase, string, error)
	SubscribeFunc func(ctx context.Context, userID, planID string) (*model.Subscription, string, error)
}

var _ usecase.CheckoutUseCase = (*stubCheckoutUC)(nil)

func (s *stubCheckoutUC) CheckoutCourses(ctx context.Context, userID string, courseIDs []string) ([]*model.Purchase, string, error) {
	if s.CheckoutFunc != nil {
		return s.CheckoutFunc(ctx, userID, courseIDs)
	}
	return []*model.Purchase{{ID: "p-1"}}, "https://provider.test/approve", nil
}

func (s *stubCheckoutUC) Subscribe(ctx context.Context, userID, planID string) (*model.Subscription, string, error) {
	if s.SubscribeFunc != nil {
		return s.SubscribeFunc(ctx, userID, planID)
	}
	return &model.Subscription{ID: "sub-1"}, "https://provider.test/approve", nil
}

// ---- repository stub ----

type stubPurchaseRepo struct {
	FindByProviderRefFunc func(ctx context.Context, tx repository.Tx, providerRef string) ([]*model.Purchase, error)
	FindByIDsFunc         func(ctx context.Context, tx repository.Tx, ids []string) ([]*model.Purchase, error)
	SetProviderRefFunc    func(ctx context.Context, tx repository.Tx, id, providerRef string) error
}

var _ repository.PurchaseRepository = (*stubPurchaseRepo)(nil)

func (s *stubPurchaseRepo) Save(ctx context.Context, tx repository.Tx, p *model.Purchase) error {
	return nil
}

func (s *stubPurchaseRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Purchase, error) {
	return nil, domain.ErrNotFound
}

func (s *stubPurchaseRepo) FindByIDs(ctx context.Context, tx repository.Tx, ids []string) ([]*model.Purchase, error) {
	if s.FindByIDsFunc != nil {
		return s.FindByIDsFunc(ctx, tx, ids)
	}
	return nil, domain.ErrNotFound
}

func (s *stubPurchaseRepo) FindByProviderRef(ctx context.Context, tx repository.Tx, providerRef string) ([]*model.Purchase, error) {
	if s.FindByProviderRefFunc != nil {
		return s.FindByProviderRefFunc(ctx, tx, providerRef)
	}
	return nil, domain.ErrNotFound
}

func (s *stubPurchaseRepo) SetProviderRef(ctx context.Context, tx repository.Tx, id, providerRef string) error {
	if s.SetProviderRefFunc != nil {
		return s.SetProviderRefFunc(ctx, tx, id, providerRef)
	}
	return nil
}

func (s *stubPurchaseRepo) MarkPaidIfPending(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	return false, nil
}

func (s *stubPurchaseRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Purchase, error) {
	return nil, nil
}

// ---- gateway stub ----

type stubGateway struct {
	CaptureCalls  int
	VerifyCalls   int
	LastVerifyHdr adapter.WebhookHeaders

	CaptureOrderFunc  func(ctx context.Context, providerOrderRef string) (adapter.CaptureOutcome, error)
	VerifyWebhookFunc func(ctx context.Context, h adapter.WebhookHeaders, rawEvent []byte) (bool, error)
}

var _ adapter.PaymentGateway = (*stubGateway)(nil)

func (g *stubGateway) Name() string { return "paypal" }

func (g *stubGateway) CreateOrder(ctx context.Context, amountCents int64, currency, referenceID, returnURL, cancelURL string) (adapter.CreatedOrder, error) {
	return adapter.CreatedOrder{ProviderRef: "ORDER-1", ApproveURL: "https://provider.test/approve"}, nil
}

func (g *stubGateway) CaptureOrder(ctx context.Context, providerOrderRef string) (adapter.CaptureOutcome, error) {
	g.CaptureCalls++
	if g.CaptureOrderFunc != nil {
		return g.CaptureOrderFunc(ctx, providerOrderRef)
	}
	return adapter.CaptureOutcome{Status: "COMPLETED", CaptureID: "CAP-1"}, nil
}

func (g *stubGateway) CreateSubscription(ctx context.Context, providerPlanID, customID, returnURL, cancelURL string) (adapter.CreatedOrder, error) {
	return adapter.CreatedOrder{ProviderRef: "I-1", ApproveURL: "https://provider.test/approve"}, nil
}

func (g *stubGateway) GetSubscription(ctx context.Context, providerSubID string) (*adapter.SubscriptionDetail, error) {
	return &adapter.SubscriptionDetail{ProviderSubID: providerSubID, Status: "ACTIVE"}, nil
}

func (g *stubGateway) CancelSubscription(ctx context.Context, providerSubID, reason string) error {
	return nil
}

func (g *stubGateway) VerifyWebhook(ctx context.Context, h adapter.WebhookHeaders, rawEvent []byte) (bool, error) {
	g.VerifyCalls++
	g.LastVerifyHdr = h
	if g.VerifyWebhookFunc != nil {
		return g.VerifyWebhookFunc(ctx, h, rawEvent)
	}
	return true, nil
}
