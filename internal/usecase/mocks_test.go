//go:build !integration

// File: internal/usecase/mocks_test.go
package usecase_test

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"course-marketplace/internal/domain"
	"course-marketplace/internal/domain/model"
	"course-marketplace/internal/domain/ports/adapter"
	"course-marketplace/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger { l := zerolog.Nop(); return &l }

// -----------------------------
// Transaction manager
// -----------------------------

type noTx struct{}

// mockTxManager runs the callback directly. When a purchases repo is attached
// it restores the purchase rows on error, mirroring the rollback of the
// conditional status update (the only write that precedes the failure points
// exercised in these tests).
type mockTxManager struct {
	purchases *memPurchaseRepo

	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func (m *mockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	var snapshot map[string]model.Purchase
	if m.purchases != nil {
		snapshot = m.purchases.snapshot()
	}
	err := fn(ctx, noTx{})
	if err != nil && m.purchases != nil {
		m.purchases.restore(snapshot)
	}
	return err
}

// -----------------------------
// Task runner
// -----------------------------

// syncRunner executes submitted tasks inline so tests observe side effects
// deterministically. Task errors are swallowed like the real pool does.
type syncRunner struct{}

func (syncRunner) Submit(task func(ctx context.Context) error) error {
	_ = task(context.Background())
	return nil
}

// dropRunner rejects every submission, simulating a saturated pool.
type dropRunner struct{}

func (dropRunner) Submit(task func(ctx context.Context) error) error {
	return domain.ErrOperationFailed
}

// -----------------------------
// Repositories
// -----------------------------

type memPurchaseRepo struct {
	mu    sync.Mutex
	store map[string]*model.Purchase

	MarkPaidIfPendingFunc func(ctx context.Context, tx repository.Tx, id string) (bool, error)
}

func newMemPurchaseRepo() *memPurchaseRepo {
	return &memPurchaseRepo{store: make(map[string]*model.Purchase)}
}

func (m *memPurchaseRepo) snapshot() map[string]model.Purchase {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]model.Purchase, len(m.store))
	for k, v := range m.store {
		out[k] = *v
	}
	return out
}

func (m *memPurchaseRepo) restore(snap map[string]model.Purchase) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store = make(map[string]*model.Purchase, len(snap))
	for k, v := range snap {
		cp := v
		m.store[k] = &cp
	}
}

func (m *memPurchaseRepo) Save(ctx context.Context, tx repository.Tx, p *model.Purchase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *memPurchaseRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPurchaseRepo) FindByIDs(ctx context.Context, tx repository.Tx, ids []string) ([]*model.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Purchase
	for _, id := range ids {
		if p, ok := m.store[id]; ok {
			cp := *p
			out = append(out, &cp)
		}
	}
	if len(out) == 0 {
		return nil, domain.ErrNotFound
	}
	return out, nil
}

func (m *memPurchaseRepo) FindByProviderRef(ctx context.Context, tx repository.Tx, providerRef string) ([]*model.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Purchase
	for _, p := range m.store {
		if p.ProviderRef != nil && *p.ProviderRef == providerRef {
			cp := *p
			out = append(out, &cp)
		}
	}
	if len(out) == 0 {
		return nil, domain.ErrNotFound
	}
	return out, nil
}

func (m *memPurchaseRepo) SetProviderRef(ctx context.Context, tx repository.Tx, id, providerRef string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	ref := providerRef
	p.ProviderRef = &ref
	return nil
}

func (m *memPurchaseRepo) MarkPaidIfPending(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	if m.MarkPaidIfPendingFunc != nil {
		return m.MarkPaidIfPendingFunc(ctx, tx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok || p.Status != model.PurchaseStatusPending {
		return false, nil
	}
	p.Status = model.PurchaseStatusPaid
	p.UpdatedAt = time.Now()
	return true, nil
}

func (m *memPurchaseRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Purchase
	for _, p := range m.store {
		if p.Status == model.PurchaseStatusPending && p.ProviderRef != nil && p.CreatedAt.Before(olderThan) {
			cp := *p
			out = append(out, &cp)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

type memCourseRepo struct {
	mu    sync.Mutex
	store map[string]*model.Course

	DecrementInventoryFunc func(ctx context.Context, tx repository.Tx, id string) (bool, error)
}

func newMemCourseRepo() *memCourseRepo {
	return &memCourseRepo{store: make(map[string]*model.Course)}
}

func (m *memCourseRepo) add(c *model.Course) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.store[c.ID] = &cp
}

func (m *memCourseRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	if c.Inventory != nil {
		inv := *c.Inventory
		cp.Inventory = &inv
	}
	return &cp, nil
}

func (m *memCourseRepo) DecrementInventory(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	if m.DecrementInventoryFunc != nil {
		return m.DecrementInventoryFunc(ctx, tx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.store[id]
	if !ok || c.Inventory == nil || *c.Inventory <= 0 {
		return false, nil
	}
	*c.Inventory--
	return true, nil
}

type memEnrollmentRepo struct {
	mu    sync.Mutex
	store map[string]*model.Enrollment // keyed user/course
}

func newMemEnrollmentRepo() *memEnrollmentRepo {
	return &memEnrollmentRepo{store: make(map[string]*model.Enrollment)}
}

func enrollmentKey(userID, courseID string) string { return userID + "/" + courseID }

func (m *memEnrollmentRepo) Upsert(ctx context.Context, tx repository.Tx, e *model.Enrollment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.store[enrollmentKey(e.UserID, e.CourseID)] = &cp
	return nil
}

func (m *memEnrollmentRepo) Find(ctx context.Context, tx repository.Tx, userID, courseID string) (*model.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.store[enrollmentKey(userID, courseID)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *memEnrollmentRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Enrollment
	for _, e := range m.store {
		if e.UserID == userID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memEnrollmentRepo) SetExpiryBySubscription(ctx context.Context, tx repository.Tx, subscriptionID string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.store {
		if e.SubscriptionID != nil && *e.SubscriptionID == subscriptionID {
			exp := expiresAt
			e.ExpiresAt = &exp
		}
	}
	return nil
}

type memPaymentRepo struct {
	mu    sync.Mutex
	rows  []*model.Payment
	saved int

	SaveFunc func(ctx context.Context, tx repository.Tx, p *model.Payment) error
}

func newMemPaymentRepo() *memPaymentRepo { return &memPaymentRepo{} }

func (m *memPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.rows = append(m.rows, &cp)
	m.saved++
	return nil
}

func (m *memPaymentRepo) FindByPurchaseID(ctx context.Context, tx repository.Tx, purchaseID string) ([]*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Payment
	for _, p := range m.rows {
		if p.PurchaseID == purchaseID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memPaymentRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved
}

type memSubscriptionRepo struct {
	mu    sync.Mutex
	store map[string]*model.Subscription
}

func newMemSubscriptionRepo() *memSubscriptionRepo {
	return &memSubscriptionRepo{store: make(map[string]*model.Subscription)}
}

func (m *memSubscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.store[s.ID] = &cp
	return nil
}

func (m *memSubscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSubscriptionRepo) FindByProviderSubID(ctx context.Context, tx repository.Tx, providerSubID string) (*model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.store {
		if s.ProviderSubID != nil && *s.ProviderSubID == providerSubID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memSubscriptionRepo) ListNonTerminalByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Subscription
	for _, s := range m.store {
		if s.UserID == userID && !s.Status.Terminal() {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memSubscriptionPaymentRepo struct {
	mu   sync.Mutex
	rows []*model.SubscriptionPayment
}

func newMemSubscriptionPaymentRepo() *memSubscriptionPaymentRepo {
	return &memSubscriptionPaymentRepo{}
}

func (m *memSubscriptionPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.SubscriptionPayment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.rows = append(m.rows, &cp)
	return nil
}

func (m *memSubscriptionPaymentRepo) ListBySubscription(ctx context.Context, tx repository.Tx, subscriptionID string) ([]*model.SubscriptionPayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.SubscriptionPayment
	for _, p := range m.rows {
		if p.SubscriptionID == subscriptionID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memPlanRepo struct {
	mu    sync.Mutex
	store map[string]*model.Plan
}

func newMemPlanRepo() *memPlanRepo { return &memPlanRepo{store: make(map[string]*model.Plan)} }

func (m *memPlanRepo) add(p *model.Plan) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.store[p.ID] = &cp
}

func (m *memPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPlanRepo) FindByProviderPlanID(ctx context.Context, tx repository.Tx, providerPlanID string) (*model.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.store {
		if p.ProviderPlanID == providerPlanID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

type memUserRepo struct {
	mu    sync.Mutex
	store map[string]*model.User
}

func newMemUserRepo() *memUserRepo { return &memUserRepo{store: make(map[string]*model.User)} }

func (m *memUserRepo) add(u *model.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.store[u.ID] = &cp
}

func (m *memUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

type memActivityLogRepo struct {
	mu      sync.Mutex
	entries []*model.ActivityLog

	AppendFunc func(ctx context.Context, tx repository.Tx, e *model.ActivityLog) error
}

func newMemActivityLogRepo() *memActivityLogRepo { return &memActivityLogRepo{} }

func (m *memActivityLogRepo) Append(ctx context.Context, tx repository.Tx, e *model.ActivityLog) error {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, tx, e)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *memActivityLogRepo) byAction(action string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.entries {
		if e.Action == action {
			n++
		}
	}
	return n
}

// -----------------------------
// Adapters
// -----------------------------

type MockPaymentGateway struct {
	mu        sync.Mutex
	Cancelled []string // provider sub ids passed to CancelSubscription

	CreateOrderFunc        func(ctx context.Context, amountCents int64, currency, referenceID, returnURL, cancelURL string) (adapter.CreatedOrder, error)
	CaptureOrderFunc       func(ctx context.Context, providerOrderRef string) (adapter.CaptureOutcome, error)
	CreateSubscriptionFunc func(ctx context.Context, providerPlanID, customID, returnURL, cancelURL string) (adapter.CreatedOrder, error)
	GetSubscriptionFunc    func(ctx context.Context, providerSubID string) (*adapter.SubscriptionDetail, error)
	CancelSubscriptionFunc func(ctx context.Context, providerSubID, reason string) error
	VerifyWebhookFunc      func(ctx context.Context, h adapter.WebhookHeaders, rawEvent []byte) (bool, error)
}

var _ adapter.PaymentGateway = (*MockPaymentGateway)(nil)

func (m *MockPaymentGateway) Name() string { return "paypal" }

func (m *MockPaymentGateway) CreateOrder(ctx context.Context, amountCents int64, currency, referenceID, returnURL, cancelURL string) (adapter.CreatedOrder, error) {
	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, amountCents, currency, referenceID, returnURL, cancelURL)
	}
	return adapter.CreatedOrder{ProviderRef: "ORDER-1", ApproveURL: "https://provider.test/approve/ORDER-1"}, nil
}

func (m *MockPaymentGateway) CaptureOrder(ctx context.Context, providerOrderRef string) (adapter.CaptureOutcome, error) {
	if m.CaptureOrderFunc != nil {
		return m.CaptureOrderFunc(ctx, providerOrderRef)
	}
	return adapter.CaptureOutcome{Status: "COMPLETED", CaptureID: "CAP-1"}, nil
}

func (m *MockPaymentGateway) CreateSubscription(ctx context.Context, providerPlanID, customID, returnURL, cancelURL string) (adapter.CreatedOrder, error) {
	if m.CreateSubscriptionFunc != nil {
		return m.CreateSubscriptionFunc(ctx, providerPlanID, customID, returnURL, cancelURL)
	}
	return adapter.CreatedOrder{ProviderRef: "I-SUB-1", ApproveURL: "https://provider.test/approve/I-SUB-1"}, nil
}

func (m *MockPaymentGateway) GetSubscription(ctx context.Context, providerSubID string) (*adapter.SubscriptionDetail, error) {
	if m.GetSubscriptionFunc != nil {
		return m.GetSubscriptionFunc(ctx, providerSubID)
	}
	return &adapter.SubscriptionDetail{ProviderSubID: providerSubID, Status: "ACTIVE"}, nil
}

func (m *MockPaymentGateway) CancelSubscription(ctx context.Context, providerSubID, reason string) error {
	if m.CancelSubscriptionFunc != nil {
		return m.CancelSubscriptionFunc(ctx, providerSubID, reason)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Cancelled = append(m.Cancelled, providerSubID)
	return nil
}

func (m *MockPaymentGateway) VerifyWebhook(ctx context.Context, h adapter.WebhookHeaders, rawEvent []byte) (bool, error) {
	if m.VerifyWebhookFunc != nil {
		return m.VerifyWebhookFunc(ctx, h, rawEvent)
	}
	return true, nil
}

type mockMailer struct {
	mu            sync.Mutex
	Confirmations []string // recipient emails
	Failures      []string

	ConfirmFunc func(ctx context.Context, to, courseTitle string) error
}

var _ adapter.Mailer = (*mockMailer)(nil)

func (m *mockMailer) SendPurchaseConfirmation(ctx context.Context, to, courseTitle string) error {
	if m.ConfirmFunc != nil {
		return m.ConfirmFunc(ctx, to, courseTitle)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Confirmations = append(m.Confirmations, to)
	return nil
}

func (m *mockMailer) SendPaymentFailed(ctx context.Context, to, courseTitle string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Failures = append(m.Failures, to)
	return nil
}

type mockAnalytics struct {
	mu     sync.Mutex
	Events []string
}

var _ adapter.Analytics = (*mockAnalytics)(nil)

func (m *mockAnalytics) Track(ctx context.Context, event string, props map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
	return nil
}
