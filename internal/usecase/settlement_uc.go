// File: internal/usecase/settlement_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"course-marketplace/internal/domain"
	"course-marketplace/internal/domain/model"
	"course-marketplace/internal/domain/ports/adapter"
	"course-marketplace/internal/domain/ports/repository"
	"course-marketplace/internal/infra/metrics"
)

// TaskRunner executes post-commit side effects off the settlement path.
// Submitted tasks are best-effort: the runner logs failures and never reports
// them back to the submitter.
type TaskRunner interface {
	Submit(task func(ctx context.Context) error) error
}

// SettlementResult reports what one settlement call did per purchase.
type SettlementResult struct {
	Settled     []*model.Purchase // transitioned pending->paid by this call
	AlreadyPaid []*model.Purchase // idempotent short-circuit, no writes
}

// Empty reports whether the call touched or matched nothing.
func (r *SettlementResult) Empty() bool {
	return len(r.Settled) == 0 && len(r.AlreadyPaid) == 0
}

// SettlementUseCase converts a provider capture outcome into ledger state,
// exactly once per purchase.
type SettlementUseCase interface {
	// SettleOrder applies the capture outcome to every purchase sharing the
	// provider order reference. Unknown references are a logged no-op. Safe
	// to call concurrently and repeatedly for the same reference.
	SettleOrder(ctx context.Context, providerOrderRef string, outcome adapter.CaptureOutcome) (*SettlementResult, error)
}

// Compile-time check
var _ SettlementUseCase = (*settlementUC)(nil)

type settlementUC struct {
	purchases   repository.PurchaseRepository
	payments    repository.PaymentRepository
	enrollments repository.EnrollmentRepository
	courses     repository.CourseRepository
	users       repository.UserRepository
	activity    repository.ActivityLogRepository
	gateway     adapter.PaymentGateway
	mailer      adapter.Mailer
	analytics   adapter.Analytics
	tm          repository.TransactionManager
	tasks       TaskRunner
	log         *zerolog.Logger
}

func NewSettlementUseCase(
	purchases repository.PurchaseRepository,
	payments repository.PaymentRepository,
	enrollments repository.EnrollmentRepository,
	courses repository.CourseRepository,
	users repository.UserRepository,
	activity repository.ActivityLogRepository,
	gateway adapter.PaymentGateway,
	mailer adapter.Mailer,
	analytics adapter.Analytics,
	tm repository.TransactionManager,
	tasks TaskRunner,
	logger *zerolog.Logger,
) *settlementUC {
	return &settlementUC{
		purchases:   purchases,
		payments:    payments,
		enrollments: enrollments,
		courses:     courses,
		users:       users,
		activity:    activity,
		gateway:     gateway,
		mailer:      mailer,
		analytics:   analytics,
		tm:          tm,
		tasks:       tasks,
		log:         logger,
	}
}

func (u *settlementUC) SettleOrder(ctx context.Context, providerOrderRef string, outcome adapter.CaptureOutcome) (*SettlementResult, error) {
	result := &SettlementResult{}

	batch, err := u.purchases.FindByProviderRef(ctx, repository.NoTX, providerOrderRef)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if len(batch) == 0 {
		// A reference we never issued: most likely stale or foreign. Nothing
		// can be retried meaningfully, so acknowledge and move on.
		u.log.Warn().Str("provider_ref", providerOrderRef).Msg("settlement: unknown provider reference, ignoring")
		metrics.IncSettlement("unknown_ref")
		return result, nil
	}

	if !outcome.Completed() {
		metrics.IncSettlement("declined")
		u.log.Info().
			Str("provider_ref", providerOrderRef).
			Str("capture_status", outcome.Status).
			Msg("settlement: capture not completed, purchases stay pending")
		for _, p := range batch {
			u.enqueueFailureNotice(p)
		}
		return result, nil
	}

	// Each purchase settles in its own transaction: the conditional
	// pending->paid update and its dependent writes commit or abort together,
	// while unrelated purchases in the batch proceed independently.
	var firstErr error
	for _, p := range batch {
		settled, err := u.settleOne(ctx, p, providerOrderRef, outcome)
		if err != nil {
			metrics.IncSettlement(resultLabel(err))
			u.log.Error().Err(err).
				Str("purchase_id", p.ID).
				Str("provider_ref", providerOrderRef).
				Msg("settlement: purchase failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if !settled {
			metrics.IncSettlement("duplicate")
			result.AlreadyPaid = append(result.AlreadyPaid, p)
			continue
		}

		metrics.IncSettlement("settled")
		metrics.AddSettlementRevenue(p.Currency, p.AmountCents)
		p.Status = model.PurchaseStatusPaid
		result.Settled = append(result.Settled, p)

		u.appendActivity(ctx, p)
		u.enqueuePostCommit(p)
	}

	return result, firstErr
}

// settleOne runs the transactional core for a single purchase and reports
// whether this call performed the pending->paid transition.
func (u *settlementUC) settleOne(ctx context.Context, p *model.Purchase, providerOrderRef string, outcome adapter.CaptureOutcome) (bool, error) {
	settled := false
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		// The conditional update re-checks status inside the transaction: a
		// concurrent duplicate (webhook racing the redirect callback) loses
		// here and skips every dependent write.
		won, err := u.purchases.MarkPaidIfPending(ctx, tx, p.ID)
		if err != nil {
			return err
		}
		if !won {
			return nil
		}

		course, err := u.courses.FindByID(ctx, tx, p.CourseID)
		if err != nil {
			return err
		}
		if course.HasFiniteStock() {
			consumed, err := u.courses.DecrementInventory(ctx, tx, p.CourseID)
			if err != nil {
				return err
			}
			if !consumed {
				// Out of stock: abort everything rather than granting access
				// without consuming a unit. The purchase stays pending.
				metrics.IncInventoryExhausted()
				return domain.ErrOutOfStock
			}
		}

		now := time.Now()
		purchaseID := p.ID
		enrollment := &model.Enrollment{
			ID:         uuid.NewString(),
			UserID:     p.UserID,
			CourseID:   p.CourseID,
			PurchaseID: &purchaseID,
			AccessType: model.AccessTypePurchased,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := u.enrollments.Upsert(ctx, tx, enrollment); err != nil {
			return err
		}

		captureRef := outcome.CaptureID
		if captureRef == "" {
			// Some capture paths report no discrete capture id.
			captureRef = providerOrderRef
		}
		payment := &model.Payment{
			ID:          uuid.NewString(),
			UserID:      p.UserID,
			PurchaseID:  p.ID,
			Provider:    u.gateway.Name(),
			ProviderRef: captureRef,
			AmountCents: p.AmountCents,
			Currency:    p.Currency,
			Status:      model.PaymentStatusCompleted,
			CreatedAt:   now,
		}
		if err := u.payments.Save(ctx, tx, payment); err != nil {
			return err
		}

		settled = true
		return nil
	})
	return settled, err
}

// appendActivity records the audit entry right after commit. Append failures
// must never undo a settlement, so the error is only logged.
func (u *settlementUC) appendActivity(ctx context.Context, p *model.Purchase) {
	entry := &model.ActivityLog{
		ID:     uuid.NewString(),
		UserID: p.UserID,
		Action: model.ActivityPurchaseCompleted,
		Detail: map[string]interface{}{
			"purchase_id":  p.ID,
			"course_id":    p.CourseID,
			"amount_cents": p.AmountCents,
			"currency":     p.Currency,
		},
		CreatedAt: time.Now(),
	}
	if err := u.activity.Append(ctx, repository.NoTX, entry); err != nil {
		u.log.Warn().Err(err).Str("purchase_id", p.ID).Msg("settlement: activity log append failed")
	}
}

// enqueuePostCommit schedules the confirmation email and analytics event.
// Each task isolates its own error so one failing sink cannot starve another,
// and nothing here can reach back into the committed transaction.
func (u *settlementUC) enqueuePostCommit(p *model.Purchase) {
	purchase := *p
	if err := u.tasks.Submit(func(ctx context.Context) error {
		return u.sendConfirmation(ctx, &purchase)
	}); err != nil {
		u.log.Warn().Err(err).Str("purchase_id", p.ID).Msg("settlement: confirmation task not queued")
	}

	if err := u.tasks.Submit(func(ctx context.Context) error {
		return u.analytics.Track(ctx, "purchase_completed", map[string]interface{}{
			"purchase_id":  purchase.ID,
			"user_id":      purchase.UserID,
			"course_id":    purchase.CourseID,
			"amount_cents": purchase.AmountCents,
			"currency":     purchase.Currency,
		})
	}); err != nil {
		u.log.Warn().Err(err).Str("purchase_id", p.ID).Msg("settlement: analytics task not queued")
	}
}

func (u *settlementUC) enqueueFailureNotice(p *model.Purchase) {
	purchase := *p
	if err := u.tasks.Submit(func(ctx context.Context) error {
		user, err := u.users.FindByID(ctx, repository.NoTX, purchase.UserID)
		if err != nil {
			return err
		}
		course, err := u.courses.FindByID(ctx, repository.NoTX, purchase.CourseID)
		if err != nil {
			return err
		}
		return u.mailer.SendPaymentFailed(ctx, user.Email, course.Title)
	}); err != nil {
		u.log.Warn().Err(err).Str("purchase_id", p.ID).Msg("settlement: failure notice not queued")
	}
}

func (u *settlementUC) sendConfirmation(ctx context.Context, p *model.Purchase) error {
	user, err := u.users.FindByID(ctx, repository.NoTX, p.UserID)
	if err != nil {
		return err
	}
	course, err := u.courses.FindByID(ctx, repository.NoTX, p.CourseID)
	if err != nil {
		return err
	}
	return u.mailer.SendPurchaseConfirmation(ctx, user.Email, course.Title)
}

func resultLabel(err error) string {
	if errors.Is(err, domain.ErrOutOfStock) {
		return "out_of_stock"
	}
	return "error"
}
