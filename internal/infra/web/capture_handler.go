// File: internal/infra/web/capture_handler.go
package web

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"course-marketplace/internal/domain"
	"course-marketplace/internal/domain/model"
	"course-marketplace/internal/domain/ports/repository"
)

// captureTimeout bounds the whole redirect round trip: one provider capture
// plus settlement. The buyer is waiting on this request.
const captureTimeout = 10 * time.Second

// handleCaptureCallback is the provider redirect target after buyer approval.
// It answers with redirects only; the buyer's browser never sees JSON here.
//
// GET /checkout/capture?token=<providerOrderRef>&purchases=a,b
func (s *Server) handleCaptureCallback(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), captureTimeout)
	defer cancel()

	token := r.URL.Query().Get("token")
	if token == "" {
		s.redirectCheckout(w, r, "failed")
		return
	}

	batch, err := s.resolveBatch(ctx, token, r.URL.Query().Get("purchases"))
	if err != nil {
		s.log.Error().Err(err).Str("provider_ref", token).Msg("capture callback: batch lookup failed")
		s.redirectCheckout(w, r, "failed")
		return
	}

	// Duplicate redirect (refresh, back button): everything already settled.
	if len(batch) > 0 && allPaid(batch) {
		s.redirectCheckout(w, r, "success")
		return
	}

	outcome, err := s.gateway.CaptureOrder(ctx, token)
	if err != nil {
		s.log.Error().Err(err).Str("provider_ref", token).Msg("capture callback: provider capture failed")
		s.redirectCheckout(w, r, "failed")
		return
	}

	result, err := s.settleUC.SettleOrder(ctx, token, outcome)
	if err != nil {
		s.log.Error().Err(err).Str("provider_ref", token).Msg("capture callback: settlement failed")
		s.redirectCheckout(w, r, "failed")
		return
	}
	if !outcome.Completed() || result.Empty() {
		s.redirectCheckout(w, r, "failed")
		return
	}
	s.redirectCheckout(w, r, "success")
}

func (s *Server) handleCheckoutCancelled(w http.ResponseWriter, r *http.Request) {
	s.redirectCheckout(w, r, "cancelled")
}

// resolveBatch finds the purchases behind a provider order reference. The
// purchases query parameter is the fallback for the window between order
// creation and the reference being persisted.
func (s *Server) resolveBatch(ctx context.Context, providerRef, purchasesParam string) ([]*model.Purchase, error) {
	batch, err := s.purchases.FindByProviderRef(ctx, repository.NoTX, providerRef)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if len(batch) > 0 {
		return batch, nil
	}
	if purchasesParam == "" {
		return nil, nil
	}

	ids := strings.Split(purchasesParam, ",")
	batch, err = s.purchases.FindByIDs(ctx, repository.NoTX, ids)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	for _, p := range batch {
		if p.ProviderRef == nil {
			if err := s.purchases.SetProviderRef(ctx, repository.NoTX, p.ID, providerRef); err != nil {
				return nil, err
			}
		}
	}
	return batch, nil
}

func allPaid(batch []*model.Purchase) bool {
	for _, p := range batch {
		if p.Status != model.PurchaseStatusPaid {
			return false
		}
	}
	return true
}

func (s *Server) redirectCheckout(w http.ResponseWriter, r *http.Request, status string) {
	http.Redirect(w, r, s.baseURL+"/courses?checkout="+status, http.StatusFound)
}
