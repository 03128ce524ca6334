// File: internal/infra/web/webhook_handler.go
package web

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"course-marketplace/internal/domain/ports/adapter"
	"course-marketplace/internal/infra/metrics"
	"course-marketplace/internal/infra/redis"
	"course-marketplace/internal/usecase"
)

// maxWebhookBody caps provider payload size; real events are a few KB.
const maxWebhookBody = 1 << 20

// webhookEvent is the envelope shared by every provider notification. The
// resource shape depends on event_type, so it stays raw until dispatch.
type webhookEvent struct {
	ID        string          `json:"id"`
	EventType string          `json:"event_type"`
	Resource  json.RawMessage `json:"resource"`
}

type subscriptionResource struct {
	ID          string `json:"id"`
	PlanID      string `json:"plan_id"`
	CustomID    string `json:"custom_id"`
	BillingInfo struct {
		NextBillingTime string `json:"next_billing_time"`
	} `json:"billing_info"`
}

type saleResource struct {
	ID                 string `json:"id"`
	BillingAgreementID string `json:"billing_agreement_id"`
	Amount             struct {
		Total    string `json:"total"`
		Currency string `json:"currency"`
	} `json:"amount"`
}

type orderResource struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	SupplementaryData struct {
		RelatedIDs struct {
			OrderID string `json:"order_id"`
		} `json:"related_ids"`
	} `json:"supplementary_data"`
}

// handleWebhook ingests provider push notifications. Rejections (bad
// signature, missing headers) are 400 so the provider knows the delivery was
// malformed; once an event is routed, the answer is always 200 so the
// provider stops redelivering. Processing failures are logged and recovered
// by redelivery of later events or the reconciliation sweep.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if !s.allowDelivery(r) {
		metrics.IncWebhookRejected("rate_limited")
		http.Error(w, "too many requests", http.StatusTooManyRequests)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		metrics.IncWebhookRejected("bad_payload")
		http.Error(w, "unreadable body", http.StatusBadRequest)
		return
	}

	headers := adapter.WebhookHeaders{
		TransmissionID:   r.Header.Get("Paypal-Transmission-Id"),
		TransmissionTime: r.Header.Get("Paypal-Transmission-Time"),
		TransmissionSig:  r.Header.Get("Paypal-Transmission-Sig"),
		CertURL:          r.Header.Get("Paypal-Cert-Url"),
		AuthAlgo:         r.Header.Get("Paypal-Auth-Algo"),
	}
	if !headers.Complete() {
		metrics.IncWebhookRejected("missing_headers")
		http.Error(w, "missing transmission headers", http.StatusBadRequest)
		return
	}

	verified, err := s.gateway.VerifyWebhook(r.Context(), headers, body)
	if err != nil {
		// Verification service unreachable: NACK so the provider redelivers.
		s.log.Error().Err(err).Msg("webhook: signature verification unavailable")
		http.Error(w, "verification unavailable", http.StatusBadGateway)
		return
	}
	if !verified {
		metrics.IncWebhookRejected("bad_signature")
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil || event.EventType == "" {
		metrics.IncWebhookRejected("bad_payload")
		http.Error(w, "malformed event", http.StatusBadRequest)
		return
	}

	outcome := "processed"
	if err := s.dispatch(r, event); err != nil {
		if err == errEventIgnored {
			outcome = "ignored"
		} else {
			outcome = "error"
			s.log.Error().Err(err).
				Str("event_id", event.ID).
				Str("event_type", event.EventType).
				Msg("webhook: processing failed")
		}
	}
	metrics.IncWebhookEvent(event.EventType, outcome)

	// The event is routed; never NACK past this point.
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"received":true}`))
}

// errEventIgnored marks event types outside the handled set.
var errEventIgnored = fmt.Errorf("event type not handled")

func (s *Server) dispatch(r *http.Request, event webhookEvent) error {
	ctx := r.Context()

	switch {
	case strings.HasPrefix(event.EventType, "BILLING.SUBSCRIPTION."):
		var res subscriptionResource
		if err := json.Unmarshal(event.Resource, &res); err != nil {
			return fmt.Errorf("decode subscription resource: %w", err)
		}
		eventType := usecase.SubscriptionEventType(strings.TrimPrefix(event.EventType, "BILLING.SUBSCRIPTION."))
		return s.subSettleUC.SettleSubscriptionEvent(ctx, eventType, usecase.SubscriptionResource{
			ProviderSubID:   res.ID,
			ProviderPlanID:  res.PlanID,
			CustomID:        res.CustomID,
			NextBillingTime: parseProviderTime(res.BillingInfo.NextBillingTime),
		})

	case event.EventType == "PAYMENT.SALE.COMPLETED":
		var res saleResource
		if err := json.Unmarshal(event.Resource, &res); err != nil {
			return fmt.Errorf("decode sale resource: %w", err)
		}
		cents, err := parseAmountCents(res.Amount.Total)
		if err != nil {
			return fmt.Errorf("parse sale amount %q: %w", res.Amount.Total, err)
		}
		return s.subSettleUC.SettleRecurringPayment(ctx, res.BillingAgreementID, cents, res.Amount.Currency, res.ID)

	case event.EventType == "CHECKOUT.ORDER.APPROVED":
		var res orderResource
		if err := json.Unmarshal(event.Resource, &res); err != nil {
			return fmt.Errorf("decode order resource: %w", err)
		}
		outcome, err := s.gateway.CaptureOrder(ctx, res.ID)
		if err != nil {
			return fmt.Errorf("capture approved order: %w", err)
		}
		_, err = s.settleUC.SettleOrder(ctx, res.ID, outcome)
		return err

	case event.EventType == "PAYMENT.CAPTURE.COMPLETED":
		var res orderResource
		if err := json.Unmarshal(event.Resource, &res); err != nil {
			return fmt.Errorf("decode capture resource: %w", err)
		}
		orderRef := res.SupplementaryData.RelatedIDs.OrderID
		if orderRef == "" {
			return fmt.Errorf("capture event %s has no related order id", event.ID)
		}
		_, err := s.settleUC.SettleOrder(ctx, orderRef, adapter.CaptureOutcome{
			Status:    "COMPLETED",
			CaptureID: res.ID,
		})
		return err

	default:
		return errEventIgnored
	}
}

// allowDelivery applies the per-source rate limit. Redis trouble fails open:
// the limiter is abuse hardening, not a correctness gate.
func (s *Server) allowDelivery(r *http.Request) bool {
	if s.limiter == nil {
		return true
	}
	source, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		source = r.RemoteAddr
	}
	ok, err := s.limiter.Allow(r.Context(), redis.WebhookSourceKey(source), s.guard.RateLimit, s.guard.RateWindow)
	if err != nil {
		s.log.Warn().Err(err).Msg("webhook: rate limiter unavailable, failing open")
		return true
	}
	return ok
}

func parseProviderTime(v string) *time.Time {
	if v == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil
	}
	return &t
}

// parseAmountCents converts the provider's decimal string ("10.99") into
// minor units. Amounts with more than two fraction digits are rejected.
func parseAmountCents(total string) (int64, error) {
	whole, frac, _ := strings.Cut(total, ".")
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, err
	}
	neg := strings.HasPrefix(whole, "-")
	cents := int64(0)
	if frac != "" {
		if len(frac) > 2 {
			return 0, fmt.Errorf("unsupported precision")
		}
		for len(frac) < 2 {
			frac += "0"
		}
		cents, err = strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, err
		}
	}
	if neg {
		return units*100 - cents, nil
	}
	return units*100 + cents, nil
}
