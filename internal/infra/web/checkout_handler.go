// File: internal/infra/web/checkout_handler.go
package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"course-marketplace/internal/domain"
)

type checkoutRequest struct {
	UserID    string   `json:"user_id"`
	CourseIDs []string `json:"course_ids"`
}

type checkoutResponse struct {
	PurchaseIDs []string `json:"purchase_ids"`
	ApproveURL  string   `json:"approve_url"`
}

// handleCheckout starts a purchase: pending ledger rows plus a provider order
// the buyer must approve.
func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// The authenticated subject wins over the body field; the latter only
	// serves unauthenticated dev setups.
	userID := req.UserID
	if id, ok := userIDFromContext(r.Context()); ok {
		userID = id
	}

	batch, approveURL, err := s.checkoutUC.CheckoutCourses(r.Context(), userID, req.CourseIDs)
	if err != nil {
		s.writeUseCaseError(w, err, "Failed to start checkout")
		return
	}

	ids := make([]string, len(batch))
	for i, p := range batch {
		ids[i] = p.ID
	}
	writeJSON(w, http.StatusCreated, checkoutResponse{PurchaseIDs: ids, ApproveURL: approveURL})
}

type subscribeRequest struct {
	UserID string `json:"user_id"`
	PlanID string `json:"plan_id"`
}

type subscribeResponse struct {
	SubscriptionID string `json:"subscription_id"`
	ApproveURL     string `json:"approve_url"`
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	userID := req.UserID
	if id, ok := userIDFromContext(r.Context()); ok {
		userID = id
	}

	sub, approveURL, err := s.checkoutUC.Subscribe(r.Context(), userID, req.PlanID)
	if err != nil {
		s.writeUseCaseError(w, err, "Failed to start subscription")
		return
	}
	writeJSON(w, http.StatusCreated, subscribeResponse{SubscriptionID: sub.ID, ApproveURL: approveURL})
}

func (s *Server) writeUseCaseError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	default:
		s.log.Error().Err(err).Msg("checkout request failed")
		http.Error(w, fallback, http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
