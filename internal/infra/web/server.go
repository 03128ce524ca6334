// File: internal/infra/web/server.go
package web

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"course-marketplace/internal/config"
	"course-marketplace/internal/domain/ports/adapter"
	"course-marketplace/internal/domain/ports/repository"
	"course-marketplace/internal/infra/redis"
	"course-marketplace/internal/usecase"
)

// Server is the buyer- and provider-facing HTTP adapter. It owns no business
// logic: handlers translate HTTP into use case calls and nothing else.
type Server struct {
	checkoutUC  usecase.CheckoutUseCase
	settleUC    usecase.SettlementUseCase
	subSettleUC usecase.SubscriptionSettlementUseCase
	purchases   repository.PurchaseRepository
	gateway     adapter.PaymentGateway
	auth        *AuthManager
	limiter     *redis.RateLimiter
	guard       config.WebhookGuardConfig
	baseURL     string
	log         *zerolog.Logger
}

func NewServer(
	checkoutUC usecase.CheckoutUseCase,
	settleUC usecase.SettlementUseCase,
	subSettleUC usecase.SubscriptionSettlementUseCase,
	purchases repository.PurchaseRepository,
	gateway adapter.PaymentGateway,
	auth *AuthManager,
	limiter *redis.RateLimiter,
	guard config.WebhookGuardConfig,
	baseURL string,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		checkoutUC:  checkoutUC,
		settleUC:    settleUC,
		subSettleUC: subSettleUC,
		purchases:   purchases,
		gateway:     gateway,
		auth:        auth,
		limiter:     limiter,
		guard:       guard,
		baseURL:     strings.TrimRight(baseURL, "/"),
		log:         logger,
	}
}

// Routes builds the chi router for the whole HTTP surface.
func (s *Server) Routes() *chi.Mux {
	r := chi.NewRouter()

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/checkout/capture", s.handleCaptureCallback)
	r.Get("/checkout/cancelled", s.handleCheckoutCancelled)
	r.Post("/webhooks/paypal", s.handleWebhook)

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(s.requireUser)
		api.Post("/checkout", s.handleCheckout)
		api.Post("/subscriptions", s.handleSubscribe)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
