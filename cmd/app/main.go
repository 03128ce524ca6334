// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"course-marketplace/internal/config"
	pg "course-marketplace/internal/infra/db/postgres"
	"course-marketplace/internal/infra/logging"
	"course-marketplace/internal/infra/metrics"
	"course-marketplace/internal/infra/notify"
	"course-marketplace/internal/infra/payment"
	red "course-marketplace/internal/infra/redis"
	"course-marketplace/internal/infra/sched"
	"course-marketplace/internal/infra/web"
	"course-marketplace/internal/infra/worker"
	"course-marketplace/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (relaxed config)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("[DEV MODE] Enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	rateLimiter := red.NewRateLimiter(redisClient)

	// ---- Repositories ----
	purchaseRepo := pg.NewPurchaseRepo(pool)
	paymentRepo := pg.NewPaymentRepo(pool)
	enrollmentRepo := pg.NewEnrollmentRepo(pool)
	courseRepo := pg.NewCourseRepoCacheDecorator(pg.NewCourseRepo(pool), redisClient, cfg.Redis.TTL)
	subRepo := pg.NewSubscriptionRepo(pool)
	subPaymentRepo := pg.NewSubscriptionPaymentRepo(pool)
	planRepo := pg.NewPlanRepo(pool)
	userRepo := pg.NewUserRepo(pool)
	activityRepo := pg.NewActivityLogRepo(pool)
	tm := pg.NewTxManager(pool)

	// ---- Provider gateway ----
	gateway, err := payment.NewPayPalGateway(cfg.PayPal.ClientID, cfg.PayPal.ClientSecret, cfg.PayPal.WebhookID, cfg.PayPal.Sandbox)
	if err != nil {
		logger.Fatal().Err(err).Msg("paypal gateway")
	}

	// ---- Side-effect workers ----
	taskPool := worker.NewPool(4, logger)
	taskPool.Start(ctx)
	defer taskPool.Stop()

	mailer := notify.NewSMTPMailer(cfg.SMTP, logger)
	analytics := notify.NewLogAnalytics(logger)

	// ---- Use cases ----
	settleUC := usecase.NewSettlementUseCase(
		purchaseRepo, paymentRepo, enrollmentRepo, courseRepo, userRepo,
		activityRepo, gateway, mailer, analytics, tm, taskPool, logger,
	)
	subSettleUC := usecase.NewSubscriptionSettlementUseCase(
		subRepo, subPaymentRepo, planRepo, enrollmentRepo, activityRepo, gateway, logger,
	)
	checkoutUC := usecase.NewCheckoutUseCase(
		purchaseRepo, courseRepo, subRepo, planRepo, gateway, cfg.App.BaseURL, logger,
	)

	// ---- HTTP server ----
	var authMgr *web.AuthManager
	if cfg.Auth.Secret != "" {
		authMgr = web.NewAuthManager(cfg.Auth.Secret, !cfg.Runtime.Dev, cfg.Auth.CookieDomain, cfg.Auth.TTL)
	}
	srv := web.NewServer(
		checkoutUC, settleUC, subSettleUC, purchaseRepo, gateway,
		authMgr, rateLimiter, cfg.Webhook, cfg.App.BaseURL, logger,
	)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server")
		}
	}()

	// ---- Reconciliation sweep ----
	reconciler := sched.NewSettlementReconciler(
		settleUC, purchaseRepo, gateway, cfg.Sweep.Interval, cfg.Sweep.StaleAfter, logger,
	)
	go reconciler.Start(ctx)

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}
