// Package main запускает HTTP-сервер портала оплаты обучения.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/tuition-portal/internal/config"
	"github.com/mmeshcher/tuition-portal/internal/gateway"
	"github.com/mmeshcher/tuition-portal/internal/handler"
	"github.com/mmeshcher/tuition-portal/internal/mailer"
	"github.com/mmeshcher/tuition-portal/internal/metrics"
	"github.com/mmeshcher/tuition-portal/internal/middleware"
	"github.com/mmeshcher/tuition-portal/internal/repository"
	"github.com/mmeshcher/tuition-portal/internal/service"
	"github.com/mmeshcher/tuition-portal/internal/storage"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		sugar.Warnw("failed to load .env", "error", err.Error())
	}

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}

	store, err := newStore(ctx, cfg, logger)
	if err != nil {
		sugar.Fatalw("storage initialization error", "error", err.Error())
	}

	gw := gateway.NewStripeGateway(gateway.Options{
		SecretKey:     cfg.Stripe.SecretKey,
		PublicKey:     cfg.Stripe.PublicKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
		HTTPClient:    &http.Client{Timeout: cfg.Stripe.Timeout},
	}, logger)
	if !gw.VerifiesWebhooks() {
		sugar.Errorw("STRIPE_WEBHOOK_SECRET is empty, every gateway webhook will be rejected and payments will stay pending")
	}

	var m service.Mailer
	if cfg.SMTP.Host != "" {
		m = mailer.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Password, cfg.SMTP.From)
	} else {
		sugar.Info("SMTP_HOST is empty, receipt emails are disabled")
	}

	receipts := service.NewReceiptEmitter(repo, store, m, service.ReceiptOptions{
		FontPath:  cfg.ReceiptFontPath,
		BillingTo: cfg.SMTP.BillingTo,
	}, logger)

	svc := service.NewService(repo, gw, receipts, store, service.Options{
		Currency:       cfg.Stripe.Currency,
		BaseURL:        cfg.BaseURL,
		GatewayTimeout: cfg.Stripe.Timeout,
		ReceiptTimeout: cfg.ReceiptTimeout,
	}, logger)
	defer svc.Close()

	metrics.MustRegister()

	if cfg.SeedDemo {
		if err := svc.Seed(ctx); err != nil {
			sugar.Fatalw("seed error", "error", err.Error())
		}
	}

	sessions := middleware.NewSessionManager(cfg.SecretKey, strings.HasPrefix(cfg.BaseURL, "https://"))
	h := handler.NewHandler(svc, logger, sessions)

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sugar.Infow("starting portal server", "addr", cfg.RunAddress, "base_url", cfg.BaseURL)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}

// newStore выбирает MinIO, если задан адрес, иначе локальный каталог.
func newStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (service.ObjectStore, error) {
	sc := cfg.Storage
	if sc.MinIOEndpoint != "" {
		return storage.NewMinIOStore(ctx, sc.MinIOEndpoint, sc.MinIOAccessKey, sc.MinIOSecretKey, sc.MinIOBucket, sc.MinIOUseSSL, logger)
	}
	return storage.NewLocalStore(sc.UploadFolder)
}
