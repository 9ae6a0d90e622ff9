// Package main запускает HTTP-сервер сервиса кредитной оценки BNPL.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/bnpl-system/internal/cache"
	"github.com/mmeshcher/bnpl-system/internal/config"
	"github.com/mmeshcher/bnpl-system/internal/emi"
	"github.com/mmeshcher/bnpl-system/internal/fraud"
	"github.com/mmeshcher/bnpl-system/internal/handler"
	"github.com/mmeshcher/bnpl-system/internal/middleware"
	"github.com/mmeshcher/bnpl-system/internal/oracle"
	"github.com/mmeshcher/bnpl-system/internal/provider"
	"github.com/mmeshcher/bnpl-system/internal/repository"
	"github.com/mmeshcher/bnpl-system/internal/scoring"
	"github.com/mmeshcher/bnpl-system/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	// Кэш создаётся явно при старте и закрывается при остановке.
	// Его недоступность не мешает работе: сервис переходит на заглушку.
	var store cache.Store = cache.Noop{}
	if cfg.RedisURI != "" {
		redisStore, err := cache.NewRedisStore(cfg.RedisURI, logger)
		if err != nil {
			sugar.Warnw("redis unavailable, caching disabled", "error", err.Error())
		} else {
			store = redisStore
		}
	}
	defer store.Close()

	engine, err := scoring.NewEngine(scoring.Config{
		ApprovalThreshold: cfg.ApprovalThreshold,
		MinCreditLimit:    cfg.MinCreditLimit,
		MaxCreditLimit:    cfg.MaxCreditLimit,
		FraudVelocityDays: cfg.FraudVelocityDays,
		Weights:           scoring.DefaultWeights(),
	})
	if err != nil {
		sugar.Fatalw("scoring engine error", "error", err.Error())
	}

	gate := fraud.NewGate(cfg.FraudVelocityDays)
	generator := emi.NewGenerator([]emi.Tenure{
		{Months: 3, AnnualRate: cfg.EMIRate3M},
		{Months: 6, AnnualRate: cfg.EMIRate6M},
		{Months: 9, AnnualRate: cfg.EMIRate9M},
	})

	var scoringOracle service.ScoringOracle
	if cfg.OracleEnabled && cfg.OracleAddress != "" {
		scoringOracle = oracle.NewClient(cfg.OracleAddress)
	}

	var offerProvider service.OfferProvider
	if cfg.ProviderAddress != "" {
		offerProvider = provider.NewClient(cfg.ProviderAddress)
	}

	svc := service.NewService(repo, store, engine, gate, generator, scoringOracle, offerProvider,
		service.Options{
			AssessmentTTL:     cfg.AssessmentCacheTTL,
			OracleResultTTL:   cfg.OracleCacheTTL,
			FraudVelocityDays: cfg.FraudVelocityDays,
		}, logger)
	defer svc.Close()

	apiKeyMiddleware := middleware.NewAPIKeyMiddleware(cfg.APIKey)
	h := handler.NewHandler(svc, logger, apiKeyMiddleware)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting bnpl server", "addr", cfg.RunAddress)
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
