package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"evdealer/backend/internal/config"
	"evdealer/backend/internal/deposit"
	"evdealer/backend/internal/httpapi"
	"evdealer/backend/internal/lifecycle"
	"evdealer/backend/internal/logger"
	"evdealer/backend/internal/notify"
	"evdealer/backend/internal/preorder"
	"evdealer/backend/internal/sales"
	"evdealer/backend/internal/settlement"
	"evdealer/backend/internal/store"
	"evdealer/backend/internal/store/memory"
	pgstore "evdealer/backend/internal/store/postgres"
	redisstore "evdealer/backend/internal/store/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}
	zl, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := validateSecurityConfig(cfg); err != nil {
		zl.Fatal("invalid security configuration", zap.Error(err))
	}

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server terminated with error", zap.Error(err))
	}
}

func run(cfg config.Config, zl *zap.Logger) error {
	startCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	records, closers, err := openStore(startCtx, cfg, zl)
	if err != nil {
		return err
	}
	defer func() {
		for _, closeFn := range closers {
			if err := closeFn(); err != nil {
				zl.Warn("close error", zap.Error(err))
			}
		}
	}()

	notifier, err := newNotifier(startCtx, cfg, zl)
	if err != nil {
		return err
	}

	deposits := deposit.NewRepository(records)
	queue := preorder.NewQueue(records)
	svc := httpapi.Services{
		Lifecycle: lifecycle.New(deposits, queue, notifier, zl.Named("lifecycle")),
		Settlement: settlement.New(
			deposits,
			sales.NewCustomers(records, zl.Named("sales")),
			sales.NewQuotations(records, zl.Named("sales")),
			sales.NewInstallments(records, zl.Named("sales")),
			zl.Named("settlement"),
			settlement.WithAnnualRate(cfg.InstallmentRate),
		),
		Tasks: queue,
	}

	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, store.NewUsers(records))
	if err := seedUsers(startCtx, cfg, auth, zl); err != nil {
		return err
	}
	api := httpapi.New(svc, auth, cfg.AllowedOrigin, zl.Named("http"))

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		zl.Info("dealer backend listening", zap.String("addr", cfg.Address()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		zl.Info("server stopped")
		return nil
	})

	return g.Wait()
}

// openStore picks postgres, then redis, then memory. A configured backend that
// cannot be reached is an error rather than a fallback.
func openStore(ctx context.Context, cfg config.Config, zl *zap.Logger) (store.RecordStore, []func() error, error) {
	switch {
	case cfg.DatabaseURL != "":
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres unavailable and DATABASE_URL is set: %w", err)
		}
		zl.Info("record store: postgres")
		return pg, []func() error{pg.Close}, nil
	case cfg.RedisAddr != "":
		rs := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := rs.Ping(ctx); err != nil {
			_ = rs.Close()
			return nil, nil, fmt.Errorf("redis unavailable and REDIS_ADDR is set: %w", err)
		}
		zl.Info("record store: redis", zap.String("addr", cfg.RedisAddr))
		return rs, []func() error{rs.Close}, nil
	}
	zl.Warn("record store: in-memory, data is lost on restart")
	return memory.New(), nil, nil
}

func newNotifier(ctx context.Context, cfg config.Config, zl *zap.Logger) (notify.Notifier, error) {
	if cfg.SNSTopicARN == "" {
		zl.Info("arrival notifications: disabled")
		return notify.Noop{}, nil
	}
	n, err := notify.NewSNSNotifierFromEnv(ctx, cfg.AWSRegion, cfg.SNSTopicARN)
	if err != nil {
		return nil, fmt.Errorf("sns notifier: %w", err)
	}
	zl.Info("arrival notifications: sns", zap.String("topic", cfg.SNSTopicARN))
	return n, nil
}

func seedUsers(ctx context.Context, cfg config.Config, auth *httpapi.AuthManager, zl *zap.Logger) error {
	seeds, err := cfg.Seeds()
	if err != nil {
		return err
	}
	for _, seed := range seeds {
		err := auth.Register(ctx, seed.Username, seed.Password, seed.Role)
		if errors.Is(err, store.ErrUserExists) {
			continue
		}
		if err != nil {
			return fmt.Errorf("seed user %s: %w", seed.Username, err)
		}
		zl.Info("seeded user", zap.String("username", seed.Username), zap.String("role", string(seed.Role)))
	}
	return nil
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	return nil
}
