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

	"code-verification-service/internal/config"
	"code-verification-service/internal/domain/ports/adapter"
	"code-verification-service/internal/domain/ports/repository"
	fileStore "code-verification-service/internal/infra/db/file"
	pg "code-verification-service/internal/infra/db/postgres"
	"code-verification-service/internal/infra/lock"
	"code-verification-service/internal/infra/logging"
	"code-verification-service/internal/infra/metrics"
	red "code-verification-service/internal/infra/redis"
	"code-verification-service/internal/infra/web"
	"code-verification-service/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Storage backend ----
	var (
		ledgerRepo repository.LedgerRepository
		poolRepo   repository.PoolRepository
		auditRepo  repository.AuditLogRepository
		tm         repository.TransactionManager
	)
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		pool, err := pg.NewPgxPool(ctx, cfg.Storage.DatabaseURL, 10)
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		defer pool.Close()
		if err := pg.EnsureSchema(ctx, pool); err != nil {
			log.Fatalf("postgres: %v", err)
		}
		ledgerRepo = pg.NewLedgerRepo(pool)
		poolRepo = pg.NewPoolRepo(pool)
		auditRepo = pg.NewAuditLogRepo(pool, cfg.Audit.MaxEntries)
		tm = pg.NewTxManager(pool)
		logger.Info().Msg("storage backend: postgres")
	case config.BackendFile:
		st, err := fileStore.NewStore(cfg.Storage.Dir, cfg.Audit.MaxEntries, logger)
		if err != nil {
			log.Fatalf("file store: %v", err)
		}
		ledgerRepo = st.Ledger()
		poolRepo = st.Pool()
		auditRepo = st.Audit()
		tm = st
		logger.Info().Str("dir", cfg.Storage.Dir).Msg("storage backend: file")
	default:
		log.Fatalf("unknown storage backend %q", cfg.Storage.Backend)
	}

	// ---- Code lock (distributed when Redis is configured) ----
	var locker adapter.Locker = lock.NewLocalLocker()
	var redisClient *red.Client
	if cfg.Redis.URL != "" {
		redisClient, err = red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer redisClient.Close()
		locker = red.NewLocker(redisClient)
		logger.Info().Str("addr", cfg.Redis.URL).Msg("code lock: redis")
	}

	// ---- Use cases ----
	clock := adapter.SystemClock{}
	verifyUC := usecase.NewVerifyUseCase(ledgerRepo, poolRepo, auditRepo, tm, locker, clock, cfg.Verify.Window, logger)
	adminUC := usecase.NewAdminUseCase(ledgerRepo, auditRepo, clock, cfg.Verify.Window, cfg.Audit.DisplayEntries, logger)

	// Publish the unused-pool size for /metrics.
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			if codes, err := poolRepo.List(ctx, nil); err == nil {
				metrics.SetPoolSize(len(codes))
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	// ---- HTTP ----
	srv := web.NewServer(verifyUC, adminUC, cfg.Admin.Secret, logger)
	srv.SetHealthCheck(func(ctx context.Context) error {
		if redisClient != nil {
			if err := redisClient.Ping(ctx); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
		}
		if _, err := poolRepo.List(ctx, nil); err != nil {
			return fmt.Errorf("store: %w", err)
		}
		return nil
	})
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server stopped")
			cancel()
		}
	}()

	// ---- Shutdown ----
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sig:
		logger.Info().Str("signal", s.String()).Msg("shutting down")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}
