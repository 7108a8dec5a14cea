package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"batchledger/infrastructure/audit"
	"batchledger/infrastructure/blob"
	"batchledger/infrastructure/cache"
	"batchledger/infrastructure/catalog"
	"batchledger/infrastructure/config"
	httpserver "batchledger/infrastructure/http"
	"batchledger/infrastructure/idempotency"
	"batchledger/infrastructure/ledger"
	"batchledger/infrastructure/logging"
	"batchledger/infrastructure/rbac"
	"batchledger/infrastructure/session"
	"batchledger/infrastructure/sqlite"
)

const purgeInterval = 10 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}
	logger, logCloser := logging.Setup(cfg.Log)
	defer logCloser.Close()

	if err := run(cfg, logger); err != nil {
		logger.Error("batchledger stopped", slog.Any("err", err))
		_ = logCloser.Close()
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.OpenDB(cfg.SQLitePath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := sqlite.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		return err
	}

	var (
		store  idempotency.Store
		memory *idempotency.MemoryStore
	)
	if cfg.RedisAddr != "" {
		client, err := idempotency.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer client.Close()
		store = idempotency.NewRedisStore(client, cfg.IdempotencyTTL)
		logger.Info("idempotency keys stored in redis", slog.String("addr", cfg.RedisAddr))
	} else {
		memory = idempotency.NewMemoryStore(cfg.IdempotencyTTL)
		store = memory
	}

	session.SecureCookies = cfg.CookieSecure

	archive, err := blob.Open(ctx, cfg.Archive)
	if err != nil {
		return err
	}
	if archive != nil {
		logger.Info("export archive enabled", slog.String("driver", string(archive.Driver())))
	}

	rbacCache := cache.NewRbacRolesCache()
	auditSvc := audit.NewService()

	server := httpserver.NewServer(cfg.Addr, httpserver.Dependencies{
		DB:           db,
		SessionCache: cache.NewUserSessionCache(),
		RbacCache:    rbacCache,
		Rbac:         rbac.New(rbacCache),
		Audit:        auditSvc,
		Catalog:      catalog.New(db, auditSvc, rbac.RoleAuthorizer{}),
		Ledger: ledger.New(db, auditSvc,
			ledger.WithLocation(cfg.ReferenceTZ),
			ledger.WithMaxAttempts(cfg.AllocateMaxAttempts),
		),
		Idempotency: store,
		Archive:     archive,
	})
	if err := server.Start(); err != nil {
		return err
	}
	logger.Info("batchledger listening",
		slog.String("addr", cfg.Addr),
		slog.String("reference_tz", cfg.ReferenceTZ.String()),
	)

	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return server.Stop()
		case now := <-ticker.C:
			if err := server.PurgeExpiredSessions(ctx, now); err != nil {
				logger.Error("purge expired sessions failed", slog.Any("err", err))
			}
			if memory != nil {
				if n := memory.PurgeExpired(); n > 0 {
					logger.Debug("idempotency keys expired", slog.Int("count", n))
				}
			}
		}
	}
}
