package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"batchledger/frontend/login"
	"batchledger/infrastructure/config"
	"batchledger/infrastructure/logging"
	"batchledger/infrastructure/rbac"
	"batchledger/infrastructure/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}
	logger, closer := logging.Setup(cfg.Log)
	defer closer.Close()

	migrationsDir := cfg.MigrationsDir
	if migrationsDir == "" {
		if dir, err := resolveMigrationsDir(); err == nil {
			migrationsDir = dir
		} else {
			logger.Debug("using embedded migrations", slog.Any("err", err))
		}
	}

	db, err := sqlite.OpenDB(cfg.SQLitePath)
	if err != nil {
		logger.Error("open db", slog.Any("err", err))
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	if err := sqlite.ApplyMigrations(ctx, db, migrationsDir); err != nil {
		logger.Error("apply migrations", slog.Any("err", err))
		os.Exit(1)
	}

	username := getenv("ADMIN_USERNAME", "admin")
	adminPassword := getenv("ADMIN_PASSWORD", "Admin123!Batchledger")
	if err := login.UpsertUserPasswordHash(ctx, db, username, rbac.RoleAdmin, adminPassword); err != nil {
		logger.Error("seed admin", slog.Any("err", err))
		os.Exit(1)
	}

	fmt.Printf("seeded admin user (username=%s)\n", username)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func resolveMigrationsDir() (string, error) {
	candidates := []string{
		filepath.Join("infrastructure", "sqlite", "migrations"),
		filepath.Join("..", "..", "infrastructure", "sqlite", "migrations"),
	}

	if _, file, _, ok := runtime.Caller(0); ok {
		candidates = append(candidates, filepath.Join(filepath.Dir(file), "..", "..", "infrastructure", "sqlite", "migrations"))
	}

	tried := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		absPath, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		tried = append(tried, absPath)

		info, err := os.Stat(absPath)
		if err != nil {
			continue
		}
		if info.IsDir() {
			return absPath, nil
		}
	}

	return "", fmt.Errorf("migrations dir not found; tried: %s", strings.Join(tried, ", "))
}
