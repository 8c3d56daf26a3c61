package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/iudanet/esps-console/internal/config"
	"github.com/iudanet/esps-console/internal/logging"
	"github.com/iudanet/esps-console/internal/server"
	"github.com/iudanet/esps-console/internal/server/handlers"
	"github.com/iudanet/esps-console/internal/server/lockout"
	"github.com/iudanet/esps-console/internal/server/seed"
	"github.com/iudanet/esps-console/internal/server/storage/sqlite"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	cfg, err := config.LoadServer(args, os.LookupEnv)
	if err != nil {
		return err
	}

	// Show version and exit if requested
	if cfg.ShowVersion {
		printVersion(os.Stdout)
		return nil
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.New(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	if cfg.SeedFile != "" {
		if _, err := seed.LoadFile(ctx, logger, cfg.SeedFile, store); err != nil {
			return fmt.Errorf("failed to load seed data: %w", err)
		}
	}

	limiter, err := lockout.New(cfg.Lockout)
	if err != nil {
		return fmt.Errorf("failed to create lockout store: %w", err)
	}
	defer func() {
		if err := limiter.Close(); err != nil {
			logger.Error("failed to close lockout store", slog.Any("error", err))
		}
	}()

	logger.Info("starting esps-server",
		slog.String("version", Version),
		slog.String("db", cfg.DBPath),
		slog.String("lockout", cfg.Lockout.Driver))

	srv := server.New(cfg.Addr, server.Deps{
		Logger:       logger,
		Users:        store,
		Tokens:       store,
		Certificates: store,
		Limiter:      limiter,
		DB:           store,
		Version:      Version,
		JWT: handlers.JWTConfig{
			Secret:         []byte(cfg.JWTSecret),
			AccessTokenTTL: cfg.AccessTokenTTL,
		},
		RateLimit: cfg.RateLimit,
		RateBurst: cfg.RateBurst,
	})

	if err := srv.Run(ctx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

func printVersion(w io.Writer) {
	_, _ = fmt.Fprintf(w, "ESPS Server\n")
	_, _ = fmt.Fprintf(w, "Version:    %s\n", Version)
	_, _ = fmt.Fprintf(w, "Build Date: %s\n", BuildDate)
	_, _ = fmt.Fprintf(w, "Git Commit: %s\n", GitCommit)
}
