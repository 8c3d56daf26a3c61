package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	clientapi "github.com/iudanet/esps-console/internal/client/api"
	"github.com/iudanet/esps-console/internal/client/cli"
	"github.com/iudanet/esps-console/internal/client/iocli"
	"github.com/iudanet/esps-console/internal/client/storage/boltdb"
	"github.com/iudanet/esps-console/internal/config"
	"github.com/iudanet/esps-console/internal/logging"
)

// consoleFlags - флаги, которых нет в config.Console
type consoleFlags struct {
	configPath   string
	passwordFile string
}

func newRootCmd() *cobra.Command {
	var flags consoleFlags

	root := &cobra.Command{
		Use:           "esps-console",
		Short:         "Interactive console for ESPS electronic certificates",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConsole(cmd, flags)
		},
	}

	root.Flags().StringVarP(&flags.configPath, "config", "c", os.Getenv(config.EnvPrefix+"CONFIG"), "Path to YAML config file")
	root.Flags().StringVar(&flags.passwordFile, "password-file", "", "Read the login password from file")
	config.DefaultConsole().RegisterFlags(root.Flags())

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			printVersion(cmd.OutOrStdout())
		},
	})

	return root
}

func runConsole(cmd *cobra.Command, flags consoleFlags) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	cfg, err := config.LoadConsole(flags.configPath, os.LookupEnv)
	if err != nil {
		return err
	}
	// флаги имеют приоритет над файлом и окружением
	if err := cfg.ApplyFlags(cmd.Flags()); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, closeLog, err := openLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Открываем BoltDB storage
	boltStorage, err := boltdb.New(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := boltStorage.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	apiClient := clientapi.NewClient(cfg.ServerURL, cfg.Timeout)

	console := cli.New(iocli.NewStdio(), apiClient, boltStorage, logger, cli.Options{
		Labels:       cfg.Labels,
		Passwords:    cli.Passwords{FromFile: flags.passwordFile},
		PollInterval: cfg.PollInterval,
		PageSize:     cfg.PageSize,
		MaxAttempts:  cfg.MaxLoginAttempts,
	})

	logger.Info("console started", slog.String("server", cfg.ServerURL), slog.String("version", Version))
	return console.Run(ctx)
}

// openLogger пишет журнал в файл, если он задан, иначе в stderr.
// Консоль использует stdout для таблиц, поэтому журнал туда не попадает.
func openLogger(cfg *config.Console) (*slog.Logger, func(), error) {
	var (
		w       io.Writer = os.Stderr
		closeFn           = func() {}
	)
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w = f
		closeFn = func() { _ = f.Close() }
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, w)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return logger, closeFn, nil
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "ESPS Console\n")
	fmt.Fprintf(w, "Version:    %s\n", Version)
	fmt.Fprintf(w, "Build Date: %s\n", BuildDate)
	fmt.Fprintf(w, "Git Commit: %s\n", GitCommit)
}
