package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kirillkom/hse-audit/internal/config"
	"github.com/kirillkom/hse-audit/internal/observability/logging"
)

var version = "0.1.0"

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.New(os.Stderr, "auditctl", cfg.LogLevel, "text"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(cfg)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd(cfg config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "auditctl",
		Short:         "Operate the HSE audit database: migrations, checklist seeding and statistics",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.AddCommand(newMigrateCmd(cfg))
	root.AddCommand(newSeedCmd(cfg))
	root.AddCommand(newStatsCmd(cfg))
	return root
}
