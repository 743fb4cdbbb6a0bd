package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kirillkom/hse-audit/internal/bootstrap"
	"github.com/kirillkom/hse-audit/internal/config"
	"github.com/kirillkom/hse-audit/internal/infrastructure/repository/postgres"
)

func newMigrateCmd(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := bootstrap.OpenDatabase(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := postgres.Migrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
}
