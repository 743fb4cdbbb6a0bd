package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kirillkom/hse-audit/internal/bootstrap"
	"github.com/kirillkom/hse-audit/internal/config"
	"github.com/kirillkom/hse-audit/internal/core/domain"
	"github.com/kirillkom/hse-audit/internal/infrastructure/seed"
)

func newSeedCmd(cfg config.Config) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Import facilities, sections, questions and templates from a YAML checklist",
		Long: "Import a checklist file. Entries are upserted by id and template question lists are replaced,\n" +
			"so re-running the same file is a no-op. Without --file the built-in sample checklist is used.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			checklist, err := loadChecklist(file)
			if err != nil {
				return err
			}

			app, err := bootstrap.New(cmd.Context(), cfg, bootstrap.WithoutQueue())
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Checklist.ImportChecklist(cmd.Context(), checklist); err != nil {
				return fmt.Errorf("import checklist: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d facilities, %d sections, %d categories, %d questions, %d templates\n",
				len(checklist.Facilities),
				len(checklist.Sections),
				len(checklist.Categories),
				len(checklist.Questions),
				len(checklist.Templates),
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Checklist YAML file (default: built-in sample)")
	return cmd
}

func loadChecklist(path string) (domain.Checklist, error) {
	if path == "" {
		return seed.Default()
	}
	return seed.LoadFile(path)
}
