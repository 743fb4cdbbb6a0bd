package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kirillkom/hse-audit/internal/bootstrap"
	"github.com/kirillkom/hse-audit/internal/config"
	"github.com/kirillkom/hse-audit/internal/core/domain"
	"github.com/kirillkom/hse-audit/internal/core/scoring"
)

type statsFlags struct {
	facility  string
	from      string
	to        string
	xlsxPath  string
	outputFmt string
}

func newStatsCmd(cfg config.Config) *cobra.Command {
	f := &statsFlags{}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Aggregate completed audits by facility and section",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := f.filter()
			if err != nil {
				return err
			}
			if f.outputFmt != "text" && f.outputFmt != "json" {
				return fmt.Errorf("unknown output format %q: want text or json", f.outputFmt)
			}

			app, err := bootstrap.New(cmd.Context(), cfg, bootstrap.WithoutQueue())
			if err != nil {
				return err
			}
			defer app.Close()

			stats, err := app.StatisticsUC.Compute(cmd.Context(), filter)
			if err != nil {
				return err
			}

			if f.xlsxPath != "" {
				if err := writeWorkbook(cmd, app, filter, f.xlsxPath); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if f.outputFmt == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			}
			renderStats(out, filter, stats)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.facility, "facility", "", "Only audits of this facility id")
	flags.StringVar(&f.from, "from", "", "Earliest audit date, YYYY-MM-DD (inclusive)")
	flags.StringVar(&f.to, "to", "", "Latest audit date, YYYY-MM-DD (inclusive)")
	flags.StringVar(&f.xlsxPath, "xlsx", "", "Also write the statistics workbook to this path")
	flags.StringVar(&f.outputFmt, "output", "text", "Output format: text or json")
	return cmd
}

func (f *statsFlags) filter() (domain.StatisticsFilter, error) {
	filter := domain.StatisticsFilter{FacilityID: strings.TrimSpace(f.facility)}

	var err error
	if filter.StartDate, err = parseDateFlag("from", f.from); err != nil {
		return domain.StatisticsFilter{}, err
	}
	if filter.EndDate, err = parseDateFlag("to", f.to); err != nil {
		return domain.StatisticsFilter{}, err
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.StartDate.After(*filter.EndDate) {
		return domain.StatisticsFilter{}, fmt.Errorf("--from %s is after --to %s", f.from, f.to)
	}
	return filter, nil
}

func parseDateFlag(name, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return nil, fmt.Errorf("--%s: expected YYYY-MM-DD, got %q", name, value)
	}
	return &t, nil
}

func writeWorkbook(cmd *cobra.Command, app *bootstrap.App, filter domain.StatisticsFilter, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := app.StatisticsUC.Export(cmd.Context(), filter, file); err != nil {
		_ = file.Close()
		return fmt.Errorf("export statistics: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "workbook written to %s\n", path)
	return nil
}

func renderStats(w io.Writer, filter domain.StatisticsFilter, stats domain.Statistics) {
	fmt.Fprintf(w, "Facility:      %s\n", valueOrAll(filter.FacilityID))
	fmt.Fprintf(w, "Period:        %s .. %s\n", dateOrOpen(filter.StartDate), dateOrOpen(filter.EndDate))
	fmt.Fprintf(w, "Audits:        %d\n", stats.TotalAudits)
	fmt.Fprintf(w, "Average score: %.2f%%\n", stats.AverageScore)

	if stats.TotalAudits == 0 {
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Answers:")
	for _, share := range scoring.Shares(stats.AnswerDistribution) {
		fmt.Fprintf(w, "  %-20s %5d  %6.2f%%\n", share.Kind, share.Count, share.Percentage)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Facilities:")
	for _, facility := range stats.ByFacility {
		fmt.Fprintf(w, "  %-20s %5d audits  %6.2f%%\n", facility.FacilityID, facility.TotalAudits, facility.AverageScore)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Sections:")
	for _, section := range stats.BySection {
		fmt.Fprintf(w, "  %-20s %5d/%-5d %6.2f%%\n", section.SectionName, section.Earned, section.Maximum, section.Percentage)
	}
}

func valueOrAll(v string) string {
	if v == "" {
		return "all"
	}
	return v
}

func dateOrOpen(t *time.Time) string {
	if t == nil {
		return "*"
	}
	return t.Format(time.DateOnly)
}
