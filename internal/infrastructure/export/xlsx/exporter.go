package xlsx

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/hse-audit/internal/core/domain"
	"github.com/kirillkom/hse-audit/internal/core/scoring"
)

const (
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	SheetSummary    = "Summary"
	SheetFacilities = "Facilities"
	SheetSections   = "Sections"

	dateLayout = "2006-01-02"
)

// Exporter renders statistics as a workbook with one sheet per breakdown.
type Exporter struct{}

func NewExporter() *Exporter {
	return &Exporter{}
}

func (e *Exporter) ContentType() string {
	return ContentType
}

func (e *Exporter) WriteStatistics(w io.Writer, filter domain.StatisticsFilter, stats domain.Statistics) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("rename summary sheet: %w", err)
	}
	for _, name := range []string{SheetFacilities, SheetSections} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	if err := writeSummary(f, header, filter, stats); err != nil {
		return err
	}
	if err := writeFacilities(f, header, stats.ByFacility); err != nil {
		return err
	}
	if err := writeSections(f, header, stats.BySection); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, header int, filter domain.StatisticsFilter, stats domain.Statistics) error {
	rows := [][]any{
		{"Facility", valueOrAll(filter.FacilityID)},
		{"From", dateOrAll(filter.StartDate)},
		{"To", dateOrAll(filter.EndDate)},
		{"Total audits", stats.TotalAudits},
		{"Average score", stats.AverageScore},
		{},
		{"Answer kind", "Count", "Percentage"},
	}
	for _, share := range scoring.Shares(stats.AnswerDistribution) {
		rows = append(rows, []any{string(share.Kind), share.Count, share.Percentage})
	}

	if err := writeRows(f, SheetSummary, rows); err != nil {
		return err
	}
	for _, label := range []string{"A1", "A2", "A3", "A4", "A5"} {
		if err := f.SetCellStyle(SheetSummary, label, label, header); err != nil {
			return fmt.Errorf("style summary labels: %w", err)
		}
	}
	if err := f.SetCellStyle(SheetSummary, "A7", "C7", header); err != nil {
		return fmt.Errorf("style distribution header: %w", err)
	}
	return f.SetColWidth(SheetSummary, "A", "A", 24)
}

func writeFacilities(f *excelize.File, header int, facilities []domain.FacilityStatistics) error {
	rows := [][]any{{"Facility", "Audits", "Average score"}}
	for _, fs := range facilities {
		rows = append(rows, []any{fs.FacilityID, fs.TotalAudits, fs.AverageScore})
	}
	if err := writeRows(f, SheetFacilities, rows); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetFacilities, "A1", "C1", header); err != nil {
		return fmt.Errorf("style facilities header: %w", err)
	}
	return nil
}

func writeSections(f *excelize.File, header int, sections []domain.SectionStatistics) error {
	columns := []any{"Section", "Name", "Audits", "Earned", "Maximum", "Percentage"}
	for _, kind := range domain.AnswerKinds {
		columns = append(columns, string(kind))
	}

	rows := [][]any{columns}
	for _, s := range sections {
		row := []any{s.SectionID, s.SectionName, s.Audits, s.Earned, s.Maximum, s.Percentage}
		for _, kind := range domain.AnswerKinds {
			row = append(row, s.AnswerDistribution[kind])
		}
		rows = append(rows, row)
	}
	if err := writeRows(f, SheetSections, rows); err != nil {
		return err
	}

	last, err := excelize.CoordinatesToCellName(len(columns), 1)
	if err != nil {
		return fmt.Errorf("resolve sections header: %w", err)
	}
	if err := f.SetCellStyle(SheetSections, "A1", last, header); err != nil {
		return fmt.Errorf("style sections header: %w", err)
	}
	return f.SetColWidth(SheetSections, "B", "B", 32)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("resolve %s row %d: %w", sheet, i+1, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func valueOrAll(v string) string {
	if v == "" {
		return "all"
	}
	return v
}

func dateOrAll(t *time.Time) string {
	if t == nil {
		return "all"
	}
	return t.Format(dateLayout)
}
