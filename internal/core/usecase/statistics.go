package usecase

import (
	"context"
	"fmt"
	"io"

	"github.com/kirillkom/hse-audit/internal/core/domain"
	"github.com/kirillkom/hse-audit/internal/core/ports"
	"github.com/kirillkom/hse-audit/internal/core/scoring"
)

type StatisticsUseCase struct {
	audits   ports.AuditRepository
	exporter ports.StatisticsExporter
}

func NewStatisticsUseCase(audits ports.AuditRepository, exporter ports.StatisticsExporter) *StatisticsUseCase {
	return &StatisticsUseCase{
		audits:   audits,
		exporter: exporter,
	}
}

// Compute aggregates completed audits. The repository narrows candidates in
// storage; the filter is applied again by the aggregator.
func (uc *StatisticsUseCase) Compute(ctx context.Context, filter domain.StatisticsFilter) (domain.Statistics, error) {
	audits, err := uc.audits.ListCompletedAudits(ctx, filter)
	if err != nil {
		return domain.Statistics{}, fmt.Errorf("list completed audits: %w", err)
	}
	stats, err := scoring.Aggregate(audits, filter)
	if err != nil {
		return domain.Statistics{}, fmt.Errorf("aggregate statistics: %w", err)
	}
	return stats, nil
}

func (uc *StatisticsUseCase) Export(ctx context.Context, filter domain.StatisticsFilter, w io.Writer) (string, error) {
	if uc.exporter == nil {
		return "", fmt.Errorf("statistics exporter is not configured")
	}
	stats, err := uc.Compute(ctx, filter)
	if err != nil {
		return "", err
	}
	if err := uc.exporter.WriteStatistics(w, filter, stats); err != nil {
		return "", fmt.Errorf("export statistics: %w", err)
	}
	return uc.exporter.ContentType(), nil
}
