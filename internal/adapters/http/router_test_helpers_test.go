package httpadapter

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/kirillkom/hse-audit/internal/config"
	"github.com/kirillkom/hse-audit/internal/core/domain"
	"github.com/kirillkom/hse-audit/internal/core/ports"
)

type auditServiceFake struct {
	createFn     func(context.Context, ports.CreateAuditInput) (*domain.Audit, error)
	getFn        func(context.Context, string) (*domain.Audit, error)
	rescheduleFn func(context.Context, string, time.Time) (*domain.Audit, error)
	saveFn       func(context.Context, string, ports.SaveAnswerInput) (*domain.Answer, error)
	completeFn   func(context.Context, string) (*domain.CompletionResult, error)
	scoresFn     func(context.Context, string) (*domain.AuditReport, error)
}

func (f *auditServiceFake) CreateAudit(ctx context.Context, input ports.CreateAuditInput) (*domain.Audit, error) {
	return f.createFn(ctx, input)
}

func (f *auditServiceFake) GetAudit(ctx context.Context, id string) (*domain.Audit, error) {
	return f.getFn(ctx, id)
}

func (f *auditServiceFake) Reschedule(ctx context.Context, id string, auditDate time.Time) (*domain.Audit, error) {
	return f.rescheduleFn(ctx, id, auditDate)
}

func (f *auditServiceFake) SaveAnswer(ctx context.Context, auditID string, input ports.SaveAnswerInput) (*domain.Answer, error) {
	return f.saveFn(ctx, auditID, input)
}

func (f *auditServiceFake) Complete(ctx context.Context, auditID string) (*domain.CompletionResult, error) {
	return f.completeFn(ctx, auditID)
}

func (f *auditServiceFake) SectionScores(ctx context.Context, auditID string) (*domain.AuditReport, error) {
	return f.scoresFn(ctx, auditID)
}

type statisticsServiceFake struct {
	computeFn func(context.Context, domain.StatisticsFilter) (domain.Statistics, error)
	exportFn  func(context.Context, domain.StatisticsFilter, io.Writer) (string, error)
}

func (f *statisticsServiceFake) Compute(ctx context.Context, filter domain.StatisticsFilter) (domain.Statistics, error) {
	return f.computeFn(ctx, filter)
}

func (f *statisticsServiceFake) Export(ctx context.Context, filter domain.StatisticsFilter, w io.Writer) (string, error) {
	return f.exportFn(ctx, filter, w)
}

func newTestHandler(cfg config.Config, audits *auditServiceFake, stats *statisticsServiceFake) http.Handler {
	if audits == nil {
		audits = &auditServiceFake{}
	}
	if stats == nil {
		stats = &statisticsServiceFake{
			computeFn: func(context.Context, domain.StatisticsFilter) (domain.Statistics, error) {
				return domain.Statistics{}, nil
			},
		}
	}
	return NewRouter(cfg, audits, stats).Handler()
}
