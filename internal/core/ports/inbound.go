package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/hse-audit/internal/core/domain"
)

type CreateAuditInput struct {
	FacilityID string
	TemplateID string
	AuditorID  string
	AuditDate  time.Time
}

type SaveAnswerInput struct {
	QuestionID  string
	Kind        domain.AnswerKind
	Explanation string
	Evidence    []domain.EvidenceRef
}

// AuditService is the inbound contract for the audit lifecycle.
type AuditService interface {
	CreateAudit(ctx context.Context, input CreateAuditInput) (*domain.Audit, error)
	GetAudit(ctx context.Context, id string) (*domain.Audit, error)
	Reschedule(ctx context.Context, id string, auditDate time.Time) (*domain.Audit, error)
	SaveAnswer(ctx context.Context, auditID string, input SaveAnswerInput) (*domain.Answer, error)
	Complete(ctx context.Context, auditID string) (*domain.CompletionResult, error)
	SectionScores(ctx context.Context, auditID string) (*domain.AuditReport, error)
}

// StatisticsService is the inbound contract for fleet statistics.
type StatisticsService interface {
	Compute(ctx context.Context, filter domain.StatisticsFilter) (domain.Statistics, error)
	Export(ctx context.Context, filter domain.StatisticsFilter, w io.Writer) (contentType string, err error)
}
