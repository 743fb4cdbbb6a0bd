package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/hse-audit/internal/core/domain"
)

// AuditRepository persists audits and their answers.
type AuditRepository interface {
	CreateAudit(ctx context.Context, audit *domain.Audit) error
	// GetAudit returns the fully materialized audit: template questions and
	// answers resolved through category and section, plus evidence.
	GetAudit(ctx context.Context, id string) (*domain.Audit, error)
	// UpsertAnswer stores the answer keyed by (audit, question) only while the
	// audit is still a draft. It fails with ErrAuditLocked otherwise.
	UpsertAnswer(ctx context.Context, answer *domain.Answer, replaceEvidence bool) error
	// CompleteAudit locks the audit, hands the materialized audit to finalize
	// and stores the returned score as the completed total in the same
	// transaction. An error from finalize leaves the audit untouched.
	CompleteAudit(ctx context.Context, id string, completedAt time.Time, finalize func(audit *domain.Audit) (float64, error)) (*domain.Audit, error)
	UpdateAuditDate(ctx context.Context, id string, auditDate time.Time) error
	ListCompletedAudits(ctx context.Context, filter domain.StatisticsFilter) ([]domain.Audit, error)
}

// ChecklistRepository reads and imports the questionnaire catalogue.
type ChecklistRepository interface {
	GetTemplate(ctx context.Context, id string) (*domain.Template, error)
	GetFacility(ctx context.Context, id string) (*domain.Facility, error)
	ImportChecklist(ctx context.Context, checklist domain.Checklist) error
}

// EventPublisher announces audit lifecycle events.
type EventPublisher interface {
	PublishAuditCompleted(ctx context.Context, event domain.AuditCompletedEvent) error
}

// EventSubscriber consumes audit lifecycle events until ctx is done.
type EventSubscriber interface {
	SubscribeAuditCompleted(ctx context.Context, handler func(context.Context, domain.AuditCompletedEvent) error) error
}

// StatisticsExporter renders statistics into a downloadable document.
type StatisticsExporter interface {
	ContentType() string
	WriteStatistics(w io.Writer, filter domain.StatisticsFilter, stats domain.Statistics) error
}
