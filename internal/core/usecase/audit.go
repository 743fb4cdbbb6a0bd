package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/hse-audit/internal/core/domain"
	"github.com/kirillkom/hse-audit/internal/core/ports"
	"github.com/kirillkom/hse-audit/internal/core/scoring"
)

type AuditUseCase struct {
	audits    ports.AuditRepository
	checklist ports.ChecklistRepository
	events    ports.EventPublisher
}

func NewAuditUseCase(
	audits ports.AuditRepository,
	checklist ports.ChecklistRepository,
	events ports.EventPublisher,
) *AuditUseCase {
	return &AuditUseCase{
		audits:    audits,
		checklist: checklist,
		events:    events,
	}
}

func (uc *AuditUseCase) CreateAudit(ctx context.Context, input ports.CreateAuditInput) (*domain.Audit, error) {
	input.FacilityID = strings.TrimSpace(input.FacilityID)
	input.TemplateID = strings.TrimSpace(input.TemplateID)
	input.AuditorID = strings.TrimSpace(input.AuditorID)
	if input.FacilityID == "" || input.TemplateID == "" || input.AuditorID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "create audit",
			fmt.Errorf("facility_id, template_id and auditor_id are required"))
	}

	template, err := uc.checklist.GetTemplate(ctx, input.TemplateID)
	if err != nil {
		return nil, err
	}
	if _, err := uc.checklist.GetFacility(ctx, input.FacilityID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	auditDate := input.AuditDate
	if auditDate.IsZero() {
		auditDate = now
	}

	audit := &domain.Audit{
		ID:         uuid.NewString(),
		FacilityID: input.FacilityID,
		TemplateID: template.ID,
		AuditorID:  input.AuditorID,
		AuditDate:  domain.DayOf(auditDate),
		Status:     domain.StatusDraft,
		Template:   template,
		Answers:    []domain.Answer{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := uc.audits.CreateAudit(ctx, audit); err != nil {
		return nil, fmt.Errorf("create audit: %w", err)
	}
	return audit, nil
}

func (uc *AuditUseCase) GetAudit(ctx context.Context, id string) (*domain.Audit, error) {
	return uc.audits.GetAudit(ctx, id)
}

// Reschedule moves the audit date of a draft audit.
func (uc *AuditUseCase) Reschedule(ctx context.Context, id string, auditDate time.Time) (*domain.Audit, error) {
	if auditDate.IsZero() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "reschedule audit", fmt.Errorf("audit_date is required"))
	}
	audit, err := uc.audits.GetAudit(ctx, id)
	if err != nil {
		return nil, err
	}
	if audit.Completed() {
		return nil, domain.WrapError(domain.ErrAuditLocked, "reschedule audit", fmt.Errorf("audit=%s", id))
	}
	if err := uc.audits.UpdateAuditDate(ctx, id, domain.DayOf(auditDate)); err != nil {
		return nil, err
	}
	return uc.audits.GetAudit(ctx, id)
}

// SectionScores scores the current answer set of an audit. Drafts are scored
// too so that auditors can follow progress.
func (uc *AuditUseCase) SectionScores(ctx context.Context, auditID string) (*domain.AuditReport, error) {
	audit, err := uc.audits.GetAudit(ctx, auditID)
	if err != nil {
		return nil, err
	}
	result, err := scoring.Score(audit.Answers)
	if err != nil {
		return nil, fmt.Errorf("score audit %s: %w", auditID, err)
	}

	overall := result.Overall
	if audit.Completed() && audit.TotalScore != nil {
		overall = *audit.TotalScore
	}
	return &domain.AuditReport{
		AuditID:      audit.ID,
		Status:       audit.Status,
		OverallScore: overall,
		Sections:     scoring.RoundedSections(result.Sections),
		Distribution: scoring.Shares(scoring.Distribute(audit.Answers)),
	}, nil
}

func (uc *AuditUseCase) publishCompleted(ctx context.Context, event domain.AuditCompletedEvent) {
	if uc.events == nil {
		return
	}
	if err := uc.events.PublishAuditCompleted(ctx, event); err != nil {
		slog.Warn("audit_completed_publish_failed",
			"audit_id", event.AuditID,
			"facility_id", event.FacilityID,
			"error", err,
		)
	}
}
