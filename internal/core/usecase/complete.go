package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/kirillkom/hse-audit/internal/core/domain"
	"github.com/kirillkom/hse-audit/internal/core/scoring"
)

// Complete scores a fully answered draft audit and locks it. The repository
// reads the answers and stores the score under one row lock, so the stored
// total always belongs to the answer set that was locked.
func (uc *AuditUseCase) Complete(ctx context.Context, auditID string) (*domain.CompletionResult, error) {
	completedAt := time.Now().UTC()

	var result scoring.Result
	audit, err := uc.audits.CompleteAudit(ctx, auditID, completedAt, func(audit *domain.Audit) (float64, error) {
		if audit.Completed() {
			return 0, domain.WrapError(domain.ErrAlreadyCompleted, "complete audit", fmt.Errorf("audit=%s", auditID))
		}

		answered, total := audit.AnsweredCount(), audit.QuestionCount()
		if answered < total {
			return 0, &domain.IncompleteAuditError{Answered: answered, Total: total}
		}

		scored, err := scoring.Score(audit.Answers)
		if err != nil {
			return 0, fmt.Errorf("score audit %s: %w", auditID, err)
		}
		result = scored
		return scored.Overall, nil
	})
	if err != nil {
		return nil, err
	}

	uc.publishCompleted(ctx, domain.AuditCompletedEvent{
		AuditID:     audit.ID,
		FacilityID:  audit.FacilityID,
		TemplateID:  audit.TemplateID,
		AuditDate:   audit.AuditDate,
		TotalScore:  result.Overall,
		CompletedAt: completedAt,
	})

	return &domain.CompletionResult{
		AuditID:     audit.ID,
		TotalScore:  result.Overall,
		Sections:    scoring.RoundedSections(result.Sections),
		CompletedAt: completedAt,
	}, nil
}
