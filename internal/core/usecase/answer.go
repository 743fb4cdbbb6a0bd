package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/hse-audit/internal/core/domain"
	"github.com/kirillkom/hse-audit/internal/core/ports"
	"github.com/kirillkom/hse-audit/internal/core/scoring"
)

// SaveAnswer records or replaces the answer of one template question. The
// evidence set is replaced only when the request supplies evidence; otherwise
// the previously stored references are kept and count towards validation.
func (uc *AuditUseCase) SaveAnswer(ctx context.Context, auditID string, input ports.SaveAnswerInput) (*domain.Answer, error) {
	audit, err := uc.audits.GetAudit(ctx, auditID)
	if err != nil {
		return nil, err
	}
	if audit.Completed() {
		return nil, domain.WrapError(domain.ErrAuditLocked, "save answer", fmt.Errorf("audit=%s", auditID))
	}

	question := audit.Template.Question(input.QuestionID)
	if question == nil {
		return nil, domain.WrapError(domain.ErrQuestionNotFound, "save answer",
			fmt.Errorf("question=%s is not part of template=%s", input.QuestionID, audit.TemplateID))
	}

	evidence, err := normalizeEvidence(input.Evidence)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	answer := &domain.Answer{
		ID:          uuid.NewString(),
		AuditID:     audit.ID,
		QuestionID:  question.ID,
		Kind:        input.Kind,
		Explanation: strings.TrimSpace(input.Explanation),
		Evidence:    evidence,
		Question:    question,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if previous := findAnswer(audit, question.ID); previous != nil {
		answer.ID = previous.ID
		answer.CreatedAt = previous.CreatedAt
		if len(evidence) == 0 {
			answer.Evidence = previous.Evidence
		}
	}
	if err := scoring.ValidateAnswer(answer.Kind, answer.Explanation, len(answer.Evidence)); err != nil {
		return nil, err
	}

	if err := uc.audits.UpsertAnswer(ctx, answer, len(evidence) > 0); err != nil {
		return nil, err
	}
	return answer, nil
}

func normalizeEvidence(refs []domain.EvidenceRef) ([]domain.EvidenceRef, error) {
	out := make([]domain.EvidenceRef, 0, len(refs))
	for i, ref := range refs {
		ref.StorageKey = strings.TrimSpace(ref.StorageKey)
		if ref.StorageKey == "" {
			return nil, domain.WrapError(domain.ErrInvalidInput, "save answer",
				fmt.Errorf("evidence[%d]: storage_key is required", i))
		}
		if ref.ID == "" {
			ref.ID = uuid.NewString()
		}
		out = append(out, ref)
	}
	return out, nil
}

func findAnswer(audit *domain.Audit, questionID string) *domain.Answer {
	for i := range audit.Answers {
		if audit.Answers[i].QuestionID == questionID {
			return &audit.Answers[i]
		}
	}
	return nil
}
