package scoring

import (
	"fmt"

	"github.com/kirillkom/hse-audit/internal/core/domain"
)

var (
	fireSafety = &domain.Section{ID: "sec-fire", Name: "Fire Safety", Position: 1}
	electrical = &domain.Section{ID: "sec-elec", Name: "Electrical", Position: 2}
)

func questionIn(section *domain.Section, id string, weight int) *domain.Question {
	return &domain.Question{
		ID:         id,
		CategoryID: "cat-" + section.ID,
		Text:       "question " + id,
		Weight:     weight,
		Category: &domain.Category{
			ID:        "cat-" + section.ID,
			SectionID: section.ID,
			Name:      section.Name + " equipment",
			Section:   section,
		},
	}
}

func answerFor(auditID string, q *domain.Question, kind domain.AnswerKind) domain.Answer {
	return domain.Answer{
		ID:         fmt.Sprintf("%s-%s", auditID, q.ID),
		AuditID:    auditID,
		QuestionID: q.ID,
		Kind:       kind,
		Question:   q,
	}
}

// threeQuestionAnswers builds the weights [8,7,9] single-section scenario.
func threeQuestionAnswers(auditID string, kinds ...domain.AnswerKind) []domain.Answer {
	weights := []int{8, 7, 9}
	out := make([]domain.Answer, 0, len(kinds))
	for i, kind := range kinds {
		q := questionIn(fireSafety, fmt.Sprintf("q%d", i+1), weights[i])
		out = append(out, answerFor(auditID, q, kind))
	}
	return out
}

func scorePtr(v float64) *float64 {
	return &v
}
