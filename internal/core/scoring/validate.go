// Package scoring holds the pure audit scoring rules: answer validation,
// per-section and overall scores, and fleet statistics.
package scoring

import (
	"fmt"
	"strings"

	"github.com/kirillkom/hse-audit/internal/core/domain"
)

// ValidateAnswer checks the explanation and evidence requirements of an answer kind.
// Partially and non compliant answers need a non-blank explanation and at least
// one evidence reference; the explanation is checked first.
func ValidateAnswer(kind domain.AnswerKind, explanation string, evidenceCount int) error {
	if !kind.Valid() {
		return fmt.Errorf("validate answer: %w: %q", domain.ErrInvalidAnswerKind, string(kind))
	}
	if !kind.RequiresJustification() {
		return nil
	}
	if strings.TrimSpace(explanation) == "" {
		return domain.ErrMissingExplanation
	}
	if evidenceCount < 1 {
		return domain.ErrMissingEvidence
	}
	return nil
}
