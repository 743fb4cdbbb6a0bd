package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrTemporary    = errors.New("temporary failure")

	ErrMissingExplanation = errors.New("explanation is required for this answer kind")
	ErrMissingEvidence    = errors.New("at least one evidence photo is required for this answer kind")
	ErrInvalidAnswerKind  = fmt.Errorf("unknown answer kind: %w", ErrInvalidInput)

	ErrIncompleteAudit  = errors.New("audit is incomplete")
	ErrAlreadyCompleted = errors.New("audit already completed")
	ErrAuditLocked      = errors.New("completed audit cannot be edited")

	ErrAuditNotFound    = errors.New("audit not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrTemplateNotFound = errors.New("template not found")
	ErrFacilityNotFound = errors.New("facility not found")

	// ErrBrokenHierarchy marks an answer whose question, category or section
	// could not be resolved. It signals an upstream integrity violation.
	ErrBrokenHierarchy = errors.New("answer hierarchy unresolved")
)

// IncompleteAuditError carries the coverage counts of a rejected completion.
type IncompleteAuditError struct {
	Answered int
	Total    int
}

func (e *IncompleteAuditError) Error() string {
	return fmt.Sprintf("all questions must be answered: %d/%d answered", e.Answered, e.Total)
}

func (e *IncompleteAuditError) Is(target error) bool {
	return target == ErrIncompleteAudit
}

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// IsNotFound reports whether err carries any of the lookup-miss kinds.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAuditNotFound) ||
		errors.Is(err, ErrQuestionNotFound) ||
		errors.Is(err, ErrTemplateNotFound) ||
		errors.Is(err, ErrFacilityNotFound)
}
