package httpadapter

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/kirillkom/hse-audit/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrMissingExplanation),
		domain.IsKind(err, domain.ErrMissingEvidence):
		return http.StatusUnprocessableEntity
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrIncompleteAudit),
		domain.IsKind(err, domain.ErrAlreadyCompleted),
		domain.IsKind(err, domain.ErrAuditLocked):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorCode is the stable machine-readable tag of an error response.
func errorCode(err error) string {
	switch {
	case domain.IsKind(err, domain.ErrMissingExplanation):
		return "missing_explanation"
	case domain.IsKind(err, domain.ErrMissingEvidence):
		return "missing_evidence"
	case domain.IsKind(err, domain.ErrInvalidAnswerKind):
		return "invalid_answer_kind"
	case domain.IsKind(err, domain.ErrInvalidInput):
		return "invalid_input"
	case domain.IsKind(err, domain.ErrAuditNotFound):
		return "audit_not_found"
	case domain.IsKind(err, domain.ErrQuestionNotFound):
		return "question_not_found"
	case domain.IsKind(err, domain.ErrTemplateNotFound):
		return "template_not_found"
	case domain.IsKind(err, domain.ErrFacilityNotFound):
		return "facility_not_found"
	case domain.IsKind(err, domain.ErrIncompleteAudit):
		return "incomplete_audit"
	case domain.IsKind(err, domain.ErrAlreadyCompleted):
		return "already_completed"
	case domain.IsKind(err, domain.ErrAuditLocked):
		return "audit_locked"
	case domain.IsKind(err, domain.ErrTemporary):
		return "temporarily_unavailable"
	default:
		return "internal"
	}
}

type errorResponse struct {
	Error    string `json:"error"`
	Code     string `json:"code"`
	Answered *int   `json:"answered,omitempty"`
	Total    *int   `json:"total,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	resp := errorResponse{
		Error: err.Error(),
		Code:  errorCode(err),
	}

	var incomplete *domain.IncompleteAuditError
	if errors.As(err, &incomplete) {
		resp.Answered = &incomplete.Answered
		resp.Total = &incomplete.Total
	}

	if status >= http.StatusInternalServerError {
		slog.Error("request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
		if status == http.StatusInternalServerError {
			resp.Error = "internal error"
		}
	}
	writeJSON(w, status, resp)
}
