package domain

import "time"

type AnswerKind string

const (
	AnswerFullyCompliant     AnswerKind = "FULLY_COMPLIANT"
	AnswerPartiallyCompliant AnswerKind = "PARTIALLY_COMPLIANT"
	AnswerNonCompliant       AnswerKind = "NON_COMPLIANT"
	AnswerOutOfScope         AnswerKind = "OUT_OF_SCOPE"
)

// AnswerKinds lists every kind in a stable order.
var AnswerKinds = []AnswerKind{
	AnswerFullyCompliant,
	AnswerPartiallyCompliant,
	AnswerNonCompliant,
	AnswerOutOfScope,
}

func (k AnswerKind) Valid() bool {
	switch k {
	case AnswerFullyCompliant, AnswerPartiallyCompliant, AnswerNonCompliant, AnswerOutOfScope:
		return true
	default:
		return false
	}
}

// RequiresJustification reports whether the kind needs an explanation and evidence.
func (k AnswerKind) RequiresJustification() bool {
	return k == AnswerPartiallyCompliant || k == AnswerNonCompliant
}

type AuditStatus string

const (
	StatusDraft     AuditStatus = "DRAFT"
	StatusCompleted AuditStatus = "COMPLETED"
)

// EvidenceRef points at a stored photo. The bytes live outside this service.
type EvidenceRef struct {
	ID         string `json:"id,omitempty"`
	StorageKey string `json:"storage_key"`
	Filename   string `json:"filename,omitempty"`
}

type Answer struct {
	ID          string        `json:"id"`
	AuditID     string        `json:"audit_id"`
	QuestionID  string        `json:"question_id"`
	Kind        AnswerKind    `json:"kind"`
	Explanation string        `json:"explanation,omitempty"`
	Evidence    []EvidenceRef `json:"evidence"`
	Question    *Question     `json:"question,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

type Audit struct {
	ID          string      `json:"id"`
	FacilityID  string      `json:"facility_id"`
	TemplateID  string      `json:"template_id"`
	AuditorID   string      `json:"auditor_id"`
	AuditDate   time.Time   `json:"audit_date"`
	Status      AuditStatus `json:"status"`
	TotalScore  *float64    `json:"total_score"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	Template    *Template   `json:"template,omitempty"`
	Answers     []Answer    `json:"answers"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func (a *Audit) Completed() bool {
	return a != nil && a.Status == StatusCompleted
}

// AnsweredCount counts answers that belong to questions of the audit template.
func (a *Audit) AnsweredCount() int {
	if a == nil {
		return 0
	}
	if a.Template == nil {
		return len(a.Answers)
	}
	seen := make(map[string]struct{}, len(a.Answers))
	for _, answer := range a.Answers {
		if a.Template.HasQuestion(answer.QuestionID) {
			seen[answer.QuestionID] = struct{}{}
		}
	}
	return len(seen)
}

// QuestionCount is the number of questions the audit must cover.
func (a *Audit) QuestionCount() int {
	if a == nil || a.Template == nil {
		return 0
	}
	return len(a.Template.Questions)
}

// SectionScore is the scoring outcome of one section.
type SectionScore struct {
	SectionID   string  `json:"section_id"`
	SectionName string  `json:"section_name"`
	Position    int     `json:"position"`
	Earned      int     `json:"earned"`
	Maximum     int     `json:"maximum"`
	Percentage  float64 `json:"percentage"`
	Answered    int     `json:"answered"`
	InScope     int     `json:"in_scope"`
}

// Scored reports whether at least one in-scope answer contributed.
func (s SectionScore) Scored() bool {
	return s.Maximum > 0
}

// AuditReport is the reporting view of an audit's score.
type AuditReport struct {
	AuditID      string              `json:"audit_id"`
	Status       AuditStatus         `json:"status"`
	OverallScore float64             `json:"overall_score"`
	Sections     []SectionScore      `json:"sections"`
	Distribution []DistributionShare `json:"distribution"`
}

type CompletionResult struct {
	AuditID     string         `json:"audit_id"`
	TotalScore  float64        `json:"total_score"`
	Sections    []SectionScore `json:"sections"`
	CompletedAt time.Time      `json:"completed_at"`
}

// AuditCompletedEvent is published once an audit transitions to COMPLETED.
type AuditCompletedEvent struct {
	AuditID     string    `json:"audit_id"`
	FacilityID  string    `json:"facility_id"`
	TemplateID  string    `json:"template_id"`
	AuditDate   time.Time `json:"audit_date"`
	TotalScore  float64   `json:"total_score"`
	CompletedAt time.Time `json:"completed_at"`
}
