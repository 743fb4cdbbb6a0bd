package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/kirillkom/hse-audit/internal/core/domain"
)

type auditRepoFake struct {
	mu sync.Mutex

	audits      map[string]*domain.Audit
	created     *domain.Audit
	upserts     []upsertCall
	completions int
	listFilter  domain.StatisticsFilter
	listResult  []domain.Audit

	getErr    error
	upsertErr error
	listErr   error

	// beforeComplete runs under the lock ahead of the completion read, as a
	// write that committed just before the row lock was granted.
	beforeComplete func(audit *domain.Audit)
}

type upsertCall struct {
	answer          domain.Answer
	replaceEvidence bool
}

func newAuditRepoFake(audits ...*domain.Audit) *auditRepoFake {
	f := &auditRepoFake{audits: make(map[string]*domain.Audit)}
	for _, a := range audits {
		f.audits[a.ID] = a
	}
	return f
}

func (f *auditRepoFake) CreateAudit(_ context.Context, audit *domain.Audit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copyAudit := *audit
	f.created = &copyAudit
	f.audits[audit.ID] = &copyAudit
	return nil
}

func (f *auditRepoFake) GetAudit(_ context.Context, id string) (*domain.Audit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	audit, ok := f.audits[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrAuditNotFound, "get audit", fmt.Errorf("id=%s", id))
	}
	copyAudit := *audit
	copyAudit.Answers = append([]domain.Answer(nil), audit.Answers...)
	return &copyAudit, nil
}

func (f *auditRepoFake) UpsertAnswer(_ context.Context, answer *domain.Answer, replaceEvidence bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	audit := f.audits[answer.AuditID]
	if audit.Status != domain.StatusDraft {
		return domain.WrapError(domain.ErrAuditLocked, "upsert answer", fmt.Errorf("audit=%s", answer.AuditID))
	}
	f.upserts = append(f.upserts, upsertCall{answer: *answer, replaceEvidence: replaceEvidence})
	for i := range audit.Answers {
		if audit.Answers[i].QuestionID == answer.QuestionID {
			audit.Answers[i] = *answer
			return nil
		}
	}
	audit.Answers = append(audit.Answers, *answer)
	return nil
}

// CompleteAudit holds the fake's lock for the whole read-score-write, like
// the row lock of the postgres repository.
func (f *auditRepoFake) CompleteAudit(
	_ context.Context,
	id string,
	completedAt time.Time,
	finalize func(audit *domain.Audit) (float64, error),
) (*domain.Audit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	audit, ok := f.audits[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrAuditNotFound, "complete audit", fmt.Errorf("id=%s", id))
	}
	if f.beforeComplete != nil {
		f.beforeComplete(audit)
	}

	snapshot := *audit
	snapshot.Answers = append([]domain.Answer(nil), audit.Answers...)
	totalScore, err := finalize(&snapshot)
	if err != nil {
		return nil, err
	}

	audit.Status = domain.StatusCompleted
	audit.TotalScore = &totalScore
	audit.CompletedAt = &completedAt
	f.completions++

	out := *audit
	return &out, nil
}

func (f *auditRepoFake) UpdateAuditDate(_ context.Context, id string, auditDate time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audits[id].AuditDate = auditDate
	return nil
}

func (f *auditRepoFake) ListCompletedAudits(_ context.Context, filter domain.StatisticsFilter) ([]domain.Audit, error) {
	f.listFilter = filter
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listResult, nil
}

type checklistFake struct {
	templates  map[string]*domain.Template
	facilities map[string]*domain.Facility
}

func (f *checklistFake) GetTemplate(_ context.Context, id string) (*domain.Template, error) {
	t, ok := f.templates[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrTemplateNotFound, "get template", fmt.Errorf("id=%s", id))
	}
	return t, nil
}

func (f *checklistFake) GetFacility(_ context.Context, id string) (*domain.Facility, error) {
	fac, ok := f.facilities[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrFacilityNotFound, "get facility", fmt.Errorf("id=%s", id))
	}
	return fac, nil
}

func (f *checklistFake) ImportChecklist(context.Context, domain.Checklist) error {
	return errors.New("not implemented")
}

type publisherFake struct {
	mu     sync.Mutex
	events []domain.AuditCompletedEvent
	err    error
}

func (f *publisherFake) PublishAuditCompleted(_ context.Context, event domain.AuditCompletedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

type exporterFake struct {
	stats domain.Statistics
	err   error
}

func (f *exporterFake) ContentType() string { return "text/test" }

func (f *exporterFake) WriteStatistics(w io.Writer, _ domain.StatisticsFilter, stats domain.Statistics) error {
	if f.err != nil {
		return f.err
	}
	f.stats = stats
	_, err := io.WriteString(w, "exported")
	return err
}

var (
	fireSection = &domain.Section{ID: "sec-fire", Name: "Fire Safety", Position: 1}
	fireCat     = &domain.Category{ID: "cat-ext", SectionID: "sec-fire", Name: "Extinguishers", Section: fireSection}
)

// fireTemplate has three questions weighted 8, 7 and 9.
func fireTemplate() *domain.Template {
	weights := []int{8, 7, 9}
	t := &domain.Template{ID: "tpl-1", Name: "Monthly fire walk"}
	for i, w := range weights {
		t.Questions = append(t.Questions, domain.Question{
			ID:         fmt.Sprintf("q%d", i+1),
			CategoryID: fireCat.ID,
			Text:       fmt.Sprintf("question %d", i+1),
			Weight:     w,
			Category:   fireCat,
		})
	}
	return t
}

func draftAudit(id string) *domain.Audit {
	return &domain.Audit{
		ID:         id,
		FacilityID: "fac-1",
		TemplateID: "tpl-1",
		AuditorID:  "user-1",
		AuditDate:  time.Date(2026, time.May, 4, 0, 0, 0, 0, time.UTC),
		Status:     domain.StatusDraft,
		Template:   fireTemplate(),
		Answers:    []domain.Answer{},
	}
}

func answeredAudit(id string, kinds ...domain.AnswerKind) *domain.Audit {
	audit := draftAudit(id)
	for i, kind := range kinds {
		q := &audit.Template.Questions[i]
		audit.Answers = append(audit.Answers, domain.Answer{
			ID:         fmt.Sprintf("%s-ans-%d", id, i),
			AuditID:    id,
			QuestionID: q.ID,
			Kind:       kind,
			Question:   q,
		})
	}
	return audit
}
