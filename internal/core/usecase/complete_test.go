package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/kirillkom/hse-audit/internal/core/domain"
	"github.com/kirillkom/hse-audit/internal/core/scoring"
)

func TestCompleteScoresAndLocksAudit(t *testing.T) {
	audit := answeredAudit("a1",
		domain.AnswerFullyCompliant,
		domain.AnswerPartiallyCompliant,
		domain.AnswerNonCompliant,
	)
	repo := newAuditRepoFake(audit)
	events := &publisherFake{}
	uc := NewAuditUseCase(repo, &checklistFake{}, events)

	result, err := uc.Complete(context.Background(), "a1")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if result.TotalScore != 43.06 {
		t.Fatalf("expected total score 43.06, got %v", result.TotalScore)
	}
	if len(result.Sections) != 1 || result.Sections[0].Percentage != 43.06 {
		t.Fatalf("unexpected section scores: %+v", result.Sections)
	}
	if audit.Status != domain.StatusCompleted || audit.TotalScore == nil || *audit.TotalScore != 43.06 {
		t.Fatalf("expected persisted completion, got status=%s score=%v", audit.Status, audit.TotalScore)
	}
	if len(events.events) != 1 || events.events[0].AuditID != "a1" || events.events[0].TotalScore != 43.06 {
		t.Fatalf("expected one completion event, got %+v", events.events)
	}
}

func TestCompleteWithOutOfScopeAnswer(t *testing.T) {
	audit := answeredAudit("a1",
		domain.AnswerFullyCompliant,
		domain.AnswerPartiallyCompliant,
		domain.AnswerOutOfScope,
	)
	uc := NewAuditUseCase(newAuditRepoFake(audit), &checklistFake{}, nil)

	result, err := uc.Complete(context.Background(), "a1")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if result.TotalScore != 68.89 {
		t.Fatalf("expected total score 68.89, got %v", result.TotalScore)
	}
}

func TestCompleteRejectsIncompleteAudit(t *testing.T) {
	audit := answeredAudit("a1", domain.AnswerFullyCompliant, domain.AnswerOutOfScope)
	repo := newAuditRepoFake(audit)
	uc := NewAuditUseCase(repo, &checklistFake{}, nil)

	_, err := uc.Complete(context.Background(), "a1")
	if !errors.Is(err, domain.ErrIncompleteAudit) {
		t.Fatalf("expected ErrIncompleteAudit, got %v", err)
	}
	var incomplete *domain.IncompleteAuditError
	if !errors.As(err, &incomplete) {
		t.Fatalf("expected IncompleteAuditError, got %T", err)
	}
	if incomplete.Answered != 2 || incomplete.Total != 3 {
		t.Fatalf("expected 2/3, got %d/%d", incomplete.Answered, incomplete.Total)
	}
	if repo.completions != 0 {
		t.Fatalf("expected no completion write")
	}
}

func TestCompleteTwiceFailsWithAlreadyCompleted(t *testing.T) {
	audit := answeredAudit("a1",
		domain.AnswerFullyCompliant,
		domain.AnswerFullyCompliant,
		domain.AnswerFullyCompliant,
	)
	repo := newAuditRepoFake(audit)
	uc := NewAuditUseCase(repo, &checklistFake{}, nil)

	if _, err := uc.Complete(context.Background(), "a1"); err != nil {
		t.Fatalf("first Complete() error = %v", err)
	}
	_, err := uc.Complete(context.Background(), "a1")
	if !errors.Is(err, domain.ErrAlreadyCompleted) {
		t.Fatalf("expected ErrAlreadyCompleted, got %v", err)
	}
	if repo.completions != 1 {
		t.Fatalf("expected a single completion write, got %d", repo.completions)
	}
}

func TestConcurrentCompletionHasSingleWinner(t *testing.T) {
	audit := answeredAudit("a1",
		domain.AnswerFullyCompliant,
		domain.AnswerNonCompliant,
		domain.AnswerFullyCompliant,
	)
	repo := newAuditRepoFake(audit)
	events := &publisherFake{}
	uc := NewAuditUseCase(repo, &checklistFake{}, events)

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := uc.Complete(context.Background(), "a1")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, domain.ErrAlreadyCompleted):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one successful completion, got %d", succeeded)
	}
	if repo.completions != 1 || len(events.events) != 1 {
		t.Fatalf("expected one write and one event, got %d writes and %d events", repo.completions, len(events.events))
	}
}

func TestCompleteSurvivesPublishFailure(t *testing.T) {
	audit := answeredAudit("a1",
		domain.AnswerFullyCompliant,
		domain.AnswerFullyCompliant,
		domain.AnswerFullyCompliant,
	)
	uc := NewAuditUseCase(newAuditRepoFake(audit), &checklistFake{}, &publisherFake{err: errors.New("nats down")})

	result, err := uc.Complete(context.Background(), "a1")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if result.TotalScore != 100 {
		t.Fatalf("expected 100, got %v", result.TotalScore)
	}
}

func TestCompleteUnknownAudit(t *testing.T) {
	uc := NewAuditUseCase(newAuditRepoFake(), &checklistFake{}, nil)
	if _, err := uc.Complete(context.Background(), "missing"); !errors.Is(err, domain.ErrAuditNotFound) {
		t.Fatalf("expected ErrAuditNotFound, got %v", err)
	}
}

func TestCompleteFailsOnBrokenHierarchy(t *testing.T) {
	audit := answeredAudit("a1",
		domain.AnswerFullyCompliant,
		domain.AnswerFullyCompliant,
		domain.AnswerFullyCompliant,
	)
	audit.Answers[1].Question = &domain.Question{ID: "q2", Weight: 7}
	repo := newAuditRepoFake(audit)
	uc := NewAuditUseCase(repo, &checklistFake{}, nil)

	if _, err := uc.Complete(context.Background(), "a1"); !errors.Is(err, domain.ErrBrokenHierarchy) {
		t.Fatalf("expected ErrBrokenHierarchy, got %v", err)
	}
	if repo.completions != 0 {
		t.Fatalf("expected no completion write")
	}
}

func TestCompleteStoresScoreOfAnswersSeenUnderLock(t *testing.T) {
	audit := answeredAudit("a1",
		domain.AnswerFullyCompliant,
		domain.AnswerPartiallyCompliant,
		domain.AnswerOutOfScope,
	)
	repo := newAuditRepoFake(audit)
	repo.beforeComplete = func(locked *domain.Audit) {
		locked.Answers[2].Kind = domain.AnswerFullyCompliant
	}
	events := &publisherFake{}
	uc := NewAuditUseCase(repo, &checklistFake{}, events)

	result, err := uc.Complete(context.Background(), "a1")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	stored, err := scoring.Score(audit.Answers)
	if err != nil {
		t.Fatalf("score stored answers: %v", err)
	}
	if audit.TotalScore == nil || *audit.TotalScore != stored.Overall {
		t.Fatalf("stored total %v does not match score of stored answers %v", audit.TotalScore, stored.Overall)
	}
	if result.TotalScore != 80.56 {
		t.Fatalf("expected 80.56 from the locked answer set, got %v", result.TotalScore)
	}
	if len(events.events) != 1 || events.events[0].TotalScore != 80.56 {
		t.Fatalf("expected event with locked score, got %+v", events.events)
	}
}
