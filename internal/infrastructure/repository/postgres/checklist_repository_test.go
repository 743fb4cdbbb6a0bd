package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/hse-audit/internal/core/domain"
)

func newChecklistRepoWithMock(t *testing.T) (*ChecklistRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return NewChecklistRepository(db), mock, func() { _ = db.Close() }
}

func TestGetTemplateReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newChecklistRepoWithMock(t)
	defer done()

	mock.ExpectQuery("FROM templates").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetTemplate(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrTemplateNotFound) {
		t.Fatalf("expected ErrTemplateNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetTemplateKeepsQuestionOrder(t *testing.T) {
	repo, mock, done := newChecklistRepoWithMock(t)
	defer done()

	mock.ExpectQuery("FROM templates").
		WithArgs("tpl-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description"}).AddRow("tpl-1", "Warehouse", "yearly"))
	mock.ExpectQuery("ORDER BY tq.position").
		WithArgs("tpl-1").
		WillReturnRows(sqlmock.NewRows(hierarchyCols).
			AddRow(hierarchyValues("q2", "c1", "s1", 7)...).
			AddRow(hierarchyValues("q1", "c2", "s2", 8)...))

	template, err := repo.GetTemplate(context.Background(), "tpl-1")
	if err != nil {
		t.Fatalf("GetTemplate() error = %v", err)
	}
	if len(template.Questions) != 2 || template.Questions[0].ID != "q2" || template.Questions[1].ID != "q1" {
		t.Fatalf("unexpected questions: %+v", template.Questions)
	}
	if template.Questions[1].Section().ID != "s2" || template.Questions[1].Weight != 8 {
		t.Fatalf("unexpected hierarchy: %+v", template.Questions[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetFacilityReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newChecklistRepoWithMock(t)
	defer done()

	mock.ExpectQuery("FROM facilities").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetFacility(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrFacilityNotFound) {
		t.Fatalf("expected ErrFacilityNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestImportChecklistUpsertsInDependencyOrder(t *testing.T) {
	repo, mock, done := newChecklistRepoWithMock(t)
	defer done()

	checklist := domain.Checklist{
		Facilities: []domain.Facility{{ID: "f-1", Name: "Plant", City: "Kazan"}},
		Sections:   []domain.Section{{ID: "s1", Name: "Fire safety", Position: 1}},
		Categories: []domain.Category{{ID: "c1", SectionID: "s1", Name: "Exits", Position: 1}},
		Questions:  []domain.Question{{ID: "q1", CategoryID: "c1", Text: "Exits clear?", Weight: 8}},
		Templates:  []domain.TemplateDefinition{{ID: "tpl-1", Name: "Warehouse", QuestionIDs: []string{"q1"}}},
	}

	ok := sqlmock.NewResult(0, 1)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO facilities").WithArgs("f-1", "Plant", "Kazan").WillReturnResult(ok)
	mock.ExpectExec("INSERT INTO sections").WithArgs("s1", "Fire safety", "", 1).WillReturnResult(ok)
	mock.ExpectExec("INSERT INTO categories").WithArgs("c1", "s1", "Exits", 1).WillReturnResult(ok)
	mock.ExpectExec("INSERT INTO questions").WithArgs("q1", "c1", "Exits clear?", 8).WillReturnResult(ok)
	mock.ExpectExec("INSERT INTO templates").WithArgs("tpl-1", "Warehouse", "").WillReturnResult(ok)
	mock.ExpectExec("DELETE FROM template_questions").WithArgs("tpl-1").WillReturnResult(ok)
	mock.ExpectExec("INSERT INTO template_questions").WithArgs("tpl-1", "q1", 0).WillReturnResult(ok)
	mock.ExpectCommit()

	if err := repo.ImportChecklist(context.Background(), checklist); err != nil {
		t.Fatalf("ImportChecklist() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestImportChecklistRollsBackOnFailure(t *testing.T) {
	repo, mock, done := newChecklistRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO sections").WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	err := repo.ImportChecklist(context.Background(), domain.Checklist{
		Sections: []domain.Section{{ID: "s1", Name: "Fire safety"}},
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
