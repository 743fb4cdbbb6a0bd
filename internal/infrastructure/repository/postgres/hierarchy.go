package postgres

import (
	"database/sql"

	"github.com/kirillkom/hse-audit/internal/core/domain"
)

// hierarchyColumns selects question, category and section columns through
// LEFT JOINs on q, c and s aliases. Missing links scan as NULL.
const hierarchyColumns = `q.id, q.category_id, q.text, q.weight,
	c.id, c.section_id, c.name, c.position,
	s.id, s.name, s.description, s.position`

type hierarchyRow struct {
	questionID   sql.NullString
	categoryRef  sql.NullString
	questionText sql.NullString
	weight       sql.NullInt64

	categoryID   sql.NullString
	sectionRef   sql.NullString
	categoryName sql.NullString
	categoryPos  sql.NullInt64

	sectionID   sql.NullString
	sectionName sql.NullString
	sectionDesc sql.NullString
	sectionPos  sql.NullInt64
}

func (h *hierarchyRow) dest() []any {
	return []any{
		&h.questionID, &h.categoryRef, &h.questionText, &h.weight,
		&h.categoryID, &h.sectionRef, &h.categoryName, &h.categoryPos,
		&h.sectionID, &h.sectionName, &h.sectionDesc, &h.sectionPos,
	}
}

// hierarchy deduplicates sections and categories so answers of one section
// share the same pointers.
type hierarchy struct {
	sections   map[string]*domain.Section
	categories map[string]*domain.Category
	questions  map[string]*domain.Question
}

func newHierarchy() *hierarchy {
	return &hierarchy{
		sections:   make(map[string]*domain.Section),
		categories: make(map[string]*domain.Category),
		questions:  make(map[string]*domain.Question),
	}
}

// question resolves the row into a shared question. It returns nil when the
// question itself is missing; a missing category or section leaves the
// corresponding pointer nil.
func (h *hierarchy) question(row hierarchyRow) *domain.Question {
	if !row.questionID.Valid {
		return nil
	}
	if q, ok := h.questions[row.questionID.String]; ok {
		return q
	}

	q := &domain.Question{
		ID:         row.questionID.String,
		CategoryID: row.categoryRef.String,
		Text:       row.questionText.String,
		Weight:     int(row.weight.Int64),
		Category:   h.category(row),
	}
	h.questions[q.ID] = q
	return q
}

func (h *hierarchy) category(row hierarchyRow) *domain.Category {
	if !row.categoryID.Valid {
		return nil
	}
	if c, ok := h.categories[row.categoryID.String]; ok {
		return c
	}

	c := &domain.Category{
		ID:        row.categoryID.String,
		SectionID: row.sectionRef.String,
		Name:      row.categoryName.String,
		Position:  int(row.categoryPos.Int64),
		Section:   h.section(row),
	}
	h.categories[c.ID] = c
	return c
}

func (h *hierarchy) section(row hierarchyRow) *domain.Section {
	if !row.sectionID.Valid {
		return nil
	}
	if s, ok := h.sections[row.sectionID.String]; ok {
		return s
	}

	s := &domain.Section{
		ID:          row.sectionID.String,
		Name:        row.sectionName.String,
		Description: row.sectionDesc.String,
		Position:    int(row.sectionPos.Int64),
	}
	h.sections[s.ID] = s
	return s
}
