package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kirillkom/hse-audit/internal/core/domain"
)

type ChecklistRepository struct {
	db *sql.DB
}

func NewChecklistRepository(db *sql.DB) *ChecklistRepository {
	return &ChecklistRepository{db: db}
}

func (r *ChecklistRepository) GetTemplate(ctx context.Context, id string) (*domain.Template, error) {
	return loadTemplate(ctx, r.db, newHierarchy(), id)
}

func (r *ChecklistRepository) GetFacility(ctx context.Context, id string) (*domain.Facility, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, city
FROM facilities
WHERE id = $1
`, id)

	var facility domain.Facility
	if err := row.Scan(&facility.ID, &facility.Name, &facility.City); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrFacilityNotFound, "get facility", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan facility: %w", err)
	}
	return &facility, nil
}

// ImportChecklist upserts the whole catalogue in one transaction. Template
// question lists are replaced, everything else is merged by id.
func (r *ChecklistRepository) ImportChecklist(ctx context.Context, checklist domain.Checklist) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, f := range checklist.Facilities {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO facilities (id, name, city) VALUES ($1,$2,$3)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, city = EXCLUDED.city
`, f.ID, f.Name, f.City); err != nil {
			return fmt.Errorf("upsert facility %s: %w", f.ID, err)
		}
	}

	for _, s := range checklist.Sections {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO sections (id, name, description, position) VALUES ($1,$2,$3,$4)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, description = EXCLUDED.description, position = EXCLUDED.position
`, s.ID, s.Name, s.Description, s.Position); err != nil {
			return fmt.Errorf("upsert section %s: %w", s.ID, err)
		}
	}

	for _, c := range checklist.Categories {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO categories (id, section_id, name, position) VALUES ($1,$2,$3,$4)
ON CONFLICT (id) DO UPDATE SET section_id = EXCLUDED.section_id, name = EXCLUDED.name, position = EXCLUDED.position
`, c.ID, c.SectionID, c.Name, c.Position); err != nil {
			return fmt.Errorf("upsert category %s: %w", c.ID, err)
		}
	}

	for _, q := range checklist.Questions {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO questions (id, category_id, text, weight) VALUES ($1,$2,$3,$4)
ON CONFLICT (id) DO UPDATE SET category_id = EXCLUDED.category_id, text = EXCLUDED.text, weight = EXCLUDED.weight
`, q.ID, q.CategoryID, q.Text, q.Weight); err != nil {
			return fmt.Errorf("upsert question %s: %w", q.ID, err)
		}
	}

	for _, t := range checklist.Templates {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO templates (id, name, description) VALUES ($1,$2,$3)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, description = EXCLUDED.description
`, t.ID, t.Name, t.Description); err != nil {
			return fmt.Errorf("upsert template %s: %w", t.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM template_questions WHERE template_id = $1`, t.ID); err != nil {
			return fmt.Errorf("clear template %s questions: %w", t.ID, err)
		}
		for pos, questionID := range t.QuestionIDs {
			if _, err := tx.ExecContext(ctx, `
INSERT INTO template_questions (template_id, question_id, position) VALUES ($1,$2,$3)
`, t.ID, questionID, pos); err != nil {
				return fmt.Errorf("link template %s question %s: %w", t.ID, questionID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import tx: %w", err)
	}
	return nil
}

func loadTemplate(ctx context.Context, q queryer, h *hierarchy, id string) (*domain.Template, error) {
	var template domain.Template
	err := q.QueryRowContext(ctx, `
SELECT id, name, description
FROM templates
WHERE id = $1
`, id).Scan(&template.ID, &template.Name, &template.Description)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrTemplateNotFound, "get template", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan template: %w", err)
	}

	rows, err := q.QueryContext(ctx, `
SELECT `+hierarchyColumns+`
FROM template_questions tq
JOIN questions q ON q.id = tq.question_id
LEFT JOIN categories c ON c.id = q.category_id
LEFT JOIN sections s ON s.id = c.section_id
WHERE tq.template_id = $1
ORDER BY tq.position, q.id
`, id)
	if err != nil {
		return nil, fmt.Errorf("list template questions: %w", err)
	}
	defer rows.Close()

	template.Questions = make([]domain.Question, 0)
	for rows.Next() {
		var row hierarchyRow
		if err := rows.Scan(row.dest()...); err != nil {
			return nil, fmt.Errorf("scan template question: %w", err)
		}
		if question := h.question(row); question != nil {
			template.Questions = append(template.Questions, *question)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate template questions: %w", err)
	}
	return &template, nil
}
