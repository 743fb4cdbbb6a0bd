package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kirillkom/hse-audit/internal/core/domain"
)

const auditColumns = `a.id, a.facility_id, a.template_id, a.auditor_id, a.audit_date, a.status,
	a.total_score::float8, a.completed_at, a.created_at, a.updated_at`

type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) CreateAudit(ctx context.Context, audit *domain.Audit) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO audits (id, facility_id, template_id, auditor_id, audit_date, status, total_score, completed_at, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`, audit.ID, audit.FacilityID, audit.TemplateID, audit.AuditorID, audit.AuditDate, string(audit.Status),
		audit.TotalScore, audit.CompletedAt, audit.CreatedAt, audit.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert audit: %w", err)
	}
	return nil
}

func (r *AuditRepository) GetAudit(ctx context.Context, id string) (*domain.Audit, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+auditColumns+`
FROM audits a
WHERE a.id = $1
`, id)

	audit, err := scanAudit(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrAuditNotFound, "get audit", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan audit: %w", err)
	}

	h := newHierarchy()
	template, err := loadTemplate(ctx, r.db, h, audit.TemplateID)
	if err != nil {
		return nil, err
	}
	audit.Template = template

	byAudit, err := loadAnswers(ctx, r.db, h, `a.audit_id = $1`, []any{id})
	if err != nil {
		return nil, err
	}
	audit.Answers = byAudit[id]
	if audit.Answers == nil {
		audit.Answers = []domain.Answer{}
	}

	if err := r.attachEvidence(ctx, id, audit.Answers); err != nil {
		return nil, err
	}
	return &audit, nil
}

// UpsertAnswer holds a share lock on the audit row for the whole write. It
// conflicts with the row lock of CompleteAudit, so a completion either scores
// the answer or the upsert finds the audit completed.
func (r *AuditRepository) UpsertAnswer(ctx context.Context, answer *domain.Answer, replaceEvidence bool) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin answer tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var status string
	err = tx.QueryRowContext(ctx, `SELECT status FROM audits WHERE id = $1 FOR SHARE`, answer.AuditID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.WrapError(domain.ErrAuditNotFound, "upsert answer", fmt.Errorf("id=%s", answer.AuditID))
		}
		return fmt.Errorf("lock audit: %w", err)
	}
	if domain.AuditStatus(status) != domain.StatusDraft {
		return domain.WrapError(domain.ErrAuditLocked, "upsert answer", fmt.Errorf("id=%s status=%s", answer.AuditID, status))
	}

	err = tx.QueryRowContext(ctx, `
INSERT INTO audit_answers (id, audit_id, question_id, kind, explanation, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (audit_id, question_id) DO UPDATE
SET kind = EXCLUDED.kind, explanation = EXCLUDED.explanation, updated_at = EXCLUDED.updated_at
RETURNING id, created_at
`, answer.ID, answer.AuditID, answer.QuestionID, string(answer.Kind), answer.Explanation,
		answer.CreatedAt, answer.UpdatedAt).Scan(&answer.ID, &answer.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert answer: %w", err)
	}

	if replaceEvidence {
		if _, err := tx.ExecContext(ctx, `DELETE FROM answer_evidence WHERE answer_id = $1`, answer.ID); err != nil {
			return fmt.Errorf("clear evidence: %w", err)
		}
		for _, ev := range answer.Evidence {
			if _, err := tx.ExecContext(ctx, `
INSERT INTO answer_evidence (id, answer_id, storage_key, filename, created_at)
VALUES ($1,$2,$3,$4,$5)
`, ev.ID, answer.ID, ev.StorageKey, ev.Filename, answer.UpdatedAt); err != nil {
				return fmt.Errorf("insert evidence: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit answer tx: %w", err)
	}
	return nil
}

// CompleteAudit locks the audit row, loads template and answers inside the
// same transaction and stores the score finalize derives from them. Answer
// upserts wait on the lock and then observe the audit as completed.
func (r *AuditRepository) CompleteAudit(
	ctx context.Context,
	id string,
	completedAt time.Time,
	finalize func(audit *domain.Audit) (float64, error),
) (*domain.Audit, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin completion tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	audit, err := scanAudit(tx.QueryRowContext(ctx, `
SELECT `+auditColumns+`
FROM audits a
WHERE a.id = $1
FOR UPDATE
`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrAuditNotFound, "complete audit", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("lock audit: %w", err)
	}

	h := newHierarchy()
	template, err := loadTemplate(ctx, tx, h, audit.TemplateID)
	if err != nil {
		return nil, err
	}
	audit.Template = template

	byAudit, err := loadAnswers(ctx, tx, h, `a.audit_id = $1`, []any{id})
	if err != nil {
		return nil, err
	}
	if answers := byAudit[id]; answers != nil {
		audit.Answers = answers
	}

	totalScore, err := finalize(&audit)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
UPDATE audits
SET status = $2, total_score = $3, completed_at = $4, updated_at = $4
WHERE id = $1
`, id, string(domain.StatusCompleted), totalScore, completedAt); err != nil {
		return nil, fmt.Errorf("mark audit completed: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit completion tx: %w", err)
	}

	audit.Status = domain.StatusCompleted
	audit.TotalScore = &totalScore
	audit.CompletedAt = &completedAt
	audit.UpdatedAt = completedAt
	return &audit, nil
}

func (r *AuditRepository) UpdateAuditDate(ctx context.Context, id string, auditDate time.Time) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE audits
SET audit_date = $2, updated_at = $3
WHERE id = $1 AND status = $4
`, id, auditDate, time.Now().UTC(), string(domain.StatusDraft))
	if err != nil {
		return fmt.Errorf("update audit date: %w", err)
	}
	return r.ensureDraftUpdated(ctx, res, id, "update audit date", domain.ErrAuditLocked)
}

// ListCompletedAudits returns completed audits matching filter with their
// answers resolved through the hierarchy. Evidence is not loaded.
func (r *AuditRepository) ListCompletedAudits(ctx context.Context, filter domain.StatisticsFilter) ([]domain.Audit, error) {
	where, args := completedAuditsWhere(filter)

	rows, err := r.db.QueryContext(ctx, `
SELECT `+auditColumns+`
FROM audits a
WHERE `+where+`
ORDER BY a.audit_date, a.id
`, args...)
	if err != nil {
		return nil, fmt.Errorf("list completed audits: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Audit, 0)
	for rows.Next() {
		audit, err := scanAudit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		out = append(out, audit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audits: %w", err)
	}
	if len(out) == 0 {
		return out, nil
	}

	byAudit, err := loadAnswers(ctx, r.db, newHierarchy(), `a.audit_id IN (SELECT a.id FROM audits a WHERE `+where+`)`, args)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Answers = byAudit[out[i].ID]
		if out[i].Answers == nil {
			out[i].Answers = []domain.Answer{}
		}
	}
	return out, nil
}

func completedAuditsWhere(filter domain.StatisticsFilter) (string, []any) {
	conds := []string{"a.status = $1"}
	args := []any{string(domain.StatusCompleted)}

	if facilityID := strings.TrimSpace(filter.FacilityID); facilityID != "" {
		args = append(args, facilityID)
		conds = append(conds, fmt.Sprintf("a.facility_id = $%d", len(args)))
	}
	if filter.StartDate != nil {
		args = append(args, *filter.StartDate)
		conds = append(conds, fmt.Sprintf("a.audit_date >= $%d::date", len(args)))
	}
	if filter.EndDate != nil {
		args = append(args, *filter.EndDate)
		conds = append(conds, fmt.Sprintf("a.audit_date <= $%d::date", len(args)))
	}
	return strings.Join(conds, " AND "), args
}

// loadAnswers returns answers grouped by audit id. where filters on the
// audit_answers alias a.
func loadAnswers(ctx context.Context, q queryer, h *hierarchy, where string, args []any) (map[string][]domain.Answer, error) {
	rows, err := q.QueryContext(ctx, `
SELECT a.id, a.audit_id, a.question_id, a.kind, a.explanation, a.created_at, a.updated_at,
	`+hierarchyColumns+`
FROM audit_answers a
LEFT JOIN questions q ON q.id = a.question_id
LEFT JOIN categories c ON c.id = q.category_id
LEFT JOIN sections s ON s.id = c.section_id
WHERE `+where+`
ORDER BY a.created_at, a.id
`, args...)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]domain.Answer)
	for rows.Next() {
		var (
			answer domain.Answer
			kind   string
			hrow   hierarchyRow
		)
		dest := append([]any{
			&answer.ID, &answer.AuditID, &answer.QuestionID, &kind, &answer.Explanation,
			&answer.CreatedAt, &answer.UpdatedAt,
		}, hrow.dest()...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		answer.Kind = domain.AnswerKind(kind)
		answer.Question = h.question(hrow)
		answer.Evidence = []domain.EvidenceRef{}
		out[answer.AuditID] = append(out[answer.AuditID], answer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate answers: %w", err)
	}
	return out, nil
}

func (r *AuditRepository) attachEvidence(ctx context.Context, auditID string, answers []domain.Answer) error {
	if len(answers) == 0 {
		return nil
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT e.id, e.answer_id, e.storage_key, e.filename
FROM answer_evidence e
JOIN audit_answers a ON a.id = e.answer_id
WHERE a.audit_id = $1
ORDER BY e.created_at, e.id
`, auditID)
	if err != nil {
		return fmt.Errorf("list evidence: %w", err)
	}
	defer rows.Close()

	index := make(map[string]int, len(answers))
	for i := range answers {
		index[answers[i].ID] = i
	}
	for rows.Next() {
		var (
			ev       domain.EvidenceRef
			answerID string
		)
		if err := rows.Scan(&ev.ID, &answerID, &ev.StorageKey, &ev.Filename); err != nil {
			return fmt.Errorf("scan evidence: %w", err)
		}
		if i, ok := index[answerID]; ok {
			answers[i].Evidence = append(answers[i].Evidence, ev)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate evidence: %w", err)
	}
	return nil
}

// ensureDraftUpdated maps a zero-row conditional update to not found or to
// the given state conflict.
func (r *AuditRepository) ensureDraftUpdated(ctx context.Context, res sql.Result, id, op string, conflict error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected > 0 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM audits WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("%s check audit: %w", op, err)
	}
	if !exists {
		return domain.WrapError(domain.ErrAuditNotFound, op, fmt.Errorf("id=%s", id))
	}
	return domain.WrapError(conflict, op, fmt.Errorf("id=%s", id))
}

func scanAudit(row rowScanner) (domain.Audit, error) {
	var (
		audit       domain.Audit
		status      string
		totalScore  sql.NullFloat64
		completedAt sql.NullTime
	)
	err := row.Scan(
		&audit.ID, &audit.FacilityID, &audit.TemplateID, &audit.AuditorID, &audit.AuditDate, &status,
		&totalScore, &completedAt, &audit.CreatedAt, &audit.UpdatedAt,
	)
	if err != nil {
		return domain.Audit{}, err
	}
	audit.Status = domain.AuditStatus(status)
	if totalScore.Valid {
		score := totalScore.Float64
		audit.TotalScore = &score
	}
	if completedAt.Valid {
		t := completedAt.Time
		audit.CompletedAt = &t
	}
	audit.Answers = []domain.Answer{}
	return audit, nil
}
