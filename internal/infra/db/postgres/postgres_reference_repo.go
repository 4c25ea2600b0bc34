package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"grading-coordinator/internal/domain"
	"grading-coordinator/internal/domain/model"
	"grading-coordinator/internal/domain/ports/repository"
)

var _ repository.ReferenceKeyRepository = (*referenceRepo)(nil)

type referenceRepo struct {
	pool *pgxpool.Pool
}

func NewReferenceRepo(pool *pgxpool.Pool) *referenceRepo {
	return &referenceRepo{pool: pool}
}

func (r *referenceRepo) Save(ctx context.Context, tx repository.Tx, ref *model.ReferenceKey) error {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	if ref.ReferenceID == "" {
		ref.ReferenceID = uuid.NewString()
	}
	if ref.CreatedAt.IsZero() {
		ref.CreatedAt = time.Now()
	}
	answers, err := json.Marshal(ref.Answers)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO reference_keys (reference_id, teacher_name, teacher_id, exam_name, subject, total_marks, answers, active, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (reference_id) DO UPDATE SET
  exam_name = EXCLUDED.exam_name,
  subject = EXCLUDED.subject,
  total_marks = EXCLUDED.total_marks,
  answers = EXCLUDED.answers,
  active = EXCLUDED.active;`
	_, err = ex.Exec(ctx, q,
		ref.ReferenceID, ref.TeacherName, ref.TeacherID, ref.ExamName,
		ref.Subject, ref.TotalMarks, answers, ref.Active, ref.CreatedAt)
	return err
}

func (r *referenceRepo) FindByID(ctx context.Context, refID string) (*model.ReferenceKey, error) {
	const q = `
SELECT reference_id, teacher_name, teacher_id, exam_name, subject, total_marks, answers, active, created_at
FROM reference_keys WHERE reference_id = $1;`
	return scanReference(r.pool.QueryRow(ctx, q, refID))
}

func (r *referenceRepo) ListByTeacher(ctx context.Context, teacherID string) ([]*model.ReferenceKey, error) {
	const q = `
SELECT reference_id, teacher_name, teacher_id, exam_name, subject, total_marks, answers, active, created_at
FROM reference_keys WHERE teacher_id = $1 ORDER BY created_at DESC;`
	rows, err := r.pool.Query(ctx, q, teacherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.ReferenceKey
	for rows.Next() {
		ref, err := scanReference(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

func scanReference(row rowScanner) (*model.ReferenceKey, error) {
	var (
		ref     model.ReferenceKey
		answers []byte
	)
	err := row.Scan(
		&ref.ReferenceID, &ref.TeacherName, &ref.TeacherID, &ref.ExamName,
		&ref.Subject, &ref.TotalMarks, &answers, &ref.Active, &ref.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &ref.Answers); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	return &ref, nil
}
