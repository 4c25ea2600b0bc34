package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"grading-coordinator/internal/domain"
	"grading-coordinator/internal/domain/model"
	"grading-coordinator/internal/domain/ports/repository"
)

var _ repository.JobRepository = (*jobRepo)(nil)

type jobRepo struct {
	pool *pgxpool.Pool
	tm   repository.TransactionManager
}

func NewJobRepo(pool *pgxpool.Pool, tm repository.TransactionManager) *jobRepo {
	return &jobRepo{pool: pool, tm: tm}
}

const jobColumns = `
job_id, version, state, student_name, student_id, exam_name, subject,
reference_id, source_key, answers, total_marks, marks_obtained, percentage,
grade, insights, report, reviewer_name, reviewer_comments, last_error,
deleted, created_at, updated_at`

func (r *jobRepo) Create(ctx context.Context, tx repository.Tx, job *model.Job) error {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	answers, insights, report, err := marshalDerived(job)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO grading_jobs (` + jobColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22);`
	_, err = ex.Exec(ctx, q,
		job.JobID, job.Version, string(job.State), job.StudentName, job.StudentID,
		job.ExamName, job.Subject, nullStr(job.ReferenceID), job.SourceKey,
		answers, job.TotalMarks, job.MarksObtained, job.Percentage, job.Grade,
		insights, report, job.ReviewerName, job.ReviewerComments, job.LastError,
		job.Deleted, job.CreatedAt, job.UpdatedAt)
	return err
}

func (r *jobRepo) Read(ctx context.Context, jobID string) (*model.Job, error) {
	const q = `SELECT ` + jobColumns + ` FROM grading_jobs WHERE job_id = $1;`
	row := r.pool.QueryRow(ctx, q, jobID)
	return scanJob(row)
}

// Commit implements the version-checked read-modify-write that every
// mutating operation funnels through. The row is locked for the duration of
// the transaction; the mutator sees the job with Version already bumped to
// expected+1, and its error aborts the commit with no write.
func (r *jobRepo) Commit(ctx context.Context, jobID string, expectedVersion int64, mutate repository.Mutator) (*model.Job, error) {
	var out *model.Job
	err := r.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		ex, err := getExecutor(r.pool, tx)
		if err != nil {
			return err
		}
		const q = `SELECT ` + jobColumns + ` FROM grading_jobs WHERE job_id = $1 FOR UPDATE;`
		job, err := scanJob(ex.QueryRow(ctx, q, jobID))
		if err != nil {
			return err
		}
		if job.Version != expectedVersion {
			return domain.ErrConflict
		}
		job.Version = expectedVersion + 1
		job.UpdatedAt = time.Now()
		if err := mutate(job); err != nil {
			return err
		}
		if err := r.update(ctx, ex, job); err != nil {
			return err
		}
		out = job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *jobRepo) update(ctx context.Context, ex executor, job *model.Job) error {
	answers, insights, report, err := marshalDerived(job)
	if err != nil {
		return err
	}
	const q = `
UPDATE grading_jobs SET
  version = $2, state = $3, reference_id = $4, answers = $5,
  total_marks = $6, marks_obtained = $7, percentage = $8, grade = $9,
  insights = $10, report = $11, reviewer_name = $12, reviewer_comments = $13,
  last_error = $14, deleted = $15, updated_at = $16
WHERE job_id = $1;`
	_, err = ex.Exec(ctx, q,
		job.JobID, job.Version, string(job.State), nullStr(job.ReferenceID),
		answers, job.TotalMarks, job.MarksObtained, job.Percentage, job.Grade,
		insights, report, job.ReviewerName, job.ReviewerComments, job.LastError,
		job.Deleted, job.UpdatedAt)
	return err
}

func (r *jobRepo) List(ctx context.Context, state model.JobState, limit int) ([]*model.Job, error) {
	q := `SELECT ` + jobColumns + ` FROM grading_jobs WHERE deleted = false`
	args := []interface{}{}
	if state != "" {
		q += ` AND state = $1`
		args = append(args, string(state))
	}
	if limit <= 0 {
		limit = 50
	}
	q += ` ORDER BY created_at DESC LIMIT ` + strconv.Itoa(limit) + `;`

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

// ClaimUploaded atomically moves one uploaded job to processing. SKIP LOCKED
// keeps concurrent workers off the same row.
func (r *jobRepo) ClaimUploaded(ctx context.Context) (*model.Job, error) {
	var out *model.Job
	err := r.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		ex, err := getExecutor(r.pool, tx)
		if err != nil {
			return err
		}
		const q = `
SELECT ` + jobColumns + `
FROM grading_jobs
WHERE state = 'uploaded' AND deleted = false
ORDER BY created_at
LIMIT 1
FOR UPDATE SKIP LOCKED;`
		job, err := scanJob(ex.QueryRow(ctx, q))
		if err != nil {
			return err
		}
		job.Version++
		job.State = model.JobStateProcessing
		job.UpdatedAt = time.Now()
		if err := r.update(ctx, ex, job); err != nil {
			return err
		}
		out = job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ---- row plumbing ----

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*model.Job, error) {
	var (
		job      model.Job
		state    string
		refID    *string
		answers  []byte
		insights []byte
		report   []byte
	)
	err := row.Scan(
		&job.JobID, &job.Version, &state, &job.StudentName, &job.StudentID,
		&job.ExamName, &job.Subject, &refID, &job.SourceKey, &answers,
		&job.TotalMarks, &job.MarksObtained, &job.Percentage, &job.Grade,
		&insights, &report, &job.ReviewerName, &job.ReviewerComments,
		&job.LastError, &job.Deleted, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	job.State = model.JobState(state)
	if refID != nil {
		job.ReferenceID = *refID
	}
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &job.Answers); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	if len(insights) > 0 {
		if err := json.Unmarshal(insights, &job.Insights); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	if len(report) > 0 {
		if err := json.Unmarshal(report, &job.Report); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	return &job, nil
}

func marshalDerived(job *model.Job) (answers, insights, report []byte, err error) {
	if job.Answers != nil {
		if answers, err = json.Marshal(job.Answers); err != nil {
			return nil, nil, nil, err
		}
	}
	if job.Insights != nil {
		if insights, err = json.Marshal(job.Insights); err != nil {
			return nil, nil, nil, err
		}
	}
	if job.Report != nil {
		if report, err = json.Marshal(job.Report); err != nil {
			return nil, nil, nil, err
		}
	}
	return answers, insights, report, nil
}

func nullStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
