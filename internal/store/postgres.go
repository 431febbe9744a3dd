package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/usmanhx/labinsight/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const jobColumns = `id, job_id, status, file_path, file_type, age, gender,
	source_language, output_language, result_language, extracted_text,
	result_json, result_markdown, result_pdf_path, error_message,
	source, client_ip, expires_at, created_at, updated_at`

func scanJob(row pgx.Row) (*models.Job, error) {
	var j models.Job
	err := row.Scan(&j.ID, &j.JobID, &j.Status, &j.FilePath, &j.FileType,
		&j.Age, &j.Gender, &j.SourceLanguage, &j.OutputLanguage, &j.ResultLanguage,
		&j.ExtractedText, &j.ResultJSON, &j.ResultMarkdown, &j.ResultPDFPath,
		&j.ErrorMessage, &j.Source, &j.ClientIP, &j.ExpiresAt, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (s *PostgresStore) CreateJob(ctx context.Context, job *models.Job) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO jobs (id, job_id, status, file_path, file_type, age, gender,
		   source_language, output_language, source, client_ip, expires_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		job.ID, job.JobID, job.Status, job.FilePath, job.FileType, job.Age, job.Gender,
		job.SourceLanguage, job.OutputLanguage, job.Source, job.ClientIP,
		job.ExpiresAt, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetJobByJobID(ctx context.Context, jobID string) (*models.Job, error) {
	j, err := scanJob(s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE job_id = $1`, jobID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return j, nil
}

// allowedFrom encodes the monotonic state machine: pending → processing →
// {completed|failed}. No job moves backwards.
var allowedFrom = map[string]string{
	models.JobStatusProcessing: models.JobStatusPending,
	models.JobStatusCompleted:  models.JobStatusProcessing,
	models.JobStatusFailed:     models.JobStatusProcessing,
}

func (s *PostgresStore) UpdateJobStatus(ctx context.Context, id uuid.UUID, status string, opts ...JobUpdateOption) error {
	from, ok := allowedFrom[status]
	if !ok {
		return fmt.Errorf("%w: -> %s", ErrInvalidTransition, status)
	}

	// The required current status is part of the WHERE clause, so the check
	// and the write are one statement and concurrent writers cannot both win.
	query := `UPDATE jobs SET status = $2, updated_at = $3`
	args := []any{id, status, time.Now().UTC()}
	query, args = appendUpdateParams(query, args, opts)
	args = append(args, from)
	query += fmt.Sprintf(` WHERE id = $1 AND status = $%d`, len(args))

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Zero rows means the job is missing or in the wrong state. A follow-up
	// read tells the caller which.
	var current string
	err = s.pool.QueryRow(ctx, `SELECT status FROM jobs WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get job status: %w", err)
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, status)
}

func (s *PostgresStore) SaveJobArtifacts(ctx context.Context, id uuid.UUID, opts ...JobUpdateOption) error {
	query := `UPDATE jobs SET updated_at = $2`
	args := []any{id, time.Now().UTC()}
	query, args = appendUpdateParams(query, args, opts)
	query += ` WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("save job artifacts: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func appendUpdateParams(query string, args []any, opts []JobUpdateOption) (string, []any) {
	params := CollectUpdate(opts...)

	add := func(column string, val any) {
		args = append(args, val)
		query += fmt.Sprintf(", %s = $%d", column, len(args))
	}

	if params.ErrorMessage != nil {
		add("error_message", *params.ErrorMessage)
	}
	if params.ExtractedText != nil {
		add("extracted_text", *params.ExtractedText)
	}
	if params.ResultJSON != nil {
		add("result_json", *params.ResultJSON)
	}
	if params.ResultMarkdown != nil {
		add("result_markdown", *params.ResultMarkdown)
	}
	if params.ResultPDFPath != nil {
		add("result_pdf_path", *params.ResultPDFPath)
	}
	if params.ResultLanguage != nil {
		add("result_language", *params.ResultLanguage)
	}
	return query, args
}

func (s *PostgresStore) ListExpiredJobs(ctx context.Context, cutoff time.Time) ([]*models.Job, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE expires_at <= $1`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list expired jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (s *PostgresStore) DeleteJob(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)
