package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/conveyor-ci/conveyor/internal/domain"
)

// JobRepo — репозиторий для работы с job runs.
type JobRepo struct {
	pool *pgxpool.Pool
}

// NewJobRepo создаёт новый JobRepo.
func NewJobRepo(pool *pgxpool.Pool) *JobRepo {
	return &JobRepo{pool: pool}
}

// Create создаёт новый job run.
func (r *JobRepo) Create(ctx context.Context, job *domain.JobRun) error {
	query := `
		INSERT INTO jobs (id, run_id, name, kind, status, log, error, started_at, finished_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.pool.Exec(ctx, query,
		job.ID,
		job.RunID,
		job.Name,
		job.Kind,
		job.Status,
		nullString(job.Log),
		nullString(job.Error),
		job.StartedAt,
		job.FinishedAt,
		job.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetByID возвращает job по ID.
func (r *JobRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.JobRun, error) {
	query := selectJob + ` WHERE id = $1`
	return r.scanJob(r.pool.QueryRow(ctx, query, id))
}

// Update обновляет job.
func (r *JobRepo) Update(ctx context.Context, job *domain.JobRun) error {
	query := `
		UPDATE jobs
		SET status = $2, log = $3, error = $4, started_at = $5, finished_at = $6
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		job.ID,
		job.Status,
		nullString(job.Log),
		nullString(job.Error),
		job.StartedAt,
		job.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByRunID возвращает все jobs запуска.
func (r *JobRepo) ListByRunID(ctx context.Context, runID uuid.UUID) ([]domain.JobRun, error) {
	query := selectJob + ` WHERE run_id = $1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("list jobs by run: %w", err)
	}
	defer rows.Close()
	return r.collectJobs(rows)
}

// ListQueued возвращает jobs в статусе PENDING (для polling fallback воркера).
func (r *JobRepo) ListQueued(ctx context.Context, limit int) ([]domain.JobRun, error) {
	query := selectJob + `
		WHERE status = 'PENDING'
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list queued jobs: %w", err)
	}
	defer rows.Close()
	return r.collectJobs(rows)
}

// CancelPending переводит все PENDING jobs запуска в CANCELLED.
// Уже выполненные jobs не трогаются: их side effects не откатываются.
func (r *JobRepo) CancelPending(ctx context.Context, runID uuid.UUID) error {
	query := `
		UPDATE jobs
		SET status = 'CANCELLED', finished_at = now()
		WHERE run_id = $1 AND status = 'PENDING'
	`
	if _, err := r.pool.Exec(ctx, query, runID); err != nil {
		return fmt.Errorf("cancel pending jobs: %w", err)
	}
	return nil
}

// --- Helpers ---

const selectJob = `
	SELECT id, run_id, name, kind, status, log, error, started_at, finished_at, created_at
	FROM jobs
`

// scanJob сканирует одну строку в JobRun.
func (r *JobRepo) scanJob(row pgx.Row) (*domain.JobRun, error) {
	var job domain.JobRun
	var log, jobError *string

	err := row.Scan(
		&job.ID,
		&job.RunID,
		&job.Name,
		&job.Kind,
		&job.Status,
		&log,
		&jobError,
		&job.StartedAt,
		&job.FinishedAt,
		&job.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}

	if log != nil {
		job.Log = *log
	}
	if jobError != nil {
		job.Error = *jobError
	}

	return &job, nil
}

// collectJobs сканирует все строки результата в слайс JobRun.
func (r *JobRepo) collectJobs(rows pgx.Rows) ([]domain.JobRun, error) {
	var jobs []domain.JobRun
	for rows.Next() {
		job, err := r.scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}
