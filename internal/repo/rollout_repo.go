package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/conveyor-ci/conveyor/internal/domain"
	"github.com/conveyor-ci/conveyor/internal/rollout"
)

// RolloutRepo — репозиторий истории rollout'ов.
//
// Хранит упорядоченную историю выкаток каждого deployment'а, включая
// застрявшие (STALLED). Реализует rollout.HistoryStore: отсутствие
// записей — rollout.ErrNoHistory, не ErrNotFound.
type RolloutRepo struct {
	pool *pgxpool.Pool
}

// NewRolloutRepo создаёт новый RolloutRepo.
func NewRolloutRepo(pool *pgxpool.Pool) *RolloutRepo {
	return &RolloutRepo{pool: pool}
}

// Append добавляет запись в историю deployment'а.
func (r *RolloutRepo) Append(ctx context.Context, rec domain.RolloutRecord) error {
	query := `
		INSERT INTO rollout_records (deployment, ref, state, applied_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.pool.Exec(ctx, query, rec.Deployment, rec.Ref, string(rec.State), rec.AppliedAt); err != nil {
		return fmt.Errorf("insert rollout record: %w", err)
	}
	return nil
}

// Last возвращает последнюю запись deployment'а.
func (r *RolloutRepo) Last(ctx context.Context, deployment string) (*domain.RolloutRecord, error) {
	query := selectRollout + `
		WHERE deployment = $1
		ORDER BY applied_at DESC, id DESC
		LIMIT 1
	`
	return r.scanRecord(r.pool.QueryRow(ctx, query, deployment))
}

// Previous возвращает цель отката: новейшую STABLE запись со ссылкой,
// отличной от последней записи. Именно её Rollback применяет заново;
// застрявшие записи пропускаются.
func (r *RolloutRepo) Previous(ctx context.Context, deployment string) (*domain.RolloutRecord, error) {
	query := selectRollout + `
		WHERE deployment = $1
		  AND state = $2
		  AND ref <> (
			SELECT ref FROM rollout_records
			WHERE deployment = $1
			ORDER BY applied_at DESC, id DESC
			LIMIT 1
		  )
		ORDER BY applied_at DESC, id DESC
		LIMIT 1
	`
	return r.scanRecord(r.pool.QueryRow(ctx, query, deployment, string(domain.RolloutStateStable)))
}

// History возвращает историю deployment'а от новых к старым.
func (r *RolloutRepo) History(ctx context.Context, deployment string, limit int) ([]domain.RolloutRecord, error) {
	query := selectRollout + `
		WHERE deployment = $1
		ORDER BY applied_at DESC, id DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, deployment, limit)
	if err != nil {
		return nil, fmt.Errorf("list rollout history: %w", err)
	}
	defer rows.Close()

	var records []domain.RolloutRecord
	for rows.Next() {
		rec, err := r.scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// --- Helpers ---

const selectRollout = `
	SELECT deployment, ref, state, applied_at
	FROM rollout_records
`

func (r *RolloutRepo) scanRecord(row pgx.Row) (*domain.RolloutRecord, error) {
	var rec domain.RolloutRecord
	err := row.Scan(&rec.Deployment, &rec.Ref, &rec.State, &rec.AppliedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, rollout.ErrNoHistory
	}
	if err != nil {
		return nil, fmt.Errorf("scan rollout record: %w", err)
	}
	return &rec, nil
}
