package repo

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/conveyor-ci/conveyor/internal/rollout"
)

// noRow имитирует пустой результат запроса.
type noRow struct{}

func (noRow) Scan(...any) error { return pgx.ErrNoRows }

func TestRolloutRepo_EmptyHistoryMapsToErrNoHistory(t *testing.T) {
	// Deployment handler различает "истории нет" через
	// rollout.ErrNoHistory — репозиторий обязан вернуть именно её,
	// а не repo.ErrNotFound
	r := &RolloutRepo{}

	_, err := r.scanRecord(noRow{})
	if !errors.Is(err, rollout.ErrNoHistory) {
		t.Errorf("expected rollout.ErrNoHistory, got %v", err)
	}
}
