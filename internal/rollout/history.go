package rollout

import (
	"context"
	"sync"

	"github.com/conveyor-ci/conveyor/internal/domain"
)

// HistoryStore — хранилище истории rollout'ов.
//
// Реализуется repo.RolloutRepo (PostgreSQL) и MemoryHistory (тесты).
type HistoryStore interface {
	// Append добавляет запись в историю deployment'а.
	Append(ctx context.Context, rec domain.RolloutRecord) error

	// Last возвращает последнюю запись (стабильную или застрявшую).
	Last(ctx context.Context, deployment string) (*domain.RolloutRecord, error)

	// Previous возвращает цель отката: новейшую STABLE запись,
	// ссылка которой отличается от последней записи. Застрявшие
	// записи пропускаются — откатываться на них нельзя.
	// Возвращает ErrNoHistory, если такой записи нет.
	Previous(ctx context.Context, deployment string) (*domain.RolloutRecord, error)
}

// MemoryHistory — in-memory реализация HistoryStore.
type MemoryHistory struct {
	mu      sync.Mutex
	records map[string][]domain.RolloutRecord
}

// NewMemoryHistory создаёт пустой MemoryHistory.
func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{
		records: make(map[string][]domain.RolloutRecord),
	}
}

// Append добавляет запись в историю deployment'а.
func (h *MemoryHistory) Append(_ context.Context, rec domain.RolloutRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.records[rec.Deployment] = append(h.records[rec.Deployment], rec)
	return nil
}

// Last возвращает последнюю запись.
func (h *MemoryHistory) Last(_ context.Context, deployment string) (*domain.RolloutRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	records := h.records[deployment]
	if len(records) == 0 {
		return nil, ErrNoHistory
	}
	rec := records[len(records)-1]
	return &rec, nil
}

// Previous возвращает цель отката: новейшую STABLE запись со ссылкой,
// отличной от последней записи.
func (h *MemoryHistory) Previous(_ context.Context, deployment string) (*domain.RolloutRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	records := h.records[deployment]
	if len(records) == 0 {
		return nil, ErrNoHistory
	}

	last := records[len(records)-1]
	for i := len(records) - 2; i >= 0; i-- {
		rec := records[i]
		if rec.State == domain.RolloutStateStable && rec.Ref != last.Ref {
			return &rec, nil
		}
	}
	return nil, ErrNoHistory
}
