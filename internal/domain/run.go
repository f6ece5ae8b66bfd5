package domain

import (
	"time"

	"github.com/google/uuid"
)

// Run — экземпляр выполнения версии pipeline для одного события.
//
// Run создаётся когда:
// - Trigger Evaluator сопоставил входящее событие с pipeline
// - Scheduler создал запуск по расписанию
// - Оператор запустил pipeline вручную
//
// Jobs запуска создаются заново для каждого run и не разделяют
// изменяемого состояния с другими запусками.
type Run struct {
	// ID — уникальный идентификатор run.
	ID uuid.UUID `json:"id"`

	// PipelineID — ссылка на pipeline.
	PipelineID uuid.UUID `json:"pipeline_id"`

	// Version — версия pipeline, которая выполняется.
	Version int `json:"version"`

	// Status — текущий статус выполнения.
	Status RunStatus `json:"status"`

	// Event — событие, активировавшее run.
	Event Event `json:"event"`

	// RunKey — внешний идентификатор запуска; им тегируются артефакты.
	RunKey string `json:"run_key"`

	// StartedAt — время начала выполнения (когда статус стал RUNNING).
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// Error — описание причины FAILED: имя упавшего job и его ошибка.
	Error string `json:"error,omitempty"`

	// IdempotencyKey — ключ идемпотентности (для scheduled runs).
	IdempotencyKey string `json:"idempotency_key,omitempty"`

	// CreatedAt — время создания run.
	CreatedAt time.Time `json:"created_at"`
}

// NewRunKey строит внешний идентификатор запуска из его UUID.
// Короткий и человекочитаемый: им тегируются артефакты.
func NewRunKey(id uuid.UUID) string {
	return "run-" + id.String()[:8]
}

// Duration возвращает продолжительность выполнения.
// Возвращает 0, если run ещё не завершён.
func (r *Run) Duration() time.Duration {
	if r.StartedAt == nil || r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(*r.StartedAt)
}

// IsFinished возвращает true, если run завершён (в любом статусе).
func (r *Run) IsFinished() bool {
	return r.Status.IsTerminal()
}

// MarkRunning переводит run в статус RUNNING.
func (r *Run) MarkRunning() {
	now := time.Now()
	r.Status = RunStatusRunning
	r.StartedAt = &now
}

// MarkSucceeded переводит run в статус SUCCEEDED.
func (r *Run) MarkSucceeded() {
	now := time.Now()
	r.Status = RunStatusSucceeded
	r.FinishedAt = &now
}

// MarkFailed переводит run в статус FAILED с указанием причины.
func (r *Run) MarkFailed(err string) {
	now := time.Now()
	r.Status = RunStatusFailed
	r.FinishedAt = &now
	r.Error = err
}

// MarkCancelled переводит run в статус CANCELLED.
func (r *Run) MarkCancelled(reason string) {
	now := time.Now()
	r.Status = RunStatusCancelled
	r.FinishedAt = &now
	r.Error = reason
}
