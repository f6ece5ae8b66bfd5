package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobRun — выполнение одного job в рамках run.
//
// JobRun создаётся оркестратором, когда все зависимости job
// перешли в SUCCEEDED, и выполняется воркером. Если зависимость
// упала или была пропущена, JobRun создаётся сразу в статусе
// SKIPPED — его steps никогда не выполняются.
type JobRun struct {
	// ID — уникальный идентификатор job run.
	ID uuid.UUID `json:"id"`

	// RunID — ссылка на родительский run.
	RunID uuid.UUID `json:"run_id"`

	// Name — имя job из спецификации pipeline.
	Name string `json:"name"`

	// Kind — вид job: gate, build, deploy.
	Kind JobKind `json:"kind"`

	// Status — текущий статус job.
	Status JobStatus `json:"status"`

	// Log — объединённый вывод выполненных steps.
	Log string `json:"log,omitempty"`

	// Error — причина FAILED (имя упавшего step) либо причина SKIPPED
	// (имя упавшей upstream-зависимости).
	Error string `json:"error,omitempty"`

	// StartedAt — время начала выполнения.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at"`
}

// Duration возвращает продолжительность выполнения.
func (j *JobRun) Duration() time.Duration {
	if j.StartedAt == nil || j.FinishedAt == nil {
		return 0
	}
	return j.FinishedAt.Sub(*j.StartedAt)
}

// IsFinished возвращает true, если job завершён.
func (j *JobRun) IsFinished() bool {
	return j.Status.IsTerminal()
}

// MarkRunning переводит job в статус RUNNING.
func (j *JobRun) MarkRunning() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
}

// MarkSucceeded переводит job в статус SUCCEEDED с логом steps.
func (j *JobRun) MarkSucceeded(log string) {
	now := time.Now()
	j.Status = JobStatusSucceeded
	j.FinishedAt = &now
	j.Log = log
}

// MarkFailed переводит job в статус FAILED с ошибкой.
func (j *JobRun) MarkFailed(errMsg, log string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.FinishedAt = &now
	j.Error = errMsg
	j.Log = log
}

// MarkSkipped переводит job в статус SKIPPED, указывая виновника.
// Видимое отличие от FAILED принципиально: job не выполнялся вовсе.
func (j *JobRun) MarkSkipped(upstream string) {
	now := time.Now()
	j.Status = JobStatusSkipped
	j.FinishedAt = &now
	j.Error = fmt.Sprintf("skipped: upstream job %q did not succeed", upstream)
}

// MarkCancelled переводит job в статус CANCELLED.
func (j *JobRun) MarkCancelled() {
	now := time.Now()
	j.Status = JobStatusCancelled
	j.FinishedAt = &now
}
