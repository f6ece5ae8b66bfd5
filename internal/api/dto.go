package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/conveyor-ci/conveyor/internal/domain"
)

// Pipeline DTOs

// CreatePipelineRequest — запрос на создание pipeline.
type CreatePipelineRequest struct {
	Name string `json:"name"`
}

// UpdatePipelineRequest — запрос на обновление pipeline.
type UpdatePipelineRequest struct {
	Name     *string `json:"name,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// PipelineResponse — ответ с pipeline.
type PipelineResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// PipelineFromDomain конвертирует domain.Pipeline в PipelineResponse.
func PipelineFromDomain(p domain.Pipeline) PipelineResponse {
	return PipelineResponse{
		ID:        p.ID,
		Name:      p.Name,
		IsActive:  p.IsActive,
		CreatedAt: p.CreatedAt,
	}
}

// PipelineVersion DTOs

// CreatePipelineVersionRequest — запрос на создание версии pipeline.
type CreatePipelineVersionRequest struct {
	Spec domain.PipelineSpec `json:"spec"`
}

// PipelineVersionResponse — ответ с версией pipeline.
type PipelineVersionResponse struct {
	PipelineID uuid.UUID           `json:"pipeline_id"`
	Version    int                 `json:"version"`
	Spec       domain.PipelineSpec `json:"spec"`
	CreatedAt  time.Time           `json:"created_at"`
}

// PipelineVersionFromDomain конвертирует domain.PipelineVersion в ответ.
func PipelineVersionFromDomain(v domain.PipelineVersion) PipelineVersionResponse {
	return PipelineVersionResponse{
		PipelineID: v.PipelineID,
		Version:    v.Version,
		Spec:       v.Spec,
		CreatedAt:  v.CreatedAt,
	}
}

// Event DTOs

// EventRequest — входящее событие для Trigger Evaluator.
type EventRequest struct {
	Kind         string   `json:"kind"`
	Branch       string   `json:"branch"`
	ChangedPaths []string `json:"changed_paths,omitempty"`
	Revision     string   `json:"revision,omitempty"`

	// RunID — внешний идентификатор запуска: им тегируются артефакты.
	// Если пуст, Conveyor назначает свой.
	RunID string `json:"run_id,omitempty"`
}

// EventResponse — результат обработки события.
type EventResponse struct {
	// Matched — количество pipelines, сопоставленных с событием.
	Matched int `json:"matched"`

	// Runs — созданные runs.
	Runs []RunResponse `json:"runs"`
}

// Run DTOs

// CreateRunRequest — запрос на ручной запуск pipeline.
type CreateRunRequest struct {
	Branch   string `json:"branch"`
	Revision string `json:"revision,omitempty"`
	Version  *int   `json:"version,omitempty"`
}

// RunResponse — ответ с run.
type RunResponse struct {
	ID             uuid.UUID    `json:"id"`
	PipelineID     uuid.UUID    `json:"pipeline_id"`
	Version        int          `json:"version"`
	Status         string       `json:"status"`
	Event          domain.Event `json:"event"`
	RunKey         string       `json:"run_key"`
	StartedAt      *time.Time   `json:"started_at,omitempty"`
	FinishedAt     *time.Time   `json:"finished_at,omitempty"`
	Error          string       `json:"error,omitempty"`
	IdempotencyKey string       `json:"idempotency_key,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

// RunFromDomain конвертирует domain.Run в RunResponse.
func RunFromDomain(r domain.Run) RunResponse {
	return RunResponse{
		ID:             r.ID,
		PipelineID:     r.PipelineID,
		Version:        r.Version,
		Status:         string(r.Status),
		Event:          r.Event,
		RunKey:         r.RunKey,
		StartedAt:      r.StartedAt,
		FinishedAt:     r.FinishedAt,
		Error:          r.Error,
		IdempotencyKey: r.IdempotencyKey,
		CreatedAt:      r.CreatedAt,
	}
}

// Job DTOs

// JobResponse — ответ с job run.
type JobResponse struct {
	ID         uuid.UUID `json:"id"`
	RunID      uuid.UUID `json:"run_id"`
	Name       string    `json:"name"`
	Kind       string    `json:"kind"`
	Status     string    `json:"status"`
	Log        string    `json:"log,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// JobFromDomain конвертирует domain.JobRun в JobResponse.
func JobFromDomain(j domain.JobRun) JobResponse {
	return JobResponse{
		ID:         j.ID,
		RunID:      j.RunID,
		Name:       j.Name,
		Kind:       string(j.Kind),
		Status:     string(j.Status),
		Log:        j.Log,
		Error:      j.Error,
		StartedAt:  j.StartedAt,
		FinishedAt: j.FinishedAt,
		CreatedAt:  j.CreatedAt,
	}
}

// Schedule DTOs

// SetEnabledRequest — запрос на включение/выключение schedule.
type SetEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// ScheduleResponse — ответ со schedule.
type ScheduleResponse struct {
	ID         uuid.UUID  `json:"id"`
	PipelineID uuid.UUID  `json:"pipeline_id"`
	CronExpr   string     `json:"cron_expr"`
	Branch     string     `json:"branch"`
	Enabled    bool       `json:"enabled"`
	NextDueAt  *time.Time `json:"next_due_at,omitempty"`
	LastRunAt  *time.Time `json:"last_run_at,omitempty"`
	LastRunID  *uuid.UUID `json:"last_run_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// ScheduleFromDomain конвертирует domain.Schedule в ScheduleResponse.
func ScheduleFromDomain(s *domain.Schedule) ScheduleResponse {
	if s == nil {
		return ScheduleResponse{}
	}
	return ScheduleResponse{
		ID:         s.ID,
		PipelineID: s.PipelineID,
		CronExpr:   s.CronExpr,
		Branch:     s.Branch,
		Enabled:    s.Enabled,
		NextDueAt:  s.NextDueAt,
		LastRunAt:  s.LastRunAt,
		LastRunID:  s.LastRunID,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}
}

// Deployment DTOs

// DeploymentResponse — состояние deployment'а.
type DeploymentResponse struct {
	Name    string          `json:"name"`
	Current *RolloutEntry   `json:"current,omitempty"`
	History []RolloutEntry  `json:"history,omitempty"`
}

// RolloutEntry — одна запись истории rollout'ов.
type RolloutEntry struct {
	Ref       string    `json:"ref"`
	State     string    `json:"state"`
	AppliedAt time.Time `json:"applied_at"`
}

// RolloutEntryFromDomain конвертирует domain.RolloutRecord в RolloutEntry.
func RolloutEntryFromDomain(rec domain.RolloutRecord) RolloutEntry {
	return RolloutEntry{
		Ref:       rec.Ref,
		State:     string(rec.State),
		AppliedAt: rec.AppliedAt,
	}
}

// RollbackResponse — результат отката.
type RollbackResponse struct {
	Deployment string `json:"deployment"`
	Ref        string `json:"ref"`
	State      string `json:"state"`
	Replaced   int    `json:"replaced"`
}
