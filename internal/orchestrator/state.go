package orchestrator

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/conveyor-ci/conveyor/internal/domain"
	"github.com/conveyor-ci/conveyor/internal/engine"
)

// RunState — состояние выполнения одного run в памяти.
//
// Создаётся, когда Orchestrator начинает обработку run, и удаляется
// при достижении терминального статуса. После рестарта восстанавливается
// из персистентных job runs.
type RunState struct {
	// Run — данные run из БД.
	Run *domain.Run

	// Version — версия pipeline со спецификацией.
	Version *domain.PipelineVersion

	// DAG — граф зависимостей jobs.
	DAG *engine.DAG

	// succeeded — успешно завершённые jobs (имя → true).
	succeeded map[string]bool

	// running — jobs в процессе выполнения.
	running map[string]bool

	// failed — упавшие jobs.
	failed map[string]bool

	// skipped — пропущенные jobs (downstream упавших).
	skipped map[string]bool

	// cancelled — отменённые jobs.
	cancelled map[string]bool

	// jobs — созданные job runs (имя → JobRun).
	jobs map[string]*domain.JobRun

	mu sync.RWMutex
}

// NewRunState создаёт новый RunState.
func NewRunState(run *domain.Run, version *domain.PipelineVersion) *RunState {
	return &RunState{
		Run:       run,
		Version:   version,
		succeeded: make(map[string]bool),
		running:   make(map[string]bool),
		failed:    make(map[string]bool),
		skipped:   make(map[string]bool),
		cancelled: make(map[string]bool),
		jobs:      make(map[string]*domain.JobRun),
	}
}

// Initialize валидирует спецификацию и строит DAG.
func (s *RunState) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	spec := &s.Version.Spec

	if err := engine.Validate(spec); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPipelineSpec, err)
	}

	dag, err := engine.BuildDAG(spec)
	if err != nil {
		return fmt.Errorf("build DAG: %w", err)
	}
	s.DAG = dag

	return nil
}

// ReadyJobs возвращает jobs, готовые к запуску: все зависимости
// успешны, сам job ещё не стартовал.
func (s *RunState) ReadyJobs() []*engine.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	blocked := make(map[string]bool, len(s.failed)+len(s.skipped)+len(s.cancelled))
	for name := range s.failed {
		blocked[name] = true
	}
	for name := range s.skipped {
		blocked[name] = true
	}
	for name := range s.cancelled {
		blocked[name] = true
	}

	return s.DAG.ReadyJobs(s.succeeded, s.running, blocked)
}

// MarkJobRunning помечает job как выполняющийся.
func (s *RunState) MarkJobRunning(name string, job *domain.JobRun) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.running[name] = true
	s.jobs[name] = job
}

// MarkJobSucceeded помечает job как успешно завершённый.
func (s *RunState) MarkJobSucceeded(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.running, name)
	s.succeeded[name] = true
}

// MarkJobFailed помечает job как упавший.
func (s *RunState) MarkJobFailed(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.running, name)
	s.failed[name] = true
}

// MarkJobSkipped помечает job как пропущенный.
func (s *RunState) MarkJobSkipped(name string, job *domain.JobRun) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.running, name)
	s.skipped[name] = true
	if job != nil {
		s.jobs[name] = job
	}
}

// MarkJobCancelled помечает job как отменённый.
func (s *RunState) MarkJobCancelled(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.running, name)
	s.cancelled[name] = true
}

// IsJobStarted проверяет, стартовал ли job (в любом состоянии).
func (s *RunState) IsJobStarted(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.running[name] || s.succeeded[name] || s.failed[name] ||
		s.skipped[name] || s.cancelled[name]
}

// GetJob возвращает job run по имени job.
func (s *RunState) GetJob(name string) *domain.JobRun {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.jobs[name]
}

// IsComplete проверяет, достигли ли все jobs терминального состояния.
func (s *RunState) IsComplete() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	terminal := make(map[string]bool, len(s.jobs))
	for name := range s.succeeded {
		terminal[name] = true
	}
	for name := range s.failed {
		terminal[name] = true
	}
	for name := range s.skipped {
		terminal[name] = true
	}
	for name := range s.cancelled {
		terminal[name] = true
	}

	return s.DAG.IsComplete(terminal)
}

// HasFailed проверяет, есть ли упавшие jobs.
func (s *RunState) HasFailed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.failed) > 0
}

// FailedJobs возвращает имена упавших jobs в детерминированном порядке
// обхода DAG. Первый элемент — причина отказа run.
func (s *RunState) FailedJobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]string, 0, len(s.failed))
	for _, node := range s.DAG.Order {
		if s.failed[node.Name] {
			jobs = append(jobs, node.Name)
		}
	}
	return jobs
}

// RunID возвращает ID run.
func (s *RunState) RunID() uuid.UUID {
	return s.Run.ID
}

// PipelineID возвращает ID pipeline.
func (s *RunState) PipelineID() uuid.UUID {
	return s.Run.PipelineID
}

// Stats возвращает статистику выполнения.
func (s *RunState) Stats() RunStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := s.DAG.Size()
	done := len(s.succeeded) + len(s.failed) + len(s.skipped) + len(s.cancelled)
	return RunStats{
		TotalJobs:     total,
		SucceededJobs: len(s.succeeded),
		RunningJobs:   len(s.running),
		FailedJobs:    len(s.failed),
		SkippedJobs:   len(s.skipped),
		CancelledJobs: len(s.cancelled),
		PendingJobs:   total - done - len(s.running),
	}
}

// RunStats — статистика выполнения run.
type RunStats struct {
	TotalJobs     int
	SucceededJobs int
	RunningJobs   int
	FailedJobs    int
	SkippedJobs   int
	CancelledJobs int
	PendingJobs   int
}

// RestoreFromJobs восстанавливает состояние из списка job runs.
// Идемпотентен: повторная синхронизация с БД заменяет прежний статус
// job'а, а не дописывает его во второй набор.
func (s *RunState) RestoreFromJobs(jobs []domain.JobRun) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range jobs {
		job := &jobs[i]
		s.jobs[job.Name] = job

		delete(s.succeeded, job.Name)
		delete(s.running, job.Name)
		delete(s.failed, job.Name)
		delete(s.skipped, job.Name)
		delete(s.cancelled, job.Name)

		switch job.Status {
		case domain.JobStatusSucceeded:
			s.succeeded[job.Name] = true

		case domain.JobStatusFailed:
			s.failed[job.Name] = true

		case domain.JobStatusSkipped:
			s.skipped[job.Name] = true

		case domain.JobStatusCancelled:
			s.cancelled[job.Name] = true

		case domain.JobStatusRunning, domain.JobStatusPending:
			// PENDING job заберёт worker; RUNNING завершится событием.
			s.running[job.Name] = true
		}
	}
}
