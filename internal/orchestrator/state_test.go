package orchestrator

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/conveyor-ci/conveyor/internal/domain"
)

func testRun() *domain.Run {
	id := uuid.New()
	return &domain.Run{
		ID:         id,
		PipelineID: uuid.New(),
		Version:    1,
		Status:     domain.RunStatusPending,
		Event:      domain.Event{Kind: domain.EventKindPush, Branch: "main"},
		RunKey:     domain.NewRunKey(id),
		CreatedAt:  time.Now(),
	}
}

func testVersion(jobs map[string]domain.JobDef) *domain.PipelineVersion {
	return &domain.PipelineVersion{
		PipelineID: uuid.New(),
		Version:    1,
		Spec: domain.PipelineSpec{
			Triggers: []domain.TriggerDef{
				{Kind: domain.EventKindPush, Branch: "main"},
			},
			Jobs: jobs,
		},
	}
}

func gate(needs ...string) domain.JobDef {
	return domain.JobDef{
		Kind:  domain.JobKindGate,
		Needs: needs,
		Steps: []domain.StepDef{{Name: "run", Run: "true"}},
	}
}

func newState(t *testing.T, jobs map[string]domain.JobDef) *RunState {
	t.Helper()
	state := NewRunState(testRun(), testVersion(jobs))
	if err := state.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return state
}

func readyNames(state *RunState) map[string]bool {
	names := make(map[string]bool)
	for _, node := range state.ReadyJobs() {
		names[node.Name] = true
	}
	return names
}

func TestRunState_Initialize_InvalidSpec(t *testing.T) {
	// Цикл в needs — ошибка определения
	state := NewRunState(testRun(), testVersion(map[string]domain.JobDef{
		"a": gate("b"),
		"b": gate("a"),
	}))

	err := state.Initialize()
	if !errors.Is(err, ErrInvalidPipelineSpec) {
		t.Errorf("expected ErrInvalidPipelineSpec, got %v", err)
	}
}

func TestRunState_ReadyProgression(t *testing.T) {
	state := newState(t, map[string]domain.JobDef{
		"lint": gate(),
		"test": gate("lint"),
	})

	ready := readyNames(state)
	if !ready["lint"] || ready["test"] {
		t.Errorf("only lint should be ready initially, got %v", ready)
	}

	state.MarkJobRunning("lint", &domain.JobRun{Name: "lint"})
	if len(state.ReadyJobs()) != 0 {
		t.Error("nothing should be ready while lint is running")
	}

	state.MarkJobSucceeded("lint")
	ready = readyNames(state)
	if !ready["test"] {
		t.Errorf("test should be ready after lint succeeds, got %v", ready)
	}
}

func TestRunState_FailureBlocksDownstream(t *testing.T) {
	state := newState(t, map[string]domain.JobDef{
		"lint":   gate(),
		"test":   gate("lint"),
		"deploy": gate("test"),
	})

	state.MarkJobRunning("lint", &domain.JobRun{Name: "lint"})
	state.MarkJobFailed("lint")

	// Весь downstream пропускается
	for _, name := range state.DAG.Downstream("lint") {
		state.MarkJobSkipped(name, nil)
	}

	if len(state.ReadyJobs()) != 0 {
		t.Error("nothing should be ready after lint fails")
	}

	if !state.IsComplete() {
		t.Error("run should be complete: lint failed, rest skipped")
	}
	if !state.HasFailed() {
		t.Error("run should have failed jobs")
	}
}

func TestRunState_IndependentBranchContinues(t *testing.T) {
	// Отказ в одной ветке не трогает независимую ветку
	state := newState(t, map[string]domain.JobDef{
		"backend-test":  gate(),
		"backend-build": gate("backend-test"),
		"frontend-test": gate(),
		"frontend-pack": gate("frontend-test"),
	})

	state.MarkJobRunning("backend-test", &domain.JobRun{Name: "backend-test"})
	state.MarkJobFailed("backend-test")
	state.MarkJobSkipped("backend-build", nil)

	ready := readyNames(state)
	if !ready["frontend-test"] {
		t.Errorf("frontend-test should still be ready, got %v", ready)
	}
}

func TestRunState_FailedJobsOrder(t *testing.T) {
	state := newState(t, map[string]domain.JobDef{
		"lint": gate(),
		"test": gate("lint"),
	})

	// Оба упали: первым в порядке DAG идёт lint — он и есть причина
	state.MarkJobFailed("test")
	state.MarkJobFailed("lint")

	failed := state.FailedJobs()
	if len(failed) != 2 {
		t.Fatalf("expected 2 failed jobs, got %d", len(failed))
	}
	if failed[0] != "lint" {
		t.Errorf("expected lint to be the first failure, got %s", failed[0])
	}
}

func TestRunState_IsJobStarted(t *testing.T) {
	state := newState(t, map[string]domain.JobDef{
		"lint": gate(),
	})

	if state.IsJobStarted("lint") {
		t.Error("lint should not be started yet")
	}

	state.MarkJobRunning("lint", &domain.JobRun{Name: "lint"})
	if !state.IsJobStarted("lint") {
		t.Error("lint should be started")
	}

	state.MarkJobSucceeded("lint")
	if !state.IsJobStarted("lint") {
		t.Error("succeeded job is still started")
	}
}

func TestRunState_Stats(t *testing.T) {
	state := newState(t, map[string]domain.JobDef{
		"a": gate(),
		"b": gate(),
		"c": gate("a"),
	})

	state.MarkJobRunning("a", &domain.JobRun{Name: "a"})
	state.MarkJobSucceeded("a")
	state.MarkJobRunning("b", &domain.JobRun{Name: "b"})

	stats := state.Stats()
	if stats.TotalJobs != 3 {
		t.Errorf("expected 3 total, got %d", stats.TotalJobs)
	}
	if stats.SucceededJobs != 1 {
		t.Errorf("expected 1 succeeded, got %d", stats.SucceededJobs)
	}
	if stats.RunningJobs != 1 {
		t.Errorf("expected 1 running, got %d", stats.RunningJobs)
	}
	if stats.PendingJobs != 1 {
		t.Errorf("expected 1 pending, got %d", stats.PendingJobs)
	}
}

func TestRunState_RestoreFromJobs(t *testing.T) {
	state := newState(t, map[string]domain.JobDef{
		"lint": gate(),
		"test": gate("lint"),
	})

	state.RestoreFromJobs([]domain.JobRun{
		{Name: "lint", Status: domain.JobStatusSucceeded},
		{Name: "test", Status: domain.JobStatusRunning},
	})

	if !state.IsJobStarted("lint") || !state.IsJobStarted("test") {
		t.Error("restored jobs should be started")
	}
	if state.IsComplete() {
		t.Error("run should not be complete: test is still running")
	}
	if len(state.ReadyJobs()) != 0 {
		t.Error("nothing new should be ready after restore")
	}
}

func TestRunState_RestoreFromJobsResync(t *testing.T) {
	// Повторная синхронизация с БД (poll сверяет RUNNING runs) заменяет
	// прежний статус: job, завершившийся между синхронизациями, не должен
	// числиться и running, и succeeded одновременно
	state := newState(t, map[string]domain.JobDef{
		"lint": gate(),
		"test": gate("lint"),
	})

	state.MarkJobRunning("lint", &domain.JobRun{Name: "lint"})

	// Событие job.completed потерялось; poll перечитывает jobs из БД
	state.RestoreFromJobs([]domain.JobRun{
		{Name: "lint", Status: domain.JobStatusSucceeded},
	})

	stats := state.Stats()
	if stats.RunningJobs != 0 {
		t.Errorf("lint should no longer be running, got %d running", stats.RunningJobs)
	}
	if stats.SucceededJobs != 1 {
		t.Errorf("expected 1 succeeded, got %d", stats.SucceededJobs)
	}

	ready := readyNames(state)
	if !ready["test"] {
		t.Errorf("test should become ready after resync, got %v", ready)
	}
}
