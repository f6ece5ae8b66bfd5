package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/conveyor-ci/conveyor/internal/domain"
	"github.com/conveyor-ci/conveyor/internal/engine"
	"github.com/conveyor-ci/conveyor/internal/mq"
	"github.com/conveyor-ci/conveyor/internal/repo"
	"github.com/conveyor-ci/conveyor/internal/telemetry"
)

// handleRunPending обрабатывает событие о новом pending run.
func (o *Orchestrator) handleRunPending(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.RunPendingPayload](&delivery.Message)
	if err != nil {
		o.logger.Error("failed to parse run.pending payload", "error", err)
		return err
	}

	o.logger.Debug("received run.pending event", "run_id", payload.RunID)

	if o.isRunActive(payload.RunID) {
		o.logger.Debug("run already active, skipping", "run_id", payload.RunID)
		return nil
	}

	if err := o.processRun(ctx, payload.RunID); err != nil {
		if errors.Is(err, ErrRunNotPending) || errors.Is(err, ErrRunAlreadyActive) {
			o.logger.Debug("run not processed", "run_id", payload.RunID, "reason", err)
			return nil
		}
		o.logger.Error("failed to process run", "run_id", payload.RunID, "error", err)
		return err
	}

	return nil
}

// handleJobCompleted обрабатывает событие о завершённом job.
func (o *Orchestrator) handleJobCompleted(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.JobCompletedPayload](&delivery.Message)
	if err != nil {
		o.logger.Error("failed to parse job.completed payload", "error", err)
		return err
	}

	o.logger.Debug("received job.completed event",
		"job_id", payload.JobID,
		"run_id", payload.RunID,
		"job", payload.JobName,
		"status", payload.Status,
	)

	if err := o.processJobCompleted(ctx, payload); err != nil {
		o.logger.Error("failed to process job completion",
			"job_id", payload.JobID,
			"run_id", payload.RunID,
			"error", err,
		)
		return err
	}

	return nil
}

// processRun обрабатывает новый run.
func (o *Orchestrator) processRun(ctx context.Context, runID uuid.UUID) error {
	// 1. Загружаем run из БД
	run, err := o.runRepo.GetByID(ctx, runID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return fmt.Errorf("get run: %w", err)
	}

	// 2. Проверяем статус
	if run.Status != domain.RunStatusPending {
		return ErrRunNotPending
	}

	// 3. Вытесняем устаревшие in-flight runs той же ветки.
	// Ручные runs никого не вытесняют.
	if run.Event.Kind != domain.EventKindManual {
		if err := o.supersedeStaleRuns(ctx, run); err != nil {
			o.logger.Error("failed to supersede stale runs",
				"run_id", runID,
				"error", err,
			)
			// Не блокируем новый run: устаревшие доберёт следующий poll
		}
	}

	// 4. Загружаем версию pipeline
	version, err := o.pipelineRepo.GetVersion(ctx, run.PipelineID, run.Version)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return o.failRun(ctx, run, fmt.Sprintf("pipeline version not found: %s v%d", run.PipelineID, run.Version))
		}
		return fmt.Errorf("get pipeline version: %w", err)
	}

	// 5. Создаём и инициализируем RunState (валидация, DAG)
	state := NewRunState(run, version)
	if err := state.Initialize(); err != nil {
		return o.failRun(ctx, run, fmt.Sprintf("initialization failed: %v", err))
	}

	// 6. Добавляем в активные runs
	if err := o.addActiveRun(state); err != nil {
		return err
	}

	// 7. Переводим run в RUNNING
	run.MarkRunning()
	if err := o.runRepo.Update(ctx, run); err != nil {
		o.removeActiveRun(runID)
		return fmt.Errorf("update run to running: %w", err)
	}

	o.logger.Info("run started",
		"run_id", runID,
		"pipeline_id", run.PipelineID,
		"version", run.Version,
		"branch", run.Event.Branch,
		"jobs", state.DAG.Size(),
	)

	// 8. Запускаем готовые jobs
	if err := o.dispatchReadyJobs(ctx, state); err != nil {
		o.logger.Error("failed to dispatch initial jobs", "run_id", runID, "error", err)
		// Не удаляем из активных — попробуем при следующем событии
	}

	return nil
}

// supersedeStaleRuns отменяет незавершённые runs того же pipeline
// и той же ветки, созданные раньше нового.
func (o *Orchestrator) supersedeStaleRuns(ctx context.Context, run *domain.Run) error {
	stale, err := o.runRepo.ListActiveForBranch(ctx, run.PipelineID, run.Event.Branch, run.CreatedAt, run.ID)
	if err != nil {
		return fmt.Errorf("list stale runs: %w", err)
	}

	for i := range stale {
		old := &stale[i]
		reason := fmt.Sprintf("superseded by run %s", run.ID)

		if err := o.cancelRun(ctx, old, reason); err != nil {
			o.logger.Error("failed to cancel stale run",
				"run_id", old.ID,
				"error", err,
			)
			continue
		}

		o.logger.Info("run superseded",
			"run_id", old.ID,
			"superseded_by", run.ID,
			"branch", run.Event.Branch,
		)
	}

	return nil
}

// cancelRun отменяет run: сам run и все его PENDING jobs переходят
// в CANCELLED. Уже выполненные jobs не трогаются — их side effects
// не откатываются.
func (o *Orchestrator) cancelRun(ctx context.Context, run *domain.Run, reason string) error {
	run.MarkCancelled(reason)
	if err := o.runRepo.Update(ctx, run); err != nil {
		return fmt.Errorf("update run to cancelled: %w", err)
	}

	if err := o.jobRepo.CancelPending(ctx, run.ID); err != nil {
		return fmt.Errorf("cancel pending jobs: %w", err)
	}

	o.removeActiveRun(run.ID)
	telemetry.RunsTotal.WithLabelValues(string(domain.RunStatusCancelled)).Inc()

	return nil
}

// CancelRun отменяет run по запросу оператора.
func (o *Orchestrator) CancelRun(ctx context.Context, runID uuid.UUID, reason string) error {
	run, err := o.runRepo.GetByID(ctx, runID)
	if err != nil {
		return err
	}
	if run.IsFinished() {
		return repo.ErrInvalidState
	}
	return o.cancelRun(ctx, run, reason)
}

// processJobCompleted обрабатывает завершение job.
func (o *Orchestrator) processJobCompleted(ctx context.Context, payload mq.JobCompletedPayload) error {
	// 1. Получаем активный RunState; после рестарта восстанавливаем
	state := o.getActiveRun(payload.RunID)
	if state == nil {
		var err error
		state, err = o.restoreRunState(ctx, payload.RunID)
		if err != nil {
			return fmt.Errorf("restore run state: %w", err)
		}
		if state == nil {
			// Run уже завершён (в т.ч. отменён) или не существует
			o.logger.Debug("run not active and cannot restore", "run_id", payload.RunID)
			return nil
		}
	}

	// 2. Обновляем состояние job
	name := payload.JobName
	telemetry.JobsTotal.WithLabelValues(payload.Status).Inc()

	switch domain.JobStatus(payload.Status) {
	case domain.JobStatusSucceeded:
		state.MarkJobSucceeded(name)
		o.logger.Debug("job succeeded",
			"run_id", payload.RunID,
			"job", name,
		)

	case domain.JobStatusCancelled:
		state.MarkJobCancelled(name)

	default:
		// Job failed: помечаем и пропускаем весь его downstream
		state.MarkJobFailed(name)
		o.logger.Warn("job failed",
			"run_id", payload.RunID,
			"job", name,
			"error", payload.Error,
		)

		if err := o.skipDownstream(ctx, state, name); err != nil {
			return fmt.Errorf("skip downstream of %s: %w", name, err)
		}
	}

	// 3. Проверяем завершение run
	if state.IsComplete() {
		return o.completeRun(ctx, state)
	}

	// 4. Запускаем следующие готовые jobs
	return o.dispatchReadyJobs(ctx, state)
}

// skipDownstream помечает SKIPPED все jobs, транзитивно зависящие
// от упавшего. Пропуск — терминальный статус: job не выполнялся
// и выполняться не будет.
func (o *Orchestrator) skipDownstream(ctx context.Context, state *RunState, failedJob string) error {
	for _, name := range state.DAG.Downstream(failedJob) {
		if state.IsJobStarted(name) {
			continue
		}

		node := state.DAG.GetNode(name)
		job := &domain.JobRun{
			ID:        uuid.New(),
			RunID:     state.RunID(),
			Name:      name,
			Kind:      node.Job.Kind,
			Status:    domain.JobStatusPending,
			CreatedAt: time.Now(),
		}
		job.MarkSkipped(failedJob)

		if err := o.jobRepo.Create(ctx, job); err != nil {
			return fmt.Errorf("create skipped job %s: %w", name, err)
		}

		state.MarkJobSkipped(name, job)
		telemetry.JobsTotal.WithLabelValues(string(domain.JobStatusSkipped)).Inc()

		o.logger.Debug("job skipped",
			"run_id", state.RunID(),
			"job", name,
			"upstream", failedJob,
		)
	}

	return nil
}

// dispatchReadyJobs создаёт job runs для готовых jobs и публикует их.
func (o *Orchestrator) dispatchReadyJobs(ctx context.Context, state *RunState) error {
	ready := state.ReadyJobs()
	if len(ready) == 0 {
		return nil
	}

	o.logger.Debug("dispatching ready jobs",
		"run_id", state.RunID(),
		"count", len(ready),
	)

	for _, node := range ready {
		if err := o.dispatchJob(ctx, state, node); err != nil {
			o.logger.Error("failed to dispatch job",
				"run_id", state.RunID(),
				"job", node.Name,
				"error", err,
			)
			// Продолжаем с другими jobs
		}
	}

	return nil
}

// dispatchJob создаёт job run и публикует его для воркеров.
func (o *Orchestrator) dispatchJob(ctx context.Context, state *RunState, node *engine.Node) error {
	job := &domain.JobRun{
		ID:        uuid.New(),
		RunID:     state.RunID(),
		Name:      node.Name,
		Kind:      node.Job.Kind,
		Status:    domain.JobStatusPending,
		CreatedAt: time.Now(),
	}

	if err := o.jobRepo.Create(ctx, job); err != nil {
		return fmt.Errorf("create job: %w", err)
	}

	state.MarkJobRunning(node.Name, job)

	if err := o.publisher.PublishJobReady(ctx, job.ID, job.RunID); err != nil {
		o.logger.Warn("failed to publish job.ready",
			"job_id", job.ID,
			"run_id", state.RunID(),
			"error", err,
		)
		// Job создан в БД — Worker заберёт его через polling
	}

	o.logger.Debug("job dispatched",
		"job_id", job.ID,
		"run_id", state.RunID(),
		"job", node.Name,
		"kind", node.Job.Kind,
	)

	return nil
}

// completeRun финализирует run.
//
// Run успешен, только если ни один job не FAILED; иначе run FAILED
// с указанием job-причины.
func (o *Orchestrator) completeRun(ctx context.Context, state *RunState) error {
	run := state.Run

	if state.HasFailed() {
		failed := state.FailedJobs()
		cause := failed[0]
		run.MarkFailed(fmt.Sprintf("job %q failed", cause))
		o.logger.Warn("run failed",
			"run_id", run.ID,
			"cause", cause,
			"failed_jobs", failed,
			"duration", run.Duration(),
		)
	} else {
		run.MarkSucceeded()
		o.logger.Info("run succeeded",
			"run_id", run.ID,
			"duration", run.Duration(),
		)
	}

	if err := o.runRepo.Update(ctx, run); err != nil {
		return fmt.Errorf("update run status: %w", err)
	}

	telemetry.RunsTotal.WithLabelValues(string(run.Status)).Inc()
	telemetry.RunDurationSeconds.Observe(run.Duration().Seconds())

	o.removeActiveRun(run.ID)

	return nil
}

// failRun переводит run в статус FAILED до начала выполнения jobs.
func (o *Orchestrator) failRun(ctx context.Context, run *domain.Run, errMsg string) error {
	run.MarkFailed(errMsg)

	if err := o.runRepo.Update(ctx, run); err != nil {
		return fmt.Errorf("update run to failed: %w", err)
	}

	telemetry.RunsTotal.WithLabelValues(string(domain.RunStatusFailed)).Inc()

	o.logger.Warn("run failed early",
		"run_id", run.ID,
		"error", errMsg,
	)

	return fmt.Errorf("run failed: %s", errMsg)
}

// restoreRunState восстанавливает RunState из БД.
// Используется, когда job.completed приходит для run, которого нет
// в памяти (после рестарта Orchestrator).
func (o *Orchestrator) restoreRunState(ctx context.Context, runID uuid.UUID) (*RunState, error) {
	run, err := o.runRepo.GetByID(ctx, runID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, nil // Run не существует
		}
		return nil, fmt.Errorf("get run: %w", err)
	}

	if run.IsFinished() {
		return nil, nil
	}

	version, err := o.pipelineRepo.GetVersion(ctx, run.PipelineID, run.Version)
	if err != nil {
		return nil, fmt.Errorf("get pipeline version: %w", err)
	}

	state := NewRunState(run, version)
	if err := state.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize state: %w", err)
	}

	jobs, err := o.jobRepo.ListByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	state.RestoreFromJobs(jobs)

	if err := o.addActiveRun(state); err != nil {
		if errors.Is(err, ErrRunAlreadyActive) {
			// Кто-то уже восстановил — возвращаем его
			return o.getActiveRun(runID), nil
		}
		return nil, err
	}

	o.logger.Info("run state restored",
		"run_id", runID,
		"stats", state.Stats(),
	)

	return state, nil
}
