package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/conveyor-ci/conveyor/internal/domain"
	"github.com/conveyor-ci/conveyor/internal/mq"
	"github.com/conveyor-ci/conveyor/internal/repo"
)

// handleJobReady обрабатывает событие о новом job из очереди jobs.ready.
func (w *Worker) handleJobReady(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.JobReadyPayload](&delivery.Message)
	if err != nil {
		w.logger.Error("failed to parse job.ready payload", "error", err)
		return err
	}

	w.logger.Debug("received job.ready event",
		"job_id", payload.JobID,
		"run_id", payload.RunID,
	)

	if err := w.processJob(ctx, payload.JobID); err != nil {
		// Ожидаемые ситуации — не возвращаем ошибку (ack)
		if errors.Is(err, ErrJobNotFound) || errors.Is(err, ErrJobNotPending) ||
			errors.Is(err, ErrRunCancelled) {
			w.logger.Debug("job not processed", "job_id", payload.JobID, "reason", err)
			return nil
		}
		w.logger.Error("failed to process job", "job_id", payload.JobID, "error", err)
		return err
	}

	return nil
}

// processJob загружает job из БД, выполняет и обрабатывает результат.
func (w *Worker) processJob(ctx context.Context, jobID uuid.UUID) error {
	// 1. Загружаем job из БД
	job, err := w.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
		}
		return fmt.Errorf("get job: %w", err)
	}

	// 2. Проверяем статус
	if job.Status != domain.JobStatusPending {
		return ErrJobNotPending
	}

	// 3. Загружаем run; отменённый run — job не выполняется
	run, err := w.runRepo.GetByID(ctx, job.RunID)
	if err != nil {
		return fmt.Errorf("get run: %w", err)
	}

	if run.Status == domain.RunStatusCancelled {
		job.MarkCancelled()
		if err := w.jobRepo.Update(ctx, job); err != nil {
			return fmt.Errorf("update job to cancelled: %w", err)
		}
		w.publishCompletion(ctx, job, "")
		return ErrRunCancelled
	}

	// 4. Загружаем определение job из спецификации версии
	def, err := w.lookupJobDef(ctx, run, job.Name)
	if err != nil {
		return w.failJob(ctx, job, "", err)
	}

	// 5. Помечаем как running
	job.MarkRunning()
	if err := w.jobRepo.Update(ctx, job); err != nil {
		return fmt.Errorf("update job to running: %w", err)
	}

	w.logger.Info("job started",
		"job_id", job.ID,
		"run_id", job.RunID,
		"job", job.Name,
		"kind", job.Kind,
	)

	// 6. Выполняем
	executor, err := w.registry.Get(job.Kind)
	if err != nil {
		return w.failJob(ctx, job, "", err)
	}

	result, execErr := executor.Execute(ctx, &Request{
		Run: run,
		Job: job,
		Def: def,
	})

	log := ""
	if result != nil {
		log = result.Log
	}

	// 7. Обрабатываем результат
	if execErr != nil {
		return w.failJob(ctx, job, log, execErr)
	}

	job.MarkSucceeded(log)
	if err := w.jobRepo.Update(ctx, job); err != nil {
		return fmt.Errorf("update job to succeeded: %w", err)
	}

	w.logger.Info("job succeeded",
		"job_id", job.ID,
		"run_id", job.RunID,
		"job", job.Name,
		"duration", job.Duration(),
	)

	w.publishCompletion(ctx, job, "")
	return nil
}

// failJob переводит job в FAILED и публикует завершение.
func (w *Worker) failJob(ctx context.Context, job *domain.JobRun, log string, execErr error) error {
	errMsg := execErr.Error()

	job.MarkFailed(errMsg, log)
	if err := w.jobRepo.Update(ctx, job); err != nil {
		return fmt.Errorf("update job to failed: %w", err)
	}

	w.logger.Warn("job failed",
		"job_id", job.ID,
		"run_id", job.RunID,
		"job", job.Name,
		"error", errMsg,
	)

	w.publishCompletion(ctx, job, errMsg)
	return nil
}

// publishCompletion публикует событие job.completed.
func (w *Worker) publishCompletion(ctx context.Context, job *domain.JobRun, errMsg string) {
	if w.publisher == nil {
		w.logger.Warn("publisher not available, skipping job.completed publish",
			"job_id", job.ID,
		)
		return
	}

	payload := mq.JobCompletedPayload{
		JobID:   job.ID,
		RunID:   job.RunID,
		JobName: job.Name,
		Status:  string(job.Status),
		Error:   errMsg,
	}

	if err := w.publisher.PublishJobCompleted(ctx, payload); err != nil {
		w.logger.Warn("failed to publish job.completed",
			"job_id", job.ID,
			"error", err,
		)
		// Не фатально — job обновлён в БД, оркестратор подхватит через polling
	}
}

// lookupJobDef находит определение job в спецификации версии запуска.
func (w *Worker) lookupJobDef(ctx context.Context, run *domain.Run, jobName string) (*domain.JobDef, error) {
	version, err := w.pipelineRepo.GetVersion(ctx, run.PipelineID, run.Version)
	if err != nil {
		return nil, fmt.Errorf("get pipeline version: %w", err)
	}

	def, ok := version.Spec.Jobs[jobName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobDefMissing, jobName)
	}
	return &def, nil
}
