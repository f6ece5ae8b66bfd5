package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/conveyor-ci/conveyor/internal/domain"
	"github.com/conveyor-ci/conveyor/internal/engine"
	"github.com/conveyor-ci/conveyor/internal/repo"
)

// SubmitEvent принимает входящее событие и сопоставляет его с активными
// pipelines (Trigger Evaluator).
//
// Для каждого pipeline событие сверяется с триггерами его последней
// версии; при совпадении создаётся ровно один run, сколько бы триггеров
// ни совпало. Несопоставленное событие — не ошибка: ответ 200 с
// пустым списком runs.
//
// POST /api/v1/events
func (h *Handler) SubmitEvent(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	event := domain.Event{
		Kind:         domain.EventKind(req.Kind),
		Branch:       req.Branch,
		ChangedPaths: req.ChangedPaths,
		Revision:     req.Revision,
		RunKey:       req.RunID,
	}

	if !event.Kind.IsValid() {
		BadRequest(w, "unknown event kind: "+req.Kind)
		return
	}

	pipelines, err := h.pipelineRepo.ListActive(r.Context())
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	resp := EventResponse{Runs: []RunResponse{}}

	for i := range pipelines {
		pipeline := &pipelines[i]

		run, err := h.evaluatePipeline(r, pipeline, &event)
		if err != nil {
			h.logger.Error("failed to evaluate pipeline for event",
				"pipeline_id", pipeline.ID,
				"error", err,
			)
			// Ошибка одного pipeline не блокирует остальные
			continue
		}
		if run == nil {
			continue
		}

		resp.Matched++
		resp.Runs = append(resp.Runs, RunFromDomain(*run))
	}

	h.logger.Info("event processed",
		"kind", event.Kind,
		"branch", event.Branch,
		"matched", resp.Matched,
	)

	Success(w, resp)
}

// evaluatePipeline сверяет событие с последней версией pipeline
// и создаёт run при совпадении. Возвращает nil без ошибки, если
// событие не сопоставлено.
func (h *Handler) evaluatePipeline(r *http.Request, pipeline *domain.Pipeline, event *domain.Event) (*domain.Run, error) {
	ctx := r.Context()

	version, err := h.pipelineRepo.GetLatestVersion(ctx, pipeline.ID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			// Pipeline без версий не участвует в сопоставлении
			return nil, nil
		}
		return nil, err
	}

	if !engine.MatchesEvent(&version.Spec, event) {
		return nil, nil
	}

	return h.createRun(ctx, pipeline.ID, version.Version, *event)
}

// newRunForEvent строит run для сопоставленного события.
//
// Внешний run_id события становится run-key (им тегируются артефакты);
// без него Conveyor назначает свой.
func newRunForEvent(pipelineID uuid.UUID, version int, event domain.Event) *domain.Run {
	runID := uuid.New()

	runKey := event.RunKey
	if runKey == "" {
		runKey = domain.NewRunKey(runID)
	}

	return &domain.Run{
		ID:         runID,
		PipelineID: pipelineID,
		Version:    version,
		Status:     domain.RunStatusPending,
		Event:      event,
		RunKey:     runKey,
		CreatedAt:  time.Now(),
	}
}

// createRun создаёт run и публикует run.pending.
func (h *Handler) createRun(ctx context.Context, pipelineID uuid.UUID, version int, event domain.Event) (*domain.Run, error) {
	run := newRunForEvent(pipelineID, version, event)

	if err := h.runRepo.Create(ctx, run); err != nil {
		return nil, err
	}

	h.logger.Info("run created",
		"run_id", run.ID,
		"pipeline_id", pipelineID,
		"version", version,
		"kind", event.Kind,
		"branch", event.Branch,
	)

	if h.publisher != nil {
		if err := h.publisher.PublishRunPending(ctx, run.ID); err != nil {
			// Run уже в БД — Orchestrator заберёт его через polling
			h.logger.Warn("failed to publish run.pending",
				"run_id", run.ID,
				"error", err,
			)
		}
	}

	return run, nil
}
