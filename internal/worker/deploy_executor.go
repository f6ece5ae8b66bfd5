package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/conveyor-ci/conveyor/internal/registry"
	"github.com/conveyor-ci/conveyor/internal/rollout"
	"github.com/conveyor-ci/conveyor/internal/telemetry"
)

// DeployExecutor выполняет deploy jobs: разрешает артефакт в content-ref
// и прогрессивно выкатывает его на целевой deployment.
//
// Stalled rollout — отказ job'а; автоматического отката нет.
type DeployExecutor struct {
	// Registry — для разрешения тега в content-ref.
	Registry registry.Registry

	// Controller — контроллер прогрессивной выкатки.
	Controller *rollout.Controller

	// Workspace — рабочая директория pre-deploy steps.
	Workspace string

	Logger *slog.Logger
}

// Execute выполняет deploy job.
func (e *DeployExecutor) Execute(ctx context.Context, req *Request) (*Result, error) {
	// Pre-deploy steps (миграции, smoke-подготовка) — опциональны.
	var log string
	if len(req.Def.Steps) > 0 {
		runner := &StepRunner{
			Dir: e.Workspace,
			Env: req.Def.Env,
		}
		var err error
		log, err = runner.Run(ctx, stepsFromDef(req.Def.Steps))
		if err != nil {
			return &Result{Log: log}, err
		}
	}

	ref, err := e.resolveRef(ctx, req)
	if err != nil {
		return &Result{Log: log}, err
	}

	result, err := e.Controller.Deploy(ctx, req.Def.Deployment, ref)
	if result != nil {
		telemetry.RolloutsTotal.WithLabelValues(string(result.State)).Inc()
		log += fmt.Sprintf("--- rollout %s: deployment=%s ref=%s replaced=%d ---\n",
			result.State, result.Deployment, result.Ref, result.Replaced)
	}
	if err != nil {
		return &Result{Log: log}, fmt.Errorf("deploy %s: %w", req.Def.Deployment, err)
	}

	return &Result{Log: log}, nil
}

// resolveRef разрешает артефакт запуска в content-ref.
//
// Сначала тег ревизии события, затем тег run-key: build job этого же
// запуска назначил оба на одно содержимое.
func (e *DeployExecutor) resolveRef(ctx context.Context, req *Request) (string, error) {
	name := req.Def.Artifact.Name

	if rev := req.Run.Event.Revision; rev != "" {
		ref, err := e.Registry.Resolve(ctx, name, rev)
		if err == nil {
			return ref, nil
		}
		if !errors.Is(err, registry.ErrTagNotFound) {
			return "", fmt.Errorf("resolve %s:%s: %w", name, rev, err)
		}
	}

	ref, err := e.Registry.Resolve(ctx, name, req.Run.RunKey)
	if err != nil {
		return "", fmt.Errorf("resolve %s:%s: %w", name, req.Run.RunKey, err)
	}
	return ref, nil
}
