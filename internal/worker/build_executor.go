package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/conveyor-ci/conveyor/internal/domain"
	"github.com/conveyor-ci/conveyor/internal/registry"
	"github.com/conveyor-ci/conveyor/internal/telemetry"
)

// BuildExecutor выполняет build jobs: steps собирают артефакт,
// затем его содержимое публикуется в registry.
//
// Публикация атомарна относительно потребителей: содержимое пушится
// до назначения тегов, "latest" перенацеливается последним. Упавший
// push не оставляет ни одного нового тега.
type BuildExecutor struct {
	// Workspace — рабочая директория steps.
	Workspace string

	// Cache — менеджер кэшей (опционально).
	Cache *CacheManager

	// Publisher — публикатор артефактов.
	Publisher *registry.Publisher

	Logger *slog.Logger
}

// Execute выполняет steps и публикует артефакт.
func (e *BuildExecutor) Execute(ctx context.Context, req *Request) (*Result, error) {
	env := make(map[string]string, len(req.Def.Env)+2)
	for k, v := range req.Def.Env {
		env[k] = v
	}

	if req.Def.Cache != nil && e.Cache != nil {
		key, err := e.Cache.Key(resolvePath(e.Workspace, req.Def.Cache.Manifest))
		if err != nil {
			e.Logger.Warn("cache manifest unavailable, running without cache",
				"job", req.Job.Name,
				"manifest", req.Def.Cache.Manifest,
				"error", err,
			)
		} else {
			env["CACHE_KEY"] = key
			env["CACHE_DIR"] = e.Cache.Path(key)
		}
	}

	runner := &StepRunner{
		Dir: e.Workspace,
		Env: env,
	}

	log, err := runner.Run(ctx, stepsFromDef(req.Def.Steps))
	if err != nil {
		return &Result{Log: log}, err
	}

	// Steps успешны — публикуем собранное содержимое.
	artifact, err := e.publish(ctx, req)
	if err != nil {
		telemetry.ArtifactPublishesTotal.WithLabelValues("failure").Inc()
		return &Result{Log: log}, err
	}
	telemetry.ArtifactPublishesTotal.WithLabelValues("success").Inc()

	log += fmt.Sprintf("--- artifact published: %s (%s) tags=%v ---\n",
		artifact.Name, artifact.Digest, artifact.Tags)

	return &Result{Log: log}, nil
}

// publish читает собранное содержимое и публикует его с тегами сборки.
func (e *BuildExecutor) publish(ctx context.Context, req *Request) (*domain.Artifact, error) {
	def := req.Def.Artifact

	content, err := os.ReadFile(resolvePath(e.Workspace, def.Path))
	if err != nil {
		return nil, fmt.Errorf("read artifact content %s: %w", def.Path, err)
	}

	return e.Publisher.Publish(ctx, def.Name, content, req.Run.RunKey, req.Run.Event.Revision)
}
