package worker

import (
	"context"
	"log/slog"
)

// GateExecutor выполняет гейтовые jobs (lint, test).
//
// Гейт — это просто steps с exit-статусами: успех всех steps открывает
// дорогу downstream jobs, первый отказ роняет job.
type GateExecutor struct {
	// Workspace — рабочая директория steps.
	Workspace string

	// Cache — менеджер кэшей (опционально).
	Cache *CacheManager

	Logger *slog.Logger
}

// Execute выполняет steps job'а.
func (e *GateExecutor) Execute(ctx context.Context, req *Request) (*Result, error) {
	env := make(map[string]string, len(req.Def.Env)+2)
	for k, v := range req.Def.Env {
		env[k] = v
	}

	// Кэш подключается через окружение: steps читают CACHE_DIR.
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
			e.Logger.Debug("cache resolved",
				"job", req.Job.Name,
				"key", key,
				"hit", e.Cache.Exists(key),
			)
		}
	}

	runner := &StepRunner{
		Dir: e.Workspace,
		Env: env,
	}

	log, err := runner.Run(ctx, stepsFromDef(req.Def.Steps))
	return &Result{Log: log}, err
}
