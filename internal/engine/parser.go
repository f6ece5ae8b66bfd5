package engine

import (
	"fmt"

	"github.com/conveyor-ci/conveyor/internal/domain"
)

// Допустимые виды jobs.
var validJobKinds = map[domain.JobKind]bool{
	domain.JobKindGate:   true,
	domain.JobKindBuild:  true,
	domain.JobKindDeploy: true,
}

// Validate выполняет полную валидацию спецификации pipeline.
//
// Проверяет:
// - Наличие триггеров и их корректность (вид события, glob ветки, cron)
// - Наличие jobs, их виды и steps
// - Валидность зависимостей (needs) и отсутствие циклов (делегируется DAG)
// - Обязательные секции по виду job (artifact для build, deployment для deploy)
//
// Любая найденная проблема — DefinitionError: фатальная при загрузке,
// никогда не всплывающая в середине запуска.
func Validate(spec *domain.PipelineSpec) error {
	if spec == nil || len(spec.Jobs) == 0 {
		return ErrNoJobs
	}

	if len(spec.Triggers) == 0 {
		return ErrNoTriggers
	}

	for i := range spec.Triggers {
		if err := ValidateTrigger(&spec.Triggers[i]); err != nil {
			return err
		}
	}

	for name, job := range spec.Jobs {
		if err := validateJob(name, &job); err != nil {
			return err
		}
	}

	// Неизвестные needs и циклы проверяет построение DAG.
	if _, err := BuildDAG(spec); err != nil {
		return err
	}

	return nil
}

// validateJob валидирует одно определение job.
func validateJob(name string, job *domain.JobDef) error {
	if name == "" {
		return NewDefinitionError("", "name", "job has empty name", ErrEmptyJobName)
	}

	if !validJobKinds[job.Kind] {
		return NewDefinitionError(name, "kind",
			fmt.Sprintf("unknown job kind: %q", job.Kind), ErrUnknownJobKind)
	}

	// deploy jobs могут обходиться без steps: их работа — rollout.
	if job.Kind != domain.JobKindDeploy && len(job.Steps) == 0 {
		return NewDefinitionError(name, "steps", "job has no steps", ErrNoSteps)
	}

	for i, step := range job.Steps {
		if step.Run == "" {
			return NewDefinitionError(name, "steps",
				fmt.Sprintf("step %d has empty run command", i), ErrNoSteps)
		}
	}

	for _, dep := range job.Needs {
		if dep == name {
			return NewDefinitionError(name, "needs", "job needs itself", ErrSelfDependency)
		}
	}

	switch job.Kind {
	case domain.JobKindBuild:
		if job.Artifact == nil || job.Artifact.Name == "" || job.Artifact.Path == "" {
			return NewDefinitionError(name, "artifact",
				"build job requires artifact name and path", ErrMissingArtifact)
		}
	case domain.JobKindDeploy:
		if job.Deployment == "" {
			return NewDefinitionError(name, "deployment",
				"deploy job requires a target deployment", ErrMissingDeployment)
		}
		if job.Artifact == nil || job.Artifact.Name == "" {
			return NewDefinitionError(name, "artifact",
				"deploy job requires the artifact name to roll out", ErrMissingArtifact)
		}
	}

	return nil
}
