package engine

import "errors"

// Ошибки валидации спецификации pipeline.
var (
	// ErrNoJobs — спецификация не содержит jobs.
	ErrNoJobs = errors.New("pipeline spec has no jobs")

	// ErrNoTriggers — спецификация не содержит триггеров.
	ErrNoTriggers = errors.New("pipeline spec has no triggers")

	// ErrEmptyJobName — job с пустым именем.
	ErrEmptyJobName = errors.New("job has empty name")

	// ErrUnknownJobKind — неизвестный вид job.
	ErrUnknownJobKind = errors.New("unknown job kind")

	// ErrNoSteps — job без steps (для gate и build).
	ErrNoSteps = errors.New("job has no steps")

	// ErrMissingDependency — job зависит от несуществующего job.
	ErrMissingDependency = errors.New("job needs unknown job")

	// ErrSelfDependency — job зависит от самого себя.
	ErrSelfDependency = errors.New("job needs itself")

	// ErrCyclicDependency — обнаружен цикл в графе needs.
	ErrCyclicDependency = errors.New("cyclic dependency detected")

	// ErrMissingArtifact — build job без секции artifact.
	ErrMissingArtifact = errors.New("build job has no artifact")

	// ErrMissingDeployment — deploy job без целевого deployment.
	ErrMissingDeployment = errors.New("deploy job has no deployment")
)

// Ошибки валидации триггеров.
var (
	// ErrUnknownEventKind — неизвестный вид события в триггере.
	ErrUnknownEventKind = errors.New("unknown event kind")

	// ErrBadBranchPattern — некорректный glob-паттерн ветки.
	ErrBadBranchPattern = errors.New("malformed branch pattern")

	// ErrBadCronExpr — некорректное cron-выражение schedule-триггера.
	ErrBadCronExpr = errors.New("malformed cron expression")

	// ErrMissingCronExpr — schedule-триггер без cron-выражения.
	ErrMissingCronExpr = errors.New("schedule trigger has no cron expression")
)

// DefinitionError — ошибка определения pipeline с контекстом.
//
// Фатальна при загрузке; выполнение с такой спецификацией не начинается.
type DefinitionError struct {
	Job     string // имя job, где произошла ошибка (может быть пустым)
	Field   string // поле, вызвавшее ошибку
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *DefinitionError) Error() string {
	if e.Job != "" {
		return "job " + e.Job + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *DefinitionError) Unwrap() error {
	return e.Err
}

// NewDefinitionError создаёт новую ошибку определения.
func NewDefinitionError(job, field, message string, err error) *DefinitionError {
	return &DefinitionError{
		Job:     job,
		Field:   field,
		Message: message,
		Err:     err,
	}
}
