package worker

import "errors"

// Ошибки воркера.
var (
	// ErrJobNotFound — job не найден в БД.
	ErrJobNotFound = errors.New("job not found")

	// ErrJobNotPending — job не в статусе PENDING.
	ErrJobNotPending = errors.New("job is not in PENDING status")

	// ErrUnknownJobKind — для вида job не зарегистрирован executor.
	ErrUnknownJobKind = errors.New("unknown job kind")

	// ErrJobDefMissing — в спецификации версии нет определения job.
	ErrJobDefMissing = errors.New("job definition missing from spec")

	// ErrRunCancelled — run отменён, job выполняться не будет.
	ErrRunCancelled = errors.New("run is cancelled")
)
