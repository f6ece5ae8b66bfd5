package domain

// RunStatus — статус выполнения run.
//
// Жизненный цикл:
//
//	PENDING → RUNNING → SUCCEEDED
//	                  ↘ FAILED (хотя бы один job упал)
//	          (или) → CANCELLED (run вытеснен более новым или отменён оператором)
type RunStatus string

const (
	// RunStatusPending — run создан, но оркестратор ещё не начал его обработку.
	RunStatusPending RunStatus = "PENDING"

	// RunStatusRunning — run в процессе выполнения.
	RunStatusRunning RunStatus = "RUNNING"

	// RunStatusSucceeded — все jobs завершились успешно (или не планировались).
	RunStatusSucceeded RunStatus = "SUCCEEDED"

	// RunStatusFailed — хотя бы один job завершился с ошибкой.
	RunStatusFailed RunStatus = "FAILED"

	// RunStatusCancelled — run отменён (вытеснен или остановлен вручную).
	RunStatusCancelled RunStatus = "CANCELLED"
)

// IsTerminal возвращает true, если статус финальный (run завершён).
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusSucceeded, RunStatusFailed, RunStatusCancelled:
		return true
	default:
		return false
	}
}

// JobStatus — статус выполнения job внутри run.
//
// Жизненный цикл:
//
//	PENDING → RUNNING → SUCCEEDED
//	                  ↘ FAILED (первый step с ненулевым exit-статусом)
//	PENDING → SKIPPED (зависимость упала или была пропущена; steps не выполняются)
//	PENDING → CANCELLED (run вытеснен)
type JobStatus string

const (
	// JobStatusPending — job ожидает выполнения своих зависимостей.
	JobStatusPending JobStatus = "PENDING"

	// JobStatusRunning — job выполняется воркером.
	JobStatusRunning JobStatus = "RUNNING"

	// JobStatusSucceeded — все steps завершились успешно.
	JobStatusSucceeded JobStatus = "SUCCEEDED"

	// JobStatusFailed — step завершился с ненулевым exit-статусом
	// или публикация артефакта / rollout не удались.
	JobStatusFailed JobStatus = "FAILED"

	// JobStatusSkipped — job не выполнялся: upstream-зависимость
	// завершилась с FAILED или SKIPPED. Это не ошибка самого job.
	JobStatusSkipped JobStatus = "SKIPPED"

	// JobStatusCancelled — job не выполнялся из-за отмены run.
	JobStatusCancelled JobStatus = "CANCELLED"
)

// IsTerminal возвращает true, если статус финальный.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusSucceeded, JobStatusFailed, JobStatusSkipped, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// RolloutState — состояние rollout'а deployment'а.
//
//	STABLE → ROLLING_OUT → STABLE (новый ref)
//	                     ↘ STALLED (readiness не достигнута в рамках retry-бюджета)
//	STALLED → STABLE (предыдущий ref) — только через явный Rollback.
type RolloutState string

const (
	// RolloutStateStable — все реплики работают на одном ref.
	RolloutStateStable RolloutState = "STABLE"

	// RolloutStateRollingOut — идёт прогрессивная замена реплик.
	RolloutStateRollingOut RolloutState = "ROLLING_OUT"

	// RolloutStateStalled — rollout застрял: новые реплики не проходят
	// readiness. Deployment в смешанном состоянии, требуется вмешательство
	// оператора (Rollback). Автоматического отката нет.
	RolloutStateStalled RolloutState = "STALLED"
)
