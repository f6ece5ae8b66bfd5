package rollout

import "errors"

// Ошибки rollout.
var (
	// ErrRolloutStalled — новая реплика не стала готовой в пределах
	// бюджета повторов; выкатка остановлена.
	ErrRolloutStalled = errors.New("rollout stalled")

	// ErrNoHistory — у deployment'а нет записи, к которой можно
	// откатиться.
	ErrNoHistory = errors.New("no rollout history to roll back to")

	// ErrNoReplicas — deployment не имеет ни одной реплики.
	ErrNoReplicas = errors.New("deployment has no replicas")
)
