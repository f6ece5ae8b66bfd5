package domain

// EventKind — вид входящего события.
type EventKind string

const (
	// EventKindPullRequest — pull request в целевую ветку.
	EventKindPullRequest EventKind = "pull_request"

	// EventKindPush — push в ветку.
	EventKindPush EventKind = "push"

	// EventKindManual — ручной запуск оператором.
	// Manual-триггеры совпадают независимо от изменённых путей.
	EventKindManual EventKind = "manual"

	// EventKindSchedule — запуск по расписанию (cron).
	EventKindSchedule EventKind = "schedule"
)

// IsValid возвращает true для известного вида события.
func (k EventKind) IsValid() bool {
	switch k {
	case EventKindPullRequest, EventKindPush, EventKindManual, EventKindSchedule:
		return true
	default:
		return false
	}
}

// Event — входящее событие, потенциально активирующее pipelines.
//
// Сопоставление события с триггерами — чистая функция от
// (kind, branch, changed_paths): повторная оценка того же события
// даёт тот же набор совпавших pipelines.
type Event struct {
	// Kind — вид события.
	Kind EventKind `json:"kind"`

	// Branch — целевая ветка.
	Branch string `json:"branch"`

	// ChangedPaths — список изменённых путей (для pull_request/push).
	ChangedPaths []string `json:"changed_paths,omitempty"`

	// Revision — хэш ревизии исходников (например, git SHA).
	// Становится неизменяемым тегом опубликованного артефакта.
	Revision string `json:"revision"`

	// RunKey — внешний идентификатор запуска (тег <run-id> артефакта).
	// Если пуст, Conveyor назначает свой.
	RunKey string `json:"run_id,omitempty"`
}
