package engine

import (
	"fmt"
	"path"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/conveyor-ci/conveyor/internal/domain"
)

// cronParser — парсер cron-выражений schedule-триггеров.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateTrigger проверяет корректность триггера при загрузке.
//
// Кривой glob-паттерн ветки или cron-выражение — ошибка определения:
// она обнаруживается до обработки какого-либо события, Matches никогда
// не сталкивается с невалидным паттерном.
func ValidateTrigger(t *domain.TriggerDef) error {
	if !t.Kind.IsValid() {
		return NewDefinitionError("", "triggers",
			fmt.Sprintf("unknown event kind: %q", t.Kind), ErrUnknownEventKind)
	}

	if t.Branch != "" {
		if _, err := path.Match(t.Branch, "x"); err != nil {
			return NewDefinitionError("", "triggers",
				fmt.Sprintf("malformed branch pattern: %q", t.Branch), ErrBadBranchPattern)
		}
	}

	if t.Kind == domain.EventKindSchedule {
		if t.Cron == "" {
			return NewDefinitionError("", "triggers",
				"schedule trigger requires a cron expression", ErrMissingCronExpr)
		}
		if _, err := cronParser.Parse(t.Cron); err != nil {
			return NewDefinitionError("", "triggers",
				fmt.Sprintf("malformed cron expression: %q", t.Cron), ErrBadCronExpr)
		}
	}

	return nil
}

// Matches проверяет, совпадает ли триггер с событием.
//
// Чистая функция от (kind, branch, changed_paths): повторная оценка
// того же события всегда даёт тот же результат. Триггер обязан быть
// провалидирован при загрузке.
//
// Триггер совпадает, если:
// - вид события равен виду триггера
// - ветка события удовлетворяет glob-паттерну (пустой паттерн — любая)
// - пути-фильтры пусты ИЛИ хотя бы один изменённый путь совпал с префиксом;
//   manual- и schedule-события совпадают независимо от путей
func Matches(t *domain.TriggerDef, ev *domain.Event) bool {
	if t.Kind != ev.Kind {
		return false
	}

	if t.Branch != "" {
		ok, err := path.Match(t.Branch, ev.Branch)
		if err != nil || !ok {
			return false
		}
	}

	if ev.Kind == domain.EventKindManual || ev.Kind == domain.EventKindSchedule {
		return true
	}

	if len(t.Paths) == 0 {
		return true
	}

	for _, filter := range t.Paths {
		prefix := filterPrefix(filter)
		for _, changed := range ev.ChangedPaths {
			if strings.HasPrefix(changed, prefix) {
				return true
			}
		}
	}

	return false
}

// MatchesEvent проверяет, активирует ли событие спецификацию.
// Pipeline запускается не более одного раза на событие, даже если
// совпало несколько триггеров.
func MatchesEvent(spec *domain.PipelineSpec, ev *domain.Event) bool {
	for i := range spec.Triggers {
		if Matches(&spec.Triggers[i], ev) {
			return true
		}
	}
	return false
}

// filterPrefix приводит путь-фильтр к префиксу.
//
// Фильтры — простые префиксные globs: "app/**" означает префикс "app/".
// Негативных и исключающих паттернов нет намеренно.
func filterPrefix(filter string) string {
	filter = strings.TrimSuffix(filter, "**")
	return filter
}
