package engine

import (
	"errors"
	"testing"

	"github.com/conveyor-ci/conveyor/internal/domain"
)

func TestMatches_KindMismatch(t *testing.T) {
	trigger := &domain.TriggerDef{Kind: domain.EventKindPush, Branch: "main"}
	event := &domain.Event{Kind: domain.EventKindPullRequest, Branch: "main"}

	if Matches(trigger, event) {
		t.Error("push trigger should not match pull_request event")
	}
}

func TestMatches_BranchGlob(t *testing.T) {
	trigger := &domain.TriggerDef{Kind: domain.EventKindPush, Branch: "release/*"}

	cases := []struct {
		branch string
		want   bool
	}{
		{"release/1.0", true},
		{"release/2.3", true},
		{"main", false},
		{"feature/release", false},
	}

	for _, tc := range cases {
		event := &domain.Event{Kind: domain.EventKindPush, Branch: tc.branch}
		if got := Matches(trigger, event); got != tc.want {
			t.Errorf("branch %q: expected %v, got %v", tc.branch, tc.want, got)
		}
	}
}

func TestMatches_EmptyBranchMatchesAny(t *testing.T) {
	trigger := &domain.TriggerDef{Kind: domain.EventKindPush}
	event := &domain.Event{Kind: domain.EventKindPush, Branch: "whatever"}

	if !Matches(trigger, event) {
		t.Error("empty branch pattern should match any branch")
	}
}

func TestMatches_PathPrefix(t *testing.T) {
	trigger := &domain.TriggerDef{
		Kind:   domain.EventKindPush,
		Branch: "main",
		Paths:  []string{"starter/backend/**"},
	}

	// Изменение в backend совпадает
	event := &domain.Event{
		Kind:         domain.EventKindPush,
		Branch:       "main",
		ChangedPaths: []string{"starter/backend/api/server.go"},
	}
	if !Matches(trigger, event) {
		t.Error("backend change should match backend path filter")
	}

	// Изменение только в frontend не совпадает
	event = &domain.Event{
		Kind:         domain.EventKindPush,
		Branch:       "main",
		ChangedPaths: []string{"starter/frontend/src/App.tsx"},
	}
	if Matches(trigger, event) {
		t.Error("frontend change should not match backend path filter")
	}

	// Хотя бы один путь совпал — триггер срабатывает
	event = &domain.Event{
		Kind:         domain.EventKindPush,
		Branch:       "main",
		ChangedPaths: []string{"starter/frontend/src/App.tsx", "starter/backend/go.mod"},
	}
	if !Matches(trigger, event) {
		t.Error("mixed change should match when any path hits the filter")
	}
}

func TestMatches_EmptyPathsMatchAny(t *testing.T) {
	trigger := &domain.TriggerDef{Kind: domain.EventKindPush, Branch: "main"}
	event := &domain.Event{
		Kind:         domain.EventKindPush,
		Branch:       "main",
		ChangedPaths: []string{"anything/at/all"},
	}

	if !Matches(trigger, event) {
		t.Error("trigger without path filters should match any paths")
	}
}

func TestMatches_ManualIgnoresPaths(t *testing.T) {
	trigger := &domain.TriggerDef{
		Kind:   domain.EventKindManual,
		Branch: "main",
		Paths:  []string{"app/**"},
	}

	// Manual-событие без путей всё равно совпадает
	event := &domain.Event{Kind: domain.EventKindManual, Branch: "main"}
	if !Matches(trigger, event) {
		t.Error("manual event should match regardless of path filters")
	}
}

func TestMatches_ScheduleIgnoresPaths(t *testing.T) {
	trigger := &domain.TriggerDef{
		Kind:   domain.EventKindSchedule,
		Branch: "main",
		Cron:   "0 4 * * *",
		Paths:  []string{"app/**"},
	}

	event := &domain.Event{Kind: domain.EventKindSchedule, Branch: "main"}
	if !Matches(trigger, event) {
		t.Error("schedule event should match regardless of path filters")
	}
}

func TestMatches_Pure(t *testing.T) {
	// Повторная оценка того же события даёт тот же результат
	trigger := &domain.TriggerDef{
		Kind:   domain.EventKindPush,
		Branch: "main",
		Paths:  []string{"src/**"},
	}
	event := &domain.Event{
		Kind:         domain.EventKindPush,
		Branch:       "main",
		ChangedPaths: []string{"src/main.go"},
	}

	first := Matches(trigger, event)
	for i := 0; i < 10; i++ {
		if Matches(trigger, event) != first {
			t.Fatal("Matches should be deterministic for the same event")
		}
	}
}

func TestMatchesEvent_AtMostOnce(t *testing.T) {
	// Несколько совпавших триггеров — всё равно одно срабатывание
	spec := &domain.PipelineSpec{
		Triggers: []domain.TriggerDef{
			{Kind: domain.EventKindPush, Branch: "main"},
			{Kind: domain.EventKindPush},
		},
	}
	event := &domain.Event{Kind: domain.EventKindPush, Branch: "main"}

	if !MatchesEvent(spec, event) {
		t.Error("event should match the spec")
	}
}

func TestValidateTrigger_UnknownKind(t *testing.T) {
	trigger := &domain.TriggerDef{Kind: "deployment_status"}

	err := ValidateTrigger(trigger)
	if !errors.Is(err, ErrUnknownEventKind) {
		t.Errorf("expected ErrUnknownEventKind, got %v", err)
	}
}

func TestValidateTrigger_BadBranchPattern(t *testing.T) {
	trigger := &domain.TriggerDef{Kind: domain.EventKindPush, Branch: "[invalid"}

	err := ValidateTrigger(trigger)
	if !errors.Is(err, ErrBadBranchPattern) {
		t.Errorf("expected ErrBadBranchPattern, got %v", err)
	}
}

func TestValidateTrigger_ScheduleRequiresCron(t *testing.T) {
	trigger := &domain.TriggerDef{Kind: domain.EventKindSchedule, Branch: "main"}

	err := ValidateTrigger(trigger)
	if !errors.Is(err, ErrMissingCronExpr) {
		t.Errorf("expected ErrMissingCronExpr, got %v", err)
	}
}

func TestValidateTrigger_BadCron(t *testing.T) {
	trigger := &domain.TriggerDef{
		Kind:   domain.EventKindSchedule,
		Branch: "main",
		Cron:   "not a cron",
	}

	err := ValidateTrigger(trigger)
	if !errors.Is(err, ErrBadCronExpr) {
		t.Errorf("expected ErrBadCronExpr, got %v", err)
	}
}
