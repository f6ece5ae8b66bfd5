package rollout

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/conveyor-ci/conveyor/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastConfig() Config {
	return Config{
		ReadinessRetries: 3,
		PollInterval:     time.Millisecond,
	}
}

func refsOf(t *testing.T, p *MemoryPlatform, deployment string) []string {
	t.Helper()
	replicas, err := p.Replicas(context.Background(), deployment)
	if err != nil {
		t.Fatal(err)
	}
	refs := make([]string, len(replicas))
	for i, r := range replicas {
		refs[i] = r.Ref
	}
	return refs
}

func TestDeploy_ProgressiveReplace(t *testing.T) {
	platform := NewMemoryPlatform()
	platform.Seed("backend-prod", "sha256:old", 3)
	history := NewMemoryHistory()
	ctl := NewController(platform, history, fastConfig(), testLogger())

	result, err := ctl.Deploy(context.Background(), "backend-prod", "sha256:new")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.State != domain.RolloutStateStable {
		t.Errorf("expected STABLE, got %s", result.State)
	}
	if result.Replaced != 3 {
		t.Errorf("expected 3 replaced replicas, got %d", result.Replaced)
	}

	// Все реплики на новой версии, число реплик сохранено
	refs := refsOf(t, platform, "backend-prod")
	if len(refs) != 3 {
		t.Fatalf("expected 3 replicas, got %d", len(refs))
	}
	for _, ref := range refs {
		if ref != "sha256:new" {
			t.Errorf("all replicas should run sha256:new, got %s", ref)
		}
	}

	// Выкатка записана в историю
	last, err := ctl.Last(context.Background(), "backend-prod")
	if err != nil {
		t.Fatal(err)
	}
	if last.Ref != "sha256:new" {
		t.Errorf("history should record sha256:new, got %s", last.Ref)
	}
}

func TestDeploy_EmptyDeployment(t *testing.T) {
	platform := NewMemoryPlatform()
	history := NewMemoryHistory()
	ctl := NewController(platform, history, fastConfig(), testLogger())

	result, err := ctl.Deploy(context.Background(), "fresh", "sha256:v1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Replaced != 1 {
		t.Errorf("expected 1 started replica, got %d", result.Replaced)
	}

	refs := refsOf(t, platform, "fresh")
	if len(refs) != 1 || refs[0] != "sha256:v1" {
		t.Errorf("expected a single sha256:v1 replica, got %v", refs)
	}
}

func TestDeploy_NoopWhenAlreadyCurrent(t *testing.T) {
	platform := NewMemoryPlatform()
	platform.Seed("backend-prod", "sha256:v1", 2)
	history := NewMemoryHistory()
	ctl := NewController(platform, history, fastConfig(), testLogger())

	result, err := ctl.Deploy(context.Background(), "backend-prod", "sha256:v1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Replaced != 0 {
		t.Errorf("expected 0 replaced replicas, got %d", result.Replaced)
	}
	if result.State != domain.RolloutStateStable {
		t.Errorf("expected STABLE, got %s", result.State)
	}
}

func TestDeploy_StallsOnUnreadyReplica(t *testing.T) {
	platform := NewMemoryPlatform()
	platform.Seed("backend-prod", "sha256:old", 2)
	// Новая версия никогда не становится готовой
	platform.ReadyFunc = func(_, _, ref string) bool {
		return ref != "sha256:broken"
	}
	history := NewMemoryHistory()
	ctl := NewController(platform, history, fastConfig(), testLogger())

	result, err := ctl.Deploy(context.Background(), "backend-prod", "sha256:broken")
	if !errors.Is(err, ErrRolloutStalled) {
		t.Fatalf("expected ErrRolloutStalled, got %v", err)
	}
	if result.State != domain.RolloutStateStalled {
		t.Errorf("expected STALLED, got %s", result.State)
	}
	if result.Replaced != 0 {
		t.Errorf("no replica should be replaced, got %d", result.Replaced)
	}

	// Старые реплики не погашены; неготовая новая оставлена — смешанное
	// состояние разрешает оператор
	refs := refsOf(t, platform, "backend-prod")
	oldCount := 0
	for _, ref := range refs {
		if ref == "sha256:old" {
			oldCount++
		}
	}
	if oldCount != 2 {
		t.Errorf("old replicas should survive the stall, got %v", refs)
	}

	// Застрявшая выкатка записана в историю со STALLED: по ней виден
	// последний Deploy, но откатываться на неё нельзя
	last, err := ctl.Last(context.Background(), "backend-prod")
	if err != nil {
		t.Fatal(err)
	}
	if last.Ref != "sha256:broken" || last.State != domain.RolloutStateStalled {
		t.Errorf("expected STALLED record for sha256:broken, got %+v", last)
	}
}

func TestDeploy_ReadyAfterRetries(t *testing.T) {
	platform := NewMemoryPlatform()
	platform.Seed("backend-prod", "sha256:old", 1)

	// Реплика становится готовой со второй проверки
	checks := make(map[string]int)
	platform.ReadyFunc = func(_, replicaID, ref string) bool {
		if ref != "sha256:new" {
			return true
		}
		checks[replicaID]++
		return checks[replicaID] >= 2
	}
	history := NewMemoryHistory()
	ctl := NewController(platform, history, fastConfig(), testLogger())

	result, err := ctl.Deploy(context.Background(), "backend-prod", "sha256:new")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.State != domain.RolloutStateStable {
		t.Errorf("expected STABLE after retries, got %s", result.State)
	}
}

func TestRollback_ReappliesPrevious(t *testing.T) {
	platform := NewMemoryPlatform()
	history := NewMemoryHistory()
	ctl := NewController(platform, history, fastConfig(), testLogger())
	ctx := context.Background()

	if _, err := ctl.Deploy(ctx, "backend-prod", "sha256:v1"); err != nil {
		t.Fatal(err)
	}
	if _, err := ctl.Deploy(ctx, "backend-prod", "sha256:v2"); err != nil {
		t.Fatal(err)
	}

	result, err := ctl.Rollback(ctx, "backend-prod")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Ref != "sha256:v1" {
		t.Errorf("rollback should reapply sha256:v1, got %s", result.Ref)
	}

	refs := refsOf(t, platform, "backend-prod")
	for _, ref := range refs {
		if ref != "sha256:v1" {
			t.Errorf("all replicas should be back on sha256:v1, got %v", refs)
		}
	}

	// Откат сам становится записью истории
	last, err := ctl.Last(ctx, "backend-prod")
	if err != nil {
		t.Fatal(err)
	}
	if last.Ref != "sha256:v1" {
		t.Errorf("history head should be the rollback target, got %s", last.Ref)
	}
}

func TestRollback_FromStalled(t *testing.T) {
	platform := NewMemoryPlatform()
	// Реплики sha256:v2 никогда не становятся готовыми
	platform.ReadyFunc = func(_, _, ref string) bool {
		return ref != "sha256:v2"
	}
	history := NewMemoryHistory()
	ctl := NewController(platform, history, fastConfig(), testLogger())
	ctx := context.Background()

	if _, err := ctl.Deploy(ctx, "backend-prod", "sha256:v1"); err != nil {
		t.Fatal(err)
	}
	if _, err := ctl.Deploy(ctx, "backend-prod", "sha256:v2"); !errors.Is(err, ErrRolloutStalled) {
		t.Fatalf("expected ErrRolloutStalled, got %v", err)
	}

	// Откат из STALLED восстанавливает стабильную до него ссылку
	result, err := ctl.Rollback(ctx, "backend-prod")
	if err != nil {
		t.Fatalf("rollback from stalled state must succeed: %v", err)
	}
	if result.Ref != "sha256:v1" {
		t.Errorf("rollback should restore sha256:v1, got %s", result.Ref)
	}

	// Неготовая реплика застрявшей выкатки заменена, все на sha256:v1
	for _, ref := range refsOf(t, platform, "backend-prod") {
		if ref != "sha256:v1" {
			t.Errorf("all replicas should be back on sha256:v1, got %s", ref)
		}
	}
}

func TestRollback_SkipsStalledTarget(t *testing.T) {
	platform := NewMemoryPlatform()
	platform.ReadyFunc = func(_, _, ref string) bool {
		return ref != "sha256:v3"
	}
	history := NewMemoryHistory()
	ctl := NewController(platform, history, fastConfig(), testLogger())
	ctx := context.Background()

	if _, err := ctl.Deploy(ctx, "backend-prod", "sha256:v1"); err != nil {
		t.Fatal(err)
	}
	if _, err := ctl.Deploy(ctx, "backend-prod", "sha256:v2"); err != nil {
		t.Fatal(err)
	}
	if _, err := ctl.Deploy(ctx, "backend-prod", "sha256:v3"); !errors.Is(err, ErrRolloutStalled) {
		t.Fatalf("expected ErrRolloutStalled, got %v", err)
	}

	// Откат возвращает ссылку, стабильную перед застрявшей выкаткой,
	// а не более раннюю
	result, err := ctl.Rollback(ctx, "backend-prod")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Ref != "sha256:v2" {
		t.Errorf("rollback should restore sha256:v2 (stable before the stall), got %s", result.Ref)
	}
}

func TestRollback_NoHistory(t *testing.T) {
	platform := NewMemoryPlatform()
	history := NewMemoryHistory()
	ctl := NewController(platform, history, fastConfig(), testLogger())
	ctx := context.Background()

	// Пустая история
	if _, err := ctl.Rollback(ctx, "backend-prod"); !errors.Is(err, ErrNoHistory) {
		t.Errorf("expected ErrNoHistory, got %v", err)
	}

	// Одна запись — отступать некуда
	if _, err := ctl.Deploy(ctx, "backend-prod", "sha256:v1"); err != nil {
		t.Fatal(err)
	}
	if _, err := ctl.Rollback(ctx, "backend-prod"); !errors.Is(err, ErrNoHistory) {
		t.Errorf("expected ErrNoHistory with single record, got %v", err)
	}
}

func TestMemoryHistory_LastAndPrevious(t *testing.T) {
	history := NewMemoryHistory()
	ctx := context.Background()

	if _, err := history.Last(ctx, "d"); !errors.Is(err, ErrNoHistory) {
		t.Errorf("expected ErrNoHistory, got %v", err)
	}

	history.Append(ctx, domain.RolloutRecord{Deployment: "d", Ref: "r1", State: domain.RolloutStateStable})
	history.Append(ctx, domain.RolloutRecord{Deployment: "d", Ref: "r2", State: domain.RolloutStateStable})

	last, err := history.Last(ctx, "d")
	if err != nil || last.Ref != "r2" {
		t.Errorf("expected last r2, got %v, %v", last, err)
	}

	prev, err := history.Previous(ctx, "d")
	if err != nil || prev.Ref != "r1" {
		t.Errorf("expected previous r1, got %v, %v", prev, err)
	}
}

func TestMemoryHistory_PreviousSkipsStalled(t *testing.T) {
	history := NewMemoryHistory()
	ctx := context.Background()

	history.Append(ctx, domain.RolloutRecord{Deployment: "d", Ref: "r1", State: domain.RolloutStateStable})
	history.Append(ctx, domain.RolloutRecord{Deployment: "d", Ref: "r2", State: domain.RolloutStateStalled})
	history.Append(ctx, domain.RolloutRecord{Deployment: "d", Ref: "r3", State: domain.RolloutStateStalled})

	// Цель отката — последняя стабильная ссылка, не застрявшие цели
	prev, err := history.Previous(ctx, "d")
	if err != nil || prev.Ref != "r1" {
		t.Errorf("expected previous r1, got %v, %v", prev, err)
	}
}
