package registry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/conveyor-ci/conveyor/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// failingRegistry отклоняет push, не меняя состояния.
type failingRegistry struct {
	*MemoryRegistry
}

func (f *failingRegistry) Push(context.Context, string, []byte) (string, error) {
	return "", errors.New("registry unavailable")
}

func TestPublisher_TagsAfterPush(t *testing.T) {
	reg := NewMemoryRegistry()
	pub := NewPublisher(reg, testLogger())
	ctx := context.Background()

	content := []byte("binary v1")
	artifact, err := pub.Publish(ctx, "backend", content, "run-1a2b3c4d", "abc123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if artifact.Digest != Digest(content) {
		t.Errorf("artifact digest should be the content digest")
	}

	// Все три тега указывают на запушенный ref
	for _, tag := range []string{"run-1a2b3c4d", "abc123", domain.TagLatest} {
		ref, err := reg.Resolve(ctx, "backend", tag)
		if err != nil {
			t.Fatalf("tag %q should resolve: %v", tag, err)
		}
		if ref != artifact.Digest {
			t.Errorf("tag %q should point at %s, got %s", tag, artifact.Digest, ref)
		}
	}
}

func TestPublisher_LatestRepoints(t *testing.T) {
	reg := NewMemoryRegistry()
	pub := NewPublisher(reg, testLogger())
	ctx := context.Background()

	first, err := pub.Publish(ctx, "backend", []byte("v1"), "run-aaaa1111", "rev1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := pub.Publish(ctx, "backend", []byte("v2"), "run-bbbb2222", "rev2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// latest перенацелен на вторую сборку
	latest, err := reg.Resolve(ctx, "backend", domain.TagLatest)
	if err != nil {
		t.Fatal(err)
	}
	if latest != second.Digest {
		t.Errorf("latest should point at the second build")
	}

	// Теги первой сборки остались на месте
	ref, err := reg.Resolve(ctx, "backend", "run-aaaa1111")
	if err != nil {
		t.Fatal(err)
	}
	if ref != first.Digest {
		t.Errorf("run-key tag of the first build should be untouched")
	}
}

func TestPublisher_ImmutableTags(t *testing.T) {
	reg := NewMemoryRegistry()
	pub := NewPublisher(reg, testLogger())
	ctx := context.Background()

	if _, err := pub.Publish(ctx, "backend", []byte("v1"), "run-cccc3333", "rev1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Попытка перенацелить run-key тег на другое содержимое — ошибка
	_, err := pub.Publish(ctx, "backend", []byte("v2"), "run-cccc3333", "rev2")
	if !errors.Is(err, ErrTagImmutable) {
		t.Errorf("expected ErrTagImmutable, got %v", err)
	}
}

func TestPublisher_ExternalRunKeyTags(t *testing.T) {
	// Внешний run id из события используется как run-key тег как есть
	reg := NewMemoryRegistry()
	pub := NewPublisher(reg, testLogger())
	ctx := context.Background()

	artifact, err := pub.Publish(ctx, "backend", []byte("binary v1"), "run42", "abc123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, tag := range []string{"run42", "abc123", domain.TagLatest} {
		ref, err := reg.Resolve(ctx, "backend", tag)
		if err != nil {
			t.Fatalf("tag %q should resolve: %v", tag, err)
		}
		if ref != artifact.Digest {
			t.Errorf("tag %q should point at %s, got %s", tag, artifact.Digest, ref)
		}
	}
}

func TestPublisher_NoPartialTagsOnConflict(t *testing.T) {
	// Конфликт одного тега не оставляет назначенными остальные теги
	// публикации: run-key первой сборки конфликтует, но ни revision,
	// ни latest второй сборки не должны появиться
	reg := NewMemoryRegistry()
	pub := NewPublisher(reg, testLogger())
	ctx := context.Background()

	first, err := pub.Publish(ctx, "backend", []byte("v1"), "run-aaaa0000", "rev1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = pub.Publish(ctx, "backend", []byte("v2"), "run-aaaa0000", "rev2")
	if !errors.Is(err, ErrTagImmutable) {
		t.Fatalf("expected ErrTagImmutable, got %v", err)
	}

	// run-key остался на первой сборке
	ref, err := reg.Resolve(ctx, "backend", "run-aaaa0000")
	if err != nil || ref != first.Digest {
		t.Errorf("run-key should still point at the first build, got %s, %v", ref, err)
	}
	// revision второй сборки не назначен
	if _, err := reg.Resolve(ctx, "backend", "rev2"); !errors.Is(err, ErrTagNotFound) {
		t.Errorf("rev2 should not be assigned after the conflict, got %v", err)
	}
	// latest не перенацелен
	latest, err := reg.Resolve(ctx, "backend", domain.TagLatest)
	if err != nil || latest != first.Digest {
		t.Errorf("latest should still point at the first build, got %s, %v", latest, err)
	}
}

func TestPublisher_RepublishSameContent(t *testing.T) {
	// Повторная публикация того же содержимого под тем же run-key —
	// идемпотентна: теги указывают на тот же ref
	reg := NewMemoryRegistry()
	pub := NewPublisher(reg, testLogger())
	ctx := context.Background()

	if _, err := pub.Publish(ctx, "backend", []byte("v1"), "run-dddd4444", "rev1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := pub.Publish(ctx, "backend", []byte("v1"), "run-dddd4444", "rev1"); err != nil {
		t.Errorf("republishing identical content should be idempotent, got %v", err)
	}
}

func TestPublisher_FailedPushLeavesNoTags(t *testing.T) {
	inner := NewMemoryRegistry()
	pub := NewPublisher(&failingRegistry{inner}, testLogger())
	ctx := context.Background()

	_, err := pub.Publish(ctx, "backend", []byte("v1"), "run-eeee5555", "rev1")
	if err == nil {
		t.Fatal("expected error")
	}

	// Ни один тег не появился
	for _, tag := range []string{"run-eeee5555", "rev1", domain.TagLatest} {
		if _, err := inner.Resolve(ctx, "backend", tag); !errors.Is(err, ErrTagNotFound) {
			t.Errorf("tag %q should not exist after failed push, got %v", tag, err)
		}
	}
}

func TestPublisher_RunKeyEqualsRevision(t *testing.T) {
	// revision, совпадающий с run-key, не тегируется дважды
	reg := NewMemoryRegistry()
	pub := NewPublisher(reg, testLogger())
	ctx := context.Background()

	artifact, err := pub.Publish(ctx, "backend", []byte("v1"), "run-ffff6666", "run-ffff6666")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(artifact.Tags) != 2 {
		t.Errorf("expected 2 tags (run-key, latest), got %v", artifact.Tags)
	}
}

func TestDigest(t *testing.T) {
	a := Digest([]byte("content"))
	b := Digest([]byte("content"))
	c := Digest([]byte("other"))

	if a != b {
		t.Error("digest should be deterministic")
	}
	if a == c {
		t.Error("different content should give different digests")
	}
	if len(a) != len("sha256:")+64 {
		t.Errorf("unexpected digest format: %q", a)
	}
}
