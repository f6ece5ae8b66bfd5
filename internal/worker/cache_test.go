package worker

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCacheKey_Deterministic(t *testing.T) {
	content := []byte(`{"lockfileVersion": 3}`)

	first := CacheKey(content)
	second := CacheKey(content)
	if first != second {
		t.Errorf("same content should give the same key: %s vs %s", first, second)
	}
	if len(first) != 16 {
		t.Errorf("expected 16 hex chars, got %q", first)
	}
}

func TestCacheKey_ContentSensitive(t *testing.T) {
	a := CacheKey([]byte("requests==2.31.0"))
	b := CacheKey([]byte("requests==2.32.0"))
	if a == b {
		t.Error("different manifests should give different keys")
	}
}

func TestCacheManager_Key(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "package-lock.json")
	if err := os.WriteFile(manifest, []byte(`{"name": "app"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	m := NewCacheManager(dir)

	key, err := m.Key(manifest)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != CacheKey([]byte(`{"name": "app"}`)) {
		t.Error("manager key should match content hash of the manifest")
	}

	// Тот же файл — тот же ключ; содержимое изменилось — ключ другой
	again, err := m.Key(manifest)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != again {
		t.Error("unchanged manifest should keep the same key")
	}

	if err := os.WriteFile(manifest, []byte(`{"name": "app2"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	changed, err := m.Key(manifest)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key == changed {
		t.Error("changed manifest should change the key")
	}
}

func TestCacheManager_KeyMissingManifest(t *testing.T) {
	m := NewCacheManager(t.TempDir())

	if _, err := m.Key(filepath.Join(m.Dir, "nope.lock")); err == nil {
		t.Error("expected error for missing manifest")
	}
}

func TestCacheManager_PathAndExists(t *testing.T) {
	dir := t.TempDir()
	m := NewCacheManager(dir)

	key := CacheKey([]byte("go.sum content"))
	path := m.Path(key)
	if filepath.Dir(path) != dir {
		t.Errorf("cache path should live under %s, got %s", dir, path)
	}

	if m.Exists(key) {
		t.Error("cache entry should not exist yet")
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatal(err)
	}
	if !m.Exists(key) {
		t.Error("cache entry should exist after creation")
	}
}
