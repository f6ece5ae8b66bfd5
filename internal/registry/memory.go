package registry

import (
	"context"
	"sync"

	"github.com/conveyor-ci/conveyor/internal/domain"
)

// MemoryRegistry — in-memory реализация Registry.
//
// Используется в тестах и в standalone-режиме без PostgreSQL.
// Безопасна для конкурентного использования.
type MemoryRegistry struct {
	mu sync.Mutex

	// blobs: имя артефакта -> ref -> содержимое.
	blobs map[string]map[string][]byte

	// tags: имя артефакта -> тег -> ref.
	tags map[string]map[string]string
}

// NewMemoryRegistry создаёт пустой MemoryRegistry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		blobs: make(map[string]map[string][]byte),
		tags:  make(map[string]map[string]string),
	}
}

// Push публикует содержимое и возвращает его content-ref.
func (r *MemoryRegistry) Push(_ context.Context, name string, content []byte) (string, error) {
	ref := Digest(content)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.blobs[name] == nil {
		r.blobs[name] = make(map[string][]byte)
	}

	stored := make([]byte, len(content))
	copy(stored, content)
	r.blobs[name][ref] = stored

	return ref, nil
}

// Tag назначает тег на content-ref.
func (r *MemoryRegistry) Tag(_ context.Context, name, ref, tag string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.blobs[name][ref]; !ok {
		return ErrUnknownRef
	}

	if r.tags[name] == nil {
		r.tags[name] = make(map[string]string)
	}

	existing, ok := r.tags[name][tag]
	if ok && existing != ref && tag != domain.TagLatest {
		return ErrTagImmutable
	}

	r.tags[name][tag] = ref
	return nil
}

// TagAll назначает все теги атомарно под одной блокировкой:
// сначала проверяются все конфликты, потом выполняются назначения.
func (r *MemoryRegistry) TagAll(_ context.Context, name, ref string, tags []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.blobs[name][ref]; !ok {
		return ErrUnknownRef
	}

	for _, tag := range tags {
		existing, ok := r.tags[name][tag]
		if ok && existing != ref && tag != domain.TagLatest {
			return ErrTagImmutable
		}
	}

	if r.tags[name] == nil {
		r.tags[name] = make(map[string]string)
	}
	for _, tag := range tags {
		r.tags[name][tag] = ref
	}
	return nil
}

// Resolve возвращает content-ref, на который указывает тег.
func (r *MemoryRegistry) Resolve(_ context.Context, name, tag string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ref, ok := r.tags[name][tag]
	if !ok {
		return "", ErrTagNotFound
	}
	return ref, nil
}

// Fetch возвращает содержимое по content-ref.
func (r *MemoryRegistry) Fetch(_ context.Context, name, ref string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	content, ok := r.blobs[name][ref]
	if !ok {
		return nil, ErrUnknownRef
	}

	out := make([]byte, len(content))
	copy(out, content)
	return out, nil
}

// Tags возвращает все теги артефакта, указывающие на ref.
func (r *MemoryRegistry) Tags(_ context.Context, name, ref string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var tags []string
	for tag, tagged := range r.tags[name] {
		if tagged == ref {
			tags = append(tags, tag)
		}
	}
	return tags
}
