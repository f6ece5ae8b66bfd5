package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// Registry — интерфейс артефакт-registry.
//
// Push идемпотентен: повторная публикация того же содержимого
// возвращает тот же ref. Tag перенацеливает только "latest";
// остальные теги после первого назначения неизменяемы.
type Registry interface {
	// Push публикует содержимое и возвращает его content-ref.
	Push(ctx context.Context, name string, content []byte) (string, error)

	// Tag назначает тег на content-ref.
	// Возвращает ErrUnknownRef, если ref не существует,
	// и ErrTagImmutable при попытке перенацелить неизменяемый тег.
	Tag(ctx context.Context, name, ref, tag string) error

	// TagAll назначает все теги одной публикации атомарно: либо
	// назначаются все, либо ни один. Ошибки те же, что у Tag.
	TagAll(ctx context.Context, name, ref string, tags []string) error

	// Resolve возвращает content-ref, на который указывает тег.
	// Возвращает ErrTagNotFound, если тег не назначен.
	Resolve(ctx context.Context, name, tag string) (string, error)
}

// Digest вычисляет content-ref содержимого: sha256-дайджест в hex
// с префиксом алгоритма. Одинаковое содержимое всегда даёт
// одинаковый ref.
func Digest(content []byte) string {
	sum := sha256.Sum256(content)
	return "sha256:" + hex.EncodeToString(sum[:])
}
