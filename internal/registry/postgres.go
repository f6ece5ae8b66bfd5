package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/conveyor-ci/conveyor/internal/domain"
)

// PostgresRegistry — реализация Registry поверх PostgreSQL.
//
// Содержимое хранится в artifact_blobs, теги — в artifact_tags.
// Назначение тега выполняется в транзакции: проверка неизменяемости
// и запись атомарны относительно конкурентных публикаций.
type PostgresRegistry struct {
	pool *pgxpool.Pool
}

// NewPostgresRegistry создаёт новый PostgresRegistry.
func NewPostgresRegistry(pool *pgxpool.Pool) *PostgresRegistry {
	return &PostgresRegistry{pool: pool}
}

// Push публикует содержимое и возвращает его content-ref.
// Повторный push того же содержимого — no-op.
func (r *PostgresRegistry) Push(ctx context.Context, name string, content []byte) (string, error) {
	ref := Digest(content)

	query := `
		INSERT INTO artifact_blobs (name, ref, content, pushed_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (name, ref) DO NOTHING
	`
	if _, err := r.pool.Exec(ctx, query, name, ref, content); err != nil {
		return "", fmt.Errorf("push blob: %w", err)
	}
	return ref, nil
}

// Tag назначает тег на content-ref.
func (r *PostgresRegistry) Tag(ctx context.Context, name, ref, tag string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM artifact_blobs WHERE name = $1 AND ref = $2)`,
		name, ref,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check blob: %w", err)
	}
	if !exists {
		return ErrUnknownRef
	}

	var existing string
	err = tx.QueryRow(ctx,
		`SELECT ref FROM artifact_tags WHERE name = $1 AND tag = $2 FOR UPDATE`,
		name, tag,
	).Scan(&existing)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// тег ещё не назначен
	case err != nil:
		return fmt.Errorf("check tag: %w", err)
	case existing != ref && tag != domain.TagLatest:
		return ErrTagImmutable
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO artifact_tags (name, tag, ref)
		VALUES ($1, $2, $3)
		ON CONFLICT (name, tag) DO UPDATE SET ref = EXCLUDED.ref
	`, name, tag, ref)
	if err != nil {
		return fmt.Errorf("upsert tag: %w", err)
	}

	return tx.Commit(ctx)
}

// TagAll назначает все теги в одной транзакции: конфликт любого тега
// откатывает назначения остальных.
func (r *PostgresRegistry) TagAll(ctx context.Context, name, ref string, tags []string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM artifact_blobs WHERE name = $1 AND ref = $2)`,
		name, ref,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check blob: %w", err)
	}
	if !exists {
		return ErrUnknownRef
	}

	for _, tag := range tags {
		var existing string
		err = tx.QueryRow(ctx,
			`SELECT ref FROM artifact_tags WHERE name = $1 AND tag = $2 FOR UPDATE`,
			name, tag,
		).Scan(&existing)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			// тег ещё не назначен
		case err != nil:
			return fmt.Errorf("check tag %q: %w", tag, err)
		case existing != ref && tag != domain.TagLatest:
			return ErrTagImmutable
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO artifact_tags (name, tag, ref)
			VALUES ($1, $2, $3)
			ON CONFLICT (name, tag) DO UPDATE SET ref = EXCLUDED.ref
		`, name, tag, ref)
		if err != nil {
			return fmt.Errorf("upsert tag %q: %w", tag, err)
		}
	}

	return tx.Commit(ctx)
}

// Resolve возвращает content-ref, на который указывает тег.
func (r *PostgresRegistry) Resolve(ctx context.Context, name, tag string) (string, error) {
	var ref string
	err := r.pool.QueryRow(ctx,
		`SELECT ref FROM artifact_tags WHERE name = $1 AND tag = $2`,
		name, tag,
	).Scan(&ref)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrTagNotFound
	}
	if err != nil {
		return "", fmt.Errorf("resolve tag: %w", err)
	}
	return ref, nil
}

// Fetch возвращает содержимое по content-ref.
func (r *PostgresRegistry) Fetch(ctx context.Context, name, ref string) ([]byte, error) {
	var content []byte
	err := r.pool.QueryRow(ctx,
		`SELECT content FROM artifact_blobs WHERE name = $1 AND ref = $2`,
		name, ref,
	).Scan(&content)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUnknownRef
	}
	if err != nil {
		return nil, fmt.Errorf("fetch blob: %w", err)
	}
	return content, nil
}
