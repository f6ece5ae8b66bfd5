package registry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/conveyor-ci/conveyor/internal/domain"
)

// Publisher публикует результат успешного build job в registry.
//
// Порядок строго фиксирован: сначала push содержимого, затем
// атомарное назначение тегов сборки (run-key, revision, "latest").
// Ошибка push'а не оставляет ни одного нового тега; конфликт любого
// из тегов оставляет содержимое запушенным, но ни один тег — в том
// числе "latest" — не перенацеленным.
type Publisher struct {
	registry Registry
	logger   *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(reg Registry, logger *slog.Logger) *Publisher {
	return &Publisher{
		registry: reg,
		logger:   logger,
	}
}

// Publish публикует содержимое артефакта и назначает теги сборки.
func (p *Publisher) Publish(ctx context.Context, name string, content []byte, runKey, revision string) (*domain.Artifact, error) {
	ref, err := p.registry.Push(ctx, name, content)
	if err != nil {
		return nil, fmt.Errorf("push artifact %q: %w", name, err)
	}

	tags := []string{runKey}
	if revision != "" && revision != runKey {
		tags = append(tags, revision)
	}
	// latest — последним в списке: неизменяемые теги проверяются
	// первыми, и при их конфликте "latest" не трогается.
	tags = append(tags, domain.TagLatest)

	if err := p.registry.TagAll(ctx, name, ref, tags); err != nil {
		return nil, fmt.Errorf("tag artifact %q: %w", name, err)
	}

	p.logger.Info("artifact published",
		"artifact", name,
		"ref", ref,
		"tags", tags,
	)

	return &domain.Artifact{
		Name:     name,
		Digest:   ref,
		Tags:     tags,
		PushedAt: time.Now(),
	}, nil
}
