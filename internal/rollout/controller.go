package rollout

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/conveyor-ci/conveyor/internal/domain"
)

// Config — настройки Controller.
type Config struct {
	// ReadinessRetries — бюджет опросов готовности новой реплики.
	ReadinessRetries int

	// PollInterval — пауза между опросами готовности.
	PollInterval time.Duration
}

// DefaultConfig возвращает конфигурацию по умолчанию.
func DefaultConfig() Config {
	return Config{
		ReadinessRetries: 10,
		PollInterval:     2 * time.Second,
	}
}

// Controller выполняет прогрессивную выкатку и откат.
type Controller struct {
	platform Platform
	history  HistoryStore
	config   Config
	logger   *slog.Logger
}

// NewController создаёт новый Controller.
func NewController(platform Platform, history HistoryStore, config Config, logger *slog.Logger) *Controller {
	if config.ReadinessRetries <= 0 {
		config.ReadinessRetries = DefaultConfig().ReadinessRetries
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultConfig().PollInterval
	}
	return &Controller{
		platform: platform,
		history:  history,
		config:   config,
		logger:   logger,
	}
}

// Result — итог выкатки.
type Result struct {
	// Deployment — имя deployment'а.
	Deployment string `json:"deployment"`

	// Ref — целевая ссылка на артефакт.
	Ref string `json:"ref"`

	// State — итоговое состояние: STABLE или STALLED.
	State domain.RolloutState `json:"state"`

	// Replaced — число заменённых реплик.
	Replaced int `json:"replaced"`
}

// Deploy выкатывает ref на deployment, заменяя реплики по одной.
//
// Инвариант: в каждый момент времени число готовых реплик не опускается
// ниже исходного минус ноль — старая реплика гасится только после того,
// как её замена стала готовой. При исчерпании бюджета готовности
// выкатка останавливается в STALLED; уже заменённые реплики остаются
// на новой версии, откат — только явной командой.
func (c *Controller) Deploy(ctx context.Context, deployment, ref string) (*Result, error) {
	current, err := c.platform.Replicas(ctx, deployment)
	if err != nil {
		return nil, fmt.Errorf("list replicas: %w", err)
	}

	result := &Result{Deployment: deployment, Ref: ref}

	// Пустой deployment: поднимаем первую реплику.
	if len(current) == 0 {
		if err := c.replaceOne(ctx, deployment, ref, ""); err != nil {
			result.State = domain.RolloutStateStalled
			c.record(ctx, deployment, ref, domain.RolloutStateStalled)
			return result, err
		}
		result.State = domain.RolloutStateStable
		result.Replaced = 1
		return result, c.record(ctx, deployment, ref, domain.RolloutStateStable)
	}

	for _, old := range current {
		if old.Ref == ref {
			continue
		}

		if err := c.replaceOne(ctx, deployment, ref, old.ID); err != nil {
			result.State = domain.RolloutStateStalled
			c.logger.Error("rollout stalled",
				"deployment", deployment,
				"ref", ref,
				"replaced", result.Replaced,
			)
			// Застрявший rollout тоже попадает в историю: Rollback
			// должен видеть, какая ссылка была стабильной до него.
			c.record(ctx, deployment, ref, domain.RolloutStateStalled)
			return result, err
		}
		result.Replaced++
	}

	result.State = domain.RolloutStateStable
	c.logger.Info("rollout complete",
		"deployment", deployment,
		"ref", ref,
		"replaced", result.Replaced,
	)

	return result, c.record(ctx, deployment, ref, domain.RolloutStateStable)
}

// Rollback применяет последнюю стабильную ссылку, отличную от цели
// последнего Deploy, тем же прогрессивным циклом. Работает и из
// STALLED: застрявшая цель записана в историю и пропускается.
func (c *Controller) Rollback(ctx context.Context, deployment string) (*Result, error) {
	prev, err := c.history.Previous(ctx, deployment)
	if err != nil {
		return nil, fmt.Errorf("previous rollout record: %w", err)
	}

	c.logger.Info("rolling back",
		"deployment", deployment,
		"ref", prev.Ref,
	)

	return c.Deploy(ctx, deployment, prev.Ref)
}

// Last возвращает последнюю применённую запись deployment'а.
func (c *Controller) Last(ctx context.Context, deployment string) (*domain.RolloutRecord, error) {
	return c.history.Last(ctx, deployment)
}

// replaceOne поднимает новую реплику с ref, дожидается её готовности
// и гасит oldID (если задан). Новая реплика при исчерпании бюджета
// НЕ гасится: deployment остаётся в смешанном состоянии до
// вмешательства оператора.
func (c *Controller) replaceOne(ctx context.Context, deployment, ref, oldID string) error {
	newID, err := c.platform.Start(ctx, deployment, ref)
	if err != nil {
		return fmt.Errorf("start replica: %w", err)
	}

	if err := c.awaitReady(ctx, deployment, newID); err != nil {
		return err
	}

	if oldID != "" {
		if err := c.platform.Stop(ctx, deployment, oldID); err != nil {
			return fmt.Errorf("stop replica %s: %w", oldID, err)
		}
	}

	return nil
}

// awaitReady опрашивает готовность реплики в пределах бюджета повторов.
func (c *Controller) awaitReady(ctx context.Context, deployment, replicaID string) error {
	for attempt := 0; attempt < c.config.ReadinessRetries; attempt++ {
		ready, err := c.platform.Ready(ctx, deployment, replicaID)
		if err != nil {
			return fmt.Errorf("readiness check: %w", err)
		}
		if ready {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.config.PollInterval):
		}
	}

	return fmt.Errorf("replica %s not ready after %d attempts: %w",
		replicaID, c.config.ReadinessRetries, ErrRolloutStalled)
}

// record добавляет запись о завершённой выкатке в историю.
func (c *Controller) record(ctx context.Context, deployment, ref string, state domain.RolloutState) error {
	err := c.history.Append(ctx, domain.RolloutRecord{
		Deployment: deployment,
		Ref:        ref,
		State:      state,
		AppliedAt:  time.Now(),
	})
	if err != nil {
		c.logger.Error("failed to record rollout",
			"deployment", deployment,
			"ref", ref,
			"state", state,
			"error", err,
		)
	}
	return err
}
