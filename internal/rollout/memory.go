package rollout

import (
	"context"
	"fmt"
	"sync"
)

// MemoryPlatform — in-memory реализация Platform.
//
// Используется в тестах и в standalone-режиме. Готовность реплики
// определяется функцией ReadyFunc: по умолчанию реплика готова сразу
// после Start.
type MemoryPlatform struct {
	mu sync.Mutex

	// deployments: имя deployment'а -> реплики.
	deployments map[string][]Replica

	// nextID — счётчик для генерации ID реплик.
	nextID int

	// ReadyFunc решает, готова ли реплика. nil — всегда готова.
	ReadyFunc func(deployment, replicaID, ref string) bool
}

// NewMemoryPlatform создаёт пустой MemoryPlatform.
func NewMemoryPlatform() *MemoryPlatform {
	return &MemoryPlatform{
		deployments: make(map[string][]Replica),
	}
}

// Seed задаёт начальное состояние deployment'а: n реплик с ref.
func (p *MemoryPlatform) Seed(deployment, ref string, n int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	replicas := make([]Replica, 0, n)
	for i := 0; i < n; i++ {
		p.nextID++
		replicas = append(replicas, Replica{
			ID:  fmt.Sprintf("replica-%d", p.nextID),
			Ref: ref,
		})
	}
	p.deployments[deployment] = replicas
}

// Replicas возвращает текущие реплики deployment'а.
func (p *MemoryPlatform) Replicas(_ context.Context, deployment string) ([]Replica, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Replica, len(p.deployments[deployment]))
	copy(out, p.deployments[deployment])
	return out, nil
}

// Start поднимает новую реплику.
func (p *MemoryPlatform) Start(_ context.Context, deployment, ref string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.nextID++
	id := fmt.Sprintf("replica-%d", p.nextID)
	p.deployments[deployment] = append(p.deployments[deployment], Replica{ID: id, Ref: ref})
	return id, nil
}

// Ready сообщает готовность реплики.
func (p *MemoryPlatform) Ready(_ context.Context, deployment, replicaID string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, r := range p.deployments[deployment] {
		if r.ID == replicaID {
			if p.ReadyFunc == nil {
				return true, nil
			}
			return p.ReadyFunc(deployment, replicaID, r.Ref), nil
		}
	}
	return false, fmt.Errorf("replica %s not found in deployment %s", replicaID, deployment)
}

// Stop гасит реплику.
func (p *MemoryPlatform) Stop(_ context.Context, deployment, replicaID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	replicas := p.deployments[deployment]
	for i, r := range replicas {
		if r.ID == replicaID {
			p.deployments[deployment] = append(replicas[:i], replicas[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("replica %s not found in deployment %s", replicaID, deployment)
}
