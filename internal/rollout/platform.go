package rollout

import "context"

// Replica — одна работающая единица deployment'а.
type Replica struct {
	// ID — идентификатор реплики, уникальный в пределах deployment'а.
	ID string

	// Ref — content-ref артефакта, который обслуживает реплика.
	Ref string
}

// Platform — порт к среде выполнения deployment'ов.
//
// Controller оперирует репликами через этот интерфейс и не знает,
// что стоит за ним: процессы, контейнеры, узлы кластера.
type Platform interface {
	// Replicas возвращает текущие реплики deployment'а.
	Replicas(ctx context.Context, deployment string) ([]Replica, error)

	// Start поднимает новую реплику с указанным ref и возвращает её ID.
	// Возврат без ошибки не означает готовности: готовность
	// опрашивается отдельно через Ready.
	Start(ctx context.Context, deployment, ref string) (string, error)

	// Ready сообщает, готова ли реплика принимать трафик.
	Ready(ctx context.Context, deployment, replicaID string) (bool, error)

	// Stop гасит реплику.
	Stop(ctx context.Context, deployment, replicaID string) error
}
