package worker

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/conveyor-ci/conveyor/internal/domain"
)

// resolvePath разрешает путь из спецификации относительно workspace.
func resolvePath(workspace, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(workspace, path)
}

// Request — всё, что нужно executor'у для выполнения job.
type Request struct {
	// Run — запуск, которому принадлежит job.
	Run *domain.Run

	// Job — выполняемый job run.
	Job *domain.JobRun

	// Def — определение job из спецификации версии.
	Def *domain.JobDef
}

// Result — результат выполнения job.
type Result struct {
	// Log — объединённый лог выполнения.
	Log string
}

// Executor выполняет jobs одного вида.
//
// Реализации: GateExecutor, BuildExecutor, DeployExecutor.
// Логическая ошибка выполнения (упавший step, stalled rollout)
// возвращается через error; Result.Log заполняется в обоих случаях.
type Executor interface {
	Execute(ctx context.Context, req *Request) (*Result, error)
}

// Registry — реестр executor'ов по виду job.
type Registry struct {
	executors map[domain.JobKind]Executor
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{executors: make(map[domain.JobKind]Executor)}
}

// Register добавляет executor для вида job.
func (r *Registry) Register(kind domain.JobKind, executor Executor) {
	r.executors[kind] = executor
}

// Get возвращает executor для вида job.
func (r *Registry) Get(kind domain.JobKind) (Executor, error) {
	executor, ok := r.executors[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJobKind, kind)
	}
	return executor, nil
}
