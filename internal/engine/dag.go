package engine

import (
	"fmt"
	"sort"

	"github.com/conveyor-ci/conveyor/internal/domain"
)

// Node — узел в графе зависимостей jobs.
type Node struct {
	// Job — определение job из спецификации.
	Job *domain.JobDef

	// Name — имя job.
	Name string

	// InDegree — количество входящих рёбер (зависимостей).
	InDegree int

	// DependsOn — узлы, от которых зависит этот узел.
	DependsOn []*Node

	// Dependents — узлы, которые зависят от этого узла.
	Dependents []*Node
}

// DAG — направленный ациклический граф jobs пайплайна.
type DAG struct {
	// Nodes — все узлы графа (имя job → Node).
	Nodes map[string]*Node

	// Roots — узлы без зависимостей (точки входа).
	Roots []*Node

	// Order — топологически отсортированный список узлов.
	Order []*Node
}

// BuildDAG строит DAG из спецификации pipeline.
//
// Цикл в графе needs — ошибка определения; она обнаруживается здесь,
// до какого-либо выполнения.
func BuildDAG(spec *domain.PipelineSpec) (*DAG, error) {
	if len(spec.Jobs) == 0 {
		return nil, ErrNoJobs
	}

	dag := &DAG{
		Nodes: make(map[string]*Node, len(spec.Jobs)),
	}

	// Первый проход: создаём все узлы.
	// Имена сортируем, чтобы порядок обхода был детерминированным.
	names := make([]string, 0, len(spec.Jobs))
	for name := range spec.Jobs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		job := spec.Jobs[name]
		dag.Nodes[name] = &Node{
			Job:  &job,
			Name: name,
		}
	}

	// Второй проход: связываем узлы по needs.
	for _, name := range names {
		node := dag.Nodes[name]
		for _, dep := range node.Job.Needs {
			depNode, exists := dag.Nodes[dep]
			if !exists {
				return nil, NewDefinitionError(name, "needs",
					fmt.Sprintf("needs unknown job: %s", dep), ErrMissingDependency)
			}
			addEdge(depNode, node)
		}
	}

	// Находим корневые узлы.
	for _, name := range names {
		if node := dag.Nodes[name]; node.InDegree == 0 {
			dag.Roots = append(dag.Roots, node)
		}
	}

	// Топологическая сортировка заодно проверяет ацикличность.
	order, err := dag.topologicalSort()
	if err != nil {
		return nil, err
	}
	dag.Order = order

	return dag, nil
}

// addEdge добавляет ребро from → to, защищаясь от дубликатов,
// чтобы не задвоить InDegree.
func addEdge(from, to *Node) {
	for _, dep := range to.DependsOn {
		if dep.Name == from.Name {
			return
		}
	}
	from.Dependents = append(from.Dependents, to)
	to.DependsOn = append(to.DependsOn, from)
	to.InDegree++
}

// topologicalSort выполняет сортировку по алгоритму Кана.
// Возвращает ErrCyclicDependency, если обнаружен цикл.
func (d *DAG) topologicalSort() ([]*Node, error) {
	inDegree := make(map[string]int, len(d.Nodes))
	for name, node := range d.Nodes {
		inDegree[name] = node.InDegree
	}

	queue := make([]*Node, len(d.Roots))
	copy(queue, d.Roots)

	order := make([]*Node, 0, len(d.Nodes))

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)

		for _, dependent := range node.Dependents {
			inDegree[dependent.Name]--
			if inDegree[dependent.Name] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(order) != len(d.Nodes) {
		return nil, ErrCyclicDependency
	}

	return order, nil
}

// ReadyJobs возвращает jobs, готовые к запуску.
//
// Job готов, если все его зависимости в succeeded, а сам он ещё
// не запускался (не в succeeded, running и blocked).
//
// blocked — jobs, которые уже не будут выполняться (failed, skipped,
// cancelled); их downstream никогда не станет ready.
//
// Все возвращённые jobs могут выполняться параллельно: порядка
// приоритетов сверх удовлетворения зависимостей нет.
func (d *DAG) ReadyJobs(succeeded, running, blocked map[string]bool) []*Node {
	ready := make([]*Node, 0)

	for _, node := range d.Order {
		if succeeded[node.Name] || running[node.Name] || blocked[node.Name] {
			continue
		}

		allDepsSucceeded := true
		for _, dep := range node.DependsOn {
			if !succeeded[dep.Name] {
				allDepsSucceeded = false
				break
			}
		}

		if allDepsSucceeded {
			ready = append(ready, node)
		}
	}

	return ready
}

// Downstream возвращает имена всех jobs, транзитивно зависящих от name
// (прямо или косвенно), в детерминированном порядке.
//
// Используется для распространения отказа: когда job завершился FAILED,
// весь его downstream помечается SKIPPED без выполнения.
func (d *DAG) Downstream(name string) []string {
	start, exists := d.Nodes[name]
	if !exists {
		return nil
	}

	visited := make(map[string]bool)
	queue := []*Node{start}

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		for _, dependent := range node.Dependents {
			if !visited[dependent.Name] {
				visited[dependent.Name] = true
				queue = append(queue, dependent)
			}
		}
	}

	names := make([]string, 0, len(visited))
	for n := range visited {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// GetNode возвращает узел по имени job.
func (d *DAG) GetNode(name string) *Node {
	return d.Nodes[name]
}

// Size возвращает количество узлов в DAG.
func (d *DAG) Size() int {
	return len(d.Nodes)
}

// IsComplete проверяет, все ли jobs достигли терминального состояния.
func (d *DAG) IsComplete(terminal map[string]bool) bool {
	for name := range d.Nodes {
		if !terminal[name] {
			return false
		}
	}
	return true
}
