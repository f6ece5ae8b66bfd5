package engine

import (
	"errors"
	"testing"

	"github.com/conveyor-ci/conveyor/internal/domain"
)

func gateJob(needs ...string) domain.JobDef {
	return domain.JobDef{
		Kind:  domain.JobKindGate,
		Needs: needs,
		Steps: []domain.StepDef{{Name: "run", Run: "true"}},
	}
}

func TestBuildDAG_SimpleChain(t *testing.T) {
	spec := &domain.PipelineSpec{
		Jobs: map[string]domain.JobDef{
			"lint":  gateJob(),
			"test":  gateJob("lint"),
			"build": gateJob("test"),
		},
	}

	dag, err := BuildDAG(spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Проверяем количество узлов
	if dag.Size() != 3 {
		t.Errorf("expected 3 nodes, got %d", dag.Size())
	}

	// Проверяем корневые узлы
	if len(dag.Roots) != 1 {
		t.Errorf("expected 1 root node, got %d", len(dag.Roots))
	}
	if dag.Roots[0].Name != "lint" {
		t.Errorf("expected root node lint, got %s", dag.Roots[0].Name)
	}

	// Проверяем зависимости
	testNode := dag.GetNode("test")
	if len(testNode.DependsOn) != 1 || testNode.DependsOn[0].Name != "lint" {
		t.Error("test should depend on lint")
	}

	buildNode := dag.GetNode("build")
	if len(buildNode.DependsOn) != 1 || buildNode.DependsOn[0].Name != "test" {
		t.Error("build should depend on test")
	}
}

func TestBuildDAG_Diamond(t *testing.T) {
	// lint → test → deploy
	// lint → build → deploy
	spec := &domain.PipelineSpec{
		Jobs: map[string]domain.JobDef{
			"lint":   gateJob(),
			"test":   gateJob("lint"),
			"build":  gateJob("lint"),
			"deploy": gateJob("test", "build"),
		},
	}

	dag, err := BuildDAG(spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if dag.Size() != 4 {
		t.Errorf("expected 4 nodes, got %d", dag.Size())
	}

	deployNode := dag.GetNode("deploy")
	if len(deployNode.DependsOn) != 2 {
		t.Errorf("deploy should have 2 dependencies, got %d", len(deployNode.DependsOn))
	}

	// Проверяем inDegree
	if dag.GetNode("lint").InDegree != 0 {
		t.Error("lint should have inDegree 0")
	}
	if dag.GetNode("test").InDegree != 1 {
		t.Error("test should have inDegree 1")
	}
	if dag.GetNode("build").InDegree != 1 {
		t.Error("build should have inDegree 1")
	}
	if dag.GetNode("deploy").InDegree != 2 {
		t.Error("deploy should have inDegree 2")
	}
}

func TestBuildDAG_CyclicDependency(t *testing.T) {
	spec := &domain.PipelineSpec{
		Jobs: map[string]domain.JobDef{
			"a": gateJob("c"),
			"b": gateJob("a"),
			"c": gateJob("b"),
		},
	}

	_, err := BuildDAG(spec)
	if !errors.Is(err, ErrCyclicDependency) {
		t.Errorf("expected ErrCyclicDependency, got %v", err)
	}
}

func TestBuildDAG_UnknownDependency(t *testing.T) {
	spec := &domain.PipelineSpec{
		Jobs: map[string]domain.JobDef{
			"test": gateJob("lint"),
		},
	}

	_, err := BuildDAG(spec)
	if !errors.Is(err, ErrMissingDependency) {
		t.Errorf("expected ErrMissingDependency, got %v", err)
	}
}

func TestBuildDAG_Empty(t *testing.T) {
	_, err := BuildDAG(&domain.PipelineSpec{})
	if !errors.Is(err, ErrNoJobs) {
		t.Errorf("expected ErrNoJobs, got %v", err)
	}
}

func TestReadyJobs(t *testing.T) {
	spec := &domain.PipelineSpec{
		Jobs: map[string]domain.JobDef{
			"lint":   gateJob(),
			"vet":    gateJob(),
			"test":   gateJob("lint"),
			"deploy": gateJob("lint", "vet"),
		},
	}

	dag, err := BuildDAG(spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Изначально готовы lint и vet (без зависимостей)
	ready := dag.ReadyJobs(nil, nil, nil)
	if len(ready) != 2 {
		t.Errorf("expected 2 ready jobs, got %d", len(ready))
	}

	readyNames := make(map[string]bool)
	for _, node := range ready {
		readyNames[node.Name] = true
	}
	if !readyNames["lint"] || !readyNames["vet"] {
		t.Error("lint and vet should be ready initially")
	}

	// После успеха lint готов test
	succeeded := map[string]bool{"lint": true}
	ready = dag.ReadyJobs(succeeded, nil, nil)

	readyNames = make(map[string]bool)
	for _, node := range ready {
		readyNames[node.Name] = true
	}
	if !readyNames["vet"] || !readyNames["test"] {
		t.Error("vet and test should be ready after lint succeeds")
	}
	if readyNames["deploy"] {
		t.Error("deploy should not be ready (needs vet)")
	}

	// После успеха lint и vet готов deploy
	succeeded = map[string]bool{"lint": true, "vet": true}
	ready = dag.ReadyJobs(succeeded, nil, nil)

	readyNames = make(map[string]bool)
	for _, node := range ready {
		readyNames[node.Name] = true
	}
	if !readyNames["test"] || !readyNames["deploy"] {
		t.Error("test and deploy should be ready after lint and vet succeed")
	}
}

func TestReadyJobs_WithRunning(t *testing.T) {
	spec := &domain.PipelineSpec{
		Jobs: map[string]domain.JobDef{
			"lint": gateJob(),
			"vet":  gateJob(),
		},
	}

	dag, err := BuildDAG(spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// lint выполняется, vet готов
	running := map[string]bool{"lint": true}
	ready := dag.ReadyJobs(nil, running, nil)

	if len(ready) != 1 {
		t.Errorf("expected 1 ready job, got %d", len(ready))
	}
	if ready[0].Name != "vet" {
		t.Errorf("expected vet to be ready, got %s", ready[0].Name)
	}
}

func TestReadyJobs_BlockedDownstream(t *testing.T) {
	spec := &domain.PipelineSpec{
		Jobs: map[string]domain.JobDef{
			"lint": gateJob(),
			"test": gateJob("lint"),
		},
	}

	dag, err := BuildDAG(spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// lint упал: test заблокирован и никогда не станет ready
	blocked := map[string]bool{"lint": true, "test": true}
	ready := dag.ReadyJobs(nil, nil, blocked)

	if len(ready) != 0 {
		t.Errorf("expected no ready jobs, got %d", len(ready))
	}
}

func TestDownstream(t *testing.T) {
	// lint → test → package → deploy
	//          ↘ docs
	spec := &domain.PipelineSpec{
		Jobs: map[string]domain.JobDef{
			"lint":    gateJob(),
			"test":    gateJob("lint"),
			"docs":    gateJob("test"),
			"package": gateJob("test"),
			"deploy":  gateJob("package"),
		},
	}

	dag, err := BuildDAG(spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	downstream := dag.Downstream("test")
	expected := []string{"deploy", "docs", "package"}
	if len(downstream) != len(expected) {
		t.Fatalf("expected %d downstream jobs, got %d: %v", len(expected), len(downstream), downstream)
	}
	for i, name := range expected {
		if downstream[i] != name {
			t.Errorf("expected downstream[%d]=%s, got %s", i, name, downstream[i])
		}
	}

	// Лист не имеет downstream
	if ds := dag.Downstream("deploy"); len(ds) != 0 {
		t.Errorf("deploy should have no downstream, got %v", ds)
	}

	// Неизвестный job — пустой результат
	if ds := dag.Downstream("nope"); ds != nil {
		t.Errorf("unknown job should have nil downstream, got %v", ds)
	}
}

func TestTopologicalSort(t *testing.T) {
	spec := &domain.PipelineSpec{
		Jobs: map[string]domain.JobDef{
			"lint":   gateJob(),
			"test":   gateJob("lint"),
			"build":  gateJob("lint"),
			"deploy": gateJob("test", "build"),
		},
	}

	dag, err := BuildDAG(spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	order := dag.Order
	if len(order) != 4 {
		t.Errorf("expected 4 nodes in order, got %d", len(order))
	}

	positions := make(map[string]int)
	for i, node := range order {
		positions[node.Name] = i
	}

	if positions["lint"] > positions["test"] {
		t.Error("lint should come before test")
	}
	if positions["lint"] > positions["build"] {
		t.Error("lint should come before build")
	}
	if positions["test"] > positions["deploy"] {
		t.Error("test should come before deploy")
	}
	if positions["build"] > positions["deploy"] {
		t.Error("build should come before deploy")
	}
}

func TestDAG_IsComplete(t *testing.T) {
	spec := &domain.PipelineSpec{
		Jobs: map[string]domain.JobDef{
			"lint": gateJob(),
			"test": gateJob(),
		},
	}

	dag, err := BuildDAG(spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if dag.IsComplete(nil) {
		t.Error("should not be complete with no terminal jobs")
	}

	if dag.IsComplete(map[string]bool{"lint": true}) {
		t.Error("should not be complete with only lint terminal")
	}

	if !dag.IsComplete(map[string]bool{"lint": true, "test": true}) {
		t.Error("should be complete with all jobs terminal")
	}
}
