package engine

import (
	"errors"
	"testing"

	"github.com/conveyor-ci/conveyor/internal/domain"
)

func validSpec() *domain.PipelineSpec {
	return &domain.PipelineSpec{
		Name: "backend-cd",
		Triggers: []domain.TriggerDef{
			{Kind: domain.EventKindPush, Branch: "main", Paths: []string{"backend/**"}},
			{Kind: domain.EventKindManual, Branch: "main"},
		},
		Jobs: map[string]domain.JobDef{
			"test": {
				Kind:  domain.JobKindGate,
				Steps: []domain.StepDef{{Name: "go test", Run: "go test ./..."}},
				Cache: &domain.CacheDef{Manifest: "go.sum"},
			},
			"build": {
				Kind:  domain.JobKindBuild,
				Needs: []string{"test"},
				Steps: []domain.StepDef{{Name: "go build", Run: "go build -o bin/app ./cmd/app"}},
				Artifact: &domain.ArtifactDef{
					Name: "backend",
					Path: "bin/app",
				},
			},
			"deploy": {
				Kind:       domain.JobKindDeploy,
				Needs:      []string{"build"},
				Artifact:   &domain.ArtifactDef{Name: "backend"},
				Deployment: "backend-prod",
			},
		},
	}
}

func TestValidate_OK(t *testing.T) {
	if err := Validate(validSpec()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_NoTriggers(t *testing.T) {
	spec := validSpec()
	spec.Triggers = nil

	err := Validate(spec)
	if !errors.Is(err, ErrNoTriggers) {
		t.Errorf("expected ErrNoTriggers, got %v", err)
	}
}

func TestValidate_NoJobs(t *testing.T) {
	spec := validSpec()
	spec.Jobs = nil

	err := Validate(spec)
	if !errors.Is(err, ErrNoJobs) {
		t.Errorf("expected ErrNoJobs, got %v", err)
	}
}

func TestValidate_UnknownJobKind(t *testing.T) {
	spec := validSpec()
	spec.Jobs["weird"] = domain.JobDef{
		Kind:  "container",
		Steps: []domain.StepDef{{Name: "x", Run: "true"}},
	}

	err := Validate(spec)
	if !errors.Is(err, ErrUnknownJobKind) {
		t.Errorf("expected ErrUnknownJobKind, got %v", err)
	}
}

func TestValidate_GateWithoutSteps(t *testing.T) {
	spec := validSpec()
	spec.Jobs["empty"] = domain.JobDef{Kind: domain.JobKindGate}

	err := Validate(spec)
	if !errors.Is(err, ErrNoSteps) {
		t.Errorf("expected ErrNoSteps, got %v", err)
	}
}

func TestValidate_DeployWithoutSteps(t *testing.T) {
	// deploy без steps валиден: его работа — rollout
	spec := validSpec()
	job := spec.Jobs["deploy"]
	job.Steps = nil
	spec.Jobs["deploy"] = job

	if err := Validate(spec); err != nil {
		t.Errorf("deploy job without steps should be valid, got %v", err)
	}
}

func TestValidate_StepWithoutCommand(t *testing.T) {
	spec := validSpec()
	job := spec.Jobs["test"]
	job.Steps = append(job.Steps, domain.StepDef{Name: "broken"})
	spec.Jobs["test"] = job

	err := Validate(spec)
	if !errors.Is(err, ErrNoSteps) {
		t.Errorf("expected ErrNoSteps, got %v", err)
	}
}

func TestValidate_SelfDependency(t *testing.T) {
	spec := validSpec()
	spec.Jobs["selfish"] = domain.JobDef{
		Kind:  domain.JobKindGate,
		Needs: []string{"selfish"},
		Steps: []domain.StepDef{{Name: "x", Run: "true"}},
	}

	err := Validate(spec)
	if !errors.Is(err, ErrSelfDependency) {
		t.Errorf("expected ErrSelfDependency, got %v", err)
	}
}

func TestValidate_BuildWithoutArtifact(t *testing.T) {
	spec := validSpec()
	job := spec.Jobs["build"]
	job.Artifact = nil
	spec.Jobs["build"] = job

	err := Validate(spec)
	if !errors.Is(err, ErrMissingArtifact) {
		t.Errorf("expected ErrMissingArtifact, got %v", err)
	}
}

func TestValidate_DeployWithoutDeployment(t *testing.T) {
	spec := validSpec()
	job := spec.Jobs["deploy"]
	job.Deployment = ""
	spec.Jobs["deploy"] = job

	err := Validate(spec)
	if !errors.Is(err, ErrMissingDeployment) {
		t.Errorf("expected ErrMissingDeployment, got %v", err)
	}
}

func TestValidate_DeployWithoutArtifactName(t *testing.T) {
	spec := validSpec()
	job := spec.Jobs["deploy"]
	job.Artifact = nil
	spec.Jobs["deploy"] = job

	err := Validate(spec)
	if !errors.Is(err, ErrMissingArtifact) {
		t.Errorf("expected ErrMissingArtifact, got %v", err)
	}
}

func TestValidate_CycleDetected(t *testing.T) {
	spec := validSpec()
	a := spec.Jobs["test"]
	a.Needs = []string{"build"}
	spec.Jobs["test"] = a

	err := Validate(spec)
	if !errors.Is(err, ErrCyclicDependency) {
		t.Errorf("expected ErrCyclicDependency, got %v", err)
	}
}

func TestParseSpec_YAML(t *testing.T) {
	data := []byte(`
name: frontend-ci
triggers:
  - kind: pull_request
    branch: main
    paths:
      - "frontend/**"
jobs:
  lint:
    kind: gate
    steps:
      - name: eslint
        run: npx eslint .
  test:
    kind: gate
    needs: [lint]
    steps:
      - name: jest
        run: npx jest
    cache:
      manifest: package-lock.json
`)

	spec, err := ParseSpec(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if spec.Name != "frontend-ci" {
		t.Errorf("expected name frontend-ci, got %s", spec.Name)
	}
	if len(spec.Triggers) != 1 {
		t.Fatalf("expected 1 trigger, got %d", len(spec.Triggers))
	}
	if spec.Triggers[0].Kind != domain.EventKindPullRequest {
		t.Errorf("expected pull_request trigger, got %s", spec.Triggers[0].Kind)
	}
	if len(spec.Jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(spec.Jobs))
	}

	testJob := spec.Jobs["test"]
	if len(testJob.Needs) != 1 || testJob.Needs[0] != "lint" {
		t.Error("test should need lint")
	}
	if testJob.Cache == nil || testJob.Cache.Manifest != "package-lock.json" {
		t.Error("test should cache by package-lock.json")
	}
}

func TestParseSpec_Invalid(t *testing.T) {
	if _, err := ParseSpec([]byte("{not yaml")); err == nil {
		t.Error("expected error for malformed YAML")
	}
}
