package worker

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestStepRunner_AllSucceed(t *testing.T) {
	runner := &StepRunner{Dir: t.TempDir()}

	log, err := runner.Run(context.Background(), []Step{
		{Name: "first", Run: "echo one"},
		{Name: "second", Run: "echo two"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(log, "one") || !strings.Contains(log, "two") {
		t.Errorf("log should contain step output, got %q", log)
	}
	if !strings.Contains(log, "--- step: first ---") {
		t.Errorf("log should contain step markers, got %q", log)
	}
}

func TestStepRunner_FirstFailureStops(t *testing.T) {
	runner := &StepRunner{Dir: t.TempDir()}

	log, err := runner.Run(context.Background(), []Step{
		{Name: "ok", Run: "echo before"},
		{Name: "boom", Run: "exit 3"},
		{Name: "never", Run: "echo after"},
	})
	if err == nil {
		t.Fatal("expected error")
	}

	var stepErr *StepError
	if !errors.As(err, &stepErr) {
		t.Fatalf("expected StepError, got %T", err)
	}
	if stepErr.Step != "boom" {
		t.Errorf("expected failing step boom, got %s", stepErr.Step)
	}
	if stepErr.ExitCode != 3 {
		t.Errorf("expected exit code 3, got %d", stepErr.ExitCode)
	}

	// Steps после упавшего не выполняются
	if strings.Contains(log, "after") {
		t.Errorf("steps after the failure should not run, log: %q", log)
	}
	if !strings.Contains(log, "before") {
		t.Errorf("output of earlier steps should be kept, log: %q", log)
	}
}

func TestStepRunner_Env(t *testing.T) {
	runner := &StepRunner{
		Dir: t.TempDir(),
		Env: map[string]string{"DEPLOY_TOKEN": "s3cret"},
	}

	log, err := runner.Run(context.Background(), []Step{
		{Name: "env", Run: "echo token=$DEPLOY_TOKEN"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(log, "token=s3cret") {
		t.Errorf("injected env should be visible to steps, log: %q", log)
	}
}

func TestStepRunner_Timeout(t *testing.T) {
	runner := &StepRunner{
		Dir:     t.TempDir(),
		Timeout: 100 * time.Millisecond,
	}

	_, err := runner.Run(context.Background(), []Step{
		{Name: "slow", Run: "sleep 5"},
	})
	if err == nil {
		t.Fatal("expected timeout error")
	}

	var stepErr *StepError
	if !errors.As(err, &stepErr) {
		t.Fatalf("expected StepError, got %T", err)
	}
	if stepErr.Step != "slow" {
		t.Errorf("expected failing step slow, got %s", stepErr.Step)
	}
}

func TestStepRunner_NoSteps(t *testing.T) {
	runner := &StepRunner{Dir: t.TempDir()}

	log, err := runner.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if log != "" {
		t.Errorf("expected empty log, got %q", log)
	}
}
