package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/conveyor-ci/conveyor/internal/domain"
)

// Default step execution timeout.
const defaultStepTimeout = 15 * time.Minute

// StepError — первый step job'а, завершившийся ненулевым exit-статусом.
type StepError struct {
	// Step — имя упавшего шага.
	Step string

	// ExitCode — exit-статус команды (-1, если процесс не стартовал).
	ExitCode int

	// Err — исходная ошибка exec.
	Err error
}

// Error возвращает описание ошибки.
func (e *StepError) Error() string {
	return fmt.Sprintf("step %q failed with exit code %d", e.Step, e.ExitCode)
}

// Unwrap возвращает исходную ошибку.
func (e *StepError) Unwrap() error {
	return e.Err
}

// Step — команда для выполнения.
type Step struct {
	Name string
	Run  string
}

// stepsFromDef конвертирует steps спецификации в steps раннера.
func stepsFromDef(defs []domain.StepDef) []Step {
	steps := make([]Step, 0, len(defs))
	for _, d := range defs {
		steps = append(steps, Step{Name: d.Name, Run: d.Run})
	}
	return steps
}

// StepRunner последовательно выполняет shell-steps job'а.
type StepRunner struct {
	// Dir — рабочая директория steps.
	Dir string

	// Env — дополнительные переменные окружения (поверх os.Environ).
	Env map[string]string

	// Timeout — таймаут одного step (default: 15m).
	Timeout time.Duration
}

// Run выполняет steps по порядку и возвращает объединённый лог
// (stdout+stderr всех выполненных steps).
//
// Первый ненулевой exit-статус останавливает выполнение: последующие
// steps не запускаются, возвращается StepError.
func (r *StepRunner) Run(ctx context.Context, steps []Step) (string, error) {
	var log bytes.Buffer

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = defaultStepTimeout
	}

	for _, step := range steps {
		fmt.Fprintf(&log, "--- step: %s ---\n", step.Name)

		stepCtx, cancel := context.WithTimeout(ctx, timeout)
		cmd := exec.CommandContext(stepCtx, "sh", "-c", step.Run)
		cmd.Dir = r.Dir
		cmd.Stdout = &log
		cmd.Stderr = &log

		cmd.Env = os.Environ()
		for k, v := range r.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}

		err := cmd.Run()
		cancel()

		if err != nil {
			exitCode := -1
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				exitCode = exitErr.ExitCode()
			}

			fmt.Fprintf(&log, "--- step %q failed: exit code %d ---\n", step.Name, exitCode)

			return log.String(), &StepError{
				Step:     step.Name,
				ExitCode: exitCode,
				Err:      err,
			}
		}
	}

	return log.String(), nil
}
