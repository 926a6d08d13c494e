// Package shell provides the step executor adapter.
package shell

import (
	"context"
	"io"
	"os"
	"os/exec"
	"strings"

	"go.trai.ch/zerr"

	"github.com/kilnbuild/kiln/internal/core/domain"
	"github.com/kilnbuild/kiln/internal/core/ports"
)

// Executor implements ports.Executor using os/exec. Steps run through
// "sh -c" so pipeline files can use ordinary shell command lines.
type Executor struct {
	logger ports.Logger
}

// NewExecutor creates a new shell Executor.
func NewExecutor(logger ports.Logger) *Executor {
	return &Executor{
		logger: logger,
	}
}

var _ ports.Executor = (*Executor)(nil)

// Execute runs the step's command with the specified environment.
// The environment is merged with the following priority (low to high):
//  1. os.Environ() (system base)
//  2. env (pipeline and job environment)
//  3. step.Env (step overrides)
//
// Special handling is applied to PATH: entries from env are prepended to the
// system PATH rather than replacing it.
//
// Output goes to two places:
//  1. the structural logger, one line at a time
//  2. the stdout/stderr writers (the job's telemetry span)
func (e *Executor) Execute(ctx context.Context, step *domain.Step, env []string, stdout, stderr io.Writer) error {
	if step.Run == "" {
		return nil
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", step.Run) //nolint:gosec // user provided command

	if step.WorkingDir.String() != "" {
		cmd.Dir = step.WorkingDir.String()
	}

	cmd.Env = resolveEnvironment(os.Environ(), env, step.Env)
	cmd.Stdout = io.MultiWriter(&logWriter{logger: e.logger, level: "info"}, stdout)
	cmd.Stderr = io.MultiWriter(&logWriter{logger: e.logger, level: "error"}, stderr)

	if err := cmd.Run(); err != nil {
		exitCode := -1 // unknown or signal
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}

		failure := zerr.With(zerr.Wrap(domain.ErrStepFailed, err.Error()), "exit_code", exitCode)
		return &domain.StepError{
			ExitCode: exitCode,
			Err:      zerr.With(failure, "step", step.Name.String()),
		}
	}

	return nil
}

// logWriter streams command output into the logger one line at a time.
type logWriter struct {
	logger ports.Logger
	level  string
}

func (w *logWriter) Write(p []byte) (n int, err error) {
	msg := strings.TrimSuffix(string(p), "\n")
	for line := range strings.Lines(msg) {
		line = strings.TrimSuffix(line, "\n")
		if w.level == "info" {
			w.logger.Info(line)
		} else {
			w.logger.Error(zerr.New(line))
		}
	}
	return len(p), nil
}

// resolveEnvironment merges environment variables with the defined priority.
func resolveEnvironment(sysEnv, pipelineEnv []string, stepEnv map[string]string) []string {
	envMap := make(map[string]string, len(sysEnv)+len(pipelineEnv)+len(stepEnv))
	for _, entry := range sysEnv {
		if k, v, ok := strings.Cut(entry, "="); ok {
			envMap[k] = v
		}
	}

	for _, entry := range pipelineEnv {
		k, v, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		if k == "PATH" {
			if sysPath, exists := envMap["PATH"]; exists && sysPath != "" {
				envMap[k] = v + string(os.PathListSeparator) + sysPath
				continue
			}
		}
		envMap[k] = v
	}

	for k, v := range stepEnv {
		envMap[k] = v
	}

	result := make([]string, 0, len(envMap))
	for k, v := range envMap {
		result = append(result, k+"="+v)
	}
	return result
}
