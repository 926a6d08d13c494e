// Package app implements the application layer for kiln.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.trai.ch/zerr"

	"github.com/kilnbuild/kiln/internal/core/domain"
	"github.com/kilnbuild/kiln/internal/core/ports"
	"github.com/kilnbuild/kiln/internal/engine/scheduler"
)

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	scheduler    *scheduler.Scheduler
	store        ports.CacheStore
	tracer       ports.Tracer
	logger       ports.Logger

	// workDir is the directory the pipeline file is loaded from and steps
	// run relative to.
	workDir string
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	sched *scheduler.Scheduler,
	store ports.CacheStore,
	tracer ports.Tracer,
	logger ports.Logger,
) *App {
	return &App{
		configLoader: loader,
		scheduler:    sched,
		store:        store,
		tracer:       tracer,
		logger:       logger,
		workDir:      ".",
	}
}

// SetWorkDir overrides the working directory. Used by tests.
func (a *App) SetWorkDir(dir string) {
	a.workDir = dir
}

// RunOptions control a pipeline run.
type RunOptions struct {
	// Targets selects the jobs to run; empty means every job.
	Targets []string
	// Parallelism bounds concurrently running jobs; <= 0 means NumCPU.
	Parallelism int
	// Force bypasses cache restore.
	Force bool
}

// Run executes the pipeline for the given options.
func (a *App) Run(ctx context.Context, opts RunOptions) error {
	defer func() {
		_ = a.tracer.Close()
	}()

	pipeline, err := a.configLoader.Load(a.workDir)
	if err != nil {
		return zerr.Wrap(err, "failed to load pipeline")
	}

	reports, runErr := a.scheduler.Run(ctx, pipeline, a.workDir, opts.Targets, opts.Parallelism, opts.Force)
	a.logSummary(reports)

	if runErr != nil {
		a.logger.Error(runErr)
		return errors.Join(domain.ErrRunFailed, runErr)
	}
	return nil
}

// Clean removes the cache store.
func (a *App) Clean(_ context.Context) error {
	if err := a.store.Prune(); err != nil {
		return zerr.Wrap(err, "failed to prune cache")
	}
	a.logger.Info("cache pruned")
	return nil
}

func (a *App) logSummary(reports []domain.JobReport) {
	for _, report := range reports {
		executed := 0
		skipped := 0
		for _, step := range report.Steps {
			if step.Skipped {
				skipped++
				continue
			}
			executed++
		}

		msg := fmt.Sprintf("job %s: %d step(s) run, %d skipped", report.JobName, executed, skipped)
		if report.CacheKey != "" {
			msg += fmt.Sprintf(", cache %s (hit=%t)", report.CacheKey, report.CacheHit)
		}
		a.logger.Info(msg)
	}
}
