package domain

import "go.trai.ch/zerr"

var (
	// ErrJobAlreadyExists is returned when attempting to add a job with a name that already exists.
	ErrJobAlreadyExists = zerr.New("job already exists")

	// ErrMissingDependency is returned when a job's needs reference a job that doesn't exist.
	ErrMissingDependency = zerr.New("missing dependency")

	// ErrCycleDetected is returned when a cycle is detected in the job dependency graph.
	ErrCycleDetected = zerr.New("cycle detected")

	// ErrJobNotFound is returned when a requested job is not found in the pipeline.
	ErrJobNotFound = zerr.New("job not found")

	// ErrStepFailed is returned when a step's command exits non-zero.
	ErrStepFailed = zerr.New("step failed")

	// ErrRunFailed is the top-level error for a pipeline run with at least
	// one failed job. The CLI maps it to exit code 1 without re-logging.
	ErrRunFailed = zerr.New("pipeline run failed")
)
