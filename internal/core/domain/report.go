package domain

import "time"

// CacheRecord describes one saved cache entry in the manifest.
type CacheRecord struct {
	Key       string    `json:"key,omitzero"`
	JobName   string    `json:"job_name,omitzero"`
	Paths     []string  `json:"paths,omitzero"`
	SizeBytes int64     `json:"size_bytes,omitzero"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}

// StepReport records the outcome of a single step.
type StepReport struct {
	StepName string        `json:"step_name,omitzero"`
	Skipped  bool          `json:"skipped,omitzero"`
	ExitCode int           `json:"exit_code,omitzero"`
	Duration time.Duration `json:"duration,omitzero"`
}

// JobReport records the outcome of a job: its cache key (when the job has a
// cache spec), whether the cache was restored, and the per-step results.
type JobReport struct {
	JobName  string       `json:"job_name,omitzero"`
	CacheKey string       `json:"cache_key,omitzero"`
	CacheHit bool         `json:"cache_hit,omitzero"`
	Steps    []StepReport `json:"steps,omitzero"`
}
