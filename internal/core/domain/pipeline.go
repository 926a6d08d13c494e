package domain

// Step is a single shell invocation inside a job. Steps run in the order
// they are declared and the first non-zero exit aborts the job.
type Step struct {
	Name InternedString

	// Run is the shell command line, executed via "sh -c".
	Run string

	// If is an optional condition expression. A step with a condition that
	// evaluates falsey is skipped rather than executed.
	If string

	Env        map[string]string
	WorkingDir InternedString
}

// CacheSpec describes the directory cache of a job. The key is derived from
// the checksum of the key files (typically dependency lockfiles) plus a
// static prefix, so the cache invalidates exactly when the lockfiles change.
type CacheSpec struct {
	KeyPrefix string
	KeyFiles  []InternedString

	// Paths are the directories restored before the job's steps run and
	// saved after all steps succeed.
	Paths []InternedString
}

// Job is a named sequence of steps, optionally gated on other jobs via
// Needs and optionally carrying a directory cache.
type Job struct {
	Name  InternedString
	Needs []InternedString
	Steps []Step
	Env   map[string]string
	Cache *CacheSpec
}

// Pipeline is a fully loaded pipeline definition: the job graph plus the
// environment shared by every job.
type Pipeline struct {
	Env  map[string]string
	Jobs *Graph
}
