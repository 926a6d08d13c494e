package config

// Kilnfile represents the structure of the kiln.yaml pipeline definition.
type Kilnfile struct {
	Version  string            `yaml:"version"`
	Env      map[string]string `yaml:"env"`
	EnvFiles []string          `yaml:"env_files"`
	Jobs     map[string]JobDTO `yaml:"jobs"`
}

// JobDTO represents a job definition in the pipeline file.
type JobDTO struct {
	Needs []string          `yaml:"needs"`
	Env   map[string]string `yaml:"env"`
	Cache *CacheDTO         `yaml:"cache"`
	Steps []StepDTO         `yaml:"steps"`
}

// CacheDTO represents a job's cache configuration.
type CacheDTO struct {
	Key   CacheKeyDTO `yaml:"key"`
	Paths []string    `yaml:"paths"`
}

// CacheKeyDTO describes how the cache key is derived: a checksum over the
// listed files combined with a static prefix.
type CacheKeyDTO struct {
	Prefix string   `yaml:"prefix"`
	Files  []string `yaml:"files"`
}

// StepDTO represents a single step of a job.
type StepDTO struct {
	Name       string            `yaml:"name"`
	Run        string            `yaml:"run"`
	If         string            `yaml:"if"`
	Env        map[string]string `yaml:"env"`
	WorkingDir string            `yaml:"working_dir"`
}
