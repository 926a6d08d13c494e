// Package config provides the pipeline configuration loader for kiln.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/joho/godotenv"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"

	"github.com/kilnbuild/kiln/internal/core/domain"
	"github.com/kilnbuild/kiln/internal/expr"
)

// DefaultFilename is the pipeline file kiln looks for in the working directory.
const DefaultFilename = "kiln.yaml"

// FileConfigLoader implements ports.ConfigLoader using a YAML file.
type FileConfigLoader struct {
	Filename string
}

// Load reads the pipeline from the given working directory.
func (l *FileConfigLoader) Load(cwd string) (*domain.Pipeline, error) {
	filename := l.Filename
	if filename == "" {
		filename = DefaultFilename
	}
	return Load(filepath.Join(cwd, filename))
}

// Load reads a pipeline file from the given path and returns a validated
// domain.Pipeline. Step conditions are parsed here so expression syntax
// errors surface before anything executes.
func Load(path string) (*domain.Pipeline, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is provided by user
	if err != nil {
		return nil, zerr.Wrap(err, "failed to read pipeline file")
	}

	var kilnfile Kilnfile
	if err := yaml.Unmarshal(data, &kilnfile); err != nil {
		return nil, zerr.Wrap(err, "failed to parse pipeline file")
	}

	env, err := loadEnv(&kilnfile, filepath.Dir(path))
	if err != nil {
		return nil, err
	}

	g := domain.NewGraph()
	jobNames := make(map[string]bool, len(kilnfile.Jobs))
	for name := range kilnfile.Jobs {
		jobNames[name] = true
	}

	for name, dto := range kilnfile.Jobs {
		job, err := buildJob(name, &dto, jobNames)
		if err != nil {
			return nil, err
		}
		if err := g.AddJob(job); err != nil {
			return nil, err
		}
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}

	return &domain.Pipeline{Env: env, Jobs: g}, nil
}

// loadEnv merges env files (godotenv) with the pipeline's inline env.
// Inline entries win over file entries.
func loadEnv(kilnfile *Kilnfile, dir string) (map[string]string, error) {
	env := make(map[string]string)

	for _, file := range kilnfile.EnvFiles {
		fileEnv, err := godotenv.Read(filepath.Join(dir, file))
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to read env file"), "file", file)
		}
		for k, v := range fileEnv {
			env[k] = v
		}
	}

	for k, v := range kilnfile.Env {
		env[k] = v
	}

	return env, nil
}

func buildJob(name string, dto *JobDTO, jobNames map[string]bool) (*domain.Job, error) {
	// "all" is the implicit run-everything target on the command line.
	if name == "all" {
		return nil, zerr.With(zerr.New("job name 'all' is reserved"), "job", name)
	}

	for _, dep := range dto.Needs {
		if !jobNames[dep] {
			return nil, zerr.With(zerr.With(zerr.Wrap(domain.ErrMissingDependency, "job needs unknown job"), "job", name), "needs", dep)
		}
	}

	if len(dto.Steps) == 0 {
		return nil, zerr.With(zerr.New("job has no steps"), "job", name)
	}

	steps := make([]domain.Step, 0, len(dto.Steps))
	for i, stepDTO := range dto.Steps {
		step, err := buildStep(name, i, &stepDTO)
		if err != nil {
			return nil, err
		}
		steps = append(steps, *step)
	}

	cache, err := buildCache(name, dto.Cache)
	if err != nil {
		return nil, err
	}

	return &domain.Job{
		Name:  domain.NewInternedString(name),
		Needs: internStrings(dto.Needs),
		Steps: steps,
		Env:   dto.Env,
		Cache: cache,
	}, nil
}

func buildStep(jobName string, idx int, dto *StepDTO) (*domain.Step, error) {
	if dto.Run == "" {
		return nil, zerr.With(zerr.With(zerr.New("step has no run command"), "job", jobName), "step", idx+1)
	}

	name := dto.Name
	if name == "" {
		name = fmt.Sprintf("step %d", idx+1)
	}

	if dto.If != "" {
		if _, err := expr.Parse(dto.If); err != nil {
			return nil, zerr.With(zerr.With(zerr.Wrap(err, "invalid step condition"), "job", jobName), "step", name)
		}
	}

	return &domain.Step{
		Name:       domain.NewInternedString(name),
		Run:        dto.Run,
		If:         dto.If,
		Env:        dto.Env,
		WorkingDir: domain.NewInternedString(dto.WorkingDir),
	}, nil
}

func buildCache(jobName string, dto *CacheDTO) (*domain.CacheSpec, error) {
	if dto == nil {
		return nil, nil
	}
	if len(dto.Key.Files) == 0 {
		return nil, zerr.With(zerr.New("cache key has no files"), "job", jobName)
	}
	if len(dto.Paths) == 0 {
		return nil, zerr.With(zerr.New("cache has no paths"), "job", jobName)
	}
	return &domain.CacheSpec{
		KeyPrefix: dto.Key.Prefix,
		KeyFiles:  canonicalizeStrings(dto.Key.Files),
		Paths:     canonicalizeStrings(dto.Paths),
	}, nil
}

func internStrings(strs []string) []domain.InternedString {
	res := make([]domain.InternedString, len(strs))
	for i, s := range strs {
		res[i] = domain.NewInternedString(s)
	}
	return res
}

// canonicalizeStrings sorts and deduplicates before interning so cache keys
// do not depend on declaration order.
func canonicalizeStrings(strs []string) []domain.InternedString {
	if len(strs) == 0 {
		return nil
	}

	sorted := make([]string, len(strs))
	copy(sorted, strs)
	slices.Sort(sorted)

	unique := slices.Compact(sorted)
	res := make([]domain.InternedString, len(unique))
	for i, s := range unique {
		res[i] = domain.NewInternedString(s)
	}
	return res
}
