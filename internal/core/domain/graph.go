// Package domain contains the core domain models for pipeline execution.
package domain

import (
	"iter"
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

// Graph represents the dependency graph of jobs in a pipeline.
type Graph struct {
	jobs           map[InternedString]Job
	executionOrder []InternedString
}

// NewGraph creates a new empty Graph.
func NewGraph() *Graph {
	return &Graph{
		jobs: make(map[InternedString]Job),
	}
}

// AddJob adds a job to the graph.
// It returns an error if a job with the same name already exists.
func (g *Graph) AddJob(j *Job) error {
	if _, exists := g.jobs[j.Name]; exists {
		return zerr.With(zerr.Wrap(ErrJobAlreadyExists, "duplicate job name"), "job", j.Name.String())
	}
	g.jobs[j.Name] = *j
	return nil
}

// Job returns the job with the given name.
func (g *Graph) Job(name InternedString) (Job, error) {
	j, ok := g.jobs[name]
	if !ok {
		return Job{}, zerr.With(zerr.Wrap(ErrJobNotFound, "no such job"), "job", name.String())
	}
	return j, nil
}

// JobCount returns the number of jobs in the graph.
func (g *Graph) JobCount() int {
	return len(g.jobs)
}

// Validate checks for unknown needs and cycles using a depth-first
// topological sort. It populates the execution order if successful.
// Roots are visited in sorted name order so the order is deterministic.
func (g *Graph) Validate() error {
	g.executionOrder = make([]InternedString, 0, len(g.jobs))
	visited := make(map[InternedString]int) // 0: unvisited, 1: visiting, 2: visited
	var path []InternedString

	var visit func(u InternedString) error
	visit = func(u InternedString) error {
		visited[u] = 1
		path = append(path, u)

		job, exists := g.jobs[u]
		if !exists {
			return zerr.With(zerr.Wrap(ErrMissingDependency, "job needs unknown job"), "needs", u.String())
		}

		for _, dep := range job.Needs {
			if visited[dep] == 1 {
				return g.buildCycleError(path, dep)
			}
			if visited[dep] == 0 {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		visited[u] = 2
		path = path[:len(path)-1]
		g.executionOrder = append(g.executionOrder, u)
		return nil
	}

	for _, name := range g.sortedNames() {
		if visited[name] == 0 {
			if err := visit(name); err != nil {
				return err
			}
		}
	}

	return nil
}

func (g *Graph) sortedNames() []InternedString {
	names := make([]InternedString, 0, len(g.jobs))
	for name := range g.jobs {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b InternedString) int {
		return strings.Compare(a.String(), b.String())
	})
	return names
}

// buildCycleError constructs an error with cycle path metadata.
func (g *Graph) buildCycleError(path []InternedString, dep InternedString) error {
	cyclePath := ""
	startIdx := -1
	for i, node := range path {
		if node == dep {
			startIdx = i
			break
		}
	}
	for i := startIdx; i < len(path); i++ {
		cyclePath += path[i].String() + " -> "
	}
	cyclePath += dep.String()
	return zerr.With(zerr.Wrap(ErrCycleDetected, "jobs form a dependency cycle"), "cycle", cyclePath)
}

// Walk returns an iterator that yields jobs in execution order.
// It assumes Validate() has been called and returned nil.
func (g *Graph) Walk() iter.Seq[Job] {
	return func(yield func(Job) bool) {
		for _, name := range g.executionOrder {
			if !yield(g.jobs[name]) {
				return
			}
		}
	}
}

// Dependents returns the names of jobs that directly need the given job.
func (g *Graph) Dependents(name InternedString) []InternedString {
	var deps []InternedString
	for _, candidate := range g.executionOrder {
		job := g.jobs[candidate]
		if slices.Contains(job.Needs, name) {
			deps = append(deps, job.Name)
		}
	}
	return deps
}

// Closure returns the set of jobs required to run the given targets: the
// targets themselves plus every job reachable through Needs edges. An empty
// target list selects every job in the graph.
func (g *Graph) Closure(targets []InternedString) (map[InternedString]bool, error) {
	selected := make(map[InternedString]bool, len(g.jobs))

	if len(targets) == 0 {
		for name := range g.jobs {
			selected[name] = true
		}
		return selected, nil
	}

	var visit func(u InternedString) error
	visit = func(u InternedString) error {
		if selected[u] {
			return nil
		}
		job, ok := g.jobs[u]
		if !ok {
			return zerr.With(zerr.Wrap(ErrJobNotFound, "unknown target"), "job", u.String())
		}
		selected[u] = true
		for _, dep := range job.Needs {
			if err := visit(dep); err != nil {
				return err
			}
		}
		return nil
	}

	for _, target := range targets {
		if err := visit(target); err != nil {
			return nil, err
		}
	}
	return selected, nil
}
