// Package scheduler implements the pipeline execution engine.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"go.trai.ch/zerr"

	"github.com/kilnbuild/kiln/internal/core/domain"
	"github.com/kilnbuild/kiln/internal/core/ports"
	"github.com/kilnbuild/kiln/internal/expr"
)

// JobStatus represents the status of a job.
type JobStatus string

const (
	// StatusPending indicates the job is waiting to be executed.
	StatusPending JobStatus = "Pending"
	// StatusRunning indicates the job is currently executing.
	StatusRunning JobStatus = "Running"
	// StatusSucceeded indicates every step of the job finished successfully.
	StatusSucceeded JobStatus = "Succeeded"
	// StatusFailed indicates a step of the job exited non-zero.
	StatusFailed JobStatus = "Failed"
	// StatusSkipped indicates the job was not run because a job it needs failed.
	StatusSkipped JobStatus = "Skipped"
)

// Scheduler executes the jobs of a pipeline over their dependency graph.
type Scheduler struct {
	executor ports.Executor
	hasher   ports.Hasher
	store    ports.CacheStore
	verifier ports.Verifier
	tracer   ports.Tracer
	logger   ports.Logger

	mu        sync.RWMutex
	jobStatus map[domain.InternedString]JobStatus
	reports   map[domain.InternedString]domain.JobReport
}

// NewScheduler creates a new Scheduler.
func NewScheduler(
	executor ports.Executor,
	hasher ports.Hasher,
	store ports.CacheStore,
	verifier ports.Verifier,
	tracer ports.Tracer,
	logger ports.Logger,
) *Scheduler {
	return &Scheduler{
		executor:  executor,
		hasher:    hasher,
		store:     store,
		verifier:  verifier,
		tracer:    tracer,
		logger:    logger,
		jobStatus: make(map[domain.InternedString]JobStatus),
		reports:   make(map[domain.InternedString]domain.JobReport),
	}
}

// Status returns the current status of a job.
func (s *Scheduler) Status(name domain.InternedString) JobStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jobStatus[name]
}

func (s *Scheduler) updateStatus(name domain.InternedString, status JobStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobStatus[name] = status
}

func (s *Scheduler) recordReport(report domain.JobReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[domain.NewInternedString(report.JobName)] = report
}

// Run executes the targeted jobs (plus everything they need) with the given
// parallelism. An empty target list runs every job. force bypasses cache
// restore. The returned reports cover every job that ran, in execution
// order; the error joins the failures of all failed jobs.
func (s *Scheduler) Run(
	ctx context.Context,
	pipeline *domain.Pipeline,
	root string,
	targets []string,
	parallelism int,
	force bool,
) ([]domain.JobReport, error) {
	graph := pipeline.Jobs
	if err := graph.Validate(); err != nil {
		return nil, err
	}

	targetNames := make([]domain.InternedString, len(targets))
	for i, t := range targets {
		targetNames[i] = domain.NewInternedString(t)
	}
	selected, err := graph.Closure(targetNames)
	if err != nil {
		return nil, err
	}

	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}

	state := s.newRunState(ctx, pipeline, root, selected, parallelism, force)
	s.tracer.EmitPlan(ctx, state.plannedNames())

	for !state.isDone() {
		state.schedule()

		if state.isDone() {
			break
		}

		if state.ctx.Err() != nil && state.active == 0 {
			return s.orderedReports(graph), errors.Join(state.errs, state.ctx.Err())
		}

		select {
		case res := <-state.resultsCh:
			state.handleResult(res)
		case <-state.ctx.Done():
		}
	}

	if state.ctx.Err() != nil {
		state.errs = errors.Join(state.errs, state.ctx.Err())
	}

	return s.orderedReports(graph), state.errs
}

// orderedReports returns the collected job reports in execution order.
func (s *Scheduler) orderedReports(graph *domain.Graph) []domain.JobReport {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var reports []domain.JobReport
	for job := range graph.Walk() {
		if report, ok := s.reports[job.Name]; ok {
			reports = append(reports, report)
		}
	}
	return reports
}

type result struct {
	job    domain.InternedString
	report domain.JobReport
	err    error
}

type schedulerRunState struct {
	s *Scheduler

	pipeline *domain.Pipeline
	root     string
	force    bool

	inDegree  map[domain.InternedString]int
	jobs      map[domain.InternedString]domain.Job
	ready     []domain.InternedString
	active    int
	resultsCh chan result
	errs      error

	ctx         context.Context
	parallelism int
}

func (s *Scheduler) newRunState(
	ctx context.Context,
	pipeline *domain.Pipeline,
	root string,
	selected map[domain.InternedString]bool,
	parallelism int,
	force bool,
) *schedulerRunState {
	inDegree := make(map[domain.InternedString]int, len(selected))
	jobs := make(map[domain.InternedString]domain.Job, len(selected))

	for job := range pipeline.Jobs.Walk() {
		if !selected[job.Name] {
			continue
		}
		jobs[job.Name] = job
		inDegree[job.Name] = len(job.Needs)
		s.updateStatus(job.Name, StatusPending)
	}

	// Jobs in the closure only ever need other jobs in the closure, so the
	// in-degrees never count unselected jobs.
	var ready []domain.InternedString
	for job := range pipeline.Jobs.Walk() {
		if selected[job.Name] && inDegree[job.Name] == 0 {
			ready = append(ready, job.Name)
		}
	}

	return &schedulerRunState{
		s:           s,
		pipeline:    pipeline,
		root:        root,
		force:       force,
		inDegree:    inDegree,
		jobs:        jobs,
		ready:       ready,
		resultsCh:   make(chan result, parallelism),
		ctx:         ctx,
		parallelism: parallelism,
	}
}

func (state *schedulerRunState) plannedNames() []string {
	names := make([]string, 0, len(state.jobs))
	for job := range state.pipeline.Jobs.Walk() {
		if _, ok := state.jobs[job.Name]; ok {
			names = append(names, job.Name.String())
		}
	}
	return names
}

func (state *schedulerRunState) isDone() bool {
	return state.active == 0 && len(state.ready) == 0
}

func (state *schedulerRunState) schedule() {
	for len(state.ready) > 0 && state.active < state.parallelism && state.ctx.Err() == nil {
		jobName := state.ready[0]
		state.ready = state.ready[1:]

		state.active++
		state.s.updateStatus(jobName, StatusRunning)

		go func(j domain.Job) {
			report, err := state.s.runJob(state.ctx, state.pipeline, &j, state.root, state.force)
			state.resultsCh <- result{job: j.Name, report: report, err: err}
		}(state.jobs[jobName])
	}
}

func (state *schedulerRunState) handleResult(res result) {
	state.active--
	state.s.recordReport(res.report)

	if res.err != nil {
		wrappedErr := zerr.With(zerr.Wrap(res.err, "job failed"), "job", res.job.String())
		state.errs = errors.Join(state.errs, wrappedErr)
		state.s.updateStatus(res.job, StatusFailed)
		state.skipDependents(res.job)
		return
	}

	state.s.updateStatus(res.job, StatusSucceeded)
	for _, dep := range state.pipeline.Jobs.Dependents(res.job) {
		if _, ok := state.inDegree[dep]; !ok {
			continue
		}
		state.inDegree[dep]--
		if state.inDegree[dep] == 0 {
			state.ready = append(state.ready, dep)
		}
	}
}

// skipDependents transitively marks every selected job downstream of the
// failed job as skipped so they never become ready.
func (state *schedulerRunState) skipDependents(name domain.InternedString) {
	for _, dep := range state.pipeline.Jobs.Dependents(name) {
		if _, ok := state.inDegree[dep]; !ok {
			continue
		}
		if state.s.Status(dep) == StatusPending {
			state.s.updateStatus(dep, StatusSkipped)
			state.s.logger.Warn(fmt.Sprintf("skipping job %s: needed job %s failed", dep, name))
			state.skipDependents(dep)
		}
	}
}

// runJob executes one job: cache restore, the steps in order with fail-fast
// semantics, then cache save on success.
func (s *Scheduler) runJob(
	ctx context.Context,
	pipeline *domain.Pipeline,
	job *domain.Job,
	root string,
	force bool,
) (domain.JobReport, error) {
	report := domain.JobReport{JobName: job.Name.String()}

	ctx, span := s.tracer.Start(ctx, "job:"+job.Name.String())
	defer span.End()

	jobEnv := mergeEnv(pipeline.Env, job.Env)

	cacheKey, restored, err := s.restoreCache(ctx, job, root, force)
	if err != nil {
		span.RecordError(err)
		return report, err
	}
	report.CacheKey = cacheKey
	report.CacheHit = restored
	if restored {
		span.SetAttribute("kiln.cache_hit", true)
	}

	condEnv := s.conditionEnv(jobEnv, force, job.Name.String(), restored)

	for i := range job.Steps {
		step := &job.Steps[i]
		stepReport, err := s.runStep(ctx, step, jobEnv, condEnv)
		report.Steps = append(report.Steps, stepReport)
		if err != nil {
			span.RecordError(err)
			return report, err
		}
	}

	if err := s.saveCache(ctx, job, cacheKey, root); err != nil {
		span.RecordError(err)
		return report, err
	}

	return report, nil
}

// restoreCache computes the job's cache key and restores the cached
// directories unless force is set. A miss is not an error.
func (s *Scheduler) restoreCache(ctx context.Context, job *domain.Job, root string, force bool) (string, bool, error) {
	if job.Cache == nil {
		return "", false, nil
	}

	key, err := s.hasher.ComputeKey(job.Cache, root)
	if err != nil {
		return "", false, err
	}

	if force {
		s.logger.Info(fmt.Sprintf("job %s: cache restore bypassed (force)", job.Name))
		return key, false, nil
	}

	restored, err := s.store.Restore(key, internedToStrings(job.Cache.Paths), root)
	if err != nil {
		return key, false, err
	}

	if restored {
		_, span := s.tracer.Start(ctx, fmt.Sprintf("cache restore %s", key), ports.WithCached())
		span.End()
		s.logger.Info(fmt.Sprintf("job %s: cache hit for key %s", job.Name, key))
	} else {
		s.logger.Info(fmt.Sprintf("job %s: cache miss for key %s", job.Name, key))
	}

	return key, restored, nil
}

// saveCache stores the job's cached directories after a successful run.
// Paths that were never produced are reported but do not fail the job.
func (s *Scheduler) saveCache(ctx context.Context, job *domain.Job, key, root string) error {
	if job.Cache == nil {
		return nil
	}

	paths := internedToStrings(job.Cache.Paths)
	ok, err := s.verifier.VerifyPaths(root, paths)
	if err != nil {
		return err
	}
	if !ok {
		s.logger.Warn(fmt.Sprintf("job %s: cache save skipped, some cached paths are missing", job.Name))
		return nil
	}

	_, span := s.tracer.Start(ctx, fmt.Sprintf("cache save %s", key))
	defer span.End()

	if err := s.store.Save(key, job.Name.String(), paths, root); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// runStep evaluates the step's condition and executes its command. The
// returned error is nil for skipped and successful steps.
func (s *Scheduler) runStep(
	ctx context.Context,
	step *domain.Step,
	jobEnv []string,
	condEnv expr.Env,
) (domain.StepReport, error) {
	report := domain.StepReport{StepName: step.Name.String()}

	if step.If != "" {
		run, err := s.evalCondition(step.If, condEnv)
		if err != nil {
			return report, zerr.With(zerr.Wrap(err, "failed to evaluate step condition"), "step", step.Name.String())
		}
		if !run {
			report.Skipped = true
			s.logger.Info(fmt.Sprintf("step %s: skipped, condition is false", step.Name))
			return report, nil
		}
	}

	_, span := s.tracer.Start(ctx, "step:"+step.Name.String())
	defer span.End()

	start := time.Now()
	err := s.executor.Execute(ctx, step, jobEnv, span, span)
	report.Duration = time.Since(start)

	if err != nil {
		report.ExitCode = exitCodeOf(err)
		span.RecordError(err)
		return report, err
	}
	return report, nil
}

func (s *Scheduler) evalCondition(source string, env expr.Env) (bool, error) {
	parsed, err := expr.Parse(source)
	if err != nil {
		// Conditions are parsed at load time, so this only fires for
		// pipelines constructed programmatically.
		return false, err
	}
	return expr.NewInterpreter(env).EvaluateBool(parsed)
}

// conditionEnv builds the evaluation environment for step conditions:
// `env.*` resolves the merged job environment (on top of the process
// environment), `os` the platform, `force` the run flag, and `job.*` facts
// about the current job.
func (s *Scheduler) conditionEnv(jobEnv []string, force bool, jobName string, cacheHit bool) expr.Env {
	envMap := make(map[string]string)
	for _, entry := range os.Environ() {
		if k, v, ok := strings.Cut(entry, "="); ok {
			envMap[k] = v
		}
	}
	for _, entry := range jobEnv {
		if k, v, ok := strings.Cut(entry, "="); ok {
			envMap[k] = v
		}
	}

	return expr.MapEnv{
		"env":   envMap,
		"os":    runtime.GOOS,
		"force": force,
		"job": map[string]any{
			"name":      jobName,
			"cache_hit": cacheHit,
		},
	}
}

// mergeEnv flattens the pipeline and job environments into sorted
// "KEY=VALUE" entries. Job entries win.
func mergeEnv(pipelineEnv, jobEnv map[string]string) []string {
	merged := make(map[string]string, len(pipelineEnv)+len(jobEnv))
	for k, v := range pipelineEnv {
		merged[k] = v
	}
	for k, v := range jobEnv {
		merged[k] = v
	}

	entries := make([]string, 0, len(merged))
	for k, v := range merged {
		entries = append(entries, k+"="+v)
	}
	sort.Strings(entries)
	return entries
}

func internedToStrings(values []domain.InternedString) []string {
	res := make([]string, len(values))
	for i, v := range values {
		res[i] = v.String()
	}
	return res
}

// exitCodeOf extracts the exit code recorded by the executor.
func exitCodeOf(err error) int {
	var stepErr *domain.StepError
	if errors.As(err, &stepErr) {
		return stepErr.ExitCode
	}
	return -1
}
