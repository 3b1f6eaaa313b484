package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/answermesh/agent"
	"github.com/hupe1980/answermesh/core"
	"github.com/hupe1980/answermesh/flow"
	"github.com/hupe1980/answermesh/logging"
	"github.com/hupe1980/answermesh/results"
)

// ErrorPrefix tags answers of tasks whose invocation terminated exceptionally.
const ErrorPrefix = "AGENT ERROR: "

var (
	// ErrEmptyIdentity is returned when a batch has no requesting identity.
	ErrEmptyIdentity = errors.New("identity is empty")
	// ErrBatchFailed wraps every batch level failure. Nothing is persisted
	// when it is returned.
	ErrBatchFailed = errors.New("batch failed")
)

// Answerer answers one enriched task prompt. *agent.Agent implements it.
type Answerer interface {
	Answer(ctx context.Context, prompt string) string
}

// Factory builds a fresh agent tree for one task.
type Factory func(task core.Task) (Answerer, error)

// HierarchyFactory builds the tree rooted at root for every task.
func HierarchyFactory(h *agent.Hierarchy, root string) Factory {
	return func(core.Task) (Answerer, error) {
		a, err := h.Build(root)
		if err != nil {
			return nil, err
		}
		return a, nil
	}
}

// Options holds dependency and configuration overrides passed to New.
type Options struct {
	// MaxConcurrency limits concurrently answered tasks. Zero means unlimited.
	MaxConcurrency int
	// Store persists result sets. Defaults to an in-memory store.
	Store core.ResultStore
	// Logger receives dispatcher logs.
	Logger logging.Logger
	// Metrics receives dispatcher metrics. Defaults to the global registry.
	Metrics *Metrics
}

// Dispatcher fans tasks out to fresh agent trees and persists the answers.
// Public methods are safe for concurrent use.
type Dispatcher struct {
	factory        Factory
	store          core.ResultStore
	logger         logging.Logger
	metrics        *Metrics
	maxConcurrency int
}

// New constructs a Dispatcher with optional overrides.
func New(factory Factory, optFns ...func(o *Options)) *Dispatcher {
	opts := Options{
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Store == nil {
		opts.Store = results.NewInMemoryStore()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Metrics == nil {
		opts.Metrics = defaultMetrics()
	}

	return &Dispatcher{
		factory:        factory,
		store:          opts.Store,
		logger:         opts.Logger,
		metrics:        opts.Metrics,
		maxConcurrency: opts.MaxConcurrency,
	}
}

// Dispatch answers every task concurrently and persists the complete result
// set for identity once, after all tasks finished. Results keep the order of
// tasks. Individual task failures never fail the batch; agent construction
// and persistence errors do, and then nothing is persisted.
func (d *Dispatcher) Dispatch(ctx context.Context, identity string, tasks []core.Task) (core.ResultSet, error) {
	if identity == "" {
		return core.ResultSet{}, fmt.Errorf("%w: %w", ErrBatchFailed, ErrEmptyIdentity)
	}

	start := time.Now()
	logger := logging.With(d.logger, "identity", identity)

	// All trees are built before anything runs.
	agents := make([]Answerer, len(tasks))
	for i, task := range tasks {
		a, err := d.factory(task)
		if err != nil {
			logger.Error("runner.batch.build_failed", "task_id", task.ID, "error", err.Error())
			return core.ResultSet{}, fmt.Errorf("%w: build agents for task %s: %w", ErrBatchFailed, task.ID, err)
		}
		agents[i] = a
	}

	logger.Info("runner.batch.start", "tasks", len(tasks), "max_concurrency", d.maxConcurrency)

	// Each goroutine owns exactly one slot.
	slots := make([]core.TaskResult, len(tasks))

	var g errgroup.Group
	if d.maxConcurrency > 0 {
		g.SetLimit(d.maxConcurrency)
	}

	for i := range tasks {
		g.Go(func() error {
			slots[i] = d.runTask(ctx, logger, tasks[i], agents[i])
			return nil
		})
	}

	_ = g.Wait()

	set := core.ResultSet{Identity: identity, Results: slots}

	if err := d.store.Save(ctx, identity, set); err != nil {
		d.metrics.persistFailed()
		logger.Error("runner.batch.persist_failed", "error", err.Error())
		return core.ResultSet{}, fmt.Errorf("%w: persist results: %w", ErrBatchFailed, err)
	}

	logger.Info("runner.batch.done",
		"tasks", set.Len(),
		"failed", set.Failed(),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return set, nil
}

// Answer answers a single task without persisting anything.
func (d *Dispatcher) Answer(ctx context.Context, task core.Task) (core.TaskResult, error) {
	a, err := d.factory(task)
	if err != nil {
		return core.TaskResult{}, fmt.Errorf("build agents for task %s: %w", task.ID, err)
	}
	return d.runTask(ctx, d.logger, task, a), nil
}

// runTask answers one task inside its isolation boundary: panics are turned
// into a tagged answer and never reach other tasks.
func (d *Dispatcher) runTask(ctx context.Context, logger logging.Logger, task core.Task, a Answerer) (result core.TaskResult) {
	start := time.Now()
	logger = logging.With(logger, "task_id", task.ID)

	result = core.TaskResult{TaskID: task.ID, Question: task.Question}

	d.metrics.taskStarted()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("runner.task.panic", "recover", fmt.Sprint(r))
			result.Answer = fmt.Sprintf("%s%v", ErrorPrefix, r)
			result.Status = core.StatusFailed
		}
		d.metrics.taskFinished(result.Status, time.Since(start))
		logger.Info("runner.task.done",
			"status", string(result.Status),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}()

	logger.Info("runner.task.start", "has_attachment", task.HasAttachment())

	answer := a.Answer(ctx, EnrichPrompt(task))

	result.Answer = answer
	result.Status = core.StatusDone
	if flow.IsFailedAnswer(answer) {
		result.Status = core.StatusFailed
	}

	return result
}
