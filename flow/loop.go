package flow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/answermesh/core"
	"github.com/hupe1980/answermesh/logging"
	"github.com/hupe1980/answermesh/model"
	"github.com/hupe1980/answermesh/tool"
)

const (
	// DefaultModelTimeout bounds a single backend call.
	DefaultModelTimeout = 180 * time.Second
	// DefaultMaxBackendErrors is the number of consecutive backend failures
	// after which a loop gives up.
	DefaultMaxBackendErrors = 3
)

var (
	// ErrInvalidBudget is returned for a non-positive step budget.
	ErrInvalidBudget = errors.New("max steps must be positive")
	// ErrMissingFinalAnswer is returned when the capability set has no final
	// answer directive.
	ErrMissingFinalAnswer = errors.New("capability set has no final answer directive")
	// ErrNilModel is returned when no backend model is configured.
	ErrNilModel = errors.New("model is nil")
)

// Options configures a Loop.
type Options struct {
	// Name identifies the owning agent in logs and spans.
	Name string
	// Instruction is prepended to the system prompt.
	Instruction string
	// MaxSteps is the step budget of one invocation.
	MaxSteps int
	// ModelTimeout bounds each backend call.
	ModelTimeout time.Duration
	// MaxBackendErrors consecutive backend failures end the loop.
	MaxBackendErrors int
	// Logger receives step level logs.
	Logger logging.Logger
	// Tracer creates one span per step. Defaults to the global tracer.
	Tracer trace.Tracer
	// OnStep is called after every completed step with the state reached.
	OnStep func(step Step, state State)
	// OnTransition is called on every state change.
	OnTransition func(from, to State)
}

// Loop is the bounded think/act/observe state machine of one agent. A Loop is
// immutable after construction; every Run owns its transcript so concurrent
// runs do not interfere.
type Loop struct {
	llm          model.Model
	tools        *tool.Set
	opts         Options
	systemPrompt string
	definitions  []model.ToolDefinition
}

// New creates a Loop over a fixed capability set.
func New(llm model.Model, tools *tool.Set, optFns ...func(o *Options)) (*Loop, error) {
	opts := Options{
		MaxSteps:         10,
		ModelTimeout:     DefaultModelTimeout,
		MaxBackendErrors: DefaultMaxBackendErrors,
		Logger:           logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if llm == nil {
		return nil, ErrNilModel
	}
	if opts.MaxSteps <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBudget, opts.MaxSteps)
	}
	if opts.ModelTimeout <= 0 {
		opts.ModelTimeout = DefaultModelTimeout
	}
	if opts.MaxBackendErrors <= 0 {
		opts.MaxBackendErrors = DefaultMaxBackendErrors
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer("github.com/hupe1980/answermesh/flow")
	}

	if !hasFinalAnswer(tools) {
		return nil, ErrMissingFinalAnswer
	}

	descriptors := tools.Descriptors()
	prompt, err := renderSystemPrompt(opts.Instruction, opts.MaxSteps, descriptors)
	if err != nil {
		return nil, fmt.Errorf("render system prompt: %w", err)
	}

	return &Loop{
		llm:          llm,
		tools:        tools,
		opts:         opts,
		systemPrompt: prompt,
		definitions:  toolDefinitions(descriptors),
	}, nil
}

func hasFinalAnswer(tools *tool.Set) bool {
	if tools == nil {
		return false
	}
	for _, d := range tools.Descriptors() {
		if d.Kind == tool.KindFinal {
			return true
		}
	}
	return false
}

// SystemPrompt returns the rendered system prompt.
func (l *Loop) SystemPrompt() string { return l.systemPrompt }

// MaxSteps returns the step budget.
func (l *Loop) MaxSteps() int { return l.opts.MaxSteps }

// run holds the mutable state of one invocation.
type run struct {
	loop        *Loop
	logger      logging.Logger
	budget      *StepBudget
	state       State
	transcript  []core.Content
	steps       []Step
	backendErrs int
}

// Run executes the loop for one prompt. It never returns an error: budget
// exhaustion, repeated backend failures and cancellation end in FAILED with a
// tagged answer.
func (l *Loop) Run(ctx context.Context, prompt string) Outcome {
	r := &run{
		loop:       l,
		logger:     logging.With(l.opts.Logger, "agent", l.opts.Name),
		budget:     NewStepBudget(l.opts.MaxSteps),
		state:      StateThinking,
		transcript: []core.Content{core.NewTextContent(core.RoleUser, prompt)},
	}

	r.logger.Debug("flow.run.start", "max_steps", l.opts.MaxSteps)

	for {
		if err := ctx.Err(); err != nil {
			return r.fail(fmt.Sprintf("cancelled: %v", err))
		}
		if r.budget.Exhausted() {
			return r.fail(fmt.Sprintf("reached max steps (%d) without a final answer", l.opts.MaxSteps))
		}

		if outcome, done := r.step(ctx); done {
			return outcome
		}
	}
}

// step performs one cycle. It returns done=true with the Outcome once a
// terminal state is reached.
func (r *run) step(ctx context.Context) (Outcome, bool) {
	l := r.loop
	index := r.budget.Count()

	ctx, span := l.opts.Tracer.Start(ctx, "flow.step", trace.WithAttributes(
		attribute.String("agent.name", l.opts.Name),
		attribute.Int("step.index", index),
	))
	defer span.End()

	start := time.Now()

	resp, err := r.think(ctx)
	if err != nil {
		if ctx.Err() != nil {
			span.SetStatus(codes.Error, "cancelled")
			return r.fail(fmt.Sprintf("cancelled: %v", ctx.Err())), true
		}

		r.backendErrs++
		span.RecordError(err)
		r.logger.Warn("flow.model.error", "step", index, "consecutive", r.backendErrs, "error", err.Error())

		step := Step{Index: index, Action: Action{Kind: ActionNone}, Observation: Observation{
			Value: fmt.Sprintf("error: model call failed: %v", err),
		}}
		r.record(step)

		if r.backendErrs >= l.opts.MaxBackendErrors {
			span.SetStatus(codes.Error, "backend failed")
			r.notify(step, StateFailed)
			return r.fail(fmt.Sprintf("model failed %d consecutive times: %v", r.backendErrs, err)), true
		}
		r.next()
		return Outcome{}, false
	}
	r.backendErrs = 0

	action := resolveAction(resp.Content, l.tools)
	span.SetAttributes(
		attribute.String("action.kind", action.Kind.String()),
		attribute.String("action.name", action.Name),
	)

	r.transition(StateActing)
	obs, final := r.act(ctx, action)
	r.transition(StateObserving)

	r.observe(action, obs)

	step := Step{Index: index, Action: action, Observation: obs, Final: final}
	r.record(step)

	r.logger.Info("flow.step.observed",
		"step", index,
		"action", action.Kind.String(),
		"capability", action.Name,
		"ok", obs.OK,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if final {
		r.transition(StateDone)
		r.notify(step, StateDone)
		r.logger.Info("flow.run.done", "steps", len(r.steps))
		return r.outcome(obs.Value), true
	}

	r.next()
	return Outcome{}, false
}

// think queries the backend with the current transcript under ModelTimeout.
func (r *run) think(ctx context.Context) (model.Response, error) {
	l := r.loop

	callCtx, cancel := context.WithTimeout(ctx, l.opts.ModelTimeout)
	defer cancel()

	req := model.Request{
		Instructions: l.systemPrompt,
		Contents:     r.transcript,
		Tools:        l.definitions,
	}

	resp, err := model.Collect(callCtx, l.llm, req)
	if err != nil {
		return model.Response{}, err
	}
	return resp, nil
}

// act executes the resolved action and returns its observation. final is
// true when a final answer was accepted.
func (r *run) act(ctx context.Context, action Action) (obs Observation, final bool) {
	l := r.loop

	switch action.Kind {
	case ActionNone:
		return Observation{Value: plainTextReminder}, false
	case ActionUnknown:
		return Observation{Value: unknownObservation(action.Name, l.tools)}, false
	}

	args, err := parseArguments(action.Arguments)
	if err != nil {
		return Observation{Value: fmt.Sprintf("error: %v", err)}, false
	}

	t, _ := l.tools.Lookup(action.Name)
	value, ok := tool.Invoke(ctx, t, args)
	if !ok {
		r.logger.Warn("flow.capability.failed", "capability", action.Name, "observation", value)
	}

	return Observation{Value: value, OK: ok}, ok && action.Kind == ActionFinal
}

// observe appends the assistant decision and the observation to the
// transcript.
func (r *run) observe(action Action, obs Observation) {
	if action.Kind == ActionNone {
		if action.Thought != "" {
			r.transcript = append(r.transcript, core.NewTextContent(core.RoleAssistant, action.Thought))
		}
		r.transcript = append(r.transcript, core.NewTextContent(core.RoleUser, obs.Value))
		return
	}

	parts := make([]core.Part, 0, 2)
	if action.Thought != "" {
		parts = append(parts, core.TextPart{Text: action.Thought})
	}
	parts = append(parts, core.FunctionCallPart{FunctionCall: core.FunctionCall{
		ID:        action.CallID,
		Name:      action.Name,
		Arguments: action.Arguments,
	}})

	r.transcript = append(r.transcript,
		core.Content{Role: core.RoleAssistant, Parts: parts},
		core.Content{Role: core.RoleTool, Parts: []core.Part{core.FunctionResponsePart{
			FunctionResponse: core.FunctionResponse{
				ID:       action.CallID,
				Name:     action.Name,
				Response: obs.Value,
				OK:       obs.OK,
			},
		}}},
	)
}

// record appends the step and consumes one unit of budget.
func (r *run) record(step Step) {
	r.steps = append(r.steps, step)
	// Run checks Exhausted before every step, so Consume cannot fail here.
	_ = r.budget.Consume()
}

// next returns to THINKING after a non-final step. OnStep reports FAILED
// when the step used up the budget.
func (r *run) next() {
	step := r.steps[len(r.steps)-1]
	if r.budget.Exhausted() {
		r.notify(step, StateFailed)
		return
	}
	r.transition(StateThinking)
	r.notify(step, StateThinking)
}

func (r *run) notify(step Step, state State) {
	if fn := r.loop.opts.OnStep; fn != nil {
		fn(step, state)
	}
}

func (r *run) transition(to State) {
	from := r.state
	r.state = to
	if fn := r.loop.opts.OnTransition; fn != nil && from != to {
		fn(from, to)
	}
}

func (r *run) fail(reason string) Outcome {
	r.transition(StateFailed)
	r.logger.Warn("flow.run.failed", "steps", len(r.steps), "reason", reason)
	return r.outcome(FailedPrefix + reason)
}

func (r *run) outcome(answer string) Outcome {
	return Outcome{
		State:      r.state,
		Answer:     answer,
		Steps:      r.steps,
		Transcript: r.transcript,
	}
}
