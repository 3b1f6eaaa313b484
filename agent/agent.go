package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/answermesh/flow"
	"github.com/hupe1980/answermesh/logging"
	"github.com/hupe1980/answermesh/model"
	"github.com/hupe1980/answermesh/tool"
)

var (
	// ErrDuplicateCapability is returned when an agent would expose two
	// capabilities with the same name.
	ErrDuplicateCapability = errors.New("duplicate capability")
	// ErrEmptyName is returned for an agent without a name.
	ErrEmptyName = errors.New("agent name is empty")
	// ErrSharedSubAgent is returned when a subordinate already has a parent.
	ErrSharedSubAgent = errors.New("sub-agent already owned by another agent")
	// ErrInvalidBudget is returned for a non-positive step budget.
	ErrInvalidBudget = flow.ErrInvalidBudget
)

// StepHook observes the reasoning steps of every agent in a tree.
type StepHook func(agent string, step flow.Step, state flow.State)

// Options configures an Agent.
type Options struct {
	// Description is shown to a parent when the agent acts as a Delegate.
	Description string
	// Instruction is prepended to the agent's system prompt.
	Instruction string
	// MaxSteps bounds one invocation. Defaults to 10.
	MaxSteps int
	// Tools are the primitive capabilities of the agent.
	Tools []tool.Tool
	// SubAgents are exposed as Delegate capabilities. Each must not have
	// another parent.
	SubAgents []*Agent
	// ModelTimeout bounds each backend call.
	ModelTimeout time.Duration
	// MaxBackendErrors consecutive backend failures end an invocation.
	MaxBackendErrors int
	// Logger receives agent and loop logs.
	Logger logging.Logger
	// OnStep observes every reasoning step.
	OnStep StepHook
}

// Agent is a reasoning agent with a capability set fixed at construction.
// It is safe for concurrent Run calls; each call owns its transcript.
type Agent struct {
	name        string
	description string
	loop        *flow.Loop
	tools       *tool.Set
	subAgents   []*Agent
	logger      logging.Logger

	mu     sync.Mutex
	parent *Agent
}

// New creates an Agent. The final answer directive is always added to the
// capability set; capability names must be unique.
//
// Example:
//
//	researcher, _ := agent.New("researcher", llm, func(o *agent.Options) {
//	  o.Description = "Searches the web and reads pages."
//	  o.Tools = []tool.Tool{web.NewSearch(client), web.NewVisit(client)}
//	})
//	manager, _ := agent.New("manager", llm, func(o *agent.Options) {
//	  o.SubAgents = []*agent.Agent{researcher}
//	})
func New(name string, llm model.Model, optFns ...func(o *Options)) (*Agent, error) {
	opts := Options{
		MaxSteps: 10,
		Logger:   logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if name == "" {
		return nil, ErrEmptyName
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.MaxSteps <= 0 {
		return nil, fmt.Errorf("agent %q: %w: %d", name, ErrInvalidBudget, opts.MaxSteps)
	}
	if opts.Description == "" {
		opts.Description = fmt.Sprintf("Agent %s", name)
	}

	capabilities := make([]tool.Tool, 0, len(opts.Tools)+len(opts.SubAgents)+1)
	capabilities = append(capabilities, opts.Tools...)
	for _, sub := range opts.SubAgents {
		capabilities = append(capabilities, sub.AsTool())
	}
	capabilities = append(capabilities, tool.NewFinalAnswer())

	set, err := tool.NewSet(capabilities...)
	if err != nil {
		return nil, fmt.Errorf("agent %q: %w: %w", name, ErrDuplicateCapability, err)
	}

	a := &Agent{
		name:        name,
		description: opts.Description,
		tools:       set,
		subAgents:   opts.SubAgents,
		logger:      logging.With(opts.Logger, "agent", name),
	}

	loop, err := flow.New(llm, set, func(o *flow.Options) {
		o.Name = name
		o.Instruction = opts.Instruction
		o.MaxSteps = opts.MaxSteps
		o.ModelTimeout = opts.ModelTimeout
		o.MaxBackendErrors = opts.MaxBackendErrors
		o.Logger = opts.Logger
		if opts.OnStep != nil {
			hook := opts.OnStep
			o.OnStep = func(step flow.Step, state flow.State) { hook(a.Path(), step, state) }
		}
	})
	if err != nil {
		return nil, fmt.Errorf("agent %q: %w", name, err)
	}
	a.loop = loop

	if err := a.adopt(opts.SubAgents); err != nil {
		return nil, err
	}

	return a, nil
}

// adopt enforces the single-parent rule for subordinates.
func (a *Agent) adopt(children []*Agent) error {
	for i, child := range children {
		child.mu.Lock()
		owned := child.parent != nil
		if !owned {
			child.parent = a
		}
		child.mu.Unlock()

		if owned {
			for _, adopted := range children[:i] {
				adopted.mu.Lock()
				adopted.parent = nil
				adopted.mu.Unlock()
			}
			return fmt.Errorf("agent %q: %w: %q", a.name, ErrSharedSubAgent, child.name)
		}
	}
	return nil
}

// Name returns the agent name.
func (a *Agent) Name() string { return a.name }

// Description returns the agent description.
func (a *Agent) Description() string { return a.description }

// Path returns the dotted position of the agent in its hierarchy.
func (a *Agent) Path() string {
	a.mu.Lock()
	parent := a.parent
	a.mu.Unlock()

	if parent == nil {
		return a.name
	}
	return buildBranchPath(parent.Path(), a.name)
}

// Parent returns the owning agent, or nil for a root.
func (a *Agent) Parent() *Agent {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.parent
}

// SubAgents returns the direct subordinates.
func (a *Agent) SubAgents() []*Agent {
	out := make([]*Agent, len(a.subAgents))
	copy(out, a.subAgents)
	return out
}

// FindAgent searches the subtree rooted at a for an agent by name.
func (a *Agent) FindAgent(name string) *Agent {
	if a.name == name {
		return a
	}
	for _, sub := range a.subAgents {
		if found := sub.FindAgent(name); found != nil {
			return found
		}
	}
	return nil
}

// Capabilities returns the capability names in registration order.
func (a *Agent) Capabilities() []string { return a.tools.Names() }

// Loop exposes the reasoning loop.
func (a *Agent) Loop() *flow.Loop { return a.loop }

// Run executes one reasoning loop for the prompt. It never fails: the
// Outcome always carries an answer.
func (a *Agent) Run(ctx context.Context, prompt string) flow.Outcome {
	path := a.Path()
	start := time.Now()

	a.logger.Info("agent.run.start", "path", path)

	out := a.loop.Run(ctx, prompt)

	a.logger.Info("agent.run.end",
		"path", path,
		"state", out.State.String(),
		"steps", len(out.Steps),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return out
}

// Answer runs the agent and returns only its final answer.
func (a *Agent) Answer(ctx context.Context, prompt string) string {
	return a.Run(ctx, prompt).Answer
}
