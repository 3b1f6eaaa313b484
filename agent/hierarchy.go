package agent

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/answermesh/logging"
	"github.com/hupe1980/answermesh/model"
	"github.com/hupe1980/answermesh/tool"
)

var (
	// ErrDelegationCycle is returned when the delegation graph is not a tree.
	ErrDelegationCycle = errors.New("delegation cycle")
	// ErrUnknownAgent is returned for a reference to an undeclared agent.
	ErrUnknownAgent = errors.New("unknown agent")
	// ErrDuplicateAgent is returned when two blueprints share a name.
	ErrDuplicateAgent = errors.New("duplicate agent")
	// ErrNoModel is returned for a blueprint without backend model.
	ErrNoModel = errors.New("blueprint has no model")
)

// Blueprint declares one agent of a hierarchy. Tools and NewModel are
// factories so every Build yields fresh instances.
type Blueprint struct {
	Name        string
	Description string
	Instruction string
	// Model is shared by every build unless NewModel is set.
	Model model.Model
	// NewModel creates a dedicated model per build.
	NewModel func() (model.Model, error)
	MaxSteps int
	// Tools creates the primitive capabilities of one agent instance.
	Tools func() ([]tool.Tool, error)
	// SubAgents names the blueprints exposed as Delegates, in order.
	SubAgents []string
}

// HierarchyOptions configures a Hierarchy.
type HierarchyOptions struct {
	ModelTimeout     time.Duration
	MaxBackendErrors int
	Logger           logging.Logger
	OnStep           StepHook
}

// Hierarchy is a validated set of blueprints from which agent trees are
// built. A Hierarchy is immutable and safe for concurrent Build calls.
type Hierarchy struct {
	blueprints map[string]Blueprint
	order      []string
	opts       HierarchyOptions
}

// NewHierarchy registers blueprints. Names must be non-empty and unique.
func NewHierarchy(blueprints []Blueprint, optFns ...func(o *HierarchyOptions)) (*Hierarchy, error) {
	opts := HierarchyOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	h := &Hierarchy{
		blueprints: make(map[string]Blueprint, len(blueprints)),
		order:      make([]string, 0, len(blueprints)),
		opts:       opts,
	}

	for _, bp := range blueprints {
		if bp.Name == "" {
			return nil, ErrEmptyName
		}
		if _, exists := h.blueprints[bp.Name]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateAgent, bp.Name)
		}
		h.blueprints[bp.Name] = bp
		h.order = append(h.order, bp.Name)
	}

	return h, nil
}

// Names returns the blueprint names in registration order.
func (h *Hierarchy) Names() []string {
	out := make([]string, len(h.order))
	copy(out, h.order)
	return out
}

// Validate checks the tree rooted at root without building it: every
// referenced agent exists, budgets are positive, models are configured and
// no agent delegates (transitively) to itself.
func (h *Hierarchy) Validate(root string) error {
	return h.walk(root, nil, map[string]bool{})
}

// walk is a depth-first traversal keeping the current delegation path as the
// visited set for cycle detection.
func (h *Hierarchy) walk(name string, path []string, onPath map[string]bool) error {
	if onPath[name] {
		cycle := append(append([]string{}, path...), name)
		return fmt.Errorf("%w: %s", ErrDelegationCycle, strings.Join(cycle, " -> "))
	}

	bp, ok := h.blueprints[name]
	if !ok {
		if len(path) == 0 {
			return fmt.Errorf("%w: %q", ErrUnknownAgent, name)
		}
		return fmt.Errorf("%w: %q referenced by %q", ErrUnknownAgent, name, path[len(path)-1])
	}
	if bp.MaxSteps <= 0 {
		return fmt.Errorf("agent %q: %w: %d", name, ErrInvalidBudget, bp.MaxSteps)
	}
	if bp.Model == nil && bp.NewModel == nil {
		return fmt.Errorf("agent %q: %w", name, ErrNoModel)
	}

	onPath[name] = true
	path = append(path, name)
	for _, sub := range bp.SubAgents {
		if err := h.walk(sub, path, onPath); err != nil {
			return err
		}
	}
	delete(onPath, name)

	return nil
}

// Build validates the tree rooted at root and constructs a brand-new agent
// tree. Nothing is shared between two builds except models configured via
// Blueprint.Model.
func (h *Hierarchy) Build(root string) (*Agent, error) {
	if err := h.Validate(root); err != nil {
		return nil, err
	}
	return h.build(root)
}

func (h *Hierarchy) build(name string) (*Agent, error) {
	bp := h.blueprints[name]

	subAgents := make([]*Agent, 0, len(bp.SubAgents))
	for _, subName := range bp.SubAgents {
		sub, err := h.build(subName)
		if err != nil {
			return nil, err
		}
		subAgents = append(subAgents, sub)
	}

	var tools []tool.Tool
	if bp.Tools != nil {
		var err error
		if tools, err = bp.Tools(); err != nil {
			return nil, fmt.Errorf("agent %q: create tools: %w", name, err)
		}
	}

	llm := bp.Model
	if bp.NewModel != nil {
		var err error
		if llm, err = bp.NewModel(); err != nil {
			return nil, fmt.Errorf("agent %q: create model: %w", name, err)
		}
	}

	return New(name, llm, func(o *Options) {
		o.Description = bp.Description
		o.Instruction = bp.Instruction
		o.MaxSteps = bp.MaxSteps
		o.Tools = tools
		o.SubAgents = subAgents
		o.ModelTimeout = h.opts.ModelTimeout
		o.MaxBackendErrors = h.opts.MaxBackendErrors
		o.Logger = h.opts.Logger
		o.OnStep = h.opts.OnStep
	})
}
