package flow

import (
	"strings"

	"github.com/hupe1980/answermesh/core"
)

// State is a reasoning loop state.
type State int

const (
	StateThinking State = iota
	StateActing
	StateObserving
	StateDone
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateThinking:
		return "THINKING"
	case StateActing:
		return "ACTING"
	case StateObserving:
		return "OBSERVING"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool { return s == StateDone || s == StateFailed }

// ActionKind classifies what the model asked for in one step.
type ActionKind int

const (
	// ActionNone means the model replied without calling any capability.
	ActionNone ActionKind = iota
	// ActionInvoke names a capability of the agent.
	ActionInvoke
	// ActionUnknown names a capability the agent does not have.
	ActionUnknown
	// ActionFinal is the final answer directive.
	ActionFinal
)

// String returns the action kind name.
func (k ActionKind) String() string {
	switch k {
	case ActionNone:
		return "none"
	case ActionInvoke:
		return "invoke"
	case ActionUnknown:
		return "unknown"
	case ActionFinal:
		return "final"
	default:
		return "invalid"
	}
}

// Action is the resolved model decision of one step.
type Action struct {
	Kind      ActionKind
	Name      string
	Arguments string
	CallID    string
	// Thought is any free text the model emitted alongside the call.
	Thought string
}

// Observation is the result fed back to the model.
type Observation struct {
	Value string
	OK    bool
}

// Step records one think/act/observe cycle.
type Step struct {
	Index       int
	Action      Action
	Observation Observation
	Final       bool
}

// FailedPrefix tags answers synthesized for loops that ended in FAILED.
const FailedPrefix = "AGENT FAILED: "

// Outcome is the result of one loop invocation. Answer is always set: the
// final answer on DONE, a FailedPrefix tagged reason on FAILED.
type Outcome struct {
	State      State
	Answer     string
	Steps      []Step
	Transcript []core.Content
}

// Failed reports whether the loop ended without a final answer.
func (o Outcome) Failed() bool { return o.State == StateFailed }

// IsFailedAnswer reports whether an answer string was synthesized for a
// failed loop.
func IsFailedAnswer(answer string) bool { return strings.HasPrefix(answer, FailedPrefix) }
