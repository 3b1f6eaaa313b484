package model

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hupe1980/answermesh/core"
)

// ErrScriptExhausted is returned when a ScriptedModel runs out of turns.
var ErrScriptExhausted = errors.New("scripted model: no turns left")

// Turn is one scripted model reply.
type Turn struct {
	Content core.Content
	Err     error
	// Delay blocks the reply; a context deadline shorter than Delay makes the
	// call fail with the context error.
	Delay time.Duration
	// Panic makes Generate panic inside the caller goroutine.
	Panic any
}

// ScriptedModel is a deterministic in-memory Model for tests and dry runs.
// It replays turns in order and records every request it receives.
type ScriptedModel struct {
	mu         sync.Mutex
	info       Info
	turns      []Turn
	next       int
	repeatLast bool
	requests   []Request
}

// ScriptedOptions configures a ScriptedModel.
type ScriptedOptions struct {
	Name string
	// RepeatLast replays the final turn forever instead of failing with
	// ErrScriptExhausted.
	RepeatLast bool
}

// NewScriptedModel constructs a ScriptedModel replaying turns.
func NewScriptedModel(turns []Turn, optFns ...func(o *ScriptedOptions)) *ScriptedModel {
	opts := ScriptedOptions{Name: "scripted"}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &ScriptedModel{
		info: Info{
			Name:          opts.Name,
			Provider:      "scripted",
			SupportsTools: true,
		},
		turns:      turns,
		repeatLast: opts.RepeatLast,
	}
}

// Generate implements Model.
func (m *ScriptedModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	turn, err := m.take(req)
	if err == nil && turn.Panic != nil {
		panic(turn.Panic)
	}

	respCh := make(chan Response, 1)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)

		if err != nil {
			errCh <- err
			return
		}

		if turn.Delay > 0 {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case <-time.After(turn.Delay):
			}
		}

		if turn.Err != nil {
			errCh <- turn.Err
			return
		}

		finish := "stop"
		if len(turn.Content.FunctionCalls()) > 0 {
			finish = "tool_calls"
		}
		respCh <- Response{
			ID:           core.NewID(),
			Content:      turn.Content,
			FinishReason: finish,
		}
	}()

	return respCh, errCh
}

func (m *ScriptedModel) take(req Request) (Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	contents := make([]core.Content, len(req.Contents))
	copy(contents, req.Contents)
	req.Contents = contents
	m.requests = append(m.requests, req)

	if m.next >= len(m.turns) {
		if m.repeatLast && len(m.turns) > 0 {
			return m.turns[len(m.turns)-1], nil
		}
		return Turn{}, ErrScriptExhausted
	}
	t := m.turns[m.next]
	m.next++
	return t, nil
}

// Requests returns a copy of every request received so far.
func (m *ScriptedModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Calls returns the number of Generate calls.
func (m *ScriptedModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Info implements Model.
func (m *ScriptedModel) Info() Info { return m.info }

// ToolCallTurn scripts a reply requesting a single capability invocation.
func ToolCallTurn(name, arguments string) Turn {
	return Turn{Content: core.Content{
		Role: core.RoleAssistant,
		Parts: []core.Part{core.FunctionCallPart{FunctionCall: core.FunctionCall{
			ID:        core.NewID(),
			Name:      name,
			Arguments: arguments,
		}}},
	}}
}

// TextTurn scripts a plain text reply without any tool call.
func TextTurn(text string) Turn {
	return Turn{Content: core.NewTextContent(core.RoleAssistant, text)}
}

// ErrorTurn scripts a backend failure.
func ErrorTurn(err error) Turn { return Turn{Err: err} }
