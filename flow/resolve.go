package flow

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hupe1980/answermesh/core"
	"github.com/hupe1980/answermesh/tool"
	"github.com/kaptinlin/jsonrepair"
)

// resolveAction turns a model reply into the single action of the step. Only
// the first function call is acted on; further calls are dropped.
func resolveAction(content core.Content, tools *tool.Set) Action {
	thought := strings.TrimSpace(content.Text())

	calls := content.FunctionCalls()
	if len(calls) == 0 {
		return Action{Kind: ActionNone, Thought: thought}
	}

	call := calls[0]
	callID := call.ID
	if callID == "" {
		callID = core.NewID()
	}

	action := Action{
		Name:      call.Name,
		Arguments: call.Arguments,
		CallID:    callID,
		Thought:   thought,
	}

	t, ok := tools.Lookup(call.Name)
	switch {
	case !ok:
		action.Kind = ActionUnknown
	case t.Descriptor().Kind == tool.KindFinal:
		action.Kind = ActionFinal
	default:
		action.Kind = ActionInvoke
	}

	return action
}

// parseArguments decodes a JSON object of arguments, repairing malformed
// model output where possible.
func parseArguments(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, nil
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err == nil {
		if args == nil {
			args = map[string]any{}
		}
		return args, nil
	}

	repaired, err := jsonrepair.JSONRepair(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid arguments %q: %w", raw, err)
	}

	if err := json.Unmarshal([]byte(repaired), &args); err != nil {
		return nil, fmt.Errorf("arguments are not a JSON object: %w", err)
	}
	if args == nil {
		args = map[string]any{}
	}

	return args, nil
}

// unknownObservation lists the available capabilities for a bad name.
func unknownObservation(name string, tools *tool.Set) string {
	return fmt.Sprintf("error: unknown capability %q; available: %s", name, strings.Join(tools.Names(), ", "))
}

const plainTextReminder = "error: no capability was called. Call exactly one of the available capabilities, " +
	"or call " + tool.FinalAnswerName + " with your answer."
