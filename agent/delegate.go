package agent

import (
	"context"
	"fmt"

	"github.com/hupe1980/answermesh/tool"
)

const delegateTaskTemplate = `You're a helpful agent named '%s'.
You have been submitted this task by your manager.
---
Task:
%s
---
You're helping your manager solve a wider task: so make sure to not provide a one-line answer, but give as much information as possible to give them a clear understanding of the answer.`

// delegate exposes an Agent as a capability of its parent.
type delegate struct {
	agent *Agent
}

// AsTool returns the Delegate capability for the agent. Invoking it runs the
// agent's own reasoning loop; only the final answer is returned, and a
// budget-exhausted answer is passed back as a normal observation.
func (a *Agent) AsTool() tool.Tool { return &delegate{agent: a} }

func (d *delegate) Descriptor() tool.Descriptor {
	return tool.Descriptor{
		Name:        d.agent.name,
		Description: d.agent.description,
		Inputs: []tool.Input{{
			Name:        "task",
			Type:        tool.TypeString,
			Description: "Long detailed description of the task.",
		}},
		OutputType: tool.TypeString,
		Kind:       tool.KindDelegate,
	}
}

func (d *delegate) Call(ctx context.Context, args map[string]any) (any, error) {
	task, err := tool.StringArg(d.agent.name, args, "task")
	if err != nil {
		return nil, err
	}

	return d.agent.Answer(ctx, fmt.Sprintf(delegateTaskTemplate, d.agent.name, task)), nil
}
