package flow

import (
	"encoding/json"
	"fmt"

	"github.com/hupe1980/answermesh/internal/util"
	"github.com/hupe1980/answermesh/model"
	"github.com/hupe1980/answermesh/tool"
)

const systemTemplate = `{{if .Instruction}}{{.Instruction}}

{{end}}You are an expert assistant who solves tasks step by step by calling capabilities.
In every step call exactly one capability. Its observation is returned to you before the next step.
You have at most {{.MaxSteps}} steps. As soon as you know the answer call {{.FinalAnswer}} with it.
Never call a capability that is not listed below.

Available capabilities:
{{range .Capabilities}}- {{.Name}}: {{.Description}}
    Takes inputs: {{.Inputs}}
    Returns an output of type: {{.OutputType}}
{{end}}`

type capabilityView struct {
	Name        string
	Description string
	Inputs      string
	OutputType  string
}

// renderSystemPrompt combines the agent instruction with the rendered
// capability descriptors.
func renderSystemPrompt(instruction string, maxSteps int, descriptors []tool.Descriptor) (string, error) {
	views := make([]capabilityView, 0, len(descriptors))
	for _, d := range descriptors {
		inputs := make(map[string]map[string]any, len(d.Inputs))
		for _, in := range d.Inputs {
			entry := map[string]any{"type": in.Type, "description": in.Description}
			if in.Default != nil || in.Optional {
				entry["nullable"] = true
			}
			inputs[in.Name] = entry
		}
		b, err := json.Marshal(inputs)
		if err != nil {
			return "", fmt.Errorf("render inputs of %s: %w", d.Name, err)
		}
		outputType := d.OutputType
		if outputType == "" {
			outputType = tool.TypeString
		}
		views = append(views, capabilityView{
			Name:        d.Name,
			Description: d.Description,
			Inputs:      string(b),
			OutputType:  outputType,
		})
	}

	return util.RenderTemplate(systemTemplate, map[string]any{
		"Instruction":  instruction,
		"MaxSteps":     maxSteps,
		"FinalAnswer":  tool.FinalAnswerName,
		"Capabilities": views,
	})
}

// toolDefinitions exposes the capability descriptors as model tool definitions.
func toolDefinitions(descriptors []tool.Descriptor) []model.ToolDefinition {
	defs := make([]model.ToolDefinition, 0, len(descriptors))
	for _, d := range descriptors {
		defs = append(defs, model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Schema(),
			},
		})
	}
	return defs
}
