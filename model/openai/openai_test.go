package openai

import (
	"testing"

	"github.com/hupe1980/answermesh/core"
	"github.com/hupe1980/answermesh/model"
	"github.com/openai/openai-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transcript() model.Request {
	return model.Request{
		Instructions: "You are the manager.",
		Contents: []core.Content{
			core.NewTextContent(core.RoleUser, "What is 2+2?"),
			{Role: core.RoleAssistant, Parts: []core.Part{core.FunctionCallPart{FunctionCall: core.FunctionCall{
				ID: "call-1", Name: "calculator", Arguments: `{"expr":"2+2"}`,
			}}}},
			{Role: core.RoleTool, Parts: []core.Part{core.FunctionResponsePart{FunctionResponse: core.FunctionResponse{
				ID: "call-1", Name: "calculator", Response: "4", OK: true,
			}}}},
		},
		Tools: []model.ToolDefinition{{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        "calculator",
				Description: "Evaluates arithmetic",
				Parameters:  map[string]any{"type": "object"},
			},
		}},
	}
}

func TestBuildMessages_PairsToolResponses(t *testing.T) {
	req := transcript()
	responses, order := collectToolResponses(req)
	assert.Equal(t, []string{"call-1"}, order)
	assert.Equal(t, "4", responses["call-1"])

	msgs := buildMessages(req, responses, order)
	require.Len(t, msgs, 4)
	assert.NotNil(t, msgs[0].OfSystem)
	assert.NotNil(t, msgs[1].OfUser)
	require.NotNil(t, msgs[2].OfAssistant)
	assert.Len(t, msgs[2].OfAssistant.ToolCalls, 1)
	assert.NotNil(t, msgs[3].OfTool)
}

func TestBuildParams_DisablesParallelToolCalls(t *testing.T) {
	m := &Model{opts: defaultOptions()}
	req := transcript()
	responses, order := collectToolResponses(req)

	params := m.buildParams(req, buildMessages(req, responses, order))
	require.Len(t, params.Tools, 1)
	assert.Equal(t, "calculator", params.Tools[0].Function.Name)
	assert.Equal(t, openai.Bool(false), params.ParallelToolCalls)
	assert.Equal(t, openai.Float(0), params.Temperature)
}

func TestInfo(t *testing.T) {
	m := NewModel(func(o *Options) {
		o.Model = "openai/gpt-4.1"
		o.APIKey = "sk-test"
		o.BaseURL = DefaultOpenRouterBaseURL
	})
	info := m.Info()
	assert.Equal(t, "openai/gpt-4.1", info.Name)
	assert.Equal(t, "openai", info.Provider)
}
