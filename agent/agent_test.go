package agent

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/hupe1980/answermesh/flow"
	"github.com/hupe1980/answermesh/model"
	"github.com/hupe1980/answermesh/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoTool(name string) tool.Tool {
	return tool.NewFunctionTool(name, "Echoes its input", []tool.Input{
		{Name: "text", Type: tool.TypeString, Description: "text"},
	}, func(_ context.Context, args map[string]any) (any, error) {
		return args["text"], nil
	})
}

func failingSearch() tool.Tool {
	return tool.NewFunctionTool("web_search", "Searches the web", []tool.Input{
		{Name: "query", Type: tool.TypeString, Description: "query"},
	}, func(context.Context, map[string]any) (any, error) {
		return nil, errors.New("timeout")
	})
}

func scripted(turns ...model.Turn) *model.ScriptedModel {
	return model.NewScriptedModel(turns)
}

func staticModel(m model.Model) func() (model.Model, error) {
	return func() (model.Model, error) { return m, nil }
}

func TestNew_AddsFinalAnswerAndDelegates(t *testing.T) {
	researcher, err := New("researcher", scripted(), func(o *Options) {
		o.Description = "Finds facts"
		o.Tools = []tool.Tool{echoTool("web_search")}
	})
	require.NoError(t, err)

	manager, err := New("manager", scripted(), func(o *Options) {
		o.Tools = []tool.Tool{echoTool("get_task_file_tool")}
		o.SubAgents = []*Agent{researcher}
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"web_search", tool.FinalAnswerName}, researcher.Capabilities())
	assert.Equal(t, []string{"get_task_file_tool", "researcher", tool.FinalAnswerName}, manager.Capabilities())
	assert.Equal(t, "manager.researcher", researcher.Path())
	assert.Same(t, manager, researcher.Parent())
	assert.Same(t, researcher, manager.FindAgent("researcher"))
	assert.Nil(t, manager.FindAgent("chess_player"))
}

func TestNew_DuplicateCapabilityFailsBeforeRunning(t *testing.T) {
	m := scripted(model.ToolCallTurn(tool.FinalAnswerName, `{"answer":"x"}`))

	_, err := New("manager", m, func(o *Options) {
		o.Tools = []tool.Tool{echoTool("web_search"), echoTool("web_search")}
	})
	assert.ErrorIs(t, err, ErrDuplicateCapability)
	assert.ErrorIs(t, err, tool.ErrDuplicateName)

	_, err = New("manager", m, func(o *Options) {
		o.Tools = []tool.Tool{echoTool(tool.FinalAnswerName)}
	})
	assert.ErrorIs(t, err, ErrDuplicateCapability)

	assert.Equal(t, 0, m.Calls())
}

func TestNew_Validation(t *testing.T) {
	_, err := New("", scripted())
	assert.ErrorIs(t, err, ErrEmptyName)

	_, err = New("a", scripted(), func(o *Options) { o.MaxSteps = -1 })
	assert.ErrorIs(t, err, ErrInvalidBudget)
}

func TestNew_SubAgentsAreNotShared(t *testing.T) {
	child, err := New("researcher", scripted())
	require.NoError(t, err)

	_, err = New("manager", scripted(), func(o *Options) { o.SubAgents = []*Agent{child} })
	require.NoError(t, err)

	_, err = New("other", scripted(), func(o *Options) { o.SubAgents = []*Agent{child} })
	assert.ErrorIs(t, err, ErrSharedSubAgent)
}

func TestDelegate_Descriptor(t *testing.T) {
	a, err := New("researcher", scripted(), func(o *Options) { o.Description = "Finds facts" })
	require.NoError(t, err)

	d := a.AsTool().Descriptor()
	assert.Equal(t, "researcher", d.Name)
	assert.Equal(t, "Finds facts", d.Description)
	assert.Equal(t, tool.KindDelegate, d.Kind)
	require.Len(t, d.Inputs, 1)
	assert.Equal(t, "task", d.Inputs[0].Name)

	value, ok := tool.Invoke(context.Background(), a.AsTool(), map[string]any{})
	assert.False(t, ok)
	assert.Contains(t, value, tool.CodeValidation)
}

func TestDelegate_TranscriptInvisibleToParent(t *testing.T) {
	researcherModel := scripted(
		model.ToolCallTurn("web_search", `{"text":"internal detail"}`),
		model.ToolCallTurn(tool.FinalAnswerName, `{"answer":"Paris"}`),
	)
	managerModel := scripted(
		model.ToolCallTurn("researcher", `{"task":"capital of France"}`),
		model.ToolCallTurn(tool.FinalAnswerName, `{"answer":"Paris"}`),
	)

	researcher, err := New("researcher", researcherModel, func(o *Options) {
		o.Tools = []tool.Tool{echoTool("web_search")}
	})
	require.NoError(t, err)
	manager, err := New("manager", managerModel, func(o *Options) { o.SubAgents = []*Agent{researcher} })
	require.NoError(t, err)

	out := manager.Run(context.Background(), "What is the capital of France?")
	assert.Equal(t, flow.StateDone, out.State)
	assert.Equal(t, "Paris", out.Answer)
	assert.Equal(t, "Paris", out.Steps[0].Observation.Value)

	for _, req := range managerModel.Requests() {
		for _, c := range req.Contents {
			for _, call := range c.FunctionCalls() {
				assert.NotEqual(t, "web_search", call.Name)
			}
			for _, resp := range c.FunctionResponses() {
				assert.NotContains(t, resp.Response, "internal detail")
			}
		}
	}

	// The subordinate received the wrapped task, not the manager prompt.
	first := researcherModel.Requests()[0].Contents[0].Text()
	assert.Contains(t, first, "capital of France")
	assert.Contains(t, first, "named 'researcher'")
	assert.NotContains(t, first, "What is the capital")
}

func TestDelegate_FailingResearcher(t *testing.T) {
	researcherModel := model.NewScriptedModel(
		[]model.Turn{model.ToolCallTurn("web_search", `{"query":"x"}`)},
		func(o *model.ScriptedOptions) { o.RepeatLast = true },
	)
	managerModel := scripted(
		model.ToolCallTurn("researcher", `{"task":"find x"}`),
		model.ToolCallTurn(tool.FinalAnswerName, `{"answer":"unknown"}`),
	)

	h, err := NewHierarchy([]Blueprint{
		{Name: "manager", NewModel: staticModel(managerModel), MaxSteps: 5, SubAgents: []string{"researcher"}},
		{Name: "researcher", NewModel: staticModel(researcherModel), MaxSteps: 2, Tools: func() ([]tool.Tool, error) {
			return []tool.Tool{failingSearch()}, nil
		}},
	})
	require.NoError(t, err)

	manager, err := h.Build("manager")
	require.NoError(t, err)

	out := manager.Run(context.Background(), "find x")

	assert.Equal(t, flow.StateDone, out.State)
	assert.Equal(t, "unknown", out.Answer)
	require.Len(t, out.Steps, 2)

	obs := out.Steps[0].Observation
	assert.True(t, obs.OK)
	assert.True(t, flow.IsFailedAnswer(obs.Value))
	assert.Equal(t, 2, researcherModel.Calls())
}

func TestHierarchy_ValidateAndBuild(t *testing.T) {
	toolBuilds := 0
	var mu sync.Mutex
	h, err := NewHierarchy([]Blueprint{
		{Name: "manager", Model: scripted(), MaxSteps: 10, SubAgents: []string{"researcher", "chess_player"}},
		{Name: "researcher", Description: "Web research", Model: scripted(), MaxSteps: 10, Tools: func() ([]tool.Tool, error) {
			mu.Lock()
			toolBuilds++
			mu.Unlock()
			return []tool.Tool{echoTool("web_search"), echoTool("visit_webpage")}, nil
		}},
		{Name: "chess_player", Model: scripted(), MaxSteps: 10},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"manager", "researcher", "chess_player"}, h.Names())

	require.NoError(t, h.Validate("manager"))

	first, err := h.Build("manager")
	require.NoError(t, err)
	second, err := h.Build("manager")
	require.NoError(t, err)

	assert.Equal(t, []string{"researcher", "chess_player", tool.FinalAnswerName}, first.Capabilities())
	assert.NotSame(t, first, second)
	assert.NotSame(t, first.FindAgent("researcher"), second.FindAgent("researcher"))
	assert.Equal(t, 2, toolBuilds)
}

func TestHierarchy_Errors(t *testing.T) {
	m := scripted()

	t.Run("cycle", func(t *testing.T) {
		h, err := NewHierarchy([]Blueprint{
			{Name: "manager", Model: m, MaxSteps: 1, SubAgents: []string{"researcher"}},
			{Name: "researcher", Model: m, MaxSteps: 1, SubAgents: []string{"manager"}},
		})
		require.NoError(t, err)

		_, err = h.Build("manager")
		assert.ErrorIs(t, err, ErrDelegationCycle)
		assert.Contains(t, err.Error(), "manager -> researcher -> manager")
	})

	t.Run("self delegation", func(t *testing.T) {
		h, err := NewHierarchy([]Blueprint{{Name: "solo", Model: m, MaxSteps: 1, SubAgents: []string{"solo"}}})
		require.NoError(t, err)
		assert.ErrorIs(t, h.Validate("solo"), ErrDelegationCycle)
	})

	t.Run("unknown", func(t *testing.T) {
		h, err := NewHierarchy([]Blueprint{{Name: "manager", Model: m, MaxSteps: 1, SubAgents: []string{"ghost"}}})
		require.NoError(t, err)
		assert.ErrorIs(t, h.Validate("manager"), ErrUnknownAgent)
		assert.ErrorIs(t, h.Validate("nobody"), ErrUnknownAgent)
	})

	t.Run("budget", func(t *testing.T) {
		h, err := NewHierarchy([]Blueprint{{Name: "manager", Model: m}})
		require.NoError(t, err)
		assert.ErrorIs(t, h.Validate("manager"), ErrInvalidBudget)
	})

	t.Run("model", func(t *testing.T) {
		h, err := NewHierarchy([]Blueprint{{Name: "manager", MaxSteps: 1}})
		require.NoError(t, err)
		assert.ErrorIs(t, h.Validate("manager"), ErrNoModel)
	})

	t.Run("duplicate blueprint", func(t *testing.T) {
		_, err := NewHierarchy([]Blueprint{{Name: "a"}, {Name: "a"}})
		assert.ErrorIs(t, err, ErrDuplicateAgent)
	})

	t.Run("duplicate capability", func(t *testing.T) {
		h, err := NewHierarchy([]Blueprint{
			{Name: "manager", Model: m, MaxSteps: 1, SubAgents: []string{"web_search"}, Tools: func() ([]tool.Tool, error) {
				return []tool.Tool{echoTool("web_search")}, nil
			}},
			{Name: "web_search", Model: m, MaxSteps: 1},
		})
		require.NoError(t, err)
		_, err = h.Build("manager")
		assert.ErrorIs(t, err, ErrDuplicateCapability)
	})

	t.Run("tool factory", func(t *testing.T) {
		boom := errors.New("missing api key")
		h, err := NewHierarchy([]Blueprint{{Name: "manager", Model: m, MaxSteps: 1, Tools: func() ([]tool.Tool, error) {
			return nil, boom
		}}})
		require.NoError(t, err)
		_, err = h.Build("manager")
		assert.ErrorIs(t, err, boom)
	})
}

func TestHierarchy_StepHookSeesPaths(t *testing.T) {
	researcherModel := scripted(model.ToolCallTurn(tool.FinalAnswerName, `{"answer":"42"}`))
	managerModel := scripted(
		model.ToolCallTurn("researcher", `{"task":"t"}`),
		model.ToolCallTurn(tool.FinalAnswerName, `{"answer":"42"}`),
	)

	var (
		mu    sync.Mutex
		paths []string
	)
	h, err := NewHierarchy([]Blueprint{
		{Name: "manager", NewModel: staticModel(managerModel), MaxSteps: 3, SubAgents: []string{"researcher"}},
		{Name: "researcher", NewModel: staticModel(researcherModel), MaxSteps: 3},
	}, func(o *HierarchyOptions) {
		o.OnStep = func(agent string, _ flow.Step, _ flow.State) {
			mu.Lock()
			paths = append(paths, agent)
			mu.Unlock()
		}
	})
	require.NoError(t, err)

	manager, err := h.Build("manager")
	require.NoError(t, err)
	assert.Equal(t, "42", manager.Answer(context.Background(), "q"))

	assert.Equal(t, []string{"manager.researcher", "manager", "manager"}, paths)
}
