package model

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hupe1980/answermesh/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptedModel_ReplaysTurnsInOrder(t *testing.T) {
	m := NewScriptedModel([]Turn{
		ToolCallTurn("web_search", `{"query":"go"}`),
		TextTurn("thinking"),
	})

	ctx := context.Background()
	req := Request{Contents: []core.Content{core.NewTextContent(core.RoleUser, "hi")}}

	first, err := Collect(ctx, m, req)
	require.NoError(t, err)
	calls := first.Content.FunctionCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "web_search", calls[0].Name)
	assert.Equal(t, "tool_calls", first.FinishReason)

	second, err := Collect(ctx, m, req)
	require.NoError(t, err)
	assert.Equal(t, "thinking", second.Content.Text())
	assert.Equal(t, "stop", second.FinishReason)

	_, err = Collect(ctx, m, req)
	assert.ErrorIs(t, err, ErrScriptExhausted)
	assert.Equal(t, 3, m.Calls())
}

func TestScriptedModel_RepeatLast(t *testing.T) {
	m := NewScriptedModel([]Turn{TextTurn("again")}, func(o *ScriptedOptions) { o.RepeatLast = true })

	for i := 0; i < 3; i++ {
		resp, err := Collect(context.Background(), m, Request{})
		require.NoError(t, err)
		assert.Equal(t, "again", resp.Content.Text())
	}
}

func TestScriptedModel_ErrorTurn(t *testing.T) {
	boom := errors.New("backend down")
	m := NewScriptedModel([]Turn{ErrorTurn(boom)})

	_, err := Collect(context.Background(), m, Request{})
	assert.ErrorIs(t, err, boom)
}

func TestScriptedModel_DelayHonoursDeadline(t *testing.T) {
	m := NewScriptedModel([]Turn{{Content: core.NewTextContent(core.RoleAssistant, "late"), Delay: time.Second}})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := Collect(ctx, m, Request{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestScriptedModel_RecordsRequests(t *testing.T) {
	m := NewScriptedModel([]Turn{TextTurn("ok")})
	contents := []core.Content{core.NewTextContent(core.RoleUser, "question")}

	_, err := Collect(context.Background(), m, Request{Instructions: "sys", Contents: contents})
	require.NoError(t, err)

	contents[0] = core.NewTextContent(core.RoleUser, "mutated")

	reqs := m.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "sys", reqs[0].Instructions)
	assert.Equal(t, "question", reqs[0].Contents[0].Text())
	assert.Equal(t, "scripted", m.Info().Provider)
}

type partialOnlyModel struct{}

func (partialOnlyModel) Generate(context.Context, Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 1)
	errCh := make(chan error)
	respCh <- Response{Partial: true, Content: core.NewTextContent(core.RoleAssistant, "par")}
	close(respCh)
	close(errCh)
	return respCh, errCh
}

func (partialOnlyModel) Info() Info { return Info{Name: "partial"} }

func TestCollect_NoFinalResponse(t *testing.T) {
	_, err := Collect(context.Background(), partialOnlyModel{}, Request{})
	assert.ErrorIs(t, err, ErrNoResponse)
}
