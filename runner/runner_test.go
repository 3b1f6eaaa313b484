package runner

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/answermesh/agent"
	"github.com/hupe1980/answermesh/core"
	"github.com/hupe1980/answermesh/internal/testutil"
	"github.com/hupe1980/answermesh/model"
	"github.com/hupe1980/answermesh/results"
	"github.com/hupe1980/answermesh/tool"
)

type answerFunc func(ctx context.Context, prompt string) string

func (f answerFunc) Answer(ctx context.Context, prompt string) string { return f(ctx, prompt) }

func staticFactory(fn answerFunc) Factory {
	return func(core.Task) (Answerer, error) { return fn, nil }
}

type failingStore struct{ err error }

func (s failingStore) Save(context.Context, string, core.ResultSet) error { return s.err }
func (s failingStore) Load(context.Context, string) (core.ResultSet, error) {
	return core.ResultSet{}, core.ErrResultSetNotFound
}

func newDispatcher(t *testing.T, factory Factory, store core.ResultStore, optFns ...func(o *Options)) (*Dispatcher, *Metrics) {
	t.Helper()
	metrics := MustNewMetrics(prometheus.NewRegistry())
	fns := append([]func(o *Options){func(o *Options) {
		o.Store = store
		o.Metrics = metrics
	}}, optFns...)
	return New(factory, fns...), metrics
}

func TestEnrichPrompt(t *testing.T) {
	task := core.Task{ID: "t1", Question: "What is 2+2?"}

	first := EnrichPrompt(task)
	assert.Equal(t, first, EnrichPrompt(task))
	assert.True(t, strings.HasPrefix(first, "What is 2+2? Think hard to answer."))
	assert.True(t, strings.HasSuffix(first, " task_id: t1."))
	assert.NotContains(t, first, "file_name")

	withFile := EnrichPrompt(core.Task{ID: "t2", Question: "Read it.", FileName: "data.xlsx"})
	assert.Contains(t, withFile, " task_id: t2.")
	assert.True(t, strings.HasSuffix(withFile, " file_name: data.xlsx (use tools to fetch the file)"))
}

func TestDispatch_PersistsOneResultPerTask(t *testing.T) {
	store := results.NewInMemoryStore()
	d, metrics := newDispatcher(t, staticFactory(func(_ context.Context, prompt string) string {
		if strings.HasPrefix(prompt, "q2") {
			return "AGENT FAILED: Reached max steps (10) without final answer"
		}
		return "ok"
	}), store, func(o *Options) { o.MaxConcurrency = 2 })

	tasks := testutil.Tasks(5)
	set, err := d.Dispatch(context.Background(), "alice", tasks)
	require.NoError(t, err)

	require.Equal(t, 5, set.Len())
	for i, r := range set.Results {
		assert.Equal(t, tasks[i].ID, r.TaskID)
		assert.Equal(t, tasks[i].Question, r.Question)
	}
	assert.Equal(t, 1, set.Failed())
	assert.Equal(t, core.StatusFailed, set.Results[1].Status)

	stored, err := store.Load(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, testutil.Triples(set), testutil.Triples(stored))
	assert.Equal(t, 1, store.Saves())

	assert.Equal(t, 4.0, promtestutil.ToFloat64(metrics.tasksTotal.WithLabelValues(string(core.StatusDone))))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(metrics.tasksTotal.WithLabelValues(string(core.StatusFailed))))
	assert.Equal(t, 0.0, promtestutil.ToFloat64(metrics.tasksActive))
}

func TestDispatch_PanicIsIsolated(t *testing.T) {
	store := results.NewInMemoryStore()
	d, _ := newDispatcher(t, staticFactory(func(_ context.Context, prompt string) string {
		if strings.HasPrefix(prompt, "q2") {
			panic("boom")
		}
		return "fine"
	}), store)

	set, err := d.Dispatch(context.Background(), "alice", testutil.Tasks(3))
	require.NoError(t, err)

	require.Equal(t, 3, set.Len())
	assert.Equal(t, "fine", set.Results[0].Answer)
	assert.Equal(t, ErrorPrefix+"boom", set.Results[1].Answer)
	assert.Equal(t, core.StatusFailed, set.Results[1].Status)
	assert.Equal(t, "fine", set.Results[2].Answer)
}

func TestDispatch_RunsConcurrently(t *testing.T) {
	const n = 4
	var active, peak atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{}, n)

	d, _ := newDispatcher(t, staticFactory(func(context.Context, string) string {
		cur := active.Add(1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		started <- struct{}{}
		<-release
		active.Add(-1)
		return "done"
	}), results.NewInMemoryStore())

	go func() {
		for range n {
			<-started
		}
		close(release)
	}()

	set, err := d.Dispatch(context.Background(), "alice", testutil.Tasks(n))
	require.NoError(t, err)
	assert.Equal(t, n, set.Len())
	assert.Equal(t, int32(n), peak.Load())
}

func TestDispatch_BuildErrorFailsBatch(t *testing.T) {
	store := results.NewInMemoryStore()
	var calls atomic.Int32
	buildErr := errors.New("no api key")

	d, _ := newDispatcher(t, func(task core.Task) (Answerer, error) {
		if task.ID == "t3" {
			return nil, buildErr
		}
		return answerFunc(func(context.Context, string) string {
			calls.Add(1)
			return "x"
		}), nil
	}, store)

	_, err := d.Dispatch(context.Background(), "alice", testutil.Tasks(3))
	require.ErrorIs(t, err, ErrBatchFailed)
	require.ErrorIs(t, err, buildErr)
	assert.Equal(t, int32(0), calls.Load())

	_, err = store.Load(context.Background(), "alice")
	assert.ErrorIs(t, err, core.ErrResultSetNotFound)
}

func TestDispatch_PersistErrorFailsBatch(t *testing.T) {
	saveErr := errors.New("disk full")
	d, metrics := newDispatcher(t, staticFactory(func(context.Context, string) string { return "x" }), failingStore{err: saveErr})

	_, err := d.Dispatch(context.Background(), "alice", testutil.Tasks(2))
	require.ErrorIs(t, err, ErrBatchFailed)
	require.ErrorIs(t, err, saveErr)
	assert.Equal(t, 1.0, promtestutil.ToFloat64(metrics.persistFailures))
}

func TestDispatch_EmptyIdentity(t *testing.T) {
	d, _ := newDispatcher(t, staticFactory(func(context.Context, string) string { return "x" }), results.NewInMemoryStore())

	_, err := d.Dispatch(context.Background(), "", testutil.Tasks(1))
	require.ErrorIs(t, err, ErrEmptyIdentity)
	require.ErrorIs(t, err, ErrBatchFailed)
}

func TestDispatch_EmptyBatchPersistsEmptySet(t *testing.T) {
	store := results.NewInMemoryStore()
	d, _ := newDispatcher(t, staticFactory(func(context.Context, string) string { return "x" }), store)

	set, err := d.Dispatch(context.Background(), "alice", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, set.Len())

	stored, err := store.Load(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Len())
}

func TestDispatch_SimpleArithmeticWithoutFileFetch(t *testing.T) {
	var fetches atomic.Int32
	fetch := tool.NewFunctionTool("get_task_file_tool", "Downloads the task file", []tool.Input{
		{Name: "task_id", Type: tool.TypeString, Description: "task id"},
		{Name: "file_name", Type: tool.TypeString, Description: "file name"},
	}, func(context.Context, map[string]any) (any, error) {
		fetches.Add(1)
		return "/tmp/file", nil
	})

	var managerModel *model.ScriptedModel
	h, err := agent.NewHierarchy([]agent.Blueprint{{
		Name:     "manager",
		MaxSteps: 10,
		NewModel: func() (model.Model, error) {
			managerModel = model.NewScriptedModel([]model.Turn{
				model.ToolCallTurn(tool.FinalAnswerName, `{"answer":"4"}`),
			})
			return managerModel, nil
		},
		Tools: func() ([]tool.Tool, error) { return []tool.Tool{fetch}, nil },
	}})
	require.NoError(t, err)

	store := results.NewInMemoryStore()
	d, _ := newDispatcher(t, HierarchyFactory(h, "manager"), store)

	set, err := d.Dispatch(context.Background(), "alice", []core.Task{{ID: "t1", Question: "2+2"}})
	require.NoError(t, err)

	require.Equal(t, 1, set.Len())
	assert.Equal(t, core.TaskResult{TaskID: "t1", Question: "2+2", Answer: "4", Status: core.StatusDone}, set.Results[0])
	assert.Equal(t, int32(0), fetches.Load())
	require.NotNil(t, managerModel)
	assert.Equal(t, 1, managerModel.Calls())

	stored, err := store.Load(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "4", stored.Results[0].Answer)
}

func TestHierarchyFactory_UnknownRoot(t *testing.T) {
	h, err := agent.NewHierarchy(nil)
	require.NoError(t, err)

	_, err = HierarchyFactory(h, "manager")(core.Task{ID: "t1"})
	require.ErrorIs(t, err, agent.ErrUnknownAgent)
}

func TestAnswer_DoesNotPersist(t *testing.T) {
	store := results.NewInMemoryStore()
	d, _ := newDispatcher(t, staticFactory(func(_ context.Context, prompt string) string {
		return "seen: " + prompt[:2]
	}), store)

	r, err := d.Answer(context.Background(), core.Task{ID: "t7", Question: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "seen: hi", r.Answer)
	assert.Equal(t, core.StatusDone, r.Status)
	assert.Equal(t, 0, store.Saves())
}
