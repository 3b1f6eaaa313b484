package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/answermesh/internal/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -------------------- Schema & Validation Tests --------------------

type sampleArgs struct {
	A string `json:"a" description:"Field A"`
	B *int   `json:"b" description:"Optional pointer field"`
	C int    `json:"c,omitempty" description:"Omit empty field"`
}

func TestDescriptorSchema(t *testing.T) {
	d := Descriptor{
		Name: "visit_webpage",
		Inputs: []Input{
			{Name: "url", Type: TypeString, Description: "The url"},
			{Name: "max_chars", Type: TypeInteger, Description: "Limit", Default: 100},
			{Name: "note", Type: TypeString, Description: "Note", Optional: true},
		},
	}

	schema := d.Schema()
	props := schema["properties"].(map[string]any)
	assert.Len(t, props, 3)
	assert.Equal(t, []string{"url"}, schema["required"])
	assert.Equal(t, 100, props["max_chars"].(map[string]any)["default"])
}

func TestNewFunctionToolFromStruct(t *testing.T) {
	ft := NewFunctionToolFromStruct("sample", "Sample", sampleArgs{}, func(context.Context, map[string]any) (any, error) {
		return nil, nil
	})
	schema := ft.Descriptor().Schema()
	assert.ElementsMatch(t, []string{"a"}, schema["required"])
	assert.Len(t, schema["properties"], 3)
}

func TestValidateParameters(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"x": map[string]any{"type": "integer"},
		},
		"required": []string{"x"},
	}

	assert.NoError(t, util.ValidateParameters(map[string]any{"x": 5}, schema))

	err := util.ValidateParameters(map[string]any{}, schema)
	var vErr *util.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "x", vErr.Field)

	err = util.ValidateParameters(map[string]any{"x": "not-int"}, schema)
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Message, "expected type integer")

	// JSON decoded schemas carry []any.
	schema["required"] = []any{"x"}
	assert.Error(t, util.ValidateParameters(map[string]any{}, schema))
}

// -------------------- Invoke Contract Tests --------------------

func sumTool() *FunctionTool {
	return NewFunctionTool("sum", "Add numbers", []Input{
		{Name: "a", Type: TypeNumber, Description: "First"},
		{Name: "b", Type: TypeNumber, Description: "Second", Default: 1.0},
	}, func(_ context.Context, args map[string]any) (any, error) {
		return args["a"].(float64) + args["b"].(float64), nil
	}, func(o *FunctionToolOptions) { o.OutputType = TypeNumber })
}

func TestInvoke_Success(t *testing.T) {
	value, ok := Invoke(context.Background(), sumTool(), map[string]any{"a": 2.0, "b": 3.0})
	assert.True(t, ok)
	assert.Equal(t, "5", value)
}

func TestInvoke_AppliesDefaults(t *testing.T) {
	value, ok := Invoke(context.Background(), sumTool(), map[string]any{"a": 2.5})
	assert.True(t, ok)
	assert.Equal(t, "3.5", value)
}

func TestInvoke_ValidationFailure(t *testing.T) {
	value, ok := Invoke(context.Background(), sumTool(), map[string]any{})
	assert.False(t, ok)
	assert.Contains(t, value, CodeValidation)
	assert.Contains(t, value, "'a'")
}

func TestInvoke_ExecutionError(t *testing.T) {
	fail := NewFunctionTool("fail", "Fails", nil, func(context.Context, map[string]any) (any, error) {
		return nil, errors.New("boom")
	})
	value, ok := Invoke(context.Background(), fail, nil)
	assert.False(t, ok)
	assert.Equal(t, "error: tool error [EXECUTION_ERROR] in fail: boom", value)
}

func TestInvoke_CustomToolErrorPreserved(t *testing.T) {
	fail := NewFunctionTool("fetch", "Fetch", nil, func(context.Context, map[string]any) (any, error) {
		return nil, NewToolError("fetch", "not found", "NOT_FOUND")
	})
	value, ok := Invoke(context.Background(), fail, nil)
	assert.False(t, ok)
	assert.Contains(t, value, "[NOT_FOUND]")
}

func TestInvoke_RecoversPanic(t *testing.T) {
	boom := NewFunctionTool("boom", "Panics", nil, func(context.Context, map[string]any) (any, error) {
		panic("kaboom")
	})
	var (
		value string
		ok    bool
	)
	assert.NotPanics(t, func() { value, ok = Invoke(context.Background(), boom, nil) })
	assert.False(t, ok)
	assert.Contains(t, value, CodePanic)
	assert.Contains(t, value, "kaboom")
}

func TestInvoke_CanceledContext(t *testing.T) {
	called := false
	tt := NewFunctionTool("t", "T", nil, func(context.Context, map[string]any) (any, error) {
		called = true
		return "x", nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok := Invoke(ctx, tt, nil)
	assert.False(t, ok)
	assert.False(t, called)
}

func TestInvoke_StructuredResult(t *testing.T) {
	tt := NewFunctionTool("s", "S", nil, func(context.Context, map[string]any) (any, error) {
		return map[string]any{"move": "Rd5"}, nil
	})
	value, ok := Invoke(context.Background(), tt, nil)
	assert.True(t, ok)
	assert.JSONEq(t, `{"move":"Rd5"}`, value)
}

func TestFinalAnswer(t *testing.T) {
	fa := NewFinalAnswer()
	d := fa.Descriptor()
	assert.Equal(t, FinalAnswerName, d.Name)
	assert.Equal(t, KindFinal, d.Kind)

	value, ok := Invoke(context.Background(), fa, map[string]any{"answer": 4})
	assert.True(t, ok)
	assert.Equal(t, "4", value)
}

// -------------------- Set Tests --------------------

func TestSet(t *testing.T) {
	s, err := NewSet(sumTool(), NewFinalAnswer())
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"sum", FinalAnswerName}, s.Names())

	got, ok := s.Lookup("sum")
	assert.True(t, ok)
	assert.Equal(t, "sum", got.Descriptor().Name)

	_, ok = s.Lookup("missing")
	assert.False(t, ok)
}

func TestSet_RejectsDuplicates(t *testing.T) {
	_, err := NewSet(sumTool(), sumTool())
	assert.ErrorIs(t, err, ErrDuplicateName)

	_, err = NewSet(NewFunctionTool("", "", nil, nil))
	assert.ErrorIs(t, err, ErrEmptyName)
}

// -------------------- ToolError Formatting --------------------

func TestToolErrorFormatting(t *testing.T) {
	err := NewToolError("demo", "something failed", "E123")
	assert.Contains(t, err.Error(), "E123")
	assert.Contains(t, err.Error(), "demo")

	_, err2 := StringArg("demo", map[string]any{"x": 1}, "x")
	var te *ToolError
	require.ErrorAs(t, err2, &te)
	assert.Equal(t, CodeValidation, te.Code)
}
