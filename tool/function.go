package tool

import (
	"context"
	"errors"

	"github.com/hupe1980/answermesh/internal/util"
)

// FunctionTool is a generic adapter that exposes a plain Go function as a
// primitive capability.
//
// Responsibilities:
//   - Holds the descriptor shown to the model
//   - Invokes the wrapped function with already validated arguments
//   - Normalizes failures so callers receive *ToolError with consistent codes:
//     EXECUTION_ERROR -> underlying function returned an error (non-ToolError)
//     (custom codes preserved if the function returns *ToolError directly)
//
// A FunctionTool has no mutable state after construction and is safe for
// concurrent use by multiple goroutines.
type FunctionTool struct {
	descriptor Descriptor
	fn         func(ctx context.Context, args map[string]any) (any, error)
}

// NewFunctionTool constructs a FunctionTool from explicit inputs and function.
//
// Example:
//
//	sumTool := NewFunctionTool(
//	  "calculate_sum",
//	  "Calculate the sum of two numbers",
//	  []Input{
//	    {Name: "a", Type: TypeNumber, Description: "First addend"},
//	    {Name: "b", Type: TypeNumber, Description: "Second addend"},
//	  },
//	  func(ctx context.Context, args map[string]any) (any, error) {
//	    return args["a"].(float64) + args["b"].(float64), nil
//	  },
//	)
func NewFunctionTool(
	name, description string,
	inputs []Input,
	fn func(ctx context.Context, args map[string]any) (any, error),
	optFns ...func(o *FunctionToolOptions),
) *FunctionTool {
	opts := FunctionToolOptions{OutputType: TypeString}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &FunctionTool{
		descriptor: Descriptor{
			Name:        name,
			Description: description,
			Inputs:      inputs,
			OutputType:  opts.OutputType,
			Kind:        KindPrimitive,
		},
		fn: fn,
	}
}

// FunctionToolOptions configures a FunctionTool.
type FunctionToolOptions struct {
	// OutputType declared to the model. Defaults to "string".
	OutputType string
}

// NewFunctionToolFromStruct derives the inputs from a struct using reflection.
//
// Example:
//
//	type SumArgs struct {
//	  A float64 `json:"a" description:"First addend"`
//	  B float64 `json:"b" description:"Second addend"`
//	}
func NewFunctionToolFromStruct(
	name, description string,
	structType any,
	fn func(ctx context.Context, args map[string]any) (any, error),
	optFns ...func(o *FunctionToolOptions),
) *FunctionTool {
	fields := util.StructFields(structType)
	inputs := make([]Input, 0, len(fields))
	for _, f := range fields {
		inputs = append(inputs, Input{
			Name:        f.Name,
			Type:        f.Type,
			Description: f.Description,
			Optional:    f.Optional,
		})
	}
	return NewFunctionTool(name, description, inputs, fn, optFns...)
}

// Descriptor returns the capability description.
func (t *FunctionTool) Descriptor() Descriptor { return t.descriptor }

// Call invokes the underlying function. Plain errors are wrapped as
// EXECUTION_ERROR; *ToolError values are forwarded unchanged.
func (t *FunctionTool) Call(ctx context.Context, args map[string]any) (any, error) {
	result, err := t.fn(ctx, args)
	if err != nil {
		var toolErr *ToolError
		if errors.As(err, &toolErr) {
			return nil, toolErr
		}
		return nil, &ToolError{
			Tool:    t.descriptor.Name,
			Message: err.Error(),
			Code:    CodeExecution,
		}
	}
	return result, nil
}
