// Package tool implements the capability subsystem that lets agents invoke
// structured actions (web requests, media analysis, computations, nested
// agents) with schema validated arguments, consistent error handling and
// descriptors that guide the model.
package tool

import (
	"context"
	"fmt"
)

// Kind distinguishes how the reasoning loop treats a capability.
type Kind int

const (
	// KindPrimitive executes external side-effecting logic.
	KindPrimitive Kind = iota
	// KindDelegate wraps a subordinate agent; invoking it runs that agent's
	// reasoning loop to completion.
	KindDelegate
	// KindFinal is the terminal final-answer directive.
	KindFinal
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindDelegate:
		return "delegate"
	case KindFinal:
		return "final"
	default:
		return "unknown"
	}
}

// Input and output types understood by descriptors.
const (
	TypeString  = "string"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeArray   = "array"
	TypeObject  = "object"
	TypeAny     = "any"
)

// Input declares one named parameter of a capability.
type Input struct {
	Name        string
	Type        string
	Description string
	// Default is applied when the argument is absent. Inputs with a default
	// are not required.
	Default any
	// Optional marks an input without default that may be omitted.
	Optional bool
}

// Descriptor is the immutable description of a capability handed to the
// model: name, description, ordered inputs and output type.
type Descriptor struct {
	Name        string
	Description string
	Inputs      []Input
	OutputType  string
	Kind        Kind
}

// Schema renders the inputs as a JSON schema object. Every input is required
// unless it declares a default or is optional.
func (d Descriptor) Schema() map[string]any {
	properties := make(map[string]any, len(d.Inputs))
	required := make([]string, 0, len(d.Inputs))
	for _, in := range d.Inputs {
		prop := map[string]any{"description": in.Description}
		if in.Type != "" && in.Type != TypeAny {
			prop["type"] = in.Type
		}
		if in.Default != nil {
			prop["default"] = in.Default
		} else if !in.Optional {
			required = append(required, in.Name)
		}
		properties[in.Name] = prop
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

// Tool defines the interface for capabilities an agent can invoke.
//
// Implementations should:
//   - Provide clear, descriptive names and descriptions
//   - Declare every input in the Descriptor
//   - Return errors instead of panicking (Invoke still recovers panics)
//   - Be safe to retry within one reasoning loop
//   - Bound any network call with their own timeout
type Tool interface {
	// Descriptor returns the capability description exposed to the model.
	Descriptor() Descriptor

	// Call executes the capability with already validated arguments.
	Call(ctx context.Context, args map[string]any) (any, error)
}

// Error codes used by ToolError.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeExecution  = "EXECUTION_ERROR"
	CodePanic      = "PANIC"
)

// ToolError represents errors that occur during capability execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}

// StringArg extracts a string argument, reporting a validation ToolError when
// it is missing or of another type.
func StringArg(tool string, args map[string]any, name string) (string, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return "", NewToolError(tool, fmt.Sprintf("missing required field '%s'", name), CodeValidation)
	}
	s, ok := raw.(string)
	if !ok {
		return "", NewToolError(tool, fmt.Sprintf("field '%s' must be a string", name), CodeValidation)
	}
	return s, nil
}
