package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/hupe1980/answermesh/internal/util"
)

// Invoke runs a capability under the uniform invocation contract: it applies
// defaults, validates arguments against the descriptor, recovers panics and
// converts every failure into ok=false with a descriptive value. Invoke never
// panics and never returns an error.
func Invoke(ctx context.Context, t Tool, args map[string]any) (value string, ok bool) {
	d := t.Descriptor()

	defer func() {
		if r := recover(); r != nil {
			value = failure(&ToolError{Tool: d.Name, Message: fmt.Sprint(r), Code: CodePanic})
			ok = false
		}
	}()

	args = applyDefaults(d, args)

	if err := util.ValidateParameters(args, d.Schema()); err != nil {
		return failure(&ToolError{
			Tool:    d.Name,
			Message: fmt.Sprintf("parameter validation failed: %v", err),
			Code:    CodeValidation,
			Details: err,
		}), false
	}

	if err := ctx.Err(); err != nil {
		return failure(NewToolError(d.Name, err.Error(), CodeExecution)), false
	}

	result, err := t.Call(ctx, args)
	if err != nil {
		var toolErr *ToolError
		if errors.As(err, &toolErr) {
			return failure(toolErr), false
		}
		return failure(NewToolError(d.Name, err.Error(), CodeExecution)), false
	}

	return Stringify(result), true
}

// failure renders a failed invocation as observation text.
func failure(err *ToolError) string { return "error: " + err.Error() }

// applyDefaults returns a copy of args with declared defaults filled in.
func applyDefaults(d Descriptor, args map[string]any) map[string]any {
	out := make(map[string]any, len(args)+len(d.Inputs))
	for k, v := range args {
		out[k] = v
	}
	for _, in := range d.Inputs {
		if _, exists := out[in.Name]; !exists && in.Default != nil {
			out[in.Name] = in.Default
		}
	}
	return out
}

// Stringify renders a capability result as observation text. Strings pass
// through, scalars use their natural formatting and structured values are
// JSON encoded.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case fmt.Stringer:
		return val.String()
	case error:
		return val.Error()
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
