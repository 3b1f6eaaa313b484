package tool

import "context"

// FinalAnswerName is the reserved name of the terminal directive.
const FinalAnswerName = "final_answer"

// finalAnswerTool signals the end of a reasoning loop. The loop intercepts it
// before execution; Call only echoes the answer.
type finalAnswerTool struct{}

// NewFinalAnswer constructs the final answer directive present on every agent.
func NewFinalAnswer() Tool { return finalAnswerTool{} }

func (finalAnswerTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        FinalAnswerName,
		Description: "Provides a final answer to the given problem.",
		Inputs: []Input{
			{Name: "answer", Type: TypeAny, Description: "The final answer to the problem"},
		},
		OutputType: TypeAny,
		Kind:       KindFinal,
	}
}

func (finalAnswerTool) Call(_ context.Context, args map[string]any) (any, error) {
	return args["answer"], nil
}
