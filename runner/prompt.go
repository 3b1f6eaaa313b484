package runner

import (
	"strings"

	"github.com/hupe1980/answermesh/core"
)

const answerStyleInstructions = "Think hard to answer. Parse all statements in the question to make a plan. " +
	"Your final answer should be a number or as few words as possible. " +
	"Only use abbreviations when the question calls for abbreviations. " +
	"If needed, use a comma separated list of values; the comma is always followed by a space. " +
	"Critically review your answer before making it the final answer. " +
	"Double check the answer to make sure it meets all format requirements stated in the question."

// EnrichPrompt builds the manager prompt for a task: the question, the answer
// style instructions, the task id and, when present, the attachment name. The
// result depends only on the task.
func EnrichPrompt(task core.Task) string {
	var b strings.Builder

	b.WriteString(task.Question)
	b.WriteString(" ")
	b.WriteString(answerStyleInstructions)
	b.WriteString(" task_id: ")
	b.WriteString(task.ID)
	b.WriteString(".")

	if task.HasAttachment() {
		b.WriteString(" file_name: ")
		b.WriteString(task.FileName)
		b.WriteString(" (use tools to fetch the file)")
	}

	return b.String()
}
