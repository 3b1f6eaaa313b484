package core

import (
	"github.com/google/uuid"
)

// Task is one unit of work submitted to the dispatcher: a natural language
// question plus an optional attachment reference. Tasks are values and must be
// treated as immutable once dispatched.
type Task struct {
	ID       string `json:"task_id"`
	Question string `json:"question"`
	FileName string `json:"file_name"`
}

// HasAttachment reports whether the task references an attached file.
func (t Task) HasAttachment() bool { return t.FileName != "" }

// Status is the terminal state an invocation reached for a task.
type Status string

const (
	// StatusDone marks a task whose agent emitted a final answer.
	StatusDone Status = "done"
	// StatusFailed marks a task whose agent exhausted its budget, hit an
	// unrecoverable backend error or terminated exceptionally.
	StatusFailed Status = "failed"
)

// TaskResult is the outcome of one task execution. Status is informational
// and not part of the persisted triple.
type TaskResult struct {
	TaskID   string `json:"task_id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Status   Status `json:"-"`
}

// Submission returns the scoring payload entry for the result.
func (r TaskResult) Submission() map[string]string {
	return map[string]string{"task_id": r.TaskID, "submitted_answer": r.Answer}
}

// ResultSet is the complete collection of task results for one requesting
// identity. It is persisted as a unit.
type ResultSet struct {
	Identity string       `json:"identity"`
	Results  []TaskResult `json:"results"`
}

// Len returns the number of results in the set.
func (s ResultSet) Len() int { return len(s.Results) }

// Find returns the result for a task id.
func (s ResultSet) Find(taskID string) (TaskResult, bool) {
	for _, r := range s.Results {
		if r.TaskID == taskID {
			return r, true
		}
	}
	return TaskResult{}, false
}

// Failed returns the number of results with StatusFailed.
func (s ResultSet) Failed() int {
	n := 0
	for _, r := range s.Results {
		if r.Status == StatusFailed {
			n++
		}
	}
	return n
}

// NewID generates a new unique identifier for invocations and tool calls.
func NewID() string { return uuid.NewString() }
