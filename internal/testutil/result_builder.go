package testutil

import (
	"fmt"

	"github.com/hupe1980/answermesh/core"
)

// ResultSetBuilder provides a fluent helper for constructing result sets in
// tests.
// Example:
//
//	set := NewResultSetBuilder("alice").Done("t1", "2+2", "4").Failed("t2", "?", "AGENT FAILED: x").Build()
type ResultSetBuilder struct {
	identity string
	results  []core.TaskResult
}

// NewResultSetBuilder creates a builder for identity.
func NewResultSetBuilder(identity string) *ResultSetBuilder {
	return &ResultSetBuilder{identity: identity}
}

// Done appends a successful result (chainable).
func (b *ResultSetBuilder) Done(taskID, question, answer string) *ResultSetBuilder {
	b.results = append(b.results, core.TaskResult{TaskID: taskID, Question: question, Answer: answer, Status: core.StatusDone})
	return b
}

// Failed appends a failed result (chainable).
func (b *ResultSetBuilder) Failed(taskID, question, answer string) *ResultSetBuilder {
	b.results = append(b.results, core.TaskResult{TaskID: taskID, Question: question, Answer: answer, Status: core.StatusFailed})
	return b
}

// Numbered appends n successful results t1..tn answered "a1".."an" (chainable).
func (b *ResultSetBuilder) Numbered(n int) *ResultSetBuilder {
	for i := 1; i <= n; i++ {
		b.Done(fmt.Sprintf("t%d", i), fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}
	return b
}

// Build returns the result set.
func (b *ResultSetBuilder) Build() core.ResultSet {
	out := make([]core.TaskResult, len(b.results))
	copy(out, b.results)
	return core.ResultSet{Identity: b.identity, Results: out}
}

// Triples strips the informational status so sets can be compared with what
// a store loads back.
func Triples(set core.ResultSet) core.ResultSet {
	out := core.ResultSet{Identity: set.Identity, Results: make([]core.TaskResult, len(set.Results))}
	for i, r := range set.Results {
		out.Results[i] = core.TaskResult{TaskID: r.TaskID, Question: r.Question, Answer: r.Answer}
	}
	return out
}

// Tasks creates n tasks t1..tn with questions q1..qn.
func Tasks(n int) []core.Task {
	tasks := make([]core.Task, n)
	for i := range tasks {
		tasks[i] = core.Task{ID: fmt.Sprintf("t%d", i+1), Question: fmt.Sprintf("q%d", i+1)}
	}
	return tasks
}
