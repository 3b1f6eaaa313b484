// Package runner implements the task dispatcher.
//
// A Dispatcher answers a batch of tasks for one identity. For every task it
// builds a fresh agent tree, runs all trees concurrently with per-task failure
// isolation, waits for every task and then persists the complete result set
// exactly once. Prompt enrichment (EnrichPrompt) is a pure function of the
// task.
package runner
