package core

import (
	"context"
	"errors"
)

// ErrResultSetNotFound is returned by ResultStore.Load when nothing has been
// persisted for an identity yet.
var ErrResultSetNotFound = errors.New("result set not found")

// ErrTaskNotFound is returned by QuestionSource.Question for unknown ids.
var ErrTaskNotFound = errors.New("task not found")

// ResultStore persists identity-scoped result sets.
//
// Implementations must:
//   - Replace any previously stored set for the identity on Save (never merge)
//   - Make Save all-or-nothing: readers observe either the old or the new set
//   - Be safe for concurrent use
type ResultStore interface {
	Save(ctx context.Context, identity string, set ResultSet) error
	Load(ctx context.Context, identity string) (ResultSet, error)
}

// QuestionSource supplies tasks to answer.
type QuestionSource interface {
	// Questions returns every available task.
	Questions(ctx context.Context) ([]Task, error)
	// Question returns the task with the given id.
	Question(ctx context.Context, taskID string) (Task, error)
	// RandomQuestion returns one task chosen by the source.
	RandomQuestion(ctx context.Context) (Task, error)
}
