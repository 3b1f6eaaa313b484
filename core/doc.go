// Package core provides the foundational domain types and small interfaces
// shared by every answermesh package. It defines:
//
//   - Tasks (one question plus an optional attachment reference)
//   - Task results and identity-scoped result sets
//   - Role-tagged transcript content (text, function call, function response parts)
//   - Pluggable collaborators: ResultStore for persistence and QuestionSource
//     for retrieving tasks
//
// The package intentionally keeps implementation concerns (reasoning loops,
// concrete capabilities, persistence backends) out of scope so that those
// packages only meet on these types.
package core
