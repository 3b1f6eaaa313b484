// Package results provides core.ResultStore implementations for persisting
// identity-scoped result sets.
//
// Every store replaces the whole set of an identity on Save and persists the
// triple list [{task_id, question, answer}]. Available stores:
//
//   - InMemoryStore: process local, for tests and dry runs
//   - FileStore: answers_<identity>.json files on an afero filesystem
//   - SQLiteStore: a SQLite database (modernc.org/sqlite, no cgo)
//   - RedisStore: one JSON value per identity in Redis
package results
