// Package evaluation talks to the scoring service: it supplies questions,
// downloads task attachments and submits persisted answers.
//
// Network reads are retried with exponential backoff. When the service stays
// unavailable a Client may fall back to local copies (the cached
// questions.json and a directory of task files). The fallback is an explicit
// FallbackPolicy and every use of it is logged at WARN.
package evaluation
