// Package testutil contains helper builders used across tests to reduce
// boilerplate when constructing tasks and result sets. They are not intended
// for production usage.
package testutil
