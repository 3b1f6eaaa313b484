// Package flow implements the bounded reasoning loop that drives one agent
// invocation.
//
// A Loop alternates between querying the backend model (THINKING), invoking
// the single capability the model selected (ACTING) and appending the
// observation to the transcript (OBSERVING) until the model calls the final
// answer directive (DONE) or the step budget runs out (FAILED). Every
// invocation yields an Outcome; failures are folded into a tagged answer
// string instead of being returned as errors.
package flow
