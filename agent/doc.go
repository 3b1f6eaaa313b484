// Package agent builds reasoning agents and the delegation hierarchy that
// connects them.
//
// An Agent pairs a backend model with a fixed capability set and a bounded
// reasoning loop. Any Agent can be exposed to a parent as a Delegate
// capability (AsTool); invoking it runs the subordinate's own loop and returns
// only its final answer, so the parent never sees the subordinate transcript.
//
// A Hierarchy holds named Blueprints. Build validates the delegation graph
// (unknown names, cycles, budgets) and then constructs a brand-new tree of
// agents, tools and delegates, so concurrent tasks never share an agent.
package agent
