// Package model defines the provider agnostic abstractions for the backend
// reasoning models that drive agents.
//
// Core goals:
//   - Unify streaming and non-streaming generation behind a single interface
//   - Normalize tool / function call representation (ToolDefinition)
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate deterministic testing (ScriptedModel)
//
// Providers (OpenAI compatible endpoints such as OpenRouter, Anthropic)
// implement the Model interface so agents and the reasoning loop stay
// decoupled from vendor SDKs.
package model
