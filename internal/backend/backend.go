// internal/backend/backend.go
// Package backend defines the abstract LLM capability the pipeline depends
// on and provides HTTP-backed implementations for OpenAI-compatible servers
// and Ollama. The pipeline only ever sees Generate(prompt) -> text.
package backend

import "context"

// Backend produces a text completion for a prompt. Implementations may
// return transport errors; the pipeline wraps calls in a RetryPolicy.
type Backend interface {
	// Generate sends prompt to the model and returns the raw completion.
	Generate(ctx context.Context, prompt string) (string, error)
	// Name identifies the backend for logging.
	Name() string
}
