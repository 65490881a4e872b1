// Package llm defines the abstract chat endpoint the insight extractor
// calls, plus a generic HTTP implementation of it.
package llm

import "context"

// Client is the abstract chat endpoint the core depends on. Responses
// are returned whole; streaming is deliberately absent from the
// contract.
type Client interface {
	// Chat sends a chat completion request and returns the response.
	Chat(ctx context.Context, model string, messages []Message) (*ChatResponse, error)

	// Ping checks if the endpoint is reachable.
	Ping(ctx context.Context) error
}
