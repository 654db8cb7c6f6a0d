package llm

import "context"

// Request is a single-turn chat completion request. Conversation history is
// folded into the user prompt by callers; the client itself is stateless.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	MaxTokens    int
}

type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}
