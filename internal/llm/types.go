package llm

import "time"

// Message is one chat turn sent to or received from the endpoint.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse is the unified response shape. Wire format conversion
// is the responsibility of whatever Client implementation sits behind
// the interface; this package only defines the shape.
type ChatResponse struct {
	Model     string
	CreatedAt time.Time
	Message   Message
	Done      bool

	// Token usage, when the endpoint reports it.
	InputTokens  int
	OutputTokens int
}
