// Package llm abstracts the language model behind a small text interface and
// layers structured JSON extraction on top of it. Dialogue handlers never
// talk to a model vendor directly.
package llm

import "context"

// Conversation roles as the model API expects them.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Message is one prior turn of a conversation.
type Message struct {
	Role    string
	Content string
}

// Client generates a completion for a prompt. The system instruction frames
// the model's behavior and history carries prior turns, oldest first.
type Client interface {
	Generate(ctx context.Context, system, prompt string, history []Message) (string, error)
}
