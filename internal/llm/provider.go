// Package llm abstracts the language model behind the browsing agent. The
// agent only needs one round trip at a time, so the surface is a single
// Complete call; streaming stays inside the provider if it ever wants it.
package llm

import "context"

// Role identifies who a message came from.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    Role
	Content string
}

// System creates a system message.
func System(content string) *Message {
	return &Message{Role: RoleSystem, Content: content}
}

// User creates a user message.
func User(content string) *Message {
	return &Message{Role: RoleUser, Content: content}
}

// Assistant creates an assistant message.
func Assistant(content string) *Message {
	return &Message{Role: RoleAssistant, Content: content}
}

// Provider is an LLM backend.
type Provider interface {
	// Complete sends the conversation and returns the assistant's reply.
	Complete(ctx context.Context, messages []*Message) (*Message, error)

	// Model returns the model name in use.
	Model() string
}
