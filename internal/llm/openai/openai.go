// Package openai implements the llm.Provider interface on top of the
// OpenAI chat completions API. Any OpenAI-compatible endpoint works via
// WithBaseURL.
package openai

import (
	"context"
	"fmt"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/asadmujeeb/steeldrive/internal/llm"
)

const defaultModel = "gpt-4o"

// Provider talks to an OpenAI-compatible chat completions endpoint.
type Provider struct {
	client openai.Client
	model  string
}

// Option configures a Provider.
type Option func(*options)

type options struct {
	model   string
	baseURL string
}

// WithModel sets the chat model to use.
func WithModel(model string) Option {
	return func(o *options) { o.model = model }
}

// WithBaseURL points the provider at an OpenAI-compatible endpoint.
func WithBaseURL(baseURL string) Option {
	return func(o *options) { o.baseURL = baseURL }
}

// NewProvider creates a provider with the given API key. An empty key falls
// back to the OPENAI_API_KEY environment variable.
func NewProvider(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required (provide via parameter or OPENAI_API_KEY environment variable)")
	}

	o := options{model: defaultModel}
	for _, opt := range opts {
		opt(&o)
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if o.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(o.baseURL))
	}

	return &Provider{
		client: openai.NewClient(reqOpts...),
		model:  o.model,
	}, nil
}

// Complete sends the conversation and returns the assistant's reply.
func (p *Provider) Complete(ctx context.Context, messages []*llm.Message) (*llm.Message, error) {
	completion, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(p.model),
		Messages: convertMessages(messages),
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	return llm.Assistant(completion.Choices[0].Message.Content), nil
}

// Model returns the model name in use.
func (p *Provider) Model() string { return p.model }

func convertMessages(messages []*llm.Message) []openai.ChatCompletionMessageParamUnion {
	converted := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleSystem:
			converted = append(converted, openai.SystemMessage(msg.Content))
		case llm.RoleAssistant:
			converted = append(converted, openai.AssistantMessage(msg.Content))
		default:
			converted = append(converted, openai.UserMessage(msg.Content))
		}
	}
	return converted
}
