// Package llm is the gateway's view of an upstream chat-completion service.
//
// Backends translate their provider-specific failures into *Error values so
// callers can branch on Kind without knowing which provider answered.
package llm

import (
	"context"
	"errors"
	"fmt"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Completer sends a conversation upstream and returns the assistant's text.
// An empty string with a nil error means the upstream answered without content.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
	Name() string
}

// ModelLister is implemented by backends that can enumerate their models.
type ModelLister interface {
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

type ModelInfo struct {
	Name             string `json:"name"`
	DisplayName      string `json:"displayName,omitempty"`
	Description      string `json:"description,omitempty"`
	OwnedBy          string `json:"ownedBy,omitempty"`
	InputTokenLimit  int32  `json:"inputTokenLimit,omitempty"`
	OutputTokenLimit int32  `json:"outputTokenLimit,omitempty"`
}

// Options are the sampling and transport settings shared by all backends.
type Options struct {
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
}

const (
	ProviderGroq   = "groq"
	ProviderGemini = "gemini"
)

var ErrMissingAPIKey = errors.New("upstream API key is not configured")

// New builds the backend named by provider. It is called once at startup;
// the returned Completer is safe for concurrent use.
func New(ctx context.Context, provider, apiKey string, opts Options) (Completer, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	switch provider {
	case ProviderGroq:
		return NewOpenAIClient(ProviderGroq, apiKey, opts), nil
	case ProviderGemini:
		g, err := NewGeminiClient(ctx, apiKey, opts)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", provider)
	}
}
