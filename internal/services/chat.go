package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"portfolio-assistant/internal/llm"
	"portfolio-assistant/internal/prompt"
)

// FallbackReply is sent when the upstream answers without any content.
const FallbackReply = "Sorry, I couldn't generate a response."

type ChatService struct {
	completer llm.Completer
	prompt    prompt.Prompt
	timeout   time.Duration
	maxLength int
	validate  *validator.Validate
	rateChan  chan struct{} // Upstream concurrency slots
}

// NewChatService wires the relay. completer may be nil, in which case every
// valid request fails with ErrNotConfigured.
func NewChatService(completer llm.Completer, p prompt.Prompt, timeout time.Duration, maxLength, concurrentReqs int) *ChatService {
	if concurrentReqs < 1 {
		concurrentReqs = 1
	}
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &ChatService{
		completer: completer,
		prompt:    p,
		timeout:   timeout,
		maxLength: maxLength,
		validate:  validator.New(),
		rateChan:  rateChan,
	}
}

// Configured reports whether an upstream credential is available.
func (s *ChatService) Configured() bool {
	return s.completer != nil
}

// Validate trims message and checks it against the relay's input rules.
func (s *ChatService) Validate(message *string) (string, error) {
	if message == nil {
		return "", &ValidationError{Message: "Message is required"}
	}

	trimmed := strings.TrimSpace(*message)
	err := s.validate.Var(trimmed, fmt.Sprintf("required,max=%d", s.maxLength))
	if err == nil {
		return trimmed, nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Tag() == "max" {
		return "", &ValidationError{Message: fmt.Sprintf("Message must be %d characters or fewer", s.maxLength)}
	}
	return "", &ValidationError{Message: "Message cannot be empty"}
}

// Reply validates message, sends the system prompt and the trimmed message
// upstream exactly once and returns the assistant's reply.
func (s *ChatService) Reply(ctx context.Context, message *string) (string, error) {
	text, err := s.Validate(message)
	if err != nil {
		return "", err
	}
	if !s.Configured() {
		return "", ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	reply, err := s.completer.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: s.prompt.Text()},
		{Role: llm.RoleUser, Content: text},
	})
	if err != nil {
		return "", fmt.Errorf("upstream completion failed: %w", err)
	}

	if strings.TrimSpace(reply) == "" {
		return FallbackReply, nil
	}
	return reply, nil
}

// acquireRate blocks until an upstream slot is free or the deadline passes.
func (s *ChatService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return &llm.Error{
			Kind:     llm.KindTimeout,
			Provider: s.completer.Name(),
			Message:  "no upstream slot became free before the deadline",
			Cause:    ctx.Err(),
		}
	}
}

func (s *ChatService) releaseRate() {
	s.rateChan <- struct{}{}
}
