package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
)

type GeminiClient struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewGeminiClient(ctx context.Context, apiKey string, opts Options) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(opts.Model)
	model.SetTemperature(float32(opts.Temperature))
	if opts.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(opts.MaxTokens))
	}

	return &GeminiClient{client: client, model: model}, nil
}

func (g *GeminiClient) Name() string {
	return ProviderGemini
}

func (g *GeminiClient) Close() error {
	return g.client.Close()
}

// Complete folds system turns into the model's system instruction and sends
// the final user turn with the rest as chat history.
func (g *GeminiClient) Complete(ctx context.Context, messages []Message) (string, error) {
	system, history, last, err := splitConversation(messages)
	if err != nil {
		return "", err
	}

	// Shallow copy so concurrent calls never share a system instruction.
	model := *g.model
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	cs := model.StartChat()
	cs.History = history

	resp, err := cs.SendMessage(ctx, genai.Text(last))
	if err != nil {
		var blocked *genai.BlockedError
		if errors.As(err, &blocked) {
			return "", nil
		}
		return "", classifyGeminiError(ctx, err)
	}

	return extractText(resp), nil
}

func (g *GeminiClient) ListModels(ctx context.Context) ([]ModelInfo, error) {
	var models []ModelInfo
	iter := g.client.ListModels(ctx)
	for {
		m, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, classifyGeminiError(ctx, err)
		}
		models = append(models, ModelInfo{
			Name:             m.Name,
			DisplayName:      m.DisplayName,
			Description:      m.Description,
			InputTokenLimit:  m.InputTokenLimit,
			OutputTokenLimit: m.OutputTokenLimit,
		})
	}
	return models, nil
}

func splitConversation(messages []Message) (string, []*genai.Content, string, error) {
	var system []string
	var turns []Message
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		turns = append(turns, m)
	}
	if len(turns) == 0 || turns[len(turns)-1].Role != RoleUser {
		return "", nil, "", fmt.Errorf("conversation must end with a user message")
	}

	history := make([]*genai.Content, 0, len(turns)-1)
	for _, m := range turns[:len(turns)-1] {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		history = append(history, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(m.Content)}})
	}

	return strings.Join(system, "\n\n"), history, turns[len(turns)-1].Content, nil
}

func classifyGeminiError(ctx context.Context, err error) *Error {
	if ctx.Err() != nil || isTimeout(err) {
		return transportError(ctx, ProviderGemini, err)
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &Error{Kind: kindForStatus(gerr.Code), Provider: ProviderGemini, StatusCode: gerr.Code, Message: gerr.Message, Cause: err}
	}

	if ae, ok := apierror.FromError(err); ok {
		if code := ae.HTTPCode(); code > 0 {
			return &Error{Kind: kindForStatus(code), Provider: ProviderGemini, StatusCode: code, Message: ae.Error(), Cause: err}
		}
		kind := KindUpstream
		switch ae.GRPCStatus().Code() {
		case codes.Unauthenticated, codes.PermissionDenied:
			kind = KindAuth
		case codes.ResourceExhausted:
			kind = KindRateLimited
		case codes.DeadlineExceeded:
			kind = KindTimeout
		}
		return &Error{Kind: kind, Provider: ProviderGemini, Message: ae.Error(), Cause: err}
	}

	return &Error{Kind: KindUpstream, Provider: ProviderGemini, Message: err.Error(), Cause: err}
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}
