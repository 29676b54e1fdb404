package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"portfolio-assistant/internal/llm"
	"portfolio-assistant/internal/prompt"
)

type stubCompleter struct {
	mu    sync.Mutex
	reply string
	err   error
	delay time.Duration
	calls [][]llm.Message
}

func (s *stubCompleter) Name() string { return "stub" }

func (s *stubCompleter) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, messages)
	s.mu.Unlock()

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", &llm.Error{Kind: llm.KindTimeout, Provider: "stub", Cause: ctx.Err()}
		}
	}
	return s.reply, s.err
}

func (s *stubCompleter) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func strPtr(s string) *string { return &s }

func newService(c llm.Completer) *ChatService {
	return NewChatService(c, prompt.Default(), time.Second, 5000, 2)
}

func TestReply_SendsSystemThenTrimmedUser(t *testing.T) {
	req := require.New(t)
	stub := &stubCompleter{reply: "Koushik studies at VIT Chennai."}
	svc := newService(stub)

	reply, err := svc.Reply(context.Background(), strPtr("  Where does he study?  "))
	req.NoError(err)
	req.Equal("Koushik studies at VIT Chennai.", reply)

	req.Equal(1, stub.callCount())
	msgs := stub.calls[0]
	req.Len(msgs, 2)
	req.Equal(llm.RoleSystem, msgs[0].Role)
	req.Equal(prompt.Default().Text(), msgs[0].Content)
	req.Equal(llm.RoleUser, msgs[1].Role)
	req.Equal("Where does he study?", msgs[1].Content)
}

func TestReply_FallbackOnEmptyContent(t *testing.T) {
	for _, upstream := range []string{"", "   \n"} {
		svc := newService(&stubCompleter{reply: upstream})

		reply, err := svc.Reply(context.Background(), strPtr("Hello"))
		require.NoError(t, err)
		require.Equal(t, FallbackReply, reply)
	}
}

func TestReply_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		message *string
		want    string
	}{
		{"missing", nil, "Message is required"},
		{"empty", strPtr(""), "Message cannot be empty"},
		{"whitespace only", strPtr(" \t\n "), "Message cannot be empty"},
		{"too long", strPtr(strings.Repeat("a", 5001)), "Message must be 5000 characters or fewer"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubCompleter{reply: "never"}
			svc := newService(stub)

			_, err := svc.Reply(context.Background(), tc.message)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			require.Equal(t, tc.want, verr.Message)
			require.Zero(t, stub.callCount())
		})
	}
}

func TestValidate_LengthCountsCharactersNotBytes(t *testing.T) {
	svc := newService(&stubCompleter{})

	// 5000 three-byte runes is within the limit.
	msg := strings.Repeat("ह", 5000)
	got, err := svc.Validate(&msg)
	require.NoError(t, err)
	require.Equal(t, msg, got)

	exact := strings.Repeat("a", 5000)
	_, err = svc.Validate(&exact)
	require.NoError(t, err)
}

func TestReply_NotConfigured(t *testing.T) {
	svc := newService(nil)
	require.False(t, svc.Configured())

	_, err := svc.Reply(context.Background(), strPtr("Hello"))
	require.ErrorIs(t, err, ErrNotConfigured)

	// Validation still runs first.
	_, err = svc.Reply(context.Background(), strPtr(""))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
}

func TestReply_UpstreamErrorKeepsKind(t *testing.T) {
	svc := newService(&stubCompleter{err: &llm.Error{Kind: llm.KindRateLimited, Provider: "stub"}})

	_, err := svc.Reply(context.Background(), strPtr("Hello"))
	require.Error(t, err)
	require.Equal(t, llm.KindRateLimited, llm.KindOf(err))
}

func TestReply_TimeoutIsEnforced(t *testing.T) {
	stub := &stubCompleter{reply: "late", delay: time.Second}
	svc := NewChatService(stub, prompt.Default(), 30*time.Millisecond, 5000, 1)

	start := time.Now()
	_, err := svc.Reply(context.Background(), strPtr("Hello"))
	require.Error(t, err)
	require.Equal(t, llm.KindTimeout, llm.KindOf(err))
	require.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestReply_SlotsBoundConcurrency(t *testing.T) {
	stub := &stubCompleter{reply: "ok", delay: 200 * time.Millisecond}
	svc := NewChatService(stub, prompt.Default(), 50*time.Millisecond, 5000, 1)

	// Hold the only slot.
	require.NoError(t, svc.acquireRate(context.Background()))

	_, err := svc.Reply(context.Background(), strPtr("Hello"))
	require.Equal(t, llm.KindTimeout, llm.KindOf(err))
	require.Zero(t, stub.callCount())

	svc.releaseRate()
}

func TestReply_Stateless(t *testing.T) {
	stub := &stubCompleter{reply: "same"}
	svc := newService(stub)

	for i := 0; i < 3; i++ {
		reply, err := svc.Reply(context.Background(), strPtr("Hello"))
		require.NoError(t, err)
		require.Equal(t, "same", reply)
	}
	require.Equal(t, 3, stub.callCount())
	for _, call := range stub.calls {
		require.Len(t, call, 2)
	}
}
