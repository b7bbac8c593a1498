// Package llm abstracts the language model behind the agent. Clients exist
// for OpenAI-compatible endpoints (including local servers), Anthropic,
// Google Gemini and AWS Bedrock, plus a mock for offline use and tests.
package llm

import (
	"context"
	"fmt"

	"github.com/m4xw311/termagent/session"
	"github.com/m4xw311/termagent/tools"
)

// Client is the interface every LLM backend implements. Chat sends the full
// conversation history and the tools the model may request, and returns the
// assistant's reply, which may carry tool calls.
type Client interface {
	Chat(ctx context.Context, messages []session.Message, availableTools []tools.Tool) (*session.Message, error)
}

// MockClient answers without a network. It echoes the last user message,
// which keeps the REPL and the task pipeline usable when no backend is
// configured, and makes agent behavior deterministic in tests.
type MockClient struct {
	// Replies, when set, are returned in order before falling back to echo.
	Replies []session.Message
	next    int
}

func (m *MockClient) Chat(ctx context.Context, messages []session.Message, availableTools []tools.Tool) (*session.Message, error) {
	if m.next < len(m.Replies) {
		reply := m.Replies[m.next]
		m.next++
		return &reply, nil
	}

	last := ""
	if len(messages) > 0 {
		last = messages[len(messages)-1].Content
	}
	return &session.Message{
		Role:    "assistant",
		Content: fmt.Sprintf("No LLM backend is configured. You said: '%s'", last),
	}, nil
}
