package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ToolCall describes a single tool invocation requested by the model.
type ToolCall struct {
	ToolCallID string                 `json:"tool_call_id"`
	Name       string                 `json:"name"`
	Args       map[string]interface{} `json:"args"`
}

// Message is one entry in the conversation history.
// Role is one of "system", "user", "assistant" or "tool".
type Message struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

type Session struct {
	Name          string    `json:"name"`
	Mode          string    `json:"mode,omitempty"`
	Toolset       string    `json:"toolset,omitempty"`
	ToolVerbosity string    `json:"tool_verbosity,omitempty"`
	Messages      []Message `json:"messages"`
	path          string
}

// New creates a new session persisted under .termagent/sessions.
func New(name string) (*Session, error) {
	path, err := sessionPath(name)
	if err != nil {
		return nil, err
	}
	return &Session{
		Name:     name,
		Messages: []Message{},
		path:     path,
	}, nil
}

// Load reads an existing session from disk.
func Load(name string) (*Session, error) {
	path, err := sessionPath(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read session file %s: %w", path, err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("could not parse session file %s: %w", path, err)
	}
	s.path = path
	return &s, nil
}

// Save writes the current session state to disk.
func (s *Session) Save() error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize session: %w", err)
	}
	return os.WriteFile(s.path, data, 0644)
}

// AddMessage appends a message to the conversation history.
func (s *Session) AddMessage(msg Message) {
	s.Messages = append(s.Messages, msg)
}

// SetSystemMessage installs or replaces the leading system message.
func (s *Session) SetSystemMessage(content string) {
	if len(s.Messages) > 0 && s.Messages[0].Role == "system" {
		s.Messages[0].Content = content
		return
	}
	s.Messages = append([]Message{{Role: "system", Content: content}}, s.Messages...)
}

// Prune drops the oldest non-system messages until the history size fits
// within budget characters. Tool-call payloads count toward the size. The
// leading system message is never removed, and the newest message always
// survives.
func (s *Session) Prune(budget int) {
	if budget <= 0 {
		return
	}
	first := 0
	if len(s.Messages) > 0 && s.Messages[0].Role == "system" {
		first = 1
	}
	for s.historySize() > budget && len(s.Messages) > first+1 {
		s.Messages = append(s.Messages[:first], s.Messages[first+1:]...)
	}
}

func (s *Session) historySize() int {
	total := 0
	for _, m := range s.Messages {
		total += len(m.Content)
		for _, call := range m.ToolCalls {
			total += len(call.ToolCallID) + len(call.Name)
			for k, v := range call.Args {
				total += len(k) + len(fmt.Sprint(v))
			}
		}
	}
	return total
}

func sessionPath(name string) (string, error) {
	dir := filepath.Join(".termagent", "sessions")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("could not create session directory: %w", err)
	}
	return filepath.Join(dir, fmt.Sprintf("%s.json", name)), nil
}
