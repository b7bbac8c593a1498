package agent

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/m4xw311/termagent/config"
	"github.com/m4xw311/termagent/errors"
	"github.com/m4xw311/termagent/llm"
	"github.com/m4xw311/termagent/session"
	"github.com/m4xw311/termagent/tools"
)

type Mode string

const (
	// ModeAuto executes tool calls without confirmation.
	ModeAuto Mode = "auto"
	// ModePrompt asks for confirmation before every tool call.
	ModePrompt Mode = "prompt"
)

type ToolVerbosity string

const (
	ToolVerbosityNone ToolVerbosity = "none"
	ToolVerbosityInfo ToolVerbosity = "info"
	ToolVerbosityAll  ToolVerbosity = "all"
)

// maxToolRounds bounds the LLM/tool loop for a single user input, so a model
// stuck requesting tools cannot spin forever.
const maxToolRounds = 10

// ProcessCallbacks lets each frontend (terminal REPL, websocket bridge host)
// decide how agent events are surfaced without the core loop knowing about
// terminals or protocols.
type ProcessCallbacks struct {
	OnAssistantMessage func(message string)
	OnToolCall         func(toolCall session.ToolCall)
	OnToolResult       func(toolCall session.ToolCall, result string)
	ShouldExecuteTool  func(toolCall session.ToolCall) bool
	OnWarning          func(warning string)
}

// Agent binds a conversation session to an LLM client and a set of tools.
type Agent struct {
	Config         *config.Config
	Session        *session.Session
	LLMClient      llm.Client
	AvailableTools []tools.Tool
	Mode           Mode
	Verbosity      ToolVerbosity

	log *zap.Logger
}

// New creates an agent using the named toolset from the registry.
func New(cfg *config.Config, sess *session.Session, registry *tools.Registry, toolset string, mode Mode, client llm.Client, verbosity ToolVerbosity, log *zap.Logger) (*Agent, error) {
	ts, err := cfg.GetToolset(toolset)
	if err != nil {
		return nil, err
	}
	active, err := registry.ActiveTools(ts)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Agent{
		Config:         cfg,
		Session:        sess,
		LLMClient:      client,
		AvailableTools: active,
		Mode:           mode,
		Verbosity:      verbosity,
		log:            log,
	}, nil
}

// ProcessUserInput runs one full turn: the user message goes to the model,
// requested tools are executed (subject to the callbacks' approval) and
// their results fed back, until the model answers with plain text. The final
// assistant text is returned, and the session is pruned and saved.
func (a *Agent) ProcessUserInput(ctx context.Context, userInput string, callbacks ProcessCallbacks) (string, error) {
	a.Session.AddMessage(session.Message{Role: "user", Content: userInput})
	a.log.Info("processing user input", zap.String("session", a.Session.Name), zap.Int("length", len(userInput)))

	finalText := ""
	for round := 0; ; round++ {
		if round >= maxToolRounds {
			warn := fmt.Sprintf("stopping after %d tool rounds without a final answer", maxToolRounds)
			a.warn(callbacks, warn)
			break
		}

		reply, err := a.LLMClient.Chat(ctx, a.Session.Messages, a.AvailableTools)
		if err != nil {
			return "", errors.Wrapf(err, "LLM chat failed")
		}
		a.Session.AddMessage(*reply)

		if reply.Content != "" {
			finalText = reply.Content
			if callbacks.OnAssistantMessage != nil {
				callbacks.OnAssistantMessage(reply.Content)
			}
		}

		if len(reply.ToolCalls) == 0 {
			break
		}

		for _, call := range reply.ToolCalls {
			result := a.executeToolCall(ctx, call, callbacks)
			a.Session.AddMessage(session.Message{
				Role:      "tool",
				Content:   result,
				ToolCalls: []session.ToolCall{call},
			})
		}
	}

	a.Session.Prune(a.Config.HistoryBudget)
	if err := a.Session.Save(); err != nil {
		a.warn(callbacks, fmt.Sprintf("failed to save session: %v", err))
	}

	return finalText, nil
}

// executeToolCall resolves and runs one requested tool. Failures are
// reported as results rather than errors, so the model can react to them.
func (a *Agent) executeToolCall(ctx context.Context, call session.ToolCall, callbacks ProcessCallbacks) string {
	if callbacks.OnToolCall != nil {
		callbacks.OnToolCall(call)
	}

	if a.Mode == ModePrompt && callbacks.ShouldExecuteTool != nil && !callbacks.ShouldExecuteTool(call) {
		a.log.Info("tool call declined", zap.String("tool", call.Name))
		return "Tool execution was declined by the user."
	}

	tool := a.lookupTool(call.Name)
	if tool == nil {
		a.log.Warn("model requested unavailable tool", zap.String("tool", call.Name))
		return fmt.Sprintf("Error: tool '%s' is not available.", call.Name)
	}

	result, err := tool.Execute(ctx, call.Args)
	if err != nil {
		a.log.Warn("tool execution failed", zap.String("tool", call.Name), zap.Error(err))
		result = fmt.Sprintf("Error: %v", err)
	} else {
		a.log.Info("tool executed", zap.String("tool", call.Name))
	}

	if callbacks.OnToolResult != nil {
		callbacks.OnToolResult(call, result)
	}
	return result
}

func (a *Agent) lookupTool(name string) tools.Tool {
	for _, t := range a.AvailableTools {
		if t.Name() == name {
			return t
		}
	}
	return nil
}

func (a *Agent) warn(callbacks ProcessCallbacks, message string) {
	a.log.Warn(message)
	if callbacks.OnWarning != nil {
		callbacks.OnWarning(message)
	}
}
