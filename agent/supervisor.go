package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/m4xw311/termagent/config"
	"github.com/m4xw311/termagent/errors"
	"github.com/m4xw311/termagent/interpreter"
	"github.com/m4xw311/termagent/llm"
	"github.com/m4xw311/termagent/memory"
	"github.com/m4xw311/termagent/session"
	"github.com/m4xw311/termagent/tools"
)

// workerSystemMessage is the system prompt for agents spawned per task.
const workerSystemMessage = "You are a versatile agent capable of executing various tasks. " +
	"Use the available tools to operate on the file system and run commands when the task calls for it."

// recallLimit caps how many remembered exchanges are folded into a new
// agent's system message.
const recallLimit = 5

// Supervisor delegates each task to a freshly spawned agent. Instructions
// the interpreter recognizes are dispatched straight to tools; everything
// else goes through the LLM chat loop. Every exchange is recorded in the
// memory store, whose row ID becomes the task ID.
type Supervisor struct {
	cfg       *config.Config
	client    llm.Client
	registry  *tools.Registry
	store     *memory.Store
	mode      Mode
	verbosity ToolVerbosity
	toolset   string
	baseName  string
	log       *zap.Logger

	mu    sync.Mutex
	count int
}

// NewSupervisor creates a supervisor. baseName prefixes the session name of
// every spawned agent, so task transcripts group under the run that made them.
func NewSupervisor(cfg *config.Config, client llm.Client, registry *tools.Registry, store *memory.Store, toolset string, mode Mode, verbosity ToolVerbosity, baseName string, log *zap.Logger) *Supervisor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Supervisor{
		cfg:       cfg,
		client:    client,
		registry:  registry,
		store:     store,
		mode:      mode,
		verbosity: verbosity,
		toolset:   toolset,
		baseName:  baseName,
		log:       log,
	}
}

// Delegate executes one task and returns its response and task ID. Failures
// of the LLM chat become the task's response rather than an error, so every
// task still gets a memory row and a result file.
func (s *Supervisor) Delegate(ctx context.Context, userInput string, callbacks ProcessCallbacks) (string, int64, error) {
	agentName := s.nextAgentName()
	s.log.Info("delegating task", zap.String("agent", agentName), zap.String("input", userInput))

	dispatch, err := interpreter.Interpret(userInput)
	var response string
	switch {
	case err != nil:
		// A recognized verb phrase with unusable arguments is reported to
		// the user, not handed to the model.
		response = fmt.Sprintf("Error: %v", err)
	case dispatch != nil:
		response = s.runDirect(ctx, dispatch, callbacks)
	default:
		response, err = s.runAgent(ctx, agentName, userInput, callbacks)
		if err != nil {
			s.log.Warn("agent run failed", zap.String("agent", agentName), zap.Error(err))
			response = fmt.Sprintf("Error: the language model could not complete the task: %v", err)
		}
	}

	taskID, err := s.store.Record(agentName, userInput, response)
	if err != nil {
		return "", 0, errors.Wrapf(err, "failed to record task for agent '%s'", agentName)
	}
	return response, taskID, nil
}

// runDirect executes an interpreter-matched tool without involving the LLM.
func (s *Supervisor) runDirect(ctx context.Context, dispatch *interpreter.Dispatch, callbacks ProcessCallbacks) string {
	tool, ok := s.registry.Get(dispatch.Tool)
	if !ok {
		return fmt.Sprintf("Error: tool '%s' is not available.", dispatch.Tool)
	}

	call := session.ToolCall{Name: dispatch.Tool, Args: dispatch.Args}
	if callbacks.OnToolCall != nil {
		callbacks.OnToolCall(call)
	}
	if s.mode == ModePrompt && callbacks.ShouldExecuteTool != nil && !callbacks.ShouldExecuteTool(call) {
		return "Tool execution was declined by the user."
	}

	result, err := tool.Execute(ctx, dispatch.Args)
	if err != nil {
		s.log.Warn("direct tool execution failed", zap.String("tool", dispatch.Tool), zap.Error(err))
		return fmt.Sprintf("Error: %v", err)
	}
	if callbacks.OnToolResult != nil {
		callbacks.OnToolResult(call, result)
	}
	return result
}

// runAgent spawns a fresh agent for the task and runs the chat loop.
func (s *Supervisor) runAgent(ctx context.Context, agentName, userInput string, callbacks ProcessCallbacks) (string, error) {
	sess, err := session.New(fmt.Sprintf("%s_%s", s.baseName, agentName))
	if err != nil {
		return "", err
	}
	sess.SetSystemMessage(s.systemMessageFor(userInput))

	worker, err := New(s.cfg, sess, s.registry, s.toolset, s.mode, s.client, s.verbosity, s.log)
	if err != nil {
		return "", err
	}
	return worker.ProcessUserInput(ctx, userInput, callbacks)
}

// systemMessageFor augments the generic worker prompt with remembered
// exchanges related to the task, newest first.
func (s *Supervisor) systemMessageFor(userInput string) string {
	entries, err := s.store.Recall(userInput, recallLimit)
	if err != nil {
		s.log.Warn("memory recall failed", zap.Error(err))
		return workerSystemMessage
	}
	if len(entries) == 0 {
		return workerSystemMessage
	}

	var b strings.Builder
	b.WriteString(workerSystemMessage)
	b.WriteString("\n\nRelated past tasks:\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "- [%s] %s -> %s\n", e.Agent, e.UserInput, e.Response)
	}
	return b.String()
}

func (s *Supervisor) nextAgentName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count++
	return fmt.Sprintf("agent_%d", s.count)
}
