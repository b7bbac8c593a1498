package terminal

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/m4xw311/termagent/agent"
	"github.com/m4xw311/termagent/config"
	"github.com/m4xw311/termagent/errors"
	"github.com/m4xw311/termagent/llm"
	"github.com/m4xw311/termagent/memory"
	"github.com/m4xw311/termagent/session"
	"github.com/m4xw311/termagent/tools"
)

// offlineClient simulates an unreachable LLM backend.
type offlineClient struct{}

func (offlineClient) Chat(ctx context.Context, messages []session.Message, availableTools []tools.Tool) (*session.Message, error) {
	return nil, errors.New("backend offline")
}

func newTestTerminal(t *testing.T, client llm.Client, mode agent.Mode) (*Terminal, string) {
	t.Helper()
	t.Chdir(t.TempDir())
	workDir := t.TempDir()

	cfg := &config.Config{
		WorkingDirectory: workDir,
		HistoryBudget:    2000,
		Toolsets: []config.Toolset{{
			Name:  "default",
			Tools: []string{"create_directory", "write_file", "read_file", "list_files", "delete_file", "execute_command"},
		}},
	}

	registry, errs := tools.NewRegistry(cfg)
	if len(errs) != 0 {
		t.Fatalf("registry startup errors: %v", errs)
	}
	t.Cleanup(registry.Close)

	store, err := memory.Open(workDir)
	if err != nil {
		t.Fatalf("memory.Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	sup := agent.NewSupervisor(cfg, client, registry, store, "default", mode, agent.ToolVerbosityNone, "test", nil)
	term := New(sup, nil, Options{
		WorkDir:   workDir,
		TasksFile: filepath.Join(workDir, "test_tasks.txt"),
		Mode:      mode,
		Verbosity: agent.ToolVerbosityNone,
	})
	return term, workDir
}

func resultFiles(t *testing.T, workDir string) []string {
	t.Helper()
	entries, err := os.ReadDir(workDir)
	if err != nil {
		t.Fatalf("could not read working directory: %v", err)
	}
	var names []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "task_result_") {
			names = append(names, filepath.Join(workDir, e.Name()))
		}
	}
	return names
}

func TestExecuteTaskWritesResultFile(t *testing.T) {
	term, workDir := newTestTerminal(t, &llm.MockClient{}, agent.ModeAuto)

	term.executeTask(context.Background(), "create directory from-task")

	if _, err := os.Stat(filepath.Join(workDir, "from-task")); err != nil {
		t.Errorf("task did not create the directory: %v", err)
	}

	files := resultFiles(t, workDir)
	if len(files) != 1 {
		t.Fatalf("expected 1 result file, got %d", len(files))
	}
	content, err := os.ReadFile(files[0])
	if err != nil {
		t.Fatalf("could not read result file: %v", err)
	}
	if !strings.Contains(string(content), "Task: create directory from-task") {
		t.Errorf("result file malformed:\n%s", content)
	}
}

func TestExecuteTaskDelegatedAnswer(t *testing.T) {
	client := &llm.MockClient{}
	term, workDir := newTestTerminal(t, client, agent.ModeAuto)

	// The mock echoes unrecognized input, proving the LLM path ran.
	term.executeTask(context.Background(), "explain what this project does")

	if files := resultFiles(t, workDir); len(files) != 1 {
		t.Errorf("expected 1 result file, got %d", len(files))
	}
}

func TestExecuteTaskLLMFailureStillSavesResult(t *testing.T) {
	term, workDir := newTestTerminal(t, offlineClient{}, agent.ModeAuto)

	term.executeTask(context.Background(), "explain what this project does")

	files := resultFiles(t, workDir)
	if len(files) != 1 {
		t.Fatalf("expected 1 result file for the failed task, got %d", len(files))
	}
	content, err := os.ReadFile(files[0])
	if err != nil {
		t.Fatalf("could not read result file: %v", err)
	}
	if !strings.Contains(string(content), "backend offline") {
		t.Errorf("result file does not report the failure:\n%s", content)
	}
}

func TestCallbacksAutoModeApproval(t *testing.T) {
	term, _ := newTestTerminal(t, &llm.MockClient{}, agent.ModeAuto)

	// ShouldExecuteTool must approve everything outside prompt mode without
	// touching stdin.
	cb := term.callbacks()
	if !cb.ShouldExecuteTool(session.ToolCall{Name: "write_file"}) {
		t.Error("auto mode should execute tools without confirmation")
	}
}

func TestCallbacksPromptModeConfirmation(t *testing.T) {
	term, _ := newTestTerminal(t, &llm.MockClient{}, agent.ModePrompt)
	cb := term.callbacks()

	// The worker's confirmation must be answered through the pending
	// channel serviced by the read loop, never by a second stdin reader.
	t.Run("ApprovedOnYes", func(t *testing.T) {
		go func() {
			reply := <-term.pending
			reply <- "Y\n"
		}()
		if !cb.ShouldExecuteTool(session.ToolCall{Name: "write_file"}) {
			t.Error("a 'y' answer should approve the tool")
		}
	})

	t.Run("DeclinedOnNo", func(t *testing.T) {
		go func() {
			reply := <-term.pending
			reply <- "n"
		}()
		if cb.ShouldExecuteTool(session.ToolCall{Name: "delete_file"}) {
			t.Error("an 'n' answer should decline the tool")
		}
	})

	t.Run("DeclinedOnShutdown", func(t *testing.T) {
		close(term.quit)
		if cb.ShouldExecuteTool(session.ToolCall{Name: "write_file"}) {
			t.Error("a confirmation pending at shutdown should be declined")
		}
	})
}

func TestExecuteTaskPromptModeDecline(t *testing.T) {
	term, workDir := newTestTerminal(t, &llm.MockClient{}, agent.ModePrompt)

	answered := make(chan struct{})
	go func() {
		reply := <-term.pending
		reply <- "n"
		close(answered)
	}()

	term.executeTask(context.Background(), "create directory guarded")
	<-answered

	if _, err := os.Stat(filepath.Join(workDir, "guarded")); err == nil {
		t.Error("declined tool created the directory anyway")
	}
	files := resultFiles(t, workDir)
	if len(files) != 1 {
		t.Fatalf("expected 1 result file, got %d", len(files))
	}
	content, _ := os.ReadFile(files[0])
	if !strings.Contains(string(content), "declined") {
		t.Errorf("result file does not record the decline:\n%s", content)
	}
}
