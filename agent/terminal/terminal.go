package terminal

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"go.uber.org/zap"

	"github.com/m4xw311/termagent/agent"
	"github.com/m4xw311/termagent/session"
	"github.com/m4xw311/termagent/task"
)

const helpText = `Available commands:
  help                                       Show this help.
  quit / exit                                Exit the program.
  run tests                                  Queue the tasks listed in the tasks file.
  create directory <path>                    Create a directory.
  create file <path> with content <text>     Create a file with the given content.
  list files [in <path>]                     List the files in a directory.
  read file <path>                           Print a file's content.
  delete file <path>                         Delete a file.
  run command <shell command>                Run a shell command (allowlist applies).
  <anything else>                            The agent will attempt the task.`

// Terminal is the interactive prompt. Each submitted line becomes a task on
// the background queue; the supervisor executes them one at a time.
//
// The main read loop is the only reader of the readline instance. When the
// worker goroutine needs a tool confirmation it registers on pending, and the
// next input line is routed to it instead of the task queue.
type Terminal struct {
	supervisor *agent.Supervisor
	rl         *readline.Instance
	workDir    string
	tasksFile  string
	mode       agent.Mode
	verbosity  agent.ToolVerbosity
	log        *zap.Logger

	pending chan chan string
	quit    chan struct{}
}

// Options configures a Terminal.
type Options struct {
	WorkDir   string
	TasksFile string
	Mode      agent.Mode
	Verbosity agent.ToolVerbosity
	Log       *zap.Logger
}

// New creates a Terminal around a supervisor and a readline instance.
func New(sup *agent.Supervisor, rl *readline.Instance, opts Options) *Terminal {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Terminal{
		supervisor: sup,
		rl:         rl,
		workDir:    opts.WorkDir,
		tasksFile:  opts.TasksFile,
		mode:       opts.Mode,
		verbosity:  opts.Verbosity,
		log:        log,
		pending:    make(chan chan string),
		quit:       make(chan struct{}),
	}
}

// Run starts the read loop. An optional initial task from the command line
// is queued first. Run returns when the user quits or input reaches EOF.
func (t *Terminal) Run(ctx context.Context, initialTask string) error {
	runner := task.NewRunner(ctx, t.executeTask)
	defer runner.Close()
	// Unblocks a worker waiting for a confirmation answer before Close
	// waits for it.
	defer close(t.quit)

	if initialTask != "" {
		runner.Submit(initialTask)
	}

	for {
		line, err := t.rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		// A worker waiting on a confirmation gets the line instead of
		// the task queue.
		select {
		case reply := <-t.pending:
			reply <- line
			continue
		default:
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch strings.ToLower(line) {
		case "quit", "exit":
			return nil
		case "help":
			fmt.Println(helpText)
		case "run tests":
			tasks, err := task.LoadTasks(t.tasksFile)
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				continue
			}
			fmt.Printf("Queued %d tasks from %s\n", len(tasks), t.tasksFile)
			for _, tsk := range tasks {
				runner.Submit(tsk)
			}
		default:
			runner.Submit(line)
		}
	}
}

// executeTask runs one queued task through the supervisor, prints the
// outcome and saves it as a result file.
func (t *Terminal) executeTask(ctx context.Context, userInput string) {
	response, taskID, err := t.supervisor.Delegate(ctx, userInput, t.callbacks())
	if err != nil {
		t.log.Error("task failed", zap.String("task", userInput), zap.Error(err))
		fmt.Printf("\nTask: %s\nError: %v\n", userInput, err)
		return
	}
	t.log.Info("task completed", zap.Int64("task_id", taskID))

	fmt.Printf("\nTask: %s\nResult:\n%s\nTask ID: %d\n", userInput, response, taskID)

	if _, err := task.WriteResult(t.workDir, userInput, response); err != nil {
		fmt.Printf("Warning: %v\n", err)
	}
}

// confirm asks a yes/no question from the worker goroutine. The answer line
// is read by the main loop, which owns the readline instance; reading stdin
// here would race with it and lose the answer. A confirmation still pending
// when the terminal shuts down is declined.
func (t *Terminal) confirm(prompt string) bool {
	reply := make(chan string)
	fmt.Print(prompt)
	select {
	case t.pending <- reply:
		answer := <-reply
		return strings.TrimSpace(strings.ToLower(answer)) == "y"
	case <-t.quit:
		return false
	}
}

// callbacks adapts agent events to terminal output, respecting the
// configured verbosity and confirmation mode.
func (t *Terminal) callbacks() agent.ProcessCallbacks {
	return agent.ProcessCallbacks{
		OnAssistantMessage: func(message string) {
			fmt.Printf("Agent: %s\n", message)
		},
		OnToolCall: func(call session.ToolCall) {
			switch t.verbosity {
			case agent.ToolVerbosityAll:
				fmt.Printf("Agent wants to call tool `%s` with args: %v\n", call.Name, call.Args)
			case agent.ToolVerbosityInfo:
				fmt.Printf("Agent wants to call tool `%s`\n", call.Name)
			}
		},
		OnToolResult: func(call session.ToolCall, result string) {
			if t.verbosity == agent.ToolVerbosityAll {
				fmt.Printf("Tool `%s` output: %s\n", call.Name, result)
			}
		},
		ShouldExecuteTool: func(call session.ToolCall) bool {
			if t.mode != agent.ModePrompt {
				return true
			}
			return t.confirm(fmt.Sprintf("Allow tool `%s`? (y/n): ", call.Name))
		},
		OnWarning: func(warning string) {
			fmt.Printf("Warning: %s\n", warning)
		},
	}
}
