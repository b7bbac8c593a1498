package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/m4xw311/termagent/agent"
	"github.com/m4xw311/termagent/agent/terminal"
	"github.com/m4xw311/termagent/config"
	"github.com/m4xw311/termagent/llm"
	"github.com/m4xw311/termagent/memory"
	"github.com/m4xw311/termagent/session"
	"github.com/m4xw311/termagent/tools"
)

func main() {
	modeFlag := flag.String("m", "", "Execution mode: 'auto' or 'prompt'")
	sessionFlag := flag.String("s", "", "Session name to create or use")
	toolsetFlag := flag.String("t", "", "Toolset to use (defaults to 'default')")
	resumeFlag := flag.String("r", "", "Resume a session by name")
	toolVerbosityFlag := flag.String("tool-verbosity", "", "Tool verbosity level: 'none', 'info', or 'all'")
	traceFlag := flag.Bool("trace", false, "Enable debug-level logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fatalf("Error loading configuration: %+v\n", err)
	}
	if err := cfg.EnsureWorkingDirectory(); err != nil {
		fatalf("Error preparing working directory: %+v\n", err)
	}

	sess, sessionName := openSession(*sessionFlag, *resumeFlag, modeFlag, toolsetFlag, toolVerbosityFlag)

	applyDefault(modeFlag, "prompt")
	applyDefault(toolsetFlag, "default")
	applyDefault(toolVerbosityFlag, "none")

	sess.Mode = *modeFlag
	sess.Toolset = *toolsetFlag
	sess.ToolVerbosity = *toolVerbosityFlag
	if err := sess.Save(); err != nil {
		fatalf("Error saving session '%s': %+v\n", sessionName, err)
	}

	opMode, err := parseMode(*modeFlag)
	if err != nil {
		fatalf("%v\n", err)
	}
	verbosity, err := parseVerbosity(*toolVerbosityFlag)
	if err != nil {
		fatalf("%v\n", err)
	}

	logger, err := buildLogger(cfg.WorkingDirectory, *traceFlag)
	if err != nil {
		fatalf("Error setting up logging: %+v\n", err)
	}
	defer logger.Sync()

	client, err := buildLLMClient(cfg)
	if err != nil {
		fatalf("Error initializing LLM client: %+v\n", err)
	}

	registry, startupErrs := tools.NewRegistry(cfg)
	defer registry.Close()
	for _, e := range startupErrs {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", e)
	}

	store, err := memory.Open(cfg.WorkingDirectory)
	if err != nil {
		fatalf("Error opening memory store: %+v\n", err)
	}
	defer store.Close()
	logger.Info("memory store ready", zap.String("dir", cfg.WorkingDirectory))

	sup := agent.NewSupervisor(cfg, client, registry, store, *toolsetFlag, opMode, verbosity, sessionName, logger)

	rl, err := readline.New(">> ")
	if err != nil {
		fatalf("Error initializing prompt: %+v\n", err)
	}
	defer rl.Close()

	fmt.Println("=== Intelligent Programming Assistant ===")
	fmt.Println("Enter your task. Type 'help' for a list of commands. Type 'quit' to exit.")

	term := terminal.New(sup, rl, terminal.Options{
		WorkDir:   cfg.WorkingDirectory,
		TasksFile: cfg.TasksFile,
		Mode:      opMode,
		Verbosity: verbosity,
		Log:       logger,
	})

	initialTask := strings.Join(flag.Args(), " ")
	if err := term.Run(context.Background(), initialTask); err != nil {
		fatalf("Agent stopped with an error: %+v\n", err)
	}
	logger.Info("assistant stopped")
}

// openSession resumes an existing session or starts a new one, and fills in
// unset flags from a resumed session's stored values.
func openSession(sessionName, resumeName string, modeFlag, toolsetFlag, verbosityFlag *string) (*session.Session, string) {
	if resumeName != "" {
		sess, err := session.Load(resumeName)
		if err != nil {
			fatalf("Error resuming session '%s': %+v\n", resumeName, err)
		}
		fmt.Printf("Resuming session: %s\n", resumeName)
		if *modeFlag == "" && sess.Mode != "" {
			*modeFlag = sess.Mode
		}
		if *toolsetFlag == "" && sess.Toolset != "" {
			*toolsetFlag = sess.Toolset
		}
		if *verbosityFlag == "" && sess.ToolVerbosity != "" {
			*verbosityFlag = sess.ToolVerbosity
		}
		return sess, resumeName
	}

	if sessionName == "" {
		sessionName = defaultSessionName()
	}
	sess, err := session.New(sessionName)
	if err != nil {
		fatalf("Error creating session '%s': %+v\n", sessionName, err)
	}
	fmt.Printf("Starting new session: %s\n", sessionName)
	return sess, sessionName
}

func buildLLMClient(cfg *config.Config) (llm.Client, error) {
	ctx := context.Background()
	switch cfg.LLMClient {
	case "openai", "local":
		return llm.NewOpenAIClient(ctx, cfg.Model, cfg.APIEndpoint)
	case "anthropic":
		return llm.NewAnthropicClient(ctx, cfg.Model)
	case "gemini":
		return llm.NewGeminiClient(ctx, cfg.Model)
	case "bedrock":
		return llm.NewBedrockClient(ctx, cfg.Model)
	default:
		return &llm.MockClient{}, nil
	}
}

// buildLogger writes structured logs to a file in the working directory, so
// log lines never interleave with the interactive prompt.
func buildLogger(workDir string, trace bool) (*zap.Logger, error) {
	level := zap.InfoLevel
	if trace {
		level = zap.DebugLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.Encoding = "json"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{filepath.Join(workDir, "termagent.log")}
	cfg.ErrorOutputPaths = cfg.OutputPaths
	return cfg.Build()
}

func parseMode(mode string) (agent.Mode, error) {
	switch mode {
	case "auto":
		return agent.ModeAuto, nil
	case "prompt":
		return agent.ModePrompt, nil
	default:
		return "", fmt.Errorf("invalid mode '%s', must be 'auto' or 'prompt'", mode)
	}
}

func parseVerbosity(v string) (agent.ToolVerbosity, error) {
	switch v {
	case "none":
		return agent.ToolVerbosityNone, nil
	case "info":
		return agent.ToolVerbosityInfo, nil
	case "all":
		return agent.ToolVerbosityAll, nil
	default:
		return "", fmt.Errorf("invalid tool verbosity '%s', must be 'none', 'info' or 'all'", v)
	}
}

func applyDefault(flagValue *string, def string) {
	if *flagValue == "" {
		*flagValue = def
	}
}

func defaultSessionName() string {
	wd, err := os.Getwd()
	if err != nil {
		wd = "termagent"
	}
	return fmt.Sprintf("%s_%s", filepath.Base(wd), time.Now().Format("2006-01-02_15-04-05"))
}

func fatalf(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, format, a...)
	os.Exit(1)
}
