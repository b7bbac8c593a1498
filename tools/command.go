package tools

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/m4xw311/termagent/errors"
)

// ExecuteCommandTool runs a shell command in the agent's working directory.
type ExecuteCommandTool struct {
	allowedCommands []string
	workDir         string
}

func (t *ExecuteCommandTool) Name() string { return "execute_command" }
func (t *ExecuteCommandTool) Description() string {
	if len(t.allowedCommands) == 0 {
		return "Executes a shell command. No commands are currently allowed. Args: command (string)."
	}

	var b strings.Builder
	b.WriteString("Executes a shell command. Args: command (string).\nAllowed command patterns:\n")
	for _, cmd := range t.allowedCommands {
		fmt.Fprintf(&b, "- %s\n", cmd)
	}
	return b.String()
}

func (t *ExecuteCommandTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	command, ok := args["command"].(string)
	if !ok || strings.TrimSpace(command) == "" {
		return "", errors.New("missing or invalid 'command' argument")
	}

	if !isCommandAllowed(command, t.allowedCommands) {
		return "", errors.New("command '%s' is not in the list of allowed commands", command)
	}

	// The command runs through the shell so pipes, globs and quoting behave
	// the way a user at a terminal expects.
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = t.workDir

	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", errors.New("%s", explainCommandFailure(err, string(output)))
	}

	result := strings.TrimSpace(string(output))
	if result == "" {
		return "Command executed successfully with no output.", nil
	}
	return result, nil
}

// explainCommandFailure turns common shell failures into actionable messages
// instead of raw exit statuses.
func explainCommandFailure(err error, output string) string {
	combined := strings.ToLower(output)
	switch {
	case strings.Contains(combined, "permission denied"):
		return "Permission denied. Try running the command with elevated privileges."
	case strings.Contains(combined, "not found"):
		return "Command not found. Ensure the command is typed correctly and try again."
	case strings.TrimSpace(output) != "":
		return fmt.Sprintf("An error occurred: %s", strings.TrimSpace(output))
	default:
		return fmt.Sprintf("An error occurred: %v", err)
	}
}
