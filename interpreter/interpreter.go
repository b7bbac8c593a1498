// Package interpreter maps free-text instructions onto terminal agent tools.
//
// A small set of verb phrases is recognized directly: creating directories,
// creating files with content, listing and reading files, deleting files and
// running shell commands. Anything else is left for LLM delegation rather
// than guessed at, so a typo never silently becomes a file operation.
package interpreter

import (
	"strings"

	"github.com/m4xw311/termagent/errors"
)

// Dispatch is a resolved instruction: a tool name and its arguments.
type Dispatch struct {
	Tool string
	Args map[string]interface{}
}

// Interpret parses one line of user input. It returns (nil, nil) when the
// line matches no known verb phrase, signaling that the caller should
// delegate the task instead. An error means the line matched a verb phrase
// but its arguments were unusable.
func Interpret(line string) (*Dispatch, error) {
	line = strings.TrimSpace(line)

	if rest, ok := matchVerb(line, "run command"); ok {
		command := strings.TrimSpace(rest)
		if command == "" {
			return nil, errors.New("run command: no command given")
		}
		return &Dispatch{Tool: "execute_command", Args: map[string]interface{}{"command": command}}, nil
	}

	if rest, ok := matchVerb(line, "create directory"); ok {
		return singlePathDispatch("create_directory", rest)
	}

	if rest, ok := matchVerb(line, "create file"); ok {
		return parseCreateFile(rest)
	}

	if rest, ok := matchVerb(line, "list files"); ok {
		rest = strings.TrimSpace(rest)
		if strings.EqualFold(rest, "in") {
			return nil, errors.New("list files: no path given after 'in'")
		}
		rest = strings.TrimSpace(strings.TrimPrefix(rest, "in "))
		args := map[string]interface{}{}
		if rest != "" {
			path, err := singleArg(rest)
			if err != nil {
				return nil, errors.Wrapf(err, "list files")
			}
			args["path"] = path
		}
		return &Dispatch{Tool: "list_files", Args: args}, nil
	}

	if rest, ok := matchVerb(line, "read file"); ok {
		return singlePathDispatch("read_file", rest)
	}

	if rest, ok := matchVerb(line, "delete file"); ok {
		return singlePathDispatch("delete_file", rest)
	}

	return nil, nil
}

// matchVerb matches a case-insensitive verb phrase at a word boundary and
// returns the remainder of the line.
func matchVerb(line, verb string) (string, bool) {
	if len(line) < len(verb) || !strings.EqualFold(line[:len(verb)], verb) {
		return "", false
	}
	rest := line[len(verb):]
	if rest != "" && rest[0] != ' ' {
		return "", false
	}
	return rest, true
}

func singlePathDispatch(tool, rest string) (*Dispatch, error) {
	path, err := singleArg(rest)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", strings.ReplaceAll(tool, "_", " "))
	}
	return &Dispatch{Tool: tool, Args: map[string]interface{}{"path": path}}, nil
}

func singleArg(rest string) (string, error) {
	fields := Fields(rest)
	if len(fields) == 0 {
		return "", errors.New("no path given")
	}
	if len(fields) > 1 {
		return "", errors.New("expected a single path, got %d arguments (quote paths containing spaces)", len(fields))
	}
	return fields[0], nil
}

// parseCreateFile handles `create file <path> with content <text>`. The
// content clause is optional; without it an empty file is created.
func parseCreateFile(rest string) (*Dispatch, error) {
	rest = strings.TrimSpace(rest)

	content := ""
	if idx := strings.Index(strings.ToLower(rest), "with content"); idx >= 0 {
		content = strings.TrimSpace(rest[idx+len("with content"):])
		rest = strings.TrimSpace(rest[:idx])
		// Content may be quoted as a whole; strip one level of quotes.
		if len(content) >= 2 && content[0] == '"' && content[len(content)-1] == '"' {
			content = content[1 : len(content)-1]
		}
	}

	path, err := singleArg(rest)
	if err != nil {
		return nil, errors.Wrapf(err, "create file")
	}
	return &Dispatch{Tool: "write_file", Args: map[string]interface{}{"path": path, "content": content}}, nil
}

// Fields splits a line into arguments, honoring double quotes so paths and
// content with spaces survive as a single argument.
func Fields(input string) []string {
	var args []string
	var current strings.Builder
	inQuotes := false

	for _, r := range input {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == ' ' && !inQuotes:
			if current.Len() > 0 {
				args = append(args, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		args = append(args, current.String())
	}
	return args
}
