package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/m4xw311/termagent/config"
	"github.com/m4xw311/termagent/errors"
)

// resolvePath anchors relative paths at the agent's working directory.
// Restriction globs are matched against the path as given, so config
// patterns stay portable across working directories.
func resolvePath(path, workDir string) string {
	if filepath.IsAbs(path) || workDir == "" {
		return path
	}
	return filepath.Join(workDir, path)
}

// CreateDirectoryTool creates a directory, including missing parents.
type CreateDirectoryTool struct {
	fsAccess *config.FilesystemAccess
	workDir  string
}

func (t *CreateDirectoryTool) Name() string { return "create_directory" }
func (t *CreateDirectoryTool) Description() string {
	return "Creates a directory, including any missing parents. Args: path (string)."
}

func (t *CreateDirectoryTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return "", errors.New("missing or invalid 'path' argument")
	}

	if err := checkWritable(path, t.fsAccess); err != nil {
		return "", err
	}

	if err := os.MkdirAll(resolvePath(path, t.workDir), 0755); err != nil {
		return "", errors.Wrapf(err, "failed to create directory '%s'", path)
	}
	return fmt.Sprintf("Created directory %s", path), nil
}

// WriteFileTool creates or replaces a file with the given content.
type WriteFileTool struct {
	fsAccess *config.FilesystemAccess
	workDir  string
}

func (t *WriteFileTool) Name() string { return "write_file" }
func (t *WriteFileTool) Description() string {
	return "Writes content to a file, creating it or replacing it entirely. Args: path (string), content (string)."
}

func (t *WriteFileTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	path, pathOk := args["path"].(string)
	content, contentOk := args["content"].(string)
	if !pathOk || path == "" || !contentOk {
		return "", errors.New("missing or invalid 'path' or 'content' arguments")
	}

	if err := checkWritable(path, t.fsAccess); err != nil {
		return "", err
	}

	full := resolvePath(path, t.workDir)
	if dir := filepath.Dir(full); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", errors.Wrapf(err, "failed to create parent directory for '%s'", path)
		}
	}
	if err := os.WriteFile(full, []byte(content), 0644); err != nil {
		return "", errors.Wrapf(err, "failed to write to file '%s'", path)
	}
	return fmt.Sprintf("Successfully wrote %d bytes to %s", len(content), path), nil
}

// ReadFileTool reads the entire content of a file.
type ReadFileTool struct {
	fsAccess *config.FilesystemAccess
	workDir  string
}

func (t *ReadFileTool) Name() string { return "read_file" }
func (t *ReadFileTool) Description() string {
	return "Reads the entire content of a file. Args: path (string)."
}

func (t *ReadFileTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return "", errors.New("missing or invalid 'path' argument")
	}

	if err := checkVisible(path, t.fsAccess); err != nil {
		return "", err
	}

	content, err := os.ReadFile(resolvePath(path, t.workDir))
	if err != nil {
		return "", errors.Wrapf(err, "failed to read file '%s'", path)
	}
	return string(content), nil
}

// ListFilesTool lists the entries of a directory, directories suffixed
// with a slash, hidden-restricted entries omitted.
type ListFilesTool struct {
	fsAccess *config.FilesystemAccess
	workDir  string
}

func (t *ListFilesTool) Name() string { return "list_files" }
func (t *ListFilesTool) Description() string {
	return "Lists the files in a directory. Args: path (string, optional, defaults to the working directory)."
}

func (t *ListFilesTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	path, _ := args["path"].(string)
	if path == "" {
		path = "."
	}

	if err := checkVisible(path, t.fsAccess); err != nil {
		return "", err
	}

	entries, err := os.ReadDir(resolvePath(path, t.workDir))
	if err != nil {
		return "", errors.Wrapf(err, "failed to list directory '%s'", path)
	}

	var names []string
	for _, entry := range entries {
		rel := entry.Name()
		if path != "." {
			rel = filepath.Join(path, entry.Name())
		}
		hidden, err := isPathRestricted(rel, t.fsAccess.Hidden)
		if err != nil {
			return "", err
		}
		if hidden {
			continue
		}
		name := entry.Name()
		if entry.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)

	if len(names) == 0 {
		return fmt.Sprintf("Directory %s is empty.", path), nil
	}
	return strings.Join(names, "\n"), nil
}

// DeleteFileTool removes a single file. It refuses to remove directories.
type DeleteFileTool struct {
	fsAccess *config.FilesystemAccess
	workDir  string
}

func (t *DeleteFileTool) Name() string { return "delete_file" }
func (t *DeleteFileTool) Description() string {
	return "Deletes a single file. Directories are not removed. Args: path (string)."
}

func (t *DeleteFileTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return "", errors.New("missing or invalid 'path' argument")
	}

	if err := checkWritable(path, t.fsAccess); err != nil {
		return "", err
	}

	full := resolvePath(path, t.workDir)
	info, err := os.Stat(full)
	if err != nil {
		return "", errors.Wrapf(err, "failed to stat '%s'", path)
	}
	if info.IsDir() {
		return "", errors.New("'%s' is a directory, not a file", path)
	}
	if err := os.Remove(full); err != nil {
		return "", errors.Wrapf(err, "failed to delete file '%s'", path)
	}
	return fmt.Sprintf("Deleted file %s", path), nil
}

// checkVisible rejects paths matching the hidden deny-list.
func checkVisible(path string, fs *config.FilesystemAccess) error {
	hidden, err := isPathRestricted(path, fs.Hidden)
	if err != nil {
		return err
	}
	if hidden {
		return errors.New("access denied: path '%s' is hidden", path)
	}
	return nil
}

// checkWritable rejects paths matching either the hidden or read-only deny-list.
func checkWritable(path string, fs *config.FilesystemAccess) error {
	if err := checkVisible(path, fs); err != nil {
		return err
	}
	readOnly, err := isPathRestricted(path, fs.ReadOnly)
	if err != nil {
		return err
	}
	if readOnly {
		return errors.New("access denied: path '%s' is read-only", path)
	}
	return nil
}
