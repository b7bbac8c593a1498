package tools

import (
	"context"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/m4xw311/termagent/config"
	"github.com/m4xw311/termagent/errors"
	"github.com/m4xw311/termagent/tools/mcp"
)

// Tool is any operation the terminal agent can perform.
type Tool interface {
	Name() string
	Description() string
	Execute(ctx context.Context, args map[string]interface{}) (string, error)
}

// Registry holds the built-in tools and any tools discovered from
// configured MCP servers.
type Registry struct {
	tools      map[string]Tool
	mcpClients map[string]*mcp.Client
}

// NewRegistry registers the built-in file and command tools and starts the
// MCP server subprocesses named in the configuration. MCP failures are
// reported but do not prevent the built-in tools from working.
func NewRegistry(cfg *config.Config) (*Registry, []error) {
	r := &Registry{
		tools:      make(map[string]Tool),
		mcpClients: make(map[string]*mcp.Client),
	}

	fs := &cfg.FilesystemAccess
	r.Register(&CreateDirectoryTool{fsAccess: fs, workDir: cfg.WorkingDirectory})
	r.Register(&WriteFileTool{fsAccess: fs, workDir: cfg.WorkingDirectory})
	r.Register(&ReadFileTool{fsAccess: fs, workDir: cfg.WorkingDirectory})
	r.Register(&ListFilesTool{fsAccess: fs, workDir: cfg.WorkingDirectory})
	r.Register(&DeleteFileTool{fsAccess: fs, workDir: cfg.WorkingDirectory})
	r.Register(&ExecuteCommandTool{allowedCommands: cfg.AllowedCommands, workDir: cfg.WorkingDirectory})

	var startupErrs []error
	for _, server := range cfg.MCPServers {
		client, err := mcp.NewClient(server.Name, server.Command, server.Args)
		if err != nil {
			startupErrs = append(startupErrs, errors.Wrapf(err, "MCP server '%s' failed to start", server.Name))
			continue
		}
		r.mcpClients[server.Name] = client
	}

	return r, startupErrs
}

func (r *Registry) Register(t Tool) {
	r.tools[t.Name()] = t
}

func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Close stops all MCP server subprocesses.
func (r *Registry) Close() {
	for _, client := range r.mcpClients {
		client.Stop()
	}
}

// ActiveTools resolves a toolset into tool instances. MCP tools are named
// "<server>.<tool>"; "<server>.*" selects every tool the server offers.
func (r *Registry) ActiveTools(ts *config.Toolset) ([]Tool, error) {
	var active []Tool
	for _, name := range ts.Tools {
		if server, tool, ok := strings.Cut(name, "."); ok {
			client, found := r.mcpClients[server]
			if !found {
				return nil, errors.New("toolset '%s' references unknown MCP server '%s'", ts.Name, server)
			}
			if tool == "*" {
				for _, t := range client.AllTools() {
					active = append(active, t)
				}
				continue
			}
			t, found := client.GetTool(tool)
			if !found {
				return nil, errors.New("MCP server '%s' does not provide tool '%s'", server, tool)
			}
			active = append(active, t)
			continue
		}

		t, ok := r.Get(name)
		if !ok {
			return nil, errors.New("tool '%s' from toolset '%s' is not registered", name, ts.Name)
		}
		active = append(active, t)
	}
	return active, nil
}

// isPathRestricted reports whether path matches any of the glob patterns.
func isPathRestricted(path string, patterns []string) (bool, error) {
	for _, pattern := range patterns {
		match, err := doublestar.PathMatch(pattern, path)
		if err != nil {
			return false, errors.New("invalid glob pattern '%s': %v", pattern, err)
		}
		if match {
			return true, nil
		}
	}
	return false, nil
}

// isCommandAllowed checks a command against the allowlist. Entries are
// treated as regular expressions; an entry that fails to compile falls back
// to exact string comparison.
func isCommandAllowed(command string, allowed []string) bool {
	if strings.TrimSpace(command) == "" {
		return false
	}
	for _, pattern := range allowed {
		re, err := regexp.Compile(pattern)
		if err != nil {
			if command == pattern {
				return true
			}
			continue
		}
		if re.MatchString(command) {
			return true
		}
	}
	return false
}
