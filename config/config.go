package config

import (
	"os"
	"path/filepath"

	"github.com/m4xw311/termagent/errors"
	"gopkg.in/yaml.v3"
)

// FilesystemAccess holds glob deny-lists applied to every file tool.
// Hidden paths are invisible to the agent; read-only paths may be read
// but never written or deleted.
type FilesystemAccess struct {
	Hidden   []string `yaml:"hidden"`
	ReadOnly []string `yaml:"read_only"`
}

// MCPServer describes an external tool server started as a subprocess.
type MCPServer struct {
	Name    string   `yaml:"name"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

// Toolset names a subset of registered tools the agent may use.
type Toolset struct {
	Name  string   `yaml:"name"`
	Tools []string `yaml:"tools"`
}

type Config struct {
	LLMClient        string           `yaml:"llm"`
	Model            string           `yaml:"model"`
	APIEndpoint      string           `yaml:"api_endpoint"`
	WorkingDirectory string           `yaml:"working_directory"`
	HistoryBudget    int              `yaml:"history_budget"`
	TasksFile        string           `yaml:"tasks_file"`
	Toolsets         []Toolset        `yaml:"toolsets"`
	MCPServers       []MCPServer      `yaml:"mcp_servers"`
	AllowedCommands  []string         `yaml:"allowed_commands"`
	FilesystemAccess FilesystemAccess `yaml:"filesystem_access"`
}

const (
	defaultHistoryBudget = 2000
	defaultTasksFile     = "test_tasks.txt"
)

// Load reads configuration from the user's home directory and the current
// working directory, project-level values taking precedence, then applies
// environment overrides.
func Load() (*Config, error) {
	cfg := &Config{
		HistoryBudget: defaultHistoryBudget,
		TasksFile:     defaultTasksFile,
	}

	// The agent must never see its own state directory.
	cfg.FilesystemAccess.Hidden = append(cfg.FilesystemAccess.Hidden, ".termagent", ".termagent/**")

	if home, err := os.UserHomeDir(); err == nil {
		userPath := filepath.Join(home, ".termagent", "config.yaml")
		if _, err := os.Stat(userPath); err == nil {
			if err := mergeFile(userPath, cfg); err != nil {
				return nil, errors.Wrapf(err, "error loading user config")
			}
		}
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrapf(err, "could not get working directory")
	}
	projectPath := filepath.Join(wd, ".termagent", "config.yaml")
	if _, err := os.Stat(projectPath); err == nil {
		if err := mergeFile(projectPath, cfg); err != nil {
			return nil, errors.Wrapf(err, "error loading project config")
		}
	}

	// Environment overrides both config levels.
	if v := os.Getenv("TERMAGENT_API_ENDPOINT"); v != "" {
		cfg.APIEndpoint = v
	}
	if v := os.Getenv("TERMAGENT_WORKDIR"); v != "" {
		cfg.WorkingDirectory = v
	}

	if cfg.WorkingDirectory == "" {
		cfg.WorkingDirectory = wd
	}
	if cfg.HistoryBudget <= 0 {
		cfg.HistoryBudget = defaultHistoryBudget
	}

	// A usable out-of-the-box setup: without any config file the agent still
	// gets the built-in file and command tools.
	if len(cfg.Toolsets) == 0 {
		cfg.Toolsets = []Toolset{{
			Name: "default",
			Tools: []string{
				"create_directory", "write_file", "read_file",
				"list_files", "delete_file", "execute_command",
			},
		}}
	}

	return cfg, nil
}

// EnsureWorkingDirectory creates the working directory if it does not exist.
func (c *Config) EnsureWorkingDirectory() error {
	if err := os.MkdirAll(c.WorkingDirectory, 0755); err != nil {
		return errors.Wrapf(err, "could not create working directory '%s'", c.WorkingDirectory)
	}
	return nil
}

func mergeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	// Unmarshal overwrites only the fields present in the YAML, which gives
	// a simple merge where project-level values replace user-level ones.
	return yaml.Unmarshal(data, cfg)
}

// GetToolset finds a toolset by name. An empty name selects "default"; a
// missing named toolset also falls back to "default".
func (c *Config) GetToolset(name string) (*Toolset, error) {
	if name == "" {
		name = "default"
	}
	for i := range c.Toolsets {
		if c.Toolsets[i].Name == name {
			return &c.Toolsets[i], nil
		}
	}
	if name == "default" {
		return nil, errors.New("mandatory 'default' toolset not found in configuration")
	}
	return c.GetToolset("default")
}
