package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.HistoryBudget != defaultHistoryBudget {
		t.Errorf("HistoryBudget = %d, want %d", cfg.HistoryBudget, defaultHistoryBudget)
	}
	if cfg.TasksFile != defaultTasksFile {
		t.Errorf("TasksFile = %q, want %q", cfg.TasksFile, defaultTasksFile)
	}
	wd, _ := os.Getwd()
	if cfg.WorkingDirectory != wd {
		t.Errorf("WorkingDirectory = %q, want current directory %q", cfg.WorkingDirectory, wd)
	}
	if len(cfg.Toolsets) != 1 || cfg.Toolsets[0].Name != "default" {
		t.Fatalf("expected a synthesized default toolset, got %+v", cfg.Toolsets)
	}
	if len(cfg.FilesystemAccess.Hidden) == 0 {
		t.Error("the .termagent state directory should be hidden by default")
	}
}

func TestLoadProjectOverridesUser(t *testing.T) {
	home := t.TempDir()
	project := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(project)

	writeConfig(t, home, "llm: openai\nmodel: user-model\nhistory_budget: 500\n")
	writeConfig(t, project, "model: project-model\n")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LLMClient != "openai" {
		t.Errorf("user-level llm setting lost: %q", cfg.LLMClient)
	}
	if cfg.Model != "project-model" {
		t.Errorf("project config should win: model = %q", cfg.Model)
	}
	if cfg.HistoryBudget != 500 {
		t.Errorf("HistoryBudget = %d, want 500", cfg.HistoryBudget)
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	t.Setenv("TERMAGENT_API_ENDPOINT", "http://localhost:1234/v1")
	workDir := t.TempDir()
	t.Setenv("TERMAGENT_WORKDIR", workDir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.APIEndpoint != "http://localhost:1234/v1" {
		t.Errorf("APIEndpoint = %q", cfg.APIEndpoint)
	}
	if cfg.WorkingDirectory != workDir {
		t.Errorf("WorkingDirectory = %q, want %q", cfg.WorkingDirectory, workDir)
	}
}

func TestGetToolset(t *testing.T) {
	cfg := &Config{
		Toolsets: []Toolset{
			{Name: "default", Tools: []string{"read_file"}},
			{Name: "full", Tools: []string{"read_file", "write_file"}},
		},
	}

	ts, err := cfg.GetToolset("full")
	if err != nil || ts.Name != "full" {
		t.Errorf("GetToolset(full) = (%+v, %v)", ts, err)
	}

	ts, err = cfg.GetToolset("")
	if err != nil || ts.Name != "default" {
		t.Errorf("GetToolset(\"\") = (%+v, %v)", ts, err)
	}

	// Unknown toolsets fall back to default.
	ts, err = cfg.GetToolset("nonexistent")
	if err != nil || ts.Name != "default" {
		t.Errorf("GetToolset(nonexistent) = (%+v, %v)", ts, err)
	}
}

func TestGetToolsetMissingDefault(t *testing.T) {
	cfg := &Config{}
	if _, err := cfg.GetToolset("default"); err == nil {
		t.Error("expected error when no default toolset exists")
	}
}

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	cfgDir := filepath.Join(dir, ".termagent")
	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		t.Fatalf("could not create config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(cfgDir, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("could not write config: %v", err)
	}
}
