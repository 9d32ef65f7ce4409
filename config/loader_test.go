package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestFindUp(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	marker := filepath.Join(root, "a", ProjectFile)
	if err := os.WriteFile(marker, []byte("{}"), 0644); err != nil {
		t.Fatalf("write marker: %v", err)
	}

	if got := findUp(nested, ProjectFile); got != marker {
		t.Errorf("findUp() = %q, want %q", got, marker)
	}
	if got := findUp(root, ProjectFile); got != "" {
		t.Errorf("findUp() above the marker = %q, want empty", got)
	}
}

func TestLoadProjectAnchorsRelativeDirs(t *testing.T) {
	root := t.TempDir()
	content := `
departments:
  glob: "**/*.yml"
`
	if err := os.WriteFile(filepath.Join(root, ProjectFile), []byte(content), 0644); err != nil {
		t.Fatalf("write project config: %v", err)
	}

	cfg := DefaultConfig()
	l := NewLoader(slog.Default())
	l.loadProject(cfg, filepath.Join(root))

	if want := filepath.Join(root, "data"); cfg.Data.Dir != want {
		t.Errorf("data dir = %q, want anchored %q", cfg.Data.Dir, want)
	}
	if want := filepath.Join(root, "configs"); cfg.Departments.Dir != want {
		t.Errorf("departments dir = %q, want anchored %q", cfg.Departments.Dir, want)
	}
	if cfg.Departments.Glob != "**/*.yml" {
		t.Errorf("glob = %q, want the project override", cfg.Departments.Glob)
	}
}

func TestLoadProjectAbsoluteDirsUntouched(t *testing.T) {
	root := t.TempDir()
	content := `
data:
  dir: "/srv/moulinette/data"
`
	if err := os.WriteFile(filepath.Join(root, ProjectFile), []byte(content), 0644); err != nil {
		t.Fatalf("write project config: %v", err)
	}

	cfg := DefaultConfig()
	NewLoader(nil).loadProject(cfg, root)

	if cfg.Data.Dir != "/srv/moulinette/data" {
		t.Errorf("data dir = %q, want the absolute path kept", cfg.Data.Dir)
	}
}

func TestMergeFileMissing(t *testing.T) {
	cfg := DefaultConfig()
	l := NewLoader(nil)

	if l.mergeFile(cfg, filepath.Join(t.TempDir(), "absent.yaml"), "user") {
		t.Error("mergeFile() applied a missing file")
	}
	if cfg.Data.Dir != "data" {
		t.Errorf("data dir = %q, want untouched default", cfg.Data.Dir)
	}
}
