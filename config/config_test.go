package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Data.Dir != "data" {
		t.Errorf("expected default data dir data, got %s", cfg.Data.Dir)
	}
	if cfg.Departments.Glob != "**/*.yaml" {
		t.Errorf("expected default glob **/*.yaml, got %s", cfg.Departments.Glob)
	}
	if cfg.Publicodes.Timeout != 5*time.Second {
		t.Errorf("expected default publicodes timeout 5s, got %v", cfg.Publicodes.Timeout)
	}
	if cfg.Serve.Addr != ":8080" {
		t.Errorf("expected default listen addr :8080, got %s", cfg.Serve.Addr)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing data dir",
			modify:  func(c *Config) { c.Data.Dir = "" },
			wantErr: true,
		},
		{
			name:    "missing departments dir",
			modify:  func(c *Config) { c.Departments.Dir = "" },
			wantErr: true,
		},
		{
			name:    "missing departments glob",
			modify:  func(c *Config) { c.Departments.Glob = "" },
			wantErr: true,
		},
		{
			name:    "bad log level",
			modify:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: true,
		},
		{
			name:    "bad log format",
			modify:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
data:
  dir: "/srv/moulinette/data"
departments:
  dir: "/srv/moulinette/configs"
  glob: "**/*.yml"
  watch: true
publicodes:
  endpoint: "http://publicodes:3000/quality"
  timeout: 2s
serve:
  addr: ":9090"
logging:
  level: debug
  format: json
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.Data.Dir != "/srv/moulinette/data" {
		t.Errorf("expected data dir /srv/moulinette/data, got %s", cfg.Data.Dir)
	}
	if cfg.Departments.Glob != "**/*.yml" {
		t.Errorf("expected glob **/*.yml, got %s", cfg.Departments.Glob)
	}
	if !cfg.Departments.Watch {
		t.Error("expected watch to be enabled")
	}
	if cfg.Publicodes.Endpoint != "http://publicodes:3000/quality" {
		t.Errorf("unexpected publicodes endpoint %s", cfg.Publicodes.Endpoint)
	}
	if cfg.Publicodes.Timeout != 2*time.Second {
		t.Errorf("expected publicodes timeout 2s, got %v", cfg.Publicodes.Timeout)
	}
	if cfg.Serve.Addr != ":9090" {
		t.Errorf("expected listen addr :9090, got %s", cfg.Serve.Addr)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("unexpected logging config %+v", cfg.Logging)
	}
	// Unset fields keep their defaults.
	if cfg.Data.DepartmentsFile != "departments.geojson" {
		t.Errorf("expected default departments file, got %s", cfg.Data.DepartmentsFile)
	}
}

func TestConfigMerge(t *testing.T) {
	base := DefaultConfig()
	override := &Config{
		Data: DataConfig{
			Dir: "/override/data",
		},
		Logging: LoggingConfig{
			Level: "warn",
		},
	}

	base.Merge(override)

	if base.Data.Dir != "/override/data" {
		t.Errorf("expected data dir /override/data, got %s", base.Data.Dir)
	}
	// Glob should remain from base since override didn't set it
	if base.Departments.Glob != "**/*.yaml" {
		t.Errorf("expected glob to remain default, got %s", base.Departments.Glob)
	}
	if base.Logging.Level != "warn" {
		t.Errorf("expected log level warn, got %s", base.Logging.Level)
	}
	if base.Logging.Format != "text" {
		t.Errorf("expected log format to remain text, got %s", base.Logging.Format)
	}
}

func TestConfigSaveToFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "subdir", "config.yaml")

	cfg := DefaultConfig()
	cfg.Serve.Addr = ":7070"

	if err := cfg.SaveToFile(configPath); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	// Verify file was created
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("config file was not created")
	}

	// Load and verify
	loaded, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("failed to load saved config: %v", err)
	}
	if loaded.Serve.Addr != ":7070" {
		t.Errorf("expected addr :7070, got %s", loaded.Serve.Addr)
	}
}

func TestDepartmentsPath(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.DepartmentsPath(); got != filepath.Join("data", "departments.geojson") {
		t.Errorf("unexpected departments path %s", got)
	}

	cfg.Data.DepartmentsFile = "/abs/departments.geojson"
	if got := cfg.DepartmentsPath(); got != "/abs/departments.geojson" {
		t.Errorf("expected absolute path untouched, got %s", got)
	}
}
