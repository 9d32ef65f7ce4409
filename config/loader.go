package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
)

// ProjectFile is the per-project config file name, looked up from the
// working directory upward.
const ProjectFile = "moulinette.yaml"

// userConfigFile is the per-user config path, relative to the home
// directory.
const userConfigFile = ".config/moulinette/config.yaml"

// Loader assembles the effective configuration in layers, each merged
// over the previous one: built-in defaults, the user file, then the
// nearest project file. An explicit --config file is merged on top by
// the caller before validation.
type Loader struct {
	logger *slog.Logger
}

func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load builds and validates the layered configuration.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if home, err := os.UserHomeDir(); err == nil {
		l.mergeFile(cfg, filepath.Join(home, userConfigFile), "user")
	}
	if cwd, err := os.Getwd(); err == nil {
		l.loadProject(cfg, cwd)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadProject merges the nearest project file above startDir and anchors
// relative data directories at that file, so evaluations behave the same
// from any subdirectory of a deployment.
func (l *Loader) loadProject(cfg *Config, startDir string) {
	path := findUp(startDir, ProjectFile)
	if path == "" {
		l.logger.Debug("No project config found")
		return
	}
	if !l.mergeFile(cfg, path, "project") {
		return
	}

	root := filepath.Dir(path)
	if !filepath.IsAbs(cfg.Data.Dir) {
		cfg.Data.Dir = filepath.Join(root, cfg.Data.Dir)
	}
	if !filepath.IsAbs(cfg.Departments.Dir) {
		cfg.Departments.Dir = filepath.Join(root, cfg.Departments.Dir)
	}
}

// mergeFile merges one config layer, reporting whether it applied. A
// missing file is normal; any other failure is logged and the layer is
// skipped.
func (l *Loader) mergeFile(cfg *Config, path, layer string) bool {
	layerCfg, err := LoadFromFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false
	}
	if err != nil {
		l.logger.Warn("Skipping unreadable config layer",
			slog.String("layer", layer),
			slog.String("path", path),
			slog.String("error", err.Error()))
		return false
	}

	l.logger.Debug("Merged config layer",
		slog.String("layer", layer),
		slog.String("path", path))
	cfg.Merge(layerCfg)
	return true
}

// findUp walks from dir to the filesystem root looking for name.
func findUp(dir, name string) string {
	for {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
