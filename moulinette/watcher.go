package moulinette

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/envergo/moulinette/metrics"
)

// ConfigWatcher reloads the department config set when files under the
// config directory change. Changes are debounced so that an editor save
// or a deploy touching many files triggers a single reload.
type ConfigWatcher struct {
	dir      string
	pattern  string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	onReload func(*ConfigSet)

	pendingMu sync.Mutex
	pending   bool
}

// NewConfigWatcher creates a watcher over the department config tree.
// onReload receives every successfully loaded and validated set.
func NewConfigWatcher(dir, pattern string, debounce time.Duration, logger *slog.Logger, onReload func(*ConfigSet)) (*ConfigWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &ConfigWatcher{
		dir:      dir,
		pattern:  pattern,
		debounce: debounce,
		watcher:  fsw,
		logger:   logger,
		onReload: onReload,
	}, nil
}

// Start begins watching the config directory for changes.
func (w *ConfigWatcher) Start(ctx context.Context) error {
	if err := w.addWatchesRecursive(w.dir); err != nil {
		return err
	}

	go w.processEvents(ctx)

	w.logger.Info("Config watcher started",
		"dir", w.dir,
		"debounce", w.debounce)
	return nil
}

// Stop stops the watcher.
func (w *ConfigWatcher) Stop() error {
	return w.watcher.Close()
}

// addWatchesRecursive adds watches to all directories.
func (w *ConfigWatcher) addWatchesRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		base := filepath.Base(path)
		if strings.HasPrefix(base, ".") && base != "." {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("Failed to watch directory",
				"path", path,
				"error", err)
		}
		return nil
	})
}

// processEvents handles fsnotify events with debouncing.
func (w *ConfigWatcher) processEvents(ctx context.Context) {
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", "error", err)

		case <-ticker.C:
			w.flushPending()
		}
	}
}

// handleFSEvent marks a reload pending for yaml changes and keeps new
// directories covered.
func (w *ConfigWatcher) handleFSEvent(event fsnotify.Event) {
	ext := strings.ToLower(filepath.Ext(event.Name))
	if ext != ".yaml" && ext != ".yml" {
		if event.Has(fsnotify.Create) {
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				if err := w.watcher.Add(event.Name); err != nil {
					w.logger.Warn("Failed to watch new directory",
						"path", event.Name,
						"error", err)
				}
			}
		}
		return
	}

	w.pendingMu.Lock()
	w.pending = true
	w.pendingMu.Unlock()

	w.logger.Debug("Config change detected",
		"path", event.Name,
		"op", event.Op.String())
}

// flushPending reloads the config set when changes accumulated.
func (w *ConfigWatcher) flushPending() {
	w.pendingMu.Lock()
	pending := w.pending
	w.pending = false
	w.pendingMu.Unlock()

	if !pending {
		return
	}

	set, err := LoadConfigDir(w.dir, w.pattern)
	if err != nil {
		metrics.ConfigReloadsTotal.WithLabelValues("error").Inc()
		w.logger.Error("Config reload failed, keeping previous set", "error", err)
		return
	}

	metrics.ConfigReloadsTotal.WithLabelValues("success").Inc()
	w.logger.Info("Config set reloaded", "configs", len(set.Configs))
	w.onReload(set)
}
