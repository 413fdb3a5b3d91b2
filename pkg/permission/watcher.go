package permission

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/fluxgraph/agentcore/internal/obslog"
)

// Watcher hot-reloads a permission configuration document from disk,
// pushing each recompiled Config into an attached Evaluator.
type Watcher struct {
	path string

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	closed  bool
}

// LoadFile reads and parses a permission configuration document.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("permission: reading %s: %w", path, err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("permission: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// NewWatcher resolves path to an absolute location, ready for Watch.
func NewWatcher(path string) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("permission: resolving %s: %w", path, err)
	}
	return &Watcher{path: abs}, nil
}

// Watch applies the file's contents to evaluator immediately, then
// watches the containing directory and reapplies it on every debounced
// write/create event until ctx is cancelled or Close is called.
func (w *Watcher) Watch(ctx context.Context, evaluator *Evaluator) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return fmt.Errorf("permission: watcher closed")
	}

	if cfg, err := LoadFile(w.path); err == nil {
		_ = evaluator.SetConfig(cfg)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return fmt.Errorf("permission: creating watcher: %w", err)
	}
	w.watcher = fw

	dir := filepath.Dir(w.path)
	file := filepath.Base(w.path)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		w.mu.Unlock()
		return fmt.Errorf("permission: watching %s: %w", dir, err)
	}
	w.mu.Unlock()

	go w.loop(ctx, fw, file, evaluator)
	return nil
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher, file string, evaluator *Evaluator) {
	defer fw.Close()
	logger := obslog.FromContext(ctx)

	const debounceDelay = 100 * time.Millisecond
	var debounce *time.Timer

	reload := func() {
		cfg, err := LoadFile(w.path)
		if err != nil {
			logger.Warn("permission config reload failed", "path", w.path, "error", err)
			return
		}
		if err := evaluator.SetConfig(cfg); err != nil {
			logger.Warn("permission config reload rejected", "path", w.path, "error", err)
			return
		}
		logger.Info("permission config reloaded", "path", w.path)
	}

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != file {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(debounceDelay, reload)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			logger.Error("permission file watcher error", "error", err)
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	if w.watcher != nil {
		err := w.watcher.Close()
		w.watcher = nil
		return err
	}
	return nil
}
