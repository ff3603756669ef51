package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/platinummonkey/masthead/pkg/observability"
)

// Watcher reloads the config file when it changes and reports a new
// retention window
type Watcher struct {
	path        string
	days        int
	watcher     *fsnotify.Watcher
	onRetention func(days int)
	logger      *observability.Logger
}

// NewWatcher watches path. onRetention is called with the new value of
// retention.days whenever a reload changes it.
func NewWatcher(path string, currentDays int, onRetention func(days int), logger *observability.Logger) (*Watcher, error) {
	if path == "" {
		return nil, fmt.Errorf("config file path is required")
	}
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	// Editors replace files with a rename, so watch the directory
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", path, err)
	}

	return &Watcher{
		path:        filepath.Clean(path),
		days:        currentDays,
		watcher:     fw,
		onRetention: onRetention,
		logger:      logger.WithField("component", "config_watcher"),
	}, nil
}

// Run handles file events until ctx is done
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.WithError(err).Warn("Config watcher error")
		}
	}
}

func (w *Watcher) reload() {
	var cfg Config
	if err := cfg.overlayFile(w.path); err != nil {
		w.logger.WithError(err).Warn("Ignoring unreadable config file")
		return
	}
	if err := cfg.Retention.Validate(); err != nil {
		w.logger.WithError(err).Warn("Ignoring invalid retention settings")
		return
	}
	if cfg.Retention.Days == 0 || cfg.Retention.Days == w.days {
		return
	}

	w.logger.Infof("Config file changed retention from %d to %d days", w.days, cfg.Retention.Days)
	w.days = cfg.Retention.Days
	if w.onRetention != nil {
		w.onRetention(w.days)
	}
}
