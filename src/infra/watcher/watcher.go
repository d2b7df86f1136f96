package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/contre95/xiaozhi-adapter/src/features/config"
	"github.com/fsnotify/fsnotify"
)

const DefaultDebounce = 500 * time.Millisecond

// ConfigWatcher reloads the configuration when its file changes on disk.
// Editors often replace files instead of writing them, so the parent
// directory is watched and events are filtered by name.
type ConfigWatcher struct {
	watcher       *fsnotify.Watcher
	manager       *config.Manager
	path          string
	debounce      time.Duration
	debounceTimer *time.Timer
	debounceMutex sync.Mutex
	running       bool
	stopChan      chan struct{}
	eventChan     chan<- ConfigEvent
}

// NewConfigWatcher creates a watcher for the file the manager was loaded
// from. eventChan may be nil.
func NewConfigWatcher(manager *config.Manager, eventChan chan<- ConfigEvent) (*ConfigWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &ConfigWatcher{
		watcher:   watcher,
		manager:   manager,
		path:      filepath.Clean(manager.Path()),
		debounce:  DefaultDebounce,
		eventChan: eventChan,
		stopChan:  make(chan struct{}),
	}, nil
}

// SetDebounce changes the quiet period before a reload. Call before Start.
func (w *ConfigWatcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Start begins watching the config file
func (w *ConfigWatcher) Start(ctx context.Context) error {
	dir := filepath.Dir(w.path)
	slog.Info("Starting config watcher", "path", w.path)

	if err := w.watcher.Add(dir); err != nil {
		return err
	}

	w.running = true
	go w.watchLoop(ctx)
	return nil
}

// Stop stops the config watcher
func (w *ConfigWatcher) Stop() {
	if !w.running {
		return
	}

	slog.Info("Stopping config watcher")
	w.running = false
	close(w.stopChan)

	w.debounceMutex.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}
	w.debounceMutex.Unlock()

	w.watcher.Close()
}

func (w *ConfigWatcher) watchLoop(ctx context.Context) {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Config watcher error", "error", err)

		case <-w.stopChan:
			return

		case <-ctx.Done():
			return
		}
	}
}

func (w *ConfigWatcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}

	slog.Debug("Config file changed", "path", event.Name, "op", event.Op.String())

	w.debounceMutex.Lock()
	defer w.debounceMutex.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounce, w.reload)
}

// reload re-reads the file. An invalid file leaves the running
// configuration untouched.
func (w *ConfigWatcher) reload() {
	event := ConfigEvent{Path: w.path, Timestamp: time.Now()}

	cfg, err := config.Read(w.path)
	if err != nil {
		slog.Error("Ignoring invalid config file", "path", w.path, "error", err)
		event.EventType = ConfigRejected
		event.Err = err
	} else {
		w.manager.Update(cfg)
		slog.Info("Configuration reloaded", "path", w.path)
		event.EventType = ConfigReloaded
	}

	if w.eventChan == nil {
		return
	}
	select {
	case w.eventChan <- event:
	default:
		slog.Warn("Event channel full, dropping config event", "path", event.Path)
	}
}
