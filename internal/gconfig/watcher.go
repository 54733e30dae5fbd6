package gconfig

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const reloadDebounce = 500 * time.Millisecond

// Watcher watches a config file on disk and reloads it with Load,
// notifying registered callbacks when a reload changes the warm-cache
// settings or the cache TTL. Reload failures are logged and the
// previously-loaded Config is kept in effect.
type Watcher struct {
	path      string
	mu        sync.RWMutex
	current   *Config
	callbacks []func(*Config)
	logger    *zap.Logger
	fsw       *fsnotify.Watcher
	stopCh    chan struct{}
}

// NewWatcher starts watching path for changes and reloading the
// configuration through Load. initial is served by Config until the
// first successful reload.
func NewWatcher(path string, initial *Config, logger *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("gconfig: creating file watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("gconfig: watching %s: %w", filepath.Dir(path), err)
	}

	w := &Watcher{
		path:    path,
		current: initial,
		logger:  logger,
		fsw:     fsw,
		stopCh:  make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	defer w.fsw.Close()

	var debounce *time.Timer
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Name != w.path || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, w.reload)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("config watcher error", zap.Error(err))

		case <-w.stopCh:
			return
		}
	}
}

func (w *Watcher) reload() {
	next, err := Load(w.path)
	if err != nil {
		w.logger.Error("config reload failed, keeping previous configuration", zap.Error(err))
		return
	}

	w.mu.Lock()
	prev := w.current
	w.current = next
	w.mu.Unlock()

	if warmCacheEqual(prev.WarmCache, next.WarmCache) && prev.Cache.TTL == next.Cache.TTL {
		w.logger.Debug("config reloaded, no tunable changed")
		return
	}
	w.logger.Info("config reloaded with changed tunables",
		zap.Duration("cache_ttl", next.Cache.TTL),
		zap.Duration("warmcache_persistence_interval", next.WarmCache.PersistenceInterval),
		zap.Duration("warmcache_max_cache_age", next.WarmCache.MaxCacheAge),
	)

	w.mu.RLock()
	callbacks := make([]func(*Config), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.RUnlock()

	for _, cb := range callbacks {
		go func(cb func(*Config)) {
			defer func() {
				if r := recover(); r != nil {
					w.logger.Error("config change callback panicked", zap.Any("panic", r))
				}
			}()
			cb(next)
		}(cb)
	}
}

// OnChange registers a callback invoked, on its own goroutine, after
// each reload that changes a live-reloadable tunable.
func (w *Watcher) OnChange(callback func(*Config)) {
	w.mu.Lock()
	w.callbacks = append(w.callbacks, callback)
	w.mu.Unlock()
}

// Config returns the most recently loaded configuration.
func (w *Watcher) Config() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Stop stops the watcher goroutine and closes the underlying fsnotify
// watcher.
func (w *Watcher) Stop() {
	close(w.stopCh)
}

func warmCacheEqual(a, b WarmCache) bool {
	return a.Enabled == b.Enabled &&
		a.Directory == b.Directory &&
		a.PersistenceInterval == b.PersistenceInterval &&
		a.MaxCacheAge == b.MaxCacheAge
}
