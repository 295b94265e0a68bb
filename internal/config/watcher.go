package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// reloadDebounce lets an editor's burst of events for one save settle.
const reloadDebounce = 100 * time.Millisecond

// OnReload is called after a reload that changed the effective config.
type OnReload func(old, new *Config)

// Watcher reloads the config file when it changes on disk. Only log_level
// and mode take effect in a running gateway; everything else is reported
// by RestartKeys.
type Watcher struct {
	fsw  *fsnotify.Watcher
	path string

	mu        sync.Mutex
	callbacks []OnReload

	stop      chan struct{}
	stopped   sync.WaitGroup
	closeOnce sync.Once
}

// Watch starts watching path. The parent directory is watched so that
// editors replacing the file by rename are noticed.
func Watch(path string) (*Watcher, error) {
	if path == "" {
		return nil, fmt.Errorf("config watcher: file path must not be empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config watcher: resolving path: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("config watcher: watching %s: %w", filepath.Dir(abs), err)
	}

	w := &Watcher{fsw: fsw, path: abs, stop: make(chan struct{})}
	w.stopped.Add(1)
	go w.run()
	return w, nil
}

// OnChange registers fn. Callbacks run sequentially on the watcher
// goroutine; a panicking callback is logged and skipped.
func (w *Watcher) OnChange(fn OnReload) {
	w.mu.Lock()
	w.callbacks = append(w.callbacks, fn)
	w.mu.Unlock()
}

// Close stops the watcher and waits for a pending reload to finish.
// It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.stop)
		err = w.fsw.Close()
		w.stopped.Wait()
	})
	return err
}

func (w *Watcher) run() {
	defer w.stopped.Done()

	timer := time.NewTimer(reloadDebounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-w.stop:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if w.relevant(ev) {
				timer.Reset(reloadDebounce)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Str("path", w.path).Msg("config watcher error")
		case <-timer.C:
			w.reload()
		}
	}
}

// relevant reports whether ev touches the watched file's content.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != w.path {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}

func (w *Watcher) reload() {
	old := Get()
	next, err := Load(w.path)
	if err != nil {
		log.Error().Err(err).Str("path", w.path).Msg("config reload failed, keeping previous config")
		return
	}
	if reflect.DeepEqual(old, next) {
		return
	}

	ev := log.Info().Str("path", w.path)
	if keys := RestartKeys(old, next); len(keys) > 0 {
		ev = ev.Strs("restart_required", keys)
	}
	ev.Msg("config reloaded")

	w.mu.Lock()
	cbs := slices.Clone(w.callbacks)
	w.mu.Unlock()

	for _, cb := range cbs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Error().Interface("panic", r).Msg("config reload callback panicked")
				}
			}()
			cb(old, next)
		}()
	}
}

// RestartKeys lists the config sections that differ between old and new
// but are only read at startup.
func RestartKeys(old, new *Config) []string {
	if old == nil || new == nil {
		return nil
	}
	var keys []string
	if old.Server.BindAddress != new.Server.BindAddress || old.Server.Port != new.Server.Port {
		keys = append(keys, "server.listen")
	}
	if old.Server.ReadTimeout != new.Server.ReadTimeout ||
		old.Server.WriteTimeout != new.Server.WriteTimeout ||
		old.Server.IdleTimeout != new.Server.IdleTimeout ||
		old.Server.MaxBodySize != new.Server.MaxBodySize ||
		!slices.Equal(old.Server.AllowedOrigins, new.Server.AllowedOrigins) {
		keys = append(keys, "server.transport")
	}
	if old.Server.DataDir != new.Server.DataDir {
		keys = append(keys, "server.data_dir")
	}
	if old.Database != new.Database {
		keys = append(keys, "database")
	}
	if old.API != new.API {
		keys = append(keys, "api")
	}
	if old.Tokens != new.Tokens {
		keys = append(keys, "tokens")
	}
	if old.RateLimit != new.RateLimit {
		keys = append(keys, "rate_limit")
	}
	if !reflect.DeepEqual(old.Procedures, new.Procedures) {
		keys = append(keys, "procedures")
	}
	return keys
}
