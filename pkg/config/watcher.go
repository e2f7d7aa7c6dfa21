package config

import (
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/loomkit/loom/pkg/logging"
)

// Watcher reloads a config file on change and applies only the fields
// spec.md §6 marks mutable at runtime (mutableFields) onto a live
// *Config, leaving every immutable field (route table shape, codec
// priorities, startup failure mode) untouched regardless of what the
// file on disk says.
type Watcher struct {
	path string
	cfg  *Config
	mu   sync.Mutex
	fsw  *fsnotify.Watcher
	log  logging.Logger

	onChange func(*Config)
}

// NewWatcher starts watching path for changes, applying mutable-field
// updates onto cfg as they occur. Call Close to stop.
func NewWatcher(path string, cfg *Config, log logging.Logger, onChange func(*Config)) (*Watcher, error) {
	if log == nil {
		log = logging.NoOp()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(path); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{path: path, cfg: cfg, fsw: fsw, log: log, onChange: onChange}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.reload()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("config watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	data, err := readFile(w.path)
	if err != nil {
		w.log.Warn("config reload failed to read file", "path", w.path, "error", err)
		return
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		w.log.Warn("config reload failed to parse file", "path", w.path, "error", err)
		return
	}

	w.mu.Lock()
	applied := w.applyMutable(raw)
	cfgCopy := *w.cfg
	w.mu.Unlock()

	if applied && w.onChange != nil {
		w.onChange(&cfgCopy)
	}
}

// applyMutable copies only mutableFields entries from raw onto
// w.cfg, re-marshaling each value through YAML so Duration/slice fields
// decode the same way the initial Load did. Must be called with w.mu
// held.
func (w *Watcher) applyMutable(raw map[string]any) bool {
	changed := false
	for key := range raw {
		if !mutableFields[key] {
			continue
		}
		sub, err := yaml.Marshal(map[string]any{key: raw[key]})
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(sub, w.cfg); err != nil {
			continue
		}
		changed = true
	}
	return changed
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

var readFile = defaultReadFile
