package config

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/hybrid/engine/core"
)

// Watcher reloads a config file whenever it changes on disk and stages
// the differences. Invalid edits are logged and ignored.
type Watcher struct {
	path     string
	stager   Stager
	fsnotify *fsnotify.Watcher

	mutex   sync.Mutex
	current *Config
	reloads chan *Config
}

func NewWatcher(path string, current *Config, stager Stager) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// editors replace files on save, so watch the directory
	if err := fsWatch.Add(filepath.Dir(abs)); err != nil {
		fsWatch.Close()
		return nil, err
	}
	return &Watcher{
		path:     abs,
		stager:   stager,
		fsnotify: fsWatch,
		current:  current,
		reloads:  make(chan *Config, 1),
	}, nil
}

// Reloads delivers the newest config that staged at least one change.
// Slow readers miss intermediate versions, never the latest one.
func (w *Watcher) Reloads() <-chan *Config {
	return w.reloads
}

func (w *Watcher) Current() *Config {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.current
}

// Run processes file events until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsnotify.Close()
	for {
		select {
		case e, ok := <-w.fsnotify.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(e.Name) != w.path {
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.reload()
			}

		case err, ok := <-w.fsnotify.Errors:
			if !ok {
				return nil
			}
			core.LogError(err.Error())

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *Watcher) reload() {
	updated, err := Load(w.path)
	if err != nil {
		core.LogWarn("ignoring config change: %s", err)
		return
	}
	w.mutex.Lock()
	defer w.mutex.Unlock()

	n, err := Stage(w.current, updated, w.stager)
	if err != nil {
		// current stays put so the next reload stages the rest again
		core.LogError("staging config change: %s", err)
		return
	}
	w.current = updated
	if n == 0 {
		return
	}
	core.LogInfo("config %s reloaded, %d change(s) staged", filepath.Base(w.path), n)
	// readers only care about the newest version
	select {
	case <-w.reloads:
	default:
	}
	select {
	case w.reloads <- updated:
	default:
	}
}
