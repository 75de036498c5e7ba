// Config file watching
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"motiongen/pkg/log"
)

// DefaultDebounce is how long a file must stay quiet before it is reread.
const DefaultDebounce = 100 * time.Millisecond

// Watcher rereads a config file when it changes and publishes the new
// [motion] limits. Only changed limits are sent. Limits holds at most the
// latest value; a reader that falls behind sees only the newest limits.
type Watcher struct {
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   *log.Logger

	Limits chan Limits
	Errors chan error

	closeCh chan struct{}
	done    chan struct{}
	once    sync.Once
	current Limits
}

// NewWatcher starts watching path. current is the limits already in use;
// a debounce of zero means DefaultDebounce.
func NewWatcher(path string, current Limits, debounce time.Duration) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fileError(path, "resolve", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fileError(path, "watch", err)
	}
	// Editors replace files on save, so watch the directory.
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		_ = fw.Close()
		return nil, fileError(path, "watch", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w := &Watcher{
		path:     abs,
		debounce: debounce,
		watcher:  fw,
		logger:   log.GetLogger("config"),
		Limits:   make(chan Limits, 1),
		Errors:   make(chan error, 1),
		closeCh:  make(chan struct{}),
		done:     make(chan struct{}),
		current:  current,
	}
	go w.run()
	return w, nil
}

// Close stops the watcher and closes its channels.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
		<-w.done
		close(w.Limits)
		close(w.Errors)
	})
	return err
}

func (w *Watcher) run() {
	defer close(w.done)

	var pending <-chan time.Time
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			pending = time.After(w.debounce)
		case <-pending:
			pending = nil
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.sendError(err)
		case <-w.closeCh:
			return
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.logger.WithError(err).Warn("config reload failed, keeping current limits")
		w.sendError(err)
		return
	}
	limits, err := ReadLimits(cfg, w.current)
	if err != nil {
		w.logger.WithError(err).Warn("invalid limits in reloaded config")
		w.sendError(err)
		return
	}
	if limits == w.current {
		return
	}
	w.logger.Info("limits changed: %s", limits)
	w.current = limits

	// Replace any unread value with the newest one.
	select {
	case <-w.Limits:
	default:
	}
	w.Limits <- limits
}

func (w *Watcher) sendError(err error) {
	select {
	case w.Errors <- err:
	default:
	}
}
