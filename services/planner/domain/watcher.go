// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package domain

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadHandler receives a freshly parsed document, or the error that
// prevented parsing it.
type ReloadHandler func(doc Document, err error)

// Watcher reloads a domain document whenever its file changes.
//
// Description:
//
//	Editors often replace files rather than write them in place, so the
//	watcher observes the parent directory and filters events for the
//	target file name. Bursts of events are debounced into one reload.
//
// Thread Safety: Start and Stop are safe for concurrent use.
type Watcher struct {
	path     string
	debounce time.Duration
	handler  ReloadHandler
	logger   *slog.Logger

	watcher  *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once
}

// DefaultDebounce is the quiet period before a reload.
const DefaultDebounce = 200 * time.Millisecond

// NewWatcher prepares a watcher for path. Nothing is watched until Start.
//
// Inputs:
//   - path: The document file.
//   - debounce: Quiet period before reloading. Non-positive means
//     DefaultDebounce.
//   - handler: Called on every reload. Must not be nil.
//   - logger: Nil means slog.Default().
func NewWatcher(path string, debounce time.Duration, handler ReloadHandler, logger *slog.Logger) (*Watcher, error) {
	if handler == nil {
		return nil, fmt.Errorf("domain watcher: nil handler")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("domain watcher: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("domain watcher: %w", err)
	}
	return &Watcher{
		path:     abs,
		debounce: debounce,
		handler:  handler,
		logger:   logger.With(slog.String("path", abs)),
		watcher:  fw,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching and returns immediately. Watching ends when ctx is
// cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("domain watcher: %w", err)
	}
	go w.loop(ctx)
	return nil
}

// Stop ends watching. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		_ = w.watcher.Close()
	})
}

func (w *Watcher) loop(ctx context.Context) {
	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case <-timerC:
			timer, timerC = nil, nil
			doc, err := Load(w.path)
			if err != nil {
				w.logger.Warn("domain reload failed", slog.String("error", err.Error()))
			} else {
				w.logger.Info("domain reloaded", slog.String("domain", doc.Name))
			}
			w.handler(doc, err)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("domain watcher error", slog.String("error", err.Error()))
		}
	}
}
