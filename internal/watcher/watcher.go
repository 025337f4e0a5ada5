// Package watcher re-validates specs as their markdown files change.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/HendryAvila/specgate/internal/logger"
	"github.com/HendryAvila/specgate/internal/specs"
	"github.com/HendryAvila/specgate/internal/workspace"
)

type Watcher struct {
	config      Config
	ws          *workspace.Workspace
	root        string
	handler     Handler
	log         *slog.Logger
	fsWatcher   *fsnotify.Watcher
	fsWatcherMu sync.Mutex
	debouncer   *Debouncer
	mu          sync.RWMutex
	running     bool
	ctx         context.Context
	cancel      context.CancelFunc
	done        chan struct{}
}

// New creates a watcher over the specs directory of ws. handler may be
// nil when only the log output is wanted.
func New(ws *workspace.Workspace, config Config, handler Handler) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	w := &Watcher{
		config:    config,
		ws:        ws,
		root:      ws.SpecsDir(),
		handler:   handler,
		log:       logger.ForComponent("watcher"),
		fsWatcher: fsWatcher,
	}
	w.debouncer = NewDebouncer(config.DebounceWindow, config.MaxBatchSize, w.onFlush)
	return w, nil
}

// SetLogger replaces the component logger.
func (w *Watcher) SetLogger(log *slog.Logger) {
	w.log = log
}

func (w *Watcher) addToWatcher(path string) error {
	w.fsWatcherMu.Lock()
	defer w.fsWatcherMu.Unlock()
	return w.fsWatcher.Add(path)
}

// walkAndAdd watches path and every directory below it that is not
// ignored.
func (w *Watcher) walkAndAdd(path string) error {
	if err := w.addToWatcher(path); err != nil {
		return err
	}
	w.log.Debug("watching directory", "path", path)

	entries, err := os.ReadDir(path)
	if err != nil {
		w.log.Debug("failed to read directory", "path", path, "error", err)
		return nil
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		full := filepath.Join(path, entry.Name())
		if w.shouldIgnore(full) {
			continue
		}
		if err := w.walkAndAdd(full); err != nil {
			w.log.Debug("failed to watch directory", "path", full, "error", err)
		}
	}
	return nil
}

// Start begins watching. It returns once the directory tree is
// registered; events are handled in the background until ctx ends or
// Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}

	if err := w.walkAndAdd(w.root); err != nil {
		w.mu.Unlock()
		return fmt.Errorf("watching %s: %w", w.root, err)
	}

	w.running = true
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	w.mu.Unlock()

	w.log.Info("watching specs", "dir", w.root, "debounce", w.config.DebounceWindow)
	go w.handleEvents()
	return nil
}

// Run starts the watcher and blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return w.Stop()
}

func (w *Watcher) handleEvents() {
	defer close(w.done)
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if !w.shouldIgnore(event.Name) {
						// Files written before the watch was added are
						// picked up by validating the owning spec.
						if err := w.walkAndAdd(event.Name); err != nil {
							w.log.Debug("failed to watch new directory", "path", event.Name, "error", err)
						}
						w.enqueueExisting(event.Name)
					}
					continue
				}
			}

			if fe := w.convertEvent(event); fe != nil {
				w.log.Debug("file event", "path", fe.Path, "op", fe.Type)
				w.debouncer.Add(*fe)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", "error", err)
		}
	}
}

// enqueueExisting queues the markdown files already present in a
// directory that just appeared.
func (w *Watcher) enqueueExisting(dir string) {
	_ = filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if p != dir && w.shouldIgnore(p) {
				return filepath.SkipDir
			}
			return nil
		}
		if isMarkdown(p) && !w.shouldIgnore(p) {
			w.debouncer.Add(FileEvent{Path: p, Type: EventCreate, Timestamp: time.Now()})
		}
		return nil
	})
}

func (w *Watcher) convertEvent(event fsnotify.Event) *FileEvent {
	if !isMarkdown(event.Name) || w.shouldIgnore(event.Name) {
		return nil
	}

	var eventType EventType
	switch {
	case event.Has(fsnotify.Create):
		eventType = EventCreate
	case event.Has(fsnotify.Write):
		eventType = EventModify
	case event.Has(fsnotify.Remove):
		eventType = EventDelete
	case event.Has(fsnotify.Rename):
		eventType = EventRename
	default:
		return nil
	}

	return &FileEvent{
		Path:      event.Name,
		Type:      eventType,
		Timestamp: time.Now(),
	}
}

// onFlush validates each spec touched by the batch once.
func (w *Watcher) onFlush(events []FileEvent) {
	ctx := w.context()
	w.log.Debug("flushing events", "count", len(events))

	var order []string
	owned := make(map[string]*Result)
	for _, event := range events {
		spec, err := w.ws.Owner(ctx, event.Path)
		if err != nil {
			if !errors.Is(err, specs.ErrNotFound) {
				w.log.Warn("resolving owning spec", "path", event.Path, "error", err)
			}
			continue
		}
		res, ok := owned[spec.Path]
		if !ok {
			res = &Result{Spec: spec}
			owned[spec.Path] = res
			order = append(order, spec.Path)
		}
		res.Files = append(res.Files, event.Path)
	}

	for _, path := range order {
		res := owned[path]
		rep, err := w.ws.ValidateSpec(ctx, res.Spec, w.config.Validate)
		if err != nil {
			w.log.Error("validating spec", "spec", path, "error", err)
			continue
		}
		res.Report = rep
		w.log.Info("revalidated spec",
			"spec", path,
			"passed", rep.Passed,
			"errors", rep.ErrorCount(),
			"warnings", rep.WarningCount(),
		)
		if w.handler != nil {
			w.handler(*res)
		}
	}
}

func (w *Watcher) context() context.Context {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.ctx == nil {
		return context.Background()
	}
	return w.ctx
}

func (w *Watcher) shouldIgnore(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return true
	}
	rel = filepath.ToSlash(rel)
	if rel == "." {
		return false
	}

	if !w.config.WatchHidden {
		for _, part := range strings.Split(rel, "/") {
			if strings.HasPrefix(part, ".") {
				return true
			}
		}
	}

	for _, pattern := range w.config.IgnorePatterns {
		if match, _ := doublestar.Match(pattern, rel); match {
			return true
		}
	}
	return false
}

func isMarkdown(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".md")
}

// Stop flushes pending events and releases the watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		w.fsWatcherMu.Lock()
		defer w.fsWatcherMu.Unlock()
		return w.fsWatcher.Close()
	}
	w.running = false
	w.mu.Unlock()

	// Flush before cancelling so the last batch validates with a live
	// context.
	w.debouncer.Stop()
	w.cancel()
	<-w.done

	w.log.Info("stopped watching specs")

	w.fsWatcherMu.Lock()
	defer w.fsWatcherMu.Unlock()
	return w.fsWatcher.Close()
}
