// Package watcher reports files that appear in watched directories once
// they have stopped changing for a debounce interval.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Veraticus/sift/internal/common"
)

// Ignorer decides whether a file name is never handled.
type Ignorer interface {
	Ignored(name string) bool
}

// HandlerFunc receives a settled file. Calls are sequential.
type HandlerFunc func(ctx context.Context, path string)

// Config configures a Watcher.
type Config struct {
	Paths    []string
	Debounce time.Duration
}

// Watcher debounces create and rename events per path and hands settled
// files to a handler.
type Watcher struct {
	fs      *fsnotify.Watcher
	ignorer Ignorer
	handler HandlerFunc
	logger  *slog.Logger
	timers  map[string]*time.Timer
	ready   chan string
	cfg     Config
	mu      sync.Mutex
	wg      sync.WaitGroup
}

// New creates a watcher over cfg.Paths. Missing directories are an error.
func New(cfg Config, ignorer Ignorer, handler HandlerFunc, logger *slog.Logger) (*Watcher, error) {
	if len(cfg.Paths) == 0 {
		return nil, errors.New("no paths to watch")
	}
	if handler == nil {
		return nil, errors.New("handler is required")
	}
	for _, p := range cfg.Paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("watch path %s: %w", p, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("watch path %s is not a directory", p)
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	for _, p := range cfg.Paths {
		if err := fsw.Add(p); err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("watch %s: %w", p, err)
		}
	}

	return &Watcher{
		fs:      fsw,
		ignorer: ignorer,
		handler: handler,
		logger:  common.OrDefault(logger),
		timers:  make(map[string]*time.Timer),
		ready:   make(chan string, 64),
		cfg:     cfg,
	}, nil
}

// Run processes events until ctx is cancelled, then releases every
// resource and returns ctx.Err().
func (w *Watcher) Run(ctx context.Context) error {
	w.wg.Add(1)
	go w.dispatch(ctx)

	defer func() {
		w.stopTimers()
		_ = w.fs.Close()
		w.wg.Wait()
	}()

	for _, p := range w.cfg.Paths {
		w.logger.Info("Watching directory", "path", p)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.observe(ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watch error", "error", err)
		}
	}
}

func (w *Watcher) observe(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Write) {
		return
	}
	name := filepath.Base(ev.Name)
	if w.ignorer != nil && w.ignorer.Ignored(name) {
		w.logger.Debug("Skipping ignored file", "name", name)
		return
	}
	w.schedule(ev.Name)
}

// schedule (re)starts the debounce timer for path.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Reset(w.cfg.Debounce)
		return
	}
	w.logger.Debug("Queued for classification", "path", path)
	w.timers[path] = time.AfterFunc(w.cfg.Debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		select {
		case w.ready <- path:
		default:
			w.logger.Warn("Dropping settled file, queue full", "path", path)
		}
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
}

func (w *Watcher) dispatch(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case path := <-w.ready:
			info, err := os.Stat(path)
			if err != nil || info.IsDir() {
				continue
			}
			w.handler(ctx, path)
		}
	}
}

// Pending returns how many files are waiting out their debounce.
func (w *Watcher) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.timers)
}
