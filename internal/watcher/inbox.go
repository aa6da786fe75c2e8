package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ImportFunc imports one file found in an inbox.
type ImportFunc func(path string)

// Inbox watches import directories recursively and calls onImport, debounced,
// for every created or rewritten file with an accepted extension.
type Inbox struct {
	roots      []string
	extensions []string
	onImport   ImportFunc
	debounce   *debouncer
	logger     *zap.Logger

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once
}

// Option configures an Inbox or a FileWatcher.
type Option func(*options)

type options struct {
	logger   *zap.Logger
	debounce time.Duration
}

// WithLogger sets a logger for watch events.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithDebounce overrides the quiet period before a callback runs.
func WithDebounce(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.debounce = d
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: zap.NewNop(), debounce: defaultDebounce}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewInbox creates an inbox over roots; extensions filter files (empty = all).
func NewInbox(roots, extensions []string, onImport ImportFunc, opts ...Option) *Inbox {
	o := buildOptions(opts)
	cleaned := make([]string, 0, len(roots))
	for _, r := range roots {
		if abs, err := filepath.Abs(r); err == nil {
			cleaned = append(cleaned, filepath.Clean(abs))
		}
	}
	return &Inbox{
		roots:      cleaned,
		extensions: extensions,
		onImport:   onImport,
		debounce:   newDebouncer(o.debounce),
		logger:     o.logger,
		done:       make(chan struct{}),
	}
}

// Start creates missing roots, watches them and runs until ctx is cancelled or Stop is called.
func (in *Inbox) Start(ctx context.Context) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.watcher != nil {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for _, root := range in.roots {
		if err := os.MkdirAll(root, 0755); err != nil {
			_ = w.Close()
			return err
		}
		if err := addTree(w, root); err != nil {
			_ = w.Close()
			return err
		}
	}
	in.watcher = w
	in.logger.Debug("inbox watching", zap.Strings("roots", in.roots), zap.Strings("extensions", in.extensions))
	go in.run(ctx, w)
	return nil
}

// addTree watches dir and every directory below it.
func addTree(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}

func (in *Inbox) run(ctx context.Context, w *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			in.Stop()
			return
		case <-in.done:
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			in.handle(w, ev)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			in.logger.Warn("inbox watch error", zap.Error(err))
		}
	}
}

func (in *Inbox) handle(w *fsnotify.Watcher, ev fsnotify.Event) {
	path := ev.Name
	switch {
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		info, err := os.Stat(path)
		if err != nil {
			return
		}
		if info.IsDir() {
			// A folder moved in: watch it and import what it already holds.
			if err := addTree(w, path); err != nil {
				in.logger.Warn("inbox failed to watch directory", zap.String("path", path), zap.Error(err))
			}
			in.syncDir(path)
			return
		}
		if matchExtension(path, in.extensions) {
			in.debounce.trigger(path, func() {
				in.logger.Debug("inbox importing file", zap.String("path", path))
				in.onImport(path)
			})
		}
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		in.debounce.cancel(path)
	}
}

// Sync imports every matching file already present under the roots.
func (in *Inbox) Sync() {
	for _, root := range in.roots {
		in.syncDir(root)
	}
}

func (in *Inbox) syncDir(dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if matchExtension(path, in.extensions) {
			in.onImport(path)
		}
		return nil
	})
}

// Directories returns the watched roots.
func (in *Inbox) Directories() []string {
	return append([]string(nil), in.roots...)
}

// Stop stops watching and drops pending imports.
func (in *Inbox) Stop() {
	in.mu.Lock()
	w := in.watcher
	in.watcher = nil
	in.mu.Unlock()
	in.debounce.stop()
	if w != nil {
		_ = w.Close()
	}
	in.stopOnce.Do(func() { close(in.done) })
}

func matchExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}
