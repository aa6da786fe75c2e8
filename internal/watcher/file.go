package watcher

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// FileWatcher calls onChange, debounced, when a single file is written,
// created or replaced. The parent directory is watched so editors that save
// by rename are seen.
type FileWatcher struct {
	path     string
	onChange func()
	debounce *debouncer
	logger   *zap.Logger

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once
}

// NewFileWatcher creates a watcher for path.
func NewFileWatcher(path string, onChange func(), opts ...Option) *FileWatcher {
	o := buildOptions(opts)
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return &FileWatcher{
		path:     filepath.Clean(path),
		onChange: onChange,
		debounce: newDebouncer(o.debounce),
		logger:   o.logger,
		done:     make(chan struct{}),
	}
}

// Start begins watching until ctx is cancelled or Stop is called.
func (f *FileWatcher) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.watcher != nil {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(f.path)); err != nil {
		_ = w.Close()
		return err
	}
	f.watcher = w
	f.logger.Debug("watching file", zap.String("path", f.path))
	go f.run(ctx, w)
	return nil
}

func (f *FileWatcher) run(ctx context.Context, w *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			f.Stop()
			return
		case <-f.done:
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != f.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				f.debounce.trigger(f.path, func() {
					f.logger.Debug("file changed", zap.String("path", f.path))
					f.onChange()
				})
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			f.logger.Warn("file watch error", zap.String("path", f.path), zap.Error(err))
		}
	}
}

// Stop stops watching.
func (f *FileWatcher) Stop() {
	f.mu.Lock()
	w := f.watcher
	f.watcher = nil
	f.mu.Unlock()
	f.debounce.stop()
	if w != nil {
		_ = w.Close()
	}
	f.stopOnce.Do(func() { close(f.done) })
}
