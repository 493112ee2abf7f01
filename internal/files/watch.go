package files

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 250 * time.Millisecond

// WatchConfig holds the parameters for a Watcher.
type WatchConfig struct {
	// Dirs are watched recursively. Missing directories are skipped.
	Dirs []string

	// Debounce is the quiet period after the last event before OnChange
	// fires. Zero or negative values fall back to defaultDebounce.
	Debounce time.Duration

	// OnChange receives the deduplicated changed paths once the debounce
	// window closes.
	OnChange func(ctx context.Context, changed []string) error

	// OnError receives callback and non-fatal watcher errors.
	OnError func(error)
}

// Watcher fires a debounced callback when files under its directories
// change. Run must be called exactly once.
type Watcher struct {
	cfg      WatchConfig
	fsw      *fsnotify.Watcher
	debounce time.Duration
	started  atomic.Bool
}

// NewWatcher registers every existing directory under cfg.Dirs.
func NewWatcher(cfg WatchConfig) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("files: create fsnotify watcher: %w", err)
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	w := &Watcher{cfg: cfg, fsw: fsw, debounce: debounce}
	for _, dir := range cfg.Dirs {
		if err := w.addTree(dir); err != nil {
			fsw.Close() //nolint:errcheck // best-effort cleanup
			return nil, err
		}
	}
	return w, nil
}

// Run blocks until ctx is cancelled, dispatching debounced callbacks.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return fmt.Errorf("files: Run called more than once")
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
		running atomic.Bool
	)

	fire := func() {
		if ctx.Err() != nil {
			return
		}
		if !running.CompareAndSwap(false, true) {
			mu.Lock()
			if timer != nil {
				timer.Reset(w.debounce)
			}
			mu.Unlock()
			return
		}
		defer running.Store(false)

		mu.Lock()
		if len(pending) == 0 {
			mu.Unlock()
			return
		}
		changed := slices.Sorted(maps.Keys(pending))
		clear(pending)
		mu.Unlock()

		if w.cfg.OnChange != nil {
			if err := w.cfg.OnChange(ctx, changed); err != nil {
				w.report(err)
			}
		}
	}

	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		if err := w.fsw.Close(); err != nil {
			w.report(fmt.Errorf("files: close fsnotify: %w", err))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return fmt.Errorf("files: fsnotify event channel closed unexpectedly")
			}
			if evt.Has(fsnotify.Chmod) && !evt.Has(fsnotify.Write) {
				continue
			}
			if evt.Has(fsnotify.Create) {
				if info, err := os.Stat(evt.Name); err == nil && info.IsDir() {
					if err := w.addTree(evt.Name); err != nil {
						w.report(err)
					}
				}
			}

			mu.Lock()
			pending[evt.Name] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return fmt.Errorf("files: fsnotify error channel closed unexpectedly")
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				w.report(fmt.Errorf("files: %w", err))
				continue
			}
			w.report(fmt.Errorf("files: fsnotify error: %w", err))
		}
	}
}

func (w *Watcher) addTree(root string) error {
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.report(fmt.Errorf("files: skipping %q: %w", path, err))
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("files: watch %q: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) report(err error) {
	if err != nil && w.cfg.OnError != nil {
		w.cfg.OnError(err)
	}
}
