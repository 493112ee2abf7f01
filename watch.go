package inventory

import (
	"context"
	"path/filepath"
	"time"

	"github.com/goliatone/go-inventory/internal/files"
)

// Watch reloads the inventory whenever its source directories change, until
// ctx is cancelled. Reload errors are logged and the previous state kept.
func (inv *Inventory) Watch(ctx context.Context, debounce time.Duration) error {
	watcher, err := files.NewWatcher(files.WatchConfig{
		Dirs:     inv.watchDirs(),
		Debounce: debounce,
		OnChange: func(ctx context.Context, changed []string) error {
			reloaded, err := inv.ReloadIfFilesChanged(ctx)
			if err != nil {
				return err
			}
			if reloaded {
				inv.cfg.logger.Info("reloaded after change", "files", len(changed), "generation", inv.Generation())
			}
			return nil
		},
		OnError: func(err error) {
			inv.cfg.logger.Warn("watch", "err", err)
		},
	})
	if err != nil {
		return err
	}
	return watcher.Run(ctx)
}

func (inv *Inventory) watchDirs() []string {
	seen := map[string]struct{}{}
	var dirs []string
	add := func(dir string) {
		if dir == "" {
			return
		}
		dir = filepath.Clean(dir)
		if _, ok := seen[dir]; ok {
			return
		}
		seen[dir] = struct{}{}
		dirs = append(dirs, dir)
	}
	for _, dir := range inv.cfg.dirs {
		add(dir)
	}
	inv.mu.Lock()
	for _, path := range append(append([]string(nil), inv.explicit...), inv.late...) {
		add(filepath.Dir(path))
	}
	inv.mu.Unlock()
	add(inv.cfg.userDir)
	return dirs
}
