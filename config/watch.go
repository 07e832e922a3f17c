package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch calls fn with the reloaded settings every time the file at path is
// written, until ctx is done. Errors while reloading are passed to fn and do
// not stop the watch. The parent directory is watched so that editors
// replacing the file atomically are supported.
func Watch(ctx context.Context, path string, fn func(Settings, error), opts ...LoadOption) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: watch: %w", err)
	}
	defer w.Close()
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("config: watch: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("config: watch %s: %w", path, err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			fn(Load(abs, opts...))
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			fn(Settings{}, fmt.Errorf("config: watch %s: %w", path, err))
		}
	}
}
