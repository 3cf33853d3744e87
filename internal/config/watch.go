package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch calls fn once the file at path has stopped changing for debounce,
// until ctx is done. The directory is watched rather than the file, so that
// editors replacing the file on save are followed.
func Watch(ctx context.Context, path string, debounce time.Duration, log *slog.Logger, fn func(fsnotify.Event)) error {
	if log == nil {
		log = slog.Default()
	}
	path = filepath.Clean(path)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	var (
		mu        sync.Mutex
		timer     *time.Timer
		lastEvent fsnotify.Event
	)
	trigger := func() {
		mu.Lock()
		ev := lastEvent
		timer = nil
		mu.Unlock()
		fn(ev)
	}
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			log.DebugContext(ctx, "file changed", "path", ev.Name, "op", ev.Op.String())
			mu.Lock()
			lastEvent = ev
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, trigger)
			mu.Unlock()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.WarnContext(ctx, "watch error", "path", path, "error", err)
		}
	}
}
