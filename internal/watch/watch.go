// Package watch notices documents rewritten in a file store by another
// process.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/studycards/internal/checksum"
	"github.com/starford/studycards/internal/storage"
)

// Debounce is how long a key must stay quiet before its callback runs.
const Debounce = 200 * time.Millisecond

// ChangeCallback is called with the key of a document that changed on disk.
type ChangeCallback func(key string)

// Watch runs an fsnotify watcher on the store directory until ctx is
// cancelled. Bursts of events for one key are collapsed into a single
// callback. Writes made by store itself are recognised by checksum and
// ignored.
func Watch(ctx context.Context, store *storage.FS, logger *slog.Logger, cb ChangeCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(store.Dir()); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("dir", store.Dir()))

	pending := make(map[string]struct{})
	var timer *time.Timer
	var timerCh <-chan time.Time

	schedule := func(key string) {
		pending[key] = struct{}{}
		if timer == nil {
			timer = time.NewTimer(Debounce)
			timerCh = timer.C
			return
		}
		timer.Reset(Debounce)
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			for key := range pending {
				delete(pending, key)
				if ownWrite(store, key) {
					logger.Debug("watcher: own write skipped", slog.String("key", key))
					continue
				}
				logger.Debug("watcher: external change", slog.String("key", key))
				if cb != nil {
					cb(key)
				}
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			key, ok := store.KeyForPath(filepath.Clean(ev.Name))
			if !ok {
				continue
			}
			schedule(key)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// ownWrite reports whether the file under key still holds what store last
// wrote there.
func ownWrite(store *storage.FS, key string) bool {
	data, err := store.Get(key)
	if err != nil {
		return false
	}
	return checksum.Matches(data, store.LastChecksum(key))
}
