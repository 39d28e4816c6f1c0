package feed

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// Watch applies on-disk edits of a file source live using fsnotify. It
// watches both the directory and the file so the watch survives atomic
// replaces (write temp + rename). The watcher stops when ctx is done.
func (s *Store) Watch(ctx context.Context) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	cleanPath := filepath.Clean(s.source)
	if err := watcher.Add(filepath.Dir(cleanPath)); err != nil {
		watcher.Close()
		return nil, err
	}
	_ = watcher.Add(cleanPath)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != cleanPath {
					continue
				}
				if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
					// Atomic saves replace the inode; re-add the watch.
					_ = watcher.Remove(cleanPath)
					_ = watcher.Add(cleanPath)
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
					if err := s.Load(ctx); err != nil {
						log.Warnf("Endpoint document reload failed: %v (keeping previous revision)", err)
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Errorf("Endpoint document watcher error: %v", err)
			}
		}
	}()

	return watcher, nil
}
