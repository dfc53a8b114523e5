package session

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/yildizm/AttendSum/internal/logger"
)

// Watcher adopts token changes written to the token file by other
// processes. The directory is watched rather than the file so that atomic
// replacements and removals are seen.
type Watcher struct {
	session *Session
	path    string
	log     *logger.Logger
	ready   chan struct{}
}

// NewWatcher watches the file behind store on behalf of s
func NewWatcher(s *Session, store *FileStore, log *logger.Logger) *Watcher {
	if log == nil {
		log = logger.Discard()
	}
	return &Watcher{
		session: s,
		path:    filepath.Clean(store.Path()),
		log:     log,
		ready:   make(chan struct{}),
	}
}

// Ready is closed once the watch is established
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Run watches until ctx is done
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = fsw.Close() }()

	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.path), err)
	}
	close(w.ready)
	w.log.Debug("watching %s for session changes", w.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if err := w.session.Sync(); err != nil {
				w.log.Warn("session sync failed: %v", err)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Error("watcher error: %v", err)
		}
	}
}
