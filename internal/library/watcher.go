package library

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventCallback is called after a watcher-driven change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, path string)

const reconcileDelay = 200 * time.Millisecond

// Watch registers tutorials as they appear in the library until ctx is
// cancelled. New directories are watched as they are created. Deleted files
// are reported but stay registered, so they show up as unreadable rather
// than vanishing from the tree.
func (l *Library) Watch(ctx context.Context, cb EventCallback) error {
	if err := os.MkdirAll(l.root, 0o755); err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, l.root); err != nil {
		return err
	}
	l.logger.Info("library watcher: started", slog.String("root", l.root))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time
	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	notify := func(kind, p string) {
		rel, err := filepath.Rel(l.root, p)
		if err != nil {
			rel = p
		}
		if cb != nil {
			cb(kind, filepath.ToSlash(rel))
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			l.logger.Info("library watcher: stopped")
			return nil

		case <-reconcileCh:
			added, err := l.Sync(ctx)
			if err != nil {
				l.logger.Warn("library watcher: reconcile failed", slog.String("error", err.Error()))
			}
			for _, t := range added {
				notify("created", t.SourceURI)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			p := ev.Name

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(p); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, p); addErr != nil {
						l.logger.Warn("library watcher: add new dir failed",
							slog.String("path", p),
							slog.String("error", addErr.Error()))
					}
					scheduleReconcile()
					continue
				}
			}
			if !IsTutorialFile(p) {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				t, added, regErr := l.registerFile(ctx, p)
				if regErr != nil {
					l.logger.Warn("library watcher: register failed", slog.String("path", p), slog.String("error", regErr.Error()))
					continue
				}
				kind := "updated"
				if added {
					kind = "created"
				} else if t.Name == "" {
					// Unchanged content.
					continue
				}
				notify(kind, p)

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				l.forget(p)
				notify("deleted", p)
				if ev.Op&fsnotify.Rename != 0 {
					scheduleReconcile()
				}
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			l.logger.Error("library watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
