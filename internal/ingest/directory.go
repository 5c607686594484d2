package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tedkulp/cartulary-go/internal/db"
	"github.com/tedkulp/cartulary-go/internal/model"
)

// createSettleDelay is how long the watcher waits after a create event
// before reading the file, so a still-writing file isn't ingested
// truncated.
const createSettleDelay = 2 * time.Second

// reconcileInterval is how often the control loop re-scans configured
// sources and starts/stops observers to match.
const reconcileInterval = 60 * time.Second

// DirectoryWatcher runs one non-recursive fsnotify.Watcher per active
// directory ImportSource and reconciles the set of watched paths every
// reconcileInterval, matching the pattern in
// 0xcro3dile-localrag-go/internal/adapters/filewatcher/fsnotify.go
// generalized from a single watch target to a dynamically reconciled
// multi-source set.
type DirectoryWatcher struct {
	sources Deps
	repo    *db.ImportSourceRepo

	watched map[string]*fsnotify.Watcher // source id -> watcher
}

// NewDirectoryWatcher builds a DirectoryWatcher.
func NewDirectoryWatcher(deps Deps, repo *db.ImportSourceRepo) *DirectoryWatcher {
	return &DirectoryWatcher{sources: deps, repo: repo, watched: make(map[string]*fsnotify.Watcher)}
}

// Run blocks, reconciling watched sources every reconcileInterval until
// ctx is cancelled.
func (w *DirectoryWatcher) Run(ctx context.Context) {
	w.reconcile(ctx)
	ticker := time.NewTicker(reconcileInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.stopAll()
			return
		case <-ticker.C:
			w.reconcile(ctx)
		}
	}
}

// reconcile starts observers for newly-active sources, stops observers
// for sources no longer active, and skips (with an error flag) sources
// whose watch path no longer exists.
func (w *DirectoryWatcher) reconcile(ctx context.Context) {
	active, err := w.repo.ListActive(ctx, model.ImportSourceDirectory)
	if err != nil {
		slog.Error("ingest: list active directory sources failed", "error", err)
		return
	}

	seen := make(map[string]bool, len(active))
	for _, src := range active {
		seen[src.ID] = true
		if _, ok := w.watched[src.ID]; ok {
			continue
		}
		if src.WatchPath == nil {
			continue
		}
		if _, err := os.Stat(*src.WatchPath); err != nil {
			if markErr := w.repo.MarkError(ctx, src.ID, fmt.Sprintf("watch path does not exist: %s", *src.WatchPath)); markErr != nil {
				slog.Error("ingest: failed to record watch path error", "source_id", src.ID, "error", markErr)
			}
			continue
		}
		if err := w.start(ctx, src); err != nil {
			slog.Error("ingest: start directory watcher failed", "source_id", src.ID, "error", err)
			if markErr := w.repo.MarkError(ctx, src.ID, err.Error()); markErr != nil {
				slog.Error("ingest: failed to record start error", "source_id", src.ID, "error", markErr)
			}
		}
	}

	for id, watcher := range w.watched {
		if !seen[id] {
			_ = watcher.Close()
			delete(w.watched, id)
		}
	}
}

func (w *DirectoryWatcher) start(ctx context.Context, src model.ImportSource) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("new watcher: %w", err)
	}
	if err := watcher.Add(*src.WatchPath); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", *src.WatchPath, err)
	}
	w.watched[src.ID] = watcher

	go w.watchLoop(ctx, src, watcher)
	return nil
}

func (w *DirectoryWatcher) stopAll() {
	for id, watcher := range w.watched {
		_ = watcher.Close()
		delete(w.watched, id)
	}
}

func (w *DirectoryWatcher) watchLoop(ctx context.Context, src model.ImportSource, watcher *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create != fsnotify.Create {
				continue
			}
			go w.handleCreate(ctx, src, event.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Error("ingest: directory watcher error", "source_id", src.ID, "error", err)
			if markErr := w.repo.MarkError(ctx, src.ID, err.Error()); markErr != nil {
				slog.Error("ingest: failed to record watcher error", "source_id", src.ID, "error", markErr)
			}
		}
	}
}

func (w *DirectoryWatcher) handleCreate(ctx context.Context, src model.ImportSource, path string) {
	select {
	case <-time.After(createSettleDelay):
	case <-ctx.Done():
		return
	}

	if err := w.ingestOne(ctx, src, path); err != nil {
		slog.Error("ingest: directory ingest failed", "source_id", src.ID, "path", path, "error", err)
		if markErr := w.repo.MarkError(ctx, src.ID, err.Error()); markErr != nil {
			slog.Error("ingest: failed to record ingest error", "source_id", src.ID, "error", markErr)
		}
		return
	}
	if err := w.repo.MarkRun(ctx, src.ID); err != nil {
		slog.Error("ingest: failed to record successful run", "source_id", src.ID, "error", err)
	}
}

func (w *DirectoryWatcher) ingestOne(ctx context.Context, src model.ImportSource, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	result, err := ingestFile(ctx, w.sources, src.OwnerID, nil, filepath.Base(path), "", f)
	if err != nil {
		return err
	}
	return w.postImport(src, path, result)
}

// postImport applies the configured move-or-delete action against the
// source file, including for duplicate hits.
func (w *DirectoryWatcher) postImport(src model.ImportSource, path string, result ingestResult) error {
	if src.DeleteAfterImport {
		return os.Remove(path)
	}
	if src.MoveAfterImport && src.MoveToPath != nil {
		if err := os.MkdirAll(*src.MoveToPath, 0o755); err != nil {
			return fmt.Errorf("create move-to dir: %w", err)
		}
		dest := filepath.Join(*src.MoveToPath, filepath.Base(path))
		return os.Rename(path, dest)
	}
	return nil
}
