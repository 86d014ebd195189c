package classify

import (
	"context"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// WatchArtifact monitors path and calls onChange with the newly loaded
// Artifact each time the file is rewritten. It runs until ctx is cancelled.
//
// If a reload fails (malformed blob, version mismatch), the error is logged
// and the previous artifact remains active; onChange is not called.
func WatchArtifact(ctx context.Context, path string, onChange func(*Artifact)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}

	slog.Info("classify: watching artifact for changes", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Only reload on write or create events. Model exporters often
			// write via rename (atomic save), so also catch fsnotify.Create.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			a, err := LoadArtifact(path)
			if err != nil {
				slog.Error("classify: artifact reload failed, keeping previous artifact",
					"path", path, "err", err)
				continue
			}

			slog.Info("classify: artifact reloaded", "path", path, "features", len(a.FeatureOrder))
			onChange(a)

			// Re-add the file in case an atomic save replaced the inode.
			_ = watcher.Add(path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("classify: artifact watcher error", "err", err)
		}
	}
}
