// Package watch turns local vault file changes into pipeline events, giving
// a filesystem-backed deployment the same trigger mechanism a bucket
// notification provides in a hosted one.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/marbeck/vellum/internal/pipeline"
)

// Sink consumes watcher-generated pipeline events.
type Sink interface {
	Process(ctx context.Context, ev pipeline.Event, stages pipeline.Stages) (*pipeline.Result, error)
}

// Watch starts an fsnotify watcher on the vault root and feeds document
// change events into sink until ctx is cancelled. Deletions are ignored:
// the engine never removes index records. New directories created at
// runtime are added to the watch list.
func Watch(ctx context.Context, sink Sink, vaultRoot, bucket string, stages pipeline.Stages, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, vaultRoot); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", vaultRoot))

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name

			// New directories are added to the watcher, and any markdown
			// files already inside get processed.
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					}
					processDir(ctx, sink, vaultRoot, absPath, bucket, stages, logger)
					continue
				}
			}

			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !strings.HasSuffix(absPath, ".md") {
				continue
			}

			rel, relErr := filepath.Rel(vaultRoot, absPath)
			if relErr != nil {
				continue
			}
			dispatch(ctx, sink, bucket, filepath.ToSlash(rel), stages, logger)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func dispatch(ctx context.Context, sink Sink, bucket, key string, stages pipeline.Stages, logger *slog.Logger) {
	res, err := sink.Process(ctx, pipeline.Event{Bucket: bucket, Key: key}, stages)
	if err != nil {
		logger.Warn("watcher: pipeline failed",
			slog.String("path", key), slog.String("error", err.Error()))
		return
	}
	if res.Skipped {
		logger.Debug("watcher: skipped",
			slog.String("path", key), slog.String("reason", res.Reason))
		return
	}
	logger.Debug("watcher: processed", slog.String("path", key))
}

// processDir feeds any markdown files found in a newly created directory.
func processDir(ctx context.Context, sink Sink, vaultRoot, dirPath, bucket string, stages pipeline.Stages, logger *slog.Logger) {
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".md") {
			return nil
		}
		rel, relErr := filepath.Rel(vaultRoot, path)
		if relErr != nil {
			return nil
		}
		dispatch(ctx, sink, bucket, filepath.ToSlash(rel), stages, logger)
		return nil
	})
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
// The generated-artifact tree is not watched; the pipeline must never
// ingest its own output.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if name == "_agent" || name == ".obsidian" {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
