package main

import (
	"context"
	"os"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/paymentops/rag-runbooks/internal/ingest"
)

// watchDirectory watches dir and ingests a file each time a create or write
// event arrives for it; there is no wait for the file to stop changing.
// Runs until ctx is cancelled.
func watchDirectory(ctx context.Context, dir string, ingestor *ingest.Ingestor, logger *zap.Logger) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("failed to start directory watcher", zap.Error(err))
		return
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		logger.Error("failed to watch directory", zap.String("dir", dir), zap.Error(err))
		return
	}
	logger.Info("watching directory for new documents", zap.String("dir", dir))

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			info, err := os.Stat(event.Name)
			if err != nil || info.IsDir() {
				continue
			}
			docs := ingestor.IngestFiles(ctx, []string{event.Name})
			logger.Info("watched file ingested", zap.String("path", event.Name), zap.Int("documents", len(docs)))
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Error("directory watcher error", zap.Error(err))
		}
	}
}
