package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const watchDebounce = 100 * time.Millisecond

// watch runs the scenario and re-runs it whenever the scenario or a file it
// references changes. It returns when ctx is cancelled.
func watch(ctx context.Context, opts engineOptions, path string, w io.Writer, log *zap.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	watched := make(map[string]bool)
	rerun := func() {
		fmt.Fprintf(w, "\n--- %s ---\n", time.Now().Format(time.TimeOnly))
		if _, err := runOnce(ctx, opts, path, w); err != nil {
			fmt.Fprintf(w, "%s %v\n", denyStyle.Render("error:"), err)
		}
		// Editors often replace files, so watch directories and filter by
		// name. The file list can change between runs.
		sc, err := LoadScenario(path)
		files := []string{path}
		if err == nil {
			files = sc.Files()
		}
		watched = make(map[string]bool, len(files))
		dirs := make(map[string]bool)
		for _, f := range files {
			abs, err := filepath.Abs(f)
			if err != nil {
				continue
			}
			watched[abs] = true
			dirs[filepath.Dir(abs)] = true
		}
		for dir := range dirs {
			if err := watcher.Add(dir); err != nil {
				log.Warn("watch directory", zap.String("dir", dir), zap.Error(err))
			}
		}
	}
	rerun()

	var timer *time.Timer
	fire := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !watched[abs] {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			log.Debug("file changed", zap.String("path", abs), zap.String("op", event.Op.String()))
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case <-fire:
			rerun()

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			log.Error("watcher error", zap.Error(err))
		}
	}
}
