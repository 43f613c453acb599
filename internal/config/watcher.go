package config

import (
	"context"
	"errors"
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch re-loads the config file whenever it changes and hands every valid
// result to onChange. Invalid files are logged and skipped, so the service
// keeps running on the previous configuration.
func Watch(ctx context.Context, path string, logger *log.Logger, onChange func(Config)) error {
	if path == "" {
		return errors.New("config: empty watch path")
	}
	if logger == nil {
		logger = log.Default()
	}
	if onChange == nil {
		return errors.New("config: nil onChange")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	// Watch the directory: editors replace the file on save, which drops a
	// watch registered on the file itself.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return err
	}
	target := filepath.Clean(path)

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				cfg, err := Load(path)
				if err != nil {
					logger.Printf("config: reload rejected: %v", err)
					continue
				}
				logger.Printf("config: reloaded from %s", path)
				onChange(cfg)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Printf("config: watch error: %v", err)
			}
		}
	}()
	return nil
}
