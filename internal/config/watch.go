package config

import (
	"context"
	"os"
	"time"
)

// catalogWatcher polls the catalog file's modification time and reloads it
// when the time moves forward. A reload that fails to parse is skipped and
// retried on the next tick, keeping the last good catalog in effect.
type catalogWatcher struct {
	path     string
	interval time.Duration
	onUpdate func(*CatalogConfig)
	lastMod  time.Time
}

// WatchCatalog loads the catalog, delivers it to onUpdate, and starts a
// goroutine that re-delivers whenever the file changes. The goroutine stops
// when ctx is cancelled. The initial load failing is an error; later reload
// failures are not.
func WatchCatalog(ctx context.Context, path string, interval time.Duration, onUpdate func(*CatalogConfig)) error {
	w := &catalogWatcher{path: path, interval: interval, onUpdate: onUpdate}
	if w.path == "" {
		w.path = "configs/catalog.yaml"
	}
	if w.interval <= 0 {
		w.interval = 30 * time.Second
	}

	if err := w.reload(); err != nil {
		return err
	}
	go w.run(ctx)
	return nil
}

func (w *catalogWatcher) run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll()
		}
	}
}

// poll reloads when the file's mtime sits past the last delivered version.
func (w *catalogWatcher) poll() {
	info, err := os.Stat(w.path)
	if err != nil || !info.ModTime().After(w.lastMod) {
		return
	}
	_ = w.reload()
}

func (w *catalogWatcher) reload() error {
	info, err := os.Stat(w.path)
	if err != nil {
		return err
	}
	cfg, err := LoadCatalog(w.path)
	if err != nil {
		return err
	}
	w.lastMod = info.ModTime()
	if w.onUpdate != nil {
		w.onUpdate(cfg)
	}
	return nil
}
