package assets

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/dagaz/internal/collab"
	"github.com/starford/dagaz/internal/realtime"
	"github.com/starford/dagaz/internal/store"
)

// Watch starts an fsnotify watcher on the asset root and processes change
// events until ctx is cancelled. When an asset file is rewritten, every
// image element referencing it gets an updated event republished, so
// connected clients reload the image.
//
// Events are debounced: rapid writes to the same file collapse into one
// refresh pass.
func Watch(ctx context.Context, db *store.DB, hub *realtime.Hub, root string, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(root); err != nil {
		return err
	}
	logger.Info("assets: watcher started", slog.String("root", root))

	var refreshTimer *time.Timer
	var refreshCh <-chan time.Time
	pending := make(map[string]struct{})

	schedule := func(name string) {
		pending[name] = struct{}{}
		if refreshTimer == nil {
			refreshTimer = time.NewTimer(200 * time.Millisecond)
			refreshCh = refreshTimer.C
		} else {
			refreshTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if refreshTimer != nil {
				refreshTimer.Stop()
			}
			logger.Info("assets: watcher stopped")
			return nil

		case <-refreshCh:
			for name := range pending {
				refreshElements(ctx, db, hub, name, logger)
			}
			pending = make(map[string]struct{})

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			name := filepath.Base(ev.Name)
			if len(name) > 0 && name[0] == '.' {
				continue // temp files from atomic writes
			}
			schedule(name)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("assets: watcher error", slog.String("error", err.Error()))
		}
	}
}

func refreshElements(ctx context.Context, db *store.DB, hub *realtime.Hub, name string, logger *slog.Logger) {
	elements, err := db.ElementsByURL(ctx, URLFor(name))
	if err != nil {
		logger.Warn("assets: lookup failed",
			slog.String("asset", name), slog.String("error", err.Error()))
		return
	}
	for _, e := range elements {
		hub.PublishEvent(e.BoardID, collab.Event{Type: collab.EventUpdated, Element: e})
		logger.Debug("assets: refreshed element",
			slog.String("asset", name), slog.String("element", e.ID))
	}
}
