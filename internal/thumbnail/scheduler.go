package thumbnail

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/dagaz/internal/checksum"
	"github.com/starford/dagaz/internal/collab"
	"github.com/starford/dagaz/internal/element"
	"github.com/starford/dagaz/internal/store"
)

// BoardRenderer produces preview bytes from a board's elements.
type BoardRenderer interface {
	Render(elements []element.Element) ([]byte, error)
}

// Scheduler debounces thumbnail refreshes per board: a burst of mutations
// collapses into one render after the debounce interval, and a render is
// skipped when the board content checksum has not changed since the last
// upload.
type Scheduler struct {
	db       *store.DB
	uploader collab.Uploader
	renderer BoardRenderer
	debounce time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
	sums   map[string]string
	closed bool
}

// NewScheduler creates a scheduler. debounce <= 0 selects one second.
func NewScheduler(db *store.DB, uploader collab.Uploader, renderer BoardRenderer, debounce time.Duration, logger *slog.Logger) *Scheduler {
	if debounce <= 0 {
		debounce = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		db:       db,
		uploader: uploader,
		renderer: renderer,
		debounce: debounce,
		logger:   logger,
		timers:   make(map[string]*time.Timer),
		sums:     make(map[string]string),
	}
}

// Schedule arms (or re-arms) the board's debounce timer.
func (s *Scheduler) Schedule(boardID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if t, ok := s.timers[boardID]; ok {
		t.Reset(s.debounce)
		return
	}
	s.timers[boardID] = time.AfterFunc(s.debounce, func() {
		s.refresh(boardID)
	})
}

// Close cancels every pending refresh.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = make(map[string]*time.Timer)
}

func (s *Scheduler) refresh(boardID string) {
	s.mu.Lock()
	delete(s.timers, boardID)
	s.mu.Unlock()

	ctx := context.Background()
	elements, err := s.db.Fetch(ctx, boardID)
	if err != nil {
		s.logger.Warn("thumbnail: fetch failed",
			slog.String("board", boardID), slog.String("error", err.Error()))
		return
	}

	raw, _ := json.Marshal(elements)
	sum := checksum.Sum(raw)
	s.mu.Lock()
	unchanged := s.sums[boardID] == sum
	s.mu.Unlock()
	if unchanged {
		return
	}

	png, err := s.renderer.Render(elements)
	if err != nil {
		s.logger.Warn("thumbnail: render failed",
			slog.String("board", boardID), slog.String("error", err.Error()))
		return
	}
	url, err := s.uploader.Upload(ctx, png)
	if err != nil {
		s.logger.Warn("thumbnail: upload failed",
			slog.String("board", boardID), slog.String("error", err.Error()))
		return
	}
	if err := s.db.SetThumbnail(ctx, boardID, url); err != nil {
		s.logger.Warn("thumbnail: set url failed",
			slog.String("board", boardID), slog.String("error", err.Error()))
		return
	}

	s.mu.Lock()
	s.sums[boardID] = sum
	s.mu.Unlock()
	s.logger.Debug("thumbnail: refreshed",
		slog.String("board", boardID), slog.String("url", url))
}
