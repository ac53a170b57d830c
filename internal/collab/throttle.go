package collab

import (
	"sync"
	"time"
)

// cursorThrottle coalesces high-frequency cursor updates into at most one
// send per interval: the first offer in a quiet period goes out
// immediately, later offers within the interval replace each other and the
// newest is flushed by a trailing timer.
type cursorThrottle struct {
	interval time.Duration

	mu       sync.Mutex
	lastSent time.Time
	pending  *Cursor
	timer    *time.Timer
	stopped  bool
}

func newCursorThrottle(interval time.Duration) *cursorThrottle {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	return &cursorThrottle{interval: interval}
}

// offer submits a cursor for sending through send, applying the throttle.
func (t *cursorThrottle) offer(c Cursor, send func(Cursor)) {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	now := time.Now()
	if t.timer == nil && now.Sub(t.lastSent) >= t.interval {
		t.lastSent = now
		t.mu.Unlock()
		send(c)
		return
	}

	t.pending = &c
	if t.timer == nil {
		wait := t.interval - now.Sub(t.lastSent)
		if wait < 0 {
			wait = 0
		}
		t.timer = time.AfterFunc(wait, func() { t.flush(send) })
	}
	t.mu.Unlock()
}

func (t *cursorThrottle) flush(send func(Cursor)) {
	t.mu.Lock()
	t.timer = nil
	c := t.pending
	t.pending = nil
	if c == nil || t.stopped {
		t.mu.Unlock()
		return
	}
	t.lastSent = time.Now()
	t.mu.Unlock()
	send(*c)
}

// stop drops any pending send.
func (t *cursorThrottle) stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.pending = nil
}
