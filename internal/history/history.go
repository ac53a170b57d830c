// Package history implements the local undo/redo log. The log records
// reversible operations (create, delete, update) against the element store
// and replays them backward and forward through an Applier, which issues
// both the store mutation and the matching remote-update request.
//
// History is local-only: it is never shared with other clients, and it does
// not capture changes a remote collaborator makes to an element.
package history

import "github.com/starford/dagaz/internal/element"

// Op discriminates history items.
type Op int

// History operations.
const (
	OpCreate Op = iota
	OpDelete
	OpUpdate
)

// Item is one reversible operation. Create and delete items carry a
// snapshot of the element so undoing a delete (or redoing a create) can
// restore it locally without a re-fetch; the remote side only ever sees the
// soft-delete flag toggled. Update items carry the previous and next
// partial attributes.
type Item struct {
	Op       Op
	ID       string
	Snapshot element.Element
	Prev     element.Patch
	Next     element.Patch
}

// Applier applies history effects. The interaction session implements it by
// mutating the element store and requesting persistence through the
// synchronization layer.
type Applier interface {
	// SetDeleted toggles the soft-delete flag. snapshot is the element to
	// restore when deleted is false.
	SetDeleted(id string, deleted bool, snapshot element.Element)
	// ApplyPatch writes partial attributes back onto the element.
	ApplyPatch(id string, p element.Patch)
}

// Log is the undo/redo log: an item list plus a cursor pointing at the last
// applied item (-1 when nothing can be undone). It is owned by a single
// interaction session and is not safe for concurrent use.
type Log struct {
	items      []Item
	cursor     int
	maxEntries int
}

// NewLog creates an empty log holding at most maxEntries items (oldest
// entries are dropped beyond that; <= 0 selects the default of 1000).
func NewLog(maxEntries int) *Log {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &Log{cursor: -1, maxEntries: maxEntries}
}

// Record drops any items after the cursor (a redo branch abandoned by a new
// mutation), appends the item and advances the cursor.
func (l *Log) Record(item Item) {
	l.items = append(l.items[:l.cursor+1], item)
	l.cursor++

	if len(l.items) > l.maxEntries {
		excess := len(l.items) - l.maxEntries
		l.items = l.items[excess:]
		l.cursor -= excess
	}
}

// Undo applies the inverse of the item at the cursor and steps back.
// Returns false when there is nothing to undo.
func (l *Log) Undo(a Applier) bool {
	if l.cursor < 0 {
		return false
	}
	item := l.items[l.cursor]
	switch item.Op {
	case OpCreate:
		a.SetDeleted(item.ID, true, item.Snapshot)
	case OpDelete:
		a.SetDeleted(item.ID, false, item.Snapshot)
	case OpUpdate:
		a.ApplyPatch(item.ID, item.Prev)
	}
	l.cursor--
	return true
}

// Redo re-applies the item after the cursor and steps forward. Returns
// false when there is nothing to redo.
func (l *Log) Redo(a Applier) bool {
	if l.cursor >= len(l.items)-1 {
		return false
	}
	item := l.items[l.cursor+1]
	switch item.Op {
	case OpCreate:
		a.SetDeleted(item.ID, false, item.Snapshot)
	case OpDelete:
		a.SetDeleted(item.ID, true, item.Snapshot)
	case OpUpdate:
		a.ApplyPatch(item.ID, item.Next)
	}
	l.cursor++
	return true
}

// CanUndo reports whether an undo is available.
func (l *Log) CanUndo() bool {
	return l.cursor >= 0
}

// CanRedo reports whether a redo is available.
func (l *Log) CanRedo() bool {
	return l.cursor < len(l.items)-1
}

// Len returns the number of items currently in the log.
func (l *Log) Len() int {
	return len(l.items)
}

// Clear drops the whole log, for example when switching boards.
func (l *Log) Clear() {
	l.items = nil
	l.cursor = -1
}
