package element

import (
	"sort"
	"sync"

	"github.com/starford/dagaz/internal/geometry"
)

// Store holds the canonical ordered element list for the active board plus
// the single local selection.
//
// Concurrency model: session handlers and the remote merge goroutine both
// mutate the store, so a mutex serializes access. Every mutation replaces
// whole Element values (copy-on-write) and every read hands out clones, so
// the render loop always observes fully-formed snapshots and never a
// half-applied geometry change.
type Store struct {
	mu       sync.RWMutex
	elements []Element
	selected string
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Seed replaces the whole element list, keeping it sorted. Selection is
// cleared unless the selected element survives the reload.
func (s *Store) Seed(elements []Element) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.elements = make([]Element, 0, len(elements))
	for _, e := range elements {
		s.elements = append(s.elements, e.Clone())
	}
	s.sortLocked()

	if s.selected != "" {
		if _, ok := s.getLocked(s.selected); !ok {
			s.selected = ""
		}
	}
}

// List returns the elements in render order (back to front).
func (s *Store) List() []Element {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Element, 0, len(s.elements))
	for _, e := range s.elements {
		out = append(out, e.Clone())
	}
	return out
}

// Len returns the number of elements.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.elements)
}

// Get returns the element with the given id.
func (s *Store) Get(id string) (Element, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.getLocked(id)
	if !ok {
		return Element{}, false
	}
	return e.Clone(), true
}

// Upsert inserts the element or replaces the one with the same id, then
// restores layer order.
func (s *Store) Upsert(e Element) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := e.Clone()
	for i := range s.elements {
		if s.elements[i].ID == c.ID {
			s.elements[i] = c
			s.sortLocked()
			return
		}
	}
	s.elements = append(s.elements, c)
	s.sortLocked()
}

// Remove deletes the element from the list. If it was selected the
// selection is cleared. Returns true when an element was removed.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.elements {
		if s.elements[i].ID == id {
			s.elements = append(s.elements[:i], s.elements[i+1:]...)
			if s.selected == id {
				s.selected = ""
			}
			return true
		}
	}
	return false
}

// Select marks the element as the local selection. Selecting an unknown id
// clears the selection.
func (s *Store) Select(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.getLocked(id); !ok {
		s.selected = ""
		return
	}
	s.selected = id
}

// ClearSelection drops the local selection.
func (s *Store) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = ""
}

// Selected returns the selected element, if any.
func (s *Store) Selected() (Element, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.selected == "" {
		return Element{}, false
	}
	e, ok := s.getLocked(s.selected)
	if !ok {
		return Element{}, false
	}
	return e.Clone(), true
}

// SelectedID returns the id of the selected element, or "".
func (s *Store) SelectedID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// NextLayer returns a layer number above every current element.
func (s *Store) NextLayer() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var max int64
	for _, e := range s.elements {
		if e.Layer > max {
			max = e.Layer
		}
	}
	return max + 1
}

// LayerBounds returns the lowest and highest layer in use. ok is false when
// the store is empty.
func (s *Store) LayerBounds() (min, max int64, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.elements) == 0 {
		return 0, 0, false
	}
	min, max = s.elements[0].Layer, s.elements[0].Layer
	for _, e := range s.elements[1:] {
		if e.Layer < min {
			min = e.Layer
		}
		if e.Layer > max {
			max = e.Layer
		}
	}
	return min, max, true
}

// HitTopmost returns the topmost non-deleted element hit by the canvas
// point, searching in reverse render order.
func (s *Store) HitTopmost(p geometry.Point, pad float64) (Element, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.elements) - 1; i >= 0; i-- {
		if s.elements[i].Hit(p, pad) {
			return s.elements[i].Clone(), true
		}
	}
	return Element{}, false
}

func (s *Store) getLocked(id string) (Element, bool) {
	for i := range s.elements {
		if s.elements[i].ID == id {
			return s.elements[i], true
		}
	}
	return Element{}, false
}

// sortLocked keeps elements ordered by (layer, creation time, id).
func (s *Store) sortLocked() {
	sort.SliceStable(s.elements, func(i, j int) bool {
		a, b := s.elements[i], s.elements[j]
		if a.Layer != b.Layer {
			return a.Layer < b.Layer
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
