// Package memory holds the live, in-memory state of an open slide.
package memory

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/fwojciec/deck"
)

// Interface compliance check.
var _ deck.InfographicEditor = (*Slide)(nil)

// Slide is the mutable infographic list of one slide plus the user's
// selection. Observers registered with OnChange are called after each
// mutation, outside the lock, in registration order.
type Slide struct {
	mu        sync.RWMutex
	slide     deck.Slide
	selected  string
	observers []func(deck.SlideChange)
	now       func() time.Time
}

// NewSlide returns a Slide initialized from a persisted snapshot.
func NewSlide(s deck.Slide) *Slide {
	s.Infographics = slices.Clone(s.Infographics)
	return &Slide{slide: s, now: time.Now}
}

// OnChange registers an observer for applied mutations.
func (s *Slide) OnChange(fn func(deck.SlideChange)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// InsertInfographic inserts ig after the infographic afterID. An empty
// afterID inserts at the head; an afterID that no longer exists appends.
func (s *Slide) InsertInfographic(ig deck.Infographic, afterID string) error {
	s.mu.Lock()
	if ig.ID == "" {
		s.mu.Unlock()
		return fmt.Errorf("memory: infographic id required: %w", deck.ErrValidation)
	}
	if s.slide.Index(ig.ID) >= 0 {
		s.mu.Unlock()
		return fmt.Errorf("memory: infographic %q: %w", ig.ID, deck.ErrConflict)
	}
	at := 0
	if afterID != "" {
		if i := s.slide.Index(afterID); i >= 0 {
			at = i + 1
		} else {
			at = len(s.slide.Infographics)
			afterID = s.lastIDLocked()
		}
	}
	s.slide.Infographics = slices.Insert(s.slide.Infographics, at, ig)
	s.touchLocked()
	observers := s.observers
	s.mu.Unlock()

	notify(observers, deck.SlideChange{Op: deck.ChangeInsert, Infographic: ig, AfterID: afterID})
	return nil
}

// UpdateInfographicContent replaces the content of id. A missing id is a
// no-op, since the user may delete an infographic while it streams.
func (s *Slide) UpdateInfographicContent(id, content string) error {
	s.mu.Lock()
	i := s.slide.Index(id)
	if i < 0 || s.slide.Infographics[i].Content == content {
		s.mu.Unlock()
		return nil
	}
	s.slide.Infographics[i].Content = content
	ig := s.slide.Infographics[i]
	s.touchLocked()
	observers := s.observers
	s.mu.Unlock()

	notify(observers, deck.SlideChange{Op: deck.ChangeUpdate, Infographic: ig})
	return nil
}

// DeleteInfographic removes id. Deleting the selection clears it.
func (s *Slide) DeleteInfographic(id string) error {
	s.mu.Lock()
	i := s.slide.Index(id)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("memory: infographic %q: %w", id, deck.ErrNotFound)
	}
	ig := s.slide.Infographics[i]
	s.slide.Infographics = slices.Delete(s.slide.Infographics, i, i+1)
	if s.selected == id {
		s.selected = ""
	}
	s.touchLocked()
	observers := s.observers
	s.mu.Unlock()

	notify(observers, deck.SlideChange{Op: deck.ChangeDelete, Infographic: ig})
	return nil
}

// MoveInfographic moves id to index, clamped to the list bounds.
func (s *Slide) MoveInfographic(id string, index int) error {
	s.mu.Lock()
	i := s.slide.Index(id)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("memory: infographic %q: %w", id, deck.ErrNotFound)
	}
	ig := s.slide.Infographics[i]
	s.slide.Infographics = slices.Delete(s.slide.Infographics, i, i+1)
	index = max(0, min(index, len(s.slide.Infographics)))
	s.slide.Infographics = slices.Insert(s.slide.Infographics, index, ig)
	afterID := ""
	if index > 0 {
		afterID = s.slide.Infographics[index-1].ID
	}
	s.touchLocked()
	observers := s.observers
	s.mu.Unlock()

	notify(observers, deck.SlideChange{Op: deck.ChangeMove, Infographic: ig, AfterID: afterID})
	return nil
}

// Infographic returns the infographic with the given id.
func (s *Slide) Infographic(id string) (deck.Infographic, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.slide.Index(id)
	if i < 0 {
		return deck.Infographic{}, false
	}
	return s.slide.Infographics[i], true
}

// Infographics returns a copy of the ordered infographics.
func (s *Slide) Infographics() []deck.Infographic {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.slide.Infographics)
}

// Select marks id as the user's selection. Unknown ids clear it.
func (s *Slide) Select(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.slide.Index(id) < 0 {
		id = ""
	}
	s.selected = id
}

// Selected returns the selected infographic id, or an empty string.
func (s *Slide) Selected() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// SetTitle renames the slide.
func (s *Slide) SetTitle(title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slide.Title = title
	s.touchLocked()
}

// Snapshot returns a copy of the slide suitable for persisting.
func (s *Slide) Snapshot() deck.Slide {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := s.slide
	snap.Infographics = slices.Clone(s.slide.Infographics)
	return snap
}

func (s *Slide) lastIDLocked() string {
	if n := len(s.slide.Infographics); n > 0 {
		return s.slide.Infographics[n-1].ID
	}
	return ""
}

func (s *Slide) touchLocked() {
	s.slide.UpdatedAt = s.now()
}

func notify(observers []func(deck.SlideChange), c deck.SlideChange) {
	for _, fn := range observers {
		fn(c)
	}
}
