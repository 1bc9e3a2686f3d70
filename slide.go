package deck

import (
	"context"
	"fmt"
	"time"
)

// Slide is an ordered collection of infographics generated from one chat.
type Slide struct {
	ID           string
	ChatID       string
	Title        string
	Infographics []Infographic
	Position     int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Index returns the position of the infographic with the given id, or -1.
func (s Slide) Index(id string) int {
	for i, ig := range s.Infographics {
		if ig.ID == id {
			return i
		}
	}
	return -1
}

// Validate checks that the slide has an id and unique infographic ids.
func (s Slide) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("slide id required: %w", ErrValidation)
	}
	seen := make(map[string]struct{}, len(s.Infographics))
	for _, ig := range s.Infographics {
		if ig.ID == "" {
			return fmt.Errorf("infographic id required: %w", ErrValidation)
		}
		if _, ok := seen[ig.ID]; ok {
			return fmt.Errorf("duplicate infographic id %q: %w", ig.ID, ErrValidation)
		}
		seen[ig.ID] = struct{}{}
	}
	return nil
}

// InfographicEditor receives the mutations produced while a response streams.
// UpdateInfographicContent must treat a missing id as a no-op.
type InfographicEditor interface {
	InsertInfographic(ig Infographic, afterID string) error
	UpdateInfographicContent(id, content string) error
}

// SlideService persists slides. Lookups of unknown ids return ErrNotFound.
type SlideService interface {
	FindSlideByID(ctx context.Context, id string) (*Slide, error)
	ListSlides(ctx context.Context) ([]*Slide, error)
	CreateSlide(ctx context.Context, s *Slide) error
	UpdateSlide(ctx context.Context, s *Slide) error
	DeleteSlide(ctx context.Context, id string) error
}

// ChangeOp identifies the kind of a SlideChange.
type ChangeOp string

const (
	ChangeInsert ChangeOp = "insert"
	ChangeUpdate ChangeOp = "update"
	ChangeDelete ChangeOp = "delete"
	ChangeMove   ChangeOp = "move"
)

// SlideChange describes one applied mutation of a slide's infographics.
// AfterID is set for inserts and moves; empty means the head.
type SlideChange struct {
	Op          ChangeOp
	Infographic Infographic
	AfterID     string
}
