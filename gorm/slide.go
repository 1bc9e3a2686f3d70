package gorm

import (
	"context"
	"errors"
	"fmt"

	"github.com/fwojciec/deck"
	deckjson "github.com/fwojciec/deck/json"
	"gorm.io/gorm"
)

// FindSlideByID returns the slide with the given id.
func (d *DB) FindSlideByID(ctx context.Context, id string) (*deck.Slide, error) {
	var row slideRow
	err := d.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("gorm: slide %q: %w", id, deck.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("gorm: find slide: %w", err)
	}
	return row.slide()
}

// ListSlides returns all slides ordered by position, then creation time.
func (d *DB) ListSlides(ctx context.Context) ([]*deck.Slide, error) {
	var rows []slideRow
	if err := d.db.WithContext(ctx).Order("position ASC, created_at ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("gorm: list slides: %w", err)
	}
	slides := make([]*deck.Slide, 0, len(rows))
	for _, row := range rows {
		s, err := row.slide()
		if err != nil {
			return nil, err
		}
		slides = append(slides, s)
	}
	return slides, nil
}

// CreateSlide stores a new slide, stamping its timestamps.
func (d *DB) CreateSlide(ctx context.Context, s *deck.Slide) error {
	if err := s.Validate(); err != nil {
		return err
	}
	now := d.now()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	row, err := newSlideRow(s)
	if err != nil {
		return err
	}
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&slideRow{}).Where("id = ?", s.ID).Count(&n).Error; err != nil {
			return fmt.Errorf("gorm: create slide: %w", err)
		}
		if n > 0 {
			return fmt.Errorf("gorm: slide %q: %w", s.ID, deck.ErrConflict)
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("gorm: create slide: %w", err)
		}
		return nil
	})
}

// UpdateSlide replaces an existing slide.
func (d *DB) UpdateSlide(ctx context.Context, s *deck.Slide) error {
	if err := s.Validate(); err != nil {
		return err
	}
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing slideRow
		err := tx.First(&existing, "id = ?", s.ID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("gorm: slide %q: %w", s.ID, deck.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("gorm: update slide: %w", err)
		}
		s.CreatedAt = existing.CreatedAt
		s.UpdatedAt = d.now()
		row, err := newSlideRow(s)
		if err != nil {
			return err
		}
		if err := tx.Save(&row).Error; err != nil {
			return fmt.Errorf("gorm: update slide: %w", err)
		}
		return nil
	})
}

// DeleteSlide removes a slide together with its chat and the chat's
// messages.
func (d *DB) DeleteSlide(ctx context.Context, id string) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row slideRow
		err := tx.First(&row, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("gorm: slide %q: %w", id, deck.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("gorm: delete slide: %w", err)
		}
		if row.ChatID != "" {
			if err := tx.Where("chat_id = ?", row.ChatID).Delete(&messageRow{}).Error; err != nil {
				return fmt.Errorf("gorm: delete messages: %w", err)
			}
			if err := tx.Where("id = ?", row.ChatID).Delete(&chatRow{}).Error; err != nil {
				return fmt.Errorf("gorm: delete chat: %w", err)
			}
		}
		if err := tx.Where("id = ?", id).Delete(&slideRow{}).Error; err != nil {
			return fmt.Errorf("gorm: delete slide: %w", err)
		}
		return nil
	})
}

func newSlideRow(s *deck.Slide) (slideRow, error) {
	igs, err := deckjson.MarshalInfographics(s.Infographics)
	if err != nil {
		return slideRow{}, fmt.Errorf("gorm: encode infographics: %w", err)
	}
	return slideRow{
		ID:           s.ID,
		ChatID:       s.ChatID,
		Title:        s.Title,
		Infographics: string(igs),
		Position:     s.Position,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}, nil
}

func (row slideRow) slide() (*deck.Slide, error) {
	igs, err := deckjson.UnmarshalInfographics([]byte(row.Infographics))
	if err != nil {
		return nil, fmt.Errorf("gorm: slide %q: %w", row.ID, err)
	}
	return &deck.Slide{
		ID:           row.ID,
		ChatID:       row.ChatID,
		Title:        row.Title,
		Infographics: igs,
		Position:     row.Position,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}, nil
}
