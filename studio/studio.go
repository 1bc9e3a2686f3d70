// Package studio runs conversations that build slides. A Session binds one
// slide and its chat to a provider, streaming tool calls onto the slide as
// they arrive.
package studio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fwojciec/deck"
	"github.com/fwojciec/deck/builtin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/metric"
)

// Studio opens sessions over persisted slides and chats.
type Studio struct {
	slides   deck.SlideService
	chats    deck.ChatService
	provider deck.Provider

	model    string
	maxSteps int
	clock    deck.Clock
	interval time.Duration
	newID    func() string
	logger   logrus.FieldLogger
	meter    metric.Meter
}

// Option configures a Studio.
type Option func(*Studio)

// WithModel sets the model requested from the provider.
func WithModel(model string) Option {
	return func(s *Studio) { s.model = model }
}

// WithMaxSteps caps provider requests per message.
func WithMaxSteps(n int) Option {
	return func(s *Studio) { s.maxSteps = n }
}

// WithClock sets the time source for streaming throttles.
func WithClock(c deck.Clock) Option {
	return func(s *Studio) { s.clock = c }
}

// WithThrottleInterval overrides the spacing of streamed content commits.
func WithThrottleInterval(d time.Duration) Option {
	return func(s *Studio) { s.interval = d }
}

// WithIDGenerator sets how chat and infographic ids are minted.
func WithIDGenerator(fn func() string) Option {
	return func(s *Studio) { s.newID = fn }
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Studio) { s.logger = l }
}

// WithMeter sets the meter passed to each session's reconciler.
func WithMeter(m metric.Meter) Option {
	return func(s *Studio) { s.meter = m }
}

// New returns a Studio.
func New(slides deck.SlideService, chats deck.ChatService, provider deck.Provider, opts ...Option) *Studio {
	s := &Studio{
		slides:   slides,
		chats:    chats,
		provider: provider,
		clock:    deck.SystemClock(),
		newID:    uuid.NewString,
		logger:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create persists a new empty slide together with its chat.
func (s *Studio) Create(ctx context.Context, title string) (*deck.Slide, error) {
	now := s.clock.Now()
	chat := &deck.Chat{
		ID:           s.newID(),
		Title:        title,
		SystemPrompt: builtin.SystemPrompt(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.chats.SaveChat(ctx, chat); err != nil {
		return nil, fmt.Errorf("studio: save chat: %w", err)
	}
	slide := &deck.Slide{
		ID:        s.newID(),
		ChatID:    chat.ID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.slides.CreateSlide(ctx, slide); err != nil {
		return nil, fmt.Errorf("studio: create slide: %w", err)
	}
	return slide, nil
}

// Open loads a slide and its chat, creating the chat when the slide has
// none, and returns a Session for it.
func (s *Studio) Open(ctx context.Context, slideID string) (*Session, error) {
	slide, err := s.slides.FindSlideByID(ctx, slideID)
	if err != nil {
		return nil, fmt.Errorf("studio: find slide %s: %w", slideID, err)
	}
	chat, err := s.chat(ctx, slide)
	if err != nil {
		return nil, err
	}
	return newSession(s, *slide, chat), nil
}

func (s *Studio) chat(ctx context.Context, slide *deck.Slide) (*deck.Chat, error) {
	if slide.ChatID != "" {
		chat, err := s.chats.FindChatByID(ctx, slide.ChatID)
		switch {
		case err == nil:
			if chat.SystemPrompt == "" {
				chat.SystemPrompt = builtin.SystemPrompt()
			}
			return chat, nil
		case !errors.Is(err, deck.ErrNotFound):
			return nil, fmt.Errorf("studio: find chat %s: %w", slide.ChatID, err)
		}
		s.logger.WithField("chat_id", slide.ChatID).Warn("studio: chat missing, starting a new one")
	}

	now := s.clock.Now()
	chat := &deck.Chat{
		ID:           s.newID(),
		Title:        slide.Title,
		SystemPrompt: builtin.SystemPrompt(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.chats.SaveChat(ctx, chat); err != nil {
		return nil, fmt.Errorf("studio: save chat: %w", err)
	}
	slide.ChatID = chat.ID
	if err := s.slides.UpdateSlide(ctx, slide); err != nil {
		return nil, fmt.Errorf("studio: link chat: %w", err)
	}
	return chat, nil
}
