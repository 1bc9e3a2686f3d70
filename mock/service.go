package mock

import (
	"context"

	"github.com/fwojciec/deck"
)

// Interface compliance checks.
var (
	_ deck.SlideService = (*SlideService)(nil)
	_ deck.ChatService  = (*ChatService)(nil)
)

// SlideService is a test double for deck.SlideService.
type SlideService struct {
	FindSlideByIDFn func(ctx context.Context, id string) (*deck.Slide, error)
	ListSlidesFn    func(ctx context.Context) ([]*deck.Slide, error)
	CreateSlideFn   func(ctx context.Context, s *deck.Slide) error
	UpdateSlideFn   func(ctx context.Context, s *deck.Slide) error
	DeleteSlideFn   func(ctx context.Context, id string) error
}

func (s *SlideService) FindSlideByID(ctx context.Context, id string) (*deck.Slide, error) {
	return s.FindSlideByIDFn(ctx, id)
}

func (s *SlideService) ListSlides(ctx context.Context) ([]*deck.Slide, error) {
	return s.ListSlidesFn(ctx)
}

func (s *SlideService) CreateSlide(ctx context.Context, slide *deck.Slide) error {
	return s.CreateSlideFn(ctx, slide)
}

func (s *SlideService) UpdateSlide(ctx context.Context, slide *deck.Slide) error {
	return s.UpdateSlideFn(ctx, slide)
}

func (s *SlideService) DeleteSlide(ctx context.Context, id string) error {
	return s.DeleteSlideFn(ctx, id)
}

// ChatService is a test double for deck.ChatService.
type ChatService struct {
	FindChatByIDFn func(ctx context.Context, id string) (*deck.Chat, error)
	ListChatsFn    func(ctx context.Context) ([]*deck.Chat, error)
	SaveChatFn     func(ctx context.Context, c *deck.Chat) error
	DeleteChatFn   func(ctx context.Context, id string) error
}

func (s *ChatService) FindChatByID(ctx context.Context, id string) (*deck.Chat, error) {
	return s.FindChatByIDFn(ctx, id)
}

func (s *ChatService) ListChats(ctx context.Context) ([]*deck.Chat, error) {
	return s.ListChatsFn(ctx)
}

func (s *ChatService) SaveChat(ctx context.Context, c *deck.Chat) error {
	return s.SaveChatFn(ctx, c)
}

func (s *ChatService) DeleteChat(ctx context.Context, id string) error {
	return s.DeleteChatFn(ctx, id)
}
