package json

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fwojciec/deck"
)

type infographicDTO struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

type slideDTO struct {
	ID           string           `json:"id"`
	Title        string           `json:"title"`
	Position     int              `json:"position"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	Infographics []infographicDTO `json:"infographics"`
}

// deckEnvelope is the v1 export format: one slide and, optionally, the chat
// it was generated from.
type deckEnvelope struct {
	Version int           `json:"version"`
	Slide   slideDTO      `json:"slide"`
	Chat    *chatEnvelope `json:"chat,omitempty"`
}

func newInfographicDTOs(igs []deck.Infographic) []infographicDTO {
	out := make([]infographicDTO, len(igs))
	for i, ig := range igs {
		out[i] = infographicDTO{ID: ig.ID, Content: ig.Content}
	}
	return out
}

func infographics(dtos []infographicDTO) []deck.Infographic {
	out := make([]deck.Infographic, len(dtos))
	for i, dto := range dtos {
		out[i] = deck.Infographic{ID: dto.ID, Content: dto.Content}
	}
	return out
}

// MarshalInfographics encodes an ordered infographic list.
func MarshalInfographics(igs []deck.Infographic) ([]byte, error) {
	return json.Marshal(newInfographicDTOs(igs))
}

// UnmarshalInfographics decodes a list written by [MarshalInfographics].
// Empty input yields an empty list.
func UnmarshalInfographics(data []byte) ([]deck.Infographic, error) {
	if len(data) == 0 {
		return []deck.Infographic{}, nil
	}
	var dtos []infographicDTO
	if err := json.Unmarshal(data, &dtos); err != nil {
		return nil, fmt.Errorf("unmarshal infographics: %w", err)
	}
	return infographics(dtos), nil
}

// MarshalSlide serializes a slide and, when chat is non-nil, its chat in
// the v1 export format. The chat link is implied by nesting.
func MarshalSlide(s deck.Slide, chat *deck.Chat) ([]byte, error) {
	env := deckEnvelope{
		Version: version,
		Slide: slideDTO{
			ID:           s.ID,
			Title:        s.Title,
			Position:     s.Position,
			CreatedAt:    s.CreatedAt,
			UpdatedAt:    s.UpdatedAt,
			Infographics: newInfographicDTOs(s.Infographics),
		},
	}
	if chat != nil {
		ce, err := newChatEnvelope(*chat)
		if err != nil {
			return nil, fmt.Errorf("chat: %w", err)
		}
		env.Chat = &ce
	}
	return json.MarshalIndent(env, "", "  ")
}

// UnmarshalSlide deserializes an export. The returned chat is nil when the
// export carries none. The slide is validated.
func UnmarshalSlide(data []byte) (deck.Slide, *deck.Chat, error) {
	var env deckEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return deck.Slide{}, nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if err := checkVersion(env.Version); err != nil {
		return deck.Slide{}, nil, err
	}
	s := deck.Slide{
		ID:           env.Slide.ID,
		Title:        env.Slide.Title,
		Position:     env.Slide.Position,
		CreatedAt:    env.Slide.CreatedAt,
		UpdatedAt:    env.Slide.UpdatedAt,
		Infographics: infographics(env.Slide.Infographics),
	}
	if err := s.Validate(); err != nil {
		return deck.Slide{}, nil, err
	}
	if env.Chat == nil {
		return s, nil, nil
	}
	c, err := env.Chat.chat()
	if err != nil {
		return deck.Slide{}, nil, fmt.Errorf("chat: %w", err)
	}
	s.ChatID = c.ID
	return s, &c, nil
}

// ExportSlide writes a slide, and optionally its chat, to a deck file.
func ExportSlide(path string, s deck.Slide, chat *deck.Chat) error {
	data, err := MarshalSlide(s, chat)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return writeFile(path, data)
}

// ImportSlide reads a deck file written by [ExportSlide].
func ImportSlide(path string) (deck.Slide, *deck.Chat, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return deck.Slide{}, nil, fmt.Errorf("read file: %w", err)
	}
	return UnmarshalSlide(data)
}
