package json

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fwojciec/deck"
)

// chatEnvelope is the v1 wire format for a persisted chat.
type chatEnvelope struct {
	Version      int          `json:"version"`
	ID           string       `json:"id"`
	Title        string       `json:"title,omitempty"`
	SystemPrompt string       `json:"system_prompt"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	Messages     []messageRecord `json:"messages"`
}

func newChatEnvelope(c deck.Chat) (chatEnvelope, error) {
	env := chatEnvelope{
		Version:      version,
		ID:           c.ID,
		Title:        c.Title,
		SystemPrompt: c.SystemPrompt,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
		Messages:     make([]messageRecord, len(c.Messages)),
	}
	for i, msg := range c.Messages {
		rec, err := encodeMessage(msg)
		if err != nil {
			return chatEnvelope{}, fmt.Errorf("message %d: %w", i, err)
		}
		env.Messages[i] = rec
	}
	return env, nil
}

func (env chatEnvelope) chat() (deck.Chat, error) {
	if err := checkVersion(env.Version); err != nil {
		return deck.Chat{}, err
	}
	msgs := make([]deck.Message, len(env.Messages))
	for i, rec := range env.Messages {
		msg, err := rec.decode()
		if err != nil {
			return deck.Chat{}, fmt.Errorf("message %d: %w", i, err)
		}
		msgs[i] = msg
	}
	return deck.Chat{
		ID:           env.ID,
		Title:        env.Title,
		SystemPrompt: env.SystemPrompt,
		CreatedAt:    env.CreatedAt,
		UpdatedAt:    env.UpdatedAt,
		Messages:     msgs,
	}, nil
}

// MarshalChat serializes a Chat in v1 envelope format.
func MarshalChat(c deck.Chat) ([]byte, error) {
	env, err := newChatEnvelope(c)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(env, "", "  ")
}

// UnmarshalChat deserializes a Chat from v1 envelope format.
func UnmarshalChat(data []byte) (deck.Chat, error) {
	var env chatEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return deck.Chat{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	return env.chat()
}

// Save writes a Chat to a JSON file.
func Save(path string, c deck.Chat) error {
	data, err := MarshalChat(c)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return writeFile(path, data)
}

// Load reads a Chat from a JSON file.
func Load(path string) (deck.Chat, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return deck.Chat{}, fmt.Errorf("read file: %w", err)
	}
	return UnmarshalChat(data)
}
