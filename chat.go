package deck

import (
	"context"
	"fmt"
	"slices"
	"time"
)

// Chat is the conversation a slide is generated from.
type Chat struct {
	ID           string
	Title        string
	Messages     []Message
	SystemPrompt string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DeleteMessage removes the message at index i. Removing an assistant
// message also removes the tool results answering its calls, so the history
// stays acceptable to providers. Tool results cannot be removed on their own.
func (c *Chat) DeleteMessage(i int) error {
	if i < 0 || i >= len(c.Messages) {
		return fmt.Errorf("message %d: %w", i, ErrNotFound)
	}
	end := i + 1
	switch m := c.Messages[i].(type) {
	case ToolResultMessage:
		return fmt.Errorf("message %d is a tool result: %w", i, ErrValidation)
	case AssistantMessage:
		calls := make(map[string]bool)
		for _, tc := range m.ToolCalls() {
			calls[tc.ID] = true
		}
		for end < len(c.Messages) {
			tr, ok := c.Messages[end].(ToolResultMessage)
			if !ok || !calls[tr.ToolCallID] {
				break
			}
			end++
		}
	}
	c.Messages = slices.Delete(c.Messages, i, end)
	return nil
}

// ChatStatus is the lifecycle of one response in a chat.
type ChatStatus string

const (
	StatusSubmitted ChatStatus = "submitted"
	StatusStreaming ChatStatus = "streaming"
	StatusReady     ChatStatus = "ready"
	StatusError     ChatStatus = "error"
)

// Active reports whether a response is in flight.
func (s ChatStatus) Active() bool {
	return s == StatusSubmitted || s == StatusStreaming
}

// ChatService persists chats. Lookups of unknown ids return ErrNotFound.
type ChatService interface {
	FindChatByID(ctx context.Context, id string) (*Chat, error)
	ListChats(ctx context.Context) ([]*Chat, error)
	SaveChat(ctx context.Context, c *Chat) error
	DeleteChat(ctx context.Context, id string) error
}
