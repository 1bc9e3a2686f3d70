package gorm

import (
	"context"
	"errors"
	"fmt"

	"github.com/fwojciec/deck"
	deckjson "github.com/fwojciec/deck/json"
	"gorm.io/gorm"
)

// FindChatByID returns the chat with its messages in order.
func (d *DB) FindChatByID(ctx context.Context, id string) (*deck.Chat, error) {
	db := d.db.WithContext(ctx)
	var row chatRow
	err := db.First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("gorm: chat %q: %w", id, deck.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("gorm: find chat: %w", err)
	}
	var msgs []messageRow
	if err := db.Where("chat_id = ?", id).Order("seq ASC").Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("gorm: find messages: %w", err)
	}
	c := row.chat()
	c.Messages = make([]deck.Message, 0, len(msgs))
	for _, m := range msgs {
		msg, err := deckjson.UnmarshalMessage([]byte(m.Data))
		if err != nil {
			return nil, fmt.Errorf("gorm: chat %q message %d: %w", id, m.Seq, err)
		}
		c.Messages = append(c.Messages, msg)
	}
	return c, nil
}

// ListChats returns chats most recently updated first, without messages.
func (d *DB) ListChats(ctx context.Context) ([]*deck.Chat, error) {
	var rows []chatRow
	if err := d.db.WithContext(ctx).Order("updated_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("gorm: list chats: %w", err)
	}
	chats := make([]*deck.Chat, len(rows))
	for i, row := range rows {
		chats[i] = row.chat()
	}
	return chats, nil
}

// SaveChat inserts or replaces a chat and its full message history.
func (d *DB) SaveChat(ctx context.Context, c *deck.Chat) error {
	if c.ID == "" {
		return fmt.Errorf("chat id required: %w", deck.ErrValidation)
	}
	msgs := make([]messageRow, len(c.Messages))
	for i, m := range c.Messages {
		data, err := deckjson.MarshalMessage(m)
		if err != nil {
			return fmt.Errorf("gorm: encode message %d: %w", i, err)
		}
		msgs[i] = messageRow{ChatID: c.ID, Seq: i, Role: string(m.Role()), Data: string(data)}
	}

	now := d.now()
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing chatRow
		err := tx.First(&existing, "id = ?", c.ID).Error
		switch {
		case err == nil:
			c.CreatedAt = existing.CreatedAt
		case errors.Is(err, gorm.ErrRecordNotFound):
			if c.CreatedAt.IsZero() {
				c.CreatedAt = now
			}
		default:
			return fmt.Errorf("gorm: save chat: %w", err)
		}
		c.UpdatedAt = now

		row := chatRow{
			ID:           c.ID,
			Title:        c.Title,
			SystemPrompt: c.SystemPrompt,
			CreatedAt:    c.CreatedAt,
			UpdatedAt:    c.UpdatedAt,
		}
		if err := tx.Save(&row).Error; err != nil {
			return fmt.Errorf("gorm: save chat: %w", err)
		}
		if err := tx.Where("chat_id = ?", c.ID).Delete(&messageRow{}).Error; err != nil {
			return fmt.Errorf("gorm: clear messages: %w", err)
		}
		if len(msgs) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(msgs, 100).Error; err != nil {
			return fmt.Errorf("gorm: save messages: %w", err)
		}
		return nil
	})
}

// DeleteChat removes a chat and its messages.
func (d *DB) DeleteChat(ctx context.Context, id string) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("chat_id = ?", id).Delete(&messageRow{}).Error; err != nil {
			return fmt.Errorf("gorm: delete messages: %w", err)
		}
		res := tx.Where("id = ?", id).Delete(&chatRow{})
		if res.Error != nil {
			return fmt.Errorf("gorm: delete chat: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("gorm: chat %q: %w", id, deck.ErrNotFound)
		}
		return nil
	})
}

func (row chatRow) chat() *deck.Chat {
	return &deck.Chat{
		ID:           row.ID,
		Title:        row.Title,
		SystemPrompt: row.SystemPrompt,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}
