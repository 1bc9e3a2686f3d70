package gorm

import "time"

type slideRow struct {
	ID           string `gorm:"primaryKey"`
	ChatID       string `gorm:"index"`
	Title        string
	Infographics string
	Position     int       `gorm:"index"`
	CreatedAt    time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime:false"`
}

func (slideRow) TableName() string { return "slides" }

type chatRow struct {
	ID           string `gorm:"primaryKey"`
	Title        string
	SystemPrompt string
	CreatedAt    time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt    time.Time `gorm:"index;autoUpdateTime:false"`
}

func (chatRow) TableName() string { return "chats" }

// messageRow holds one encoded message; Seq orders messages within a chat.
type messageRow struct {
	ID     uint   `gorm:"primaryKey;autoIncrement"`
	ChatID string `gorm:"index:idx_messages_chat_seq,priority:1;not null"`
	Seq    int    `gorm:"index:idx_messages_chat_seq,priority:2"`
	Role   string
	Data   string
}

func (messageRow) TableName() string { return "messages" }
