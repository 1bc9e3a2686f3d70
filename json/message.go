package json

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fwojciec/deck"
)

// messageRecord is one message of a chat. Role-specific fields are left
// empty for the roles that do not carry them.
type messageRecord struct {
	Type       string         `json:"type"`
	Content    []contentBlock `json:"content"`
	Timestamp  time.Time      `json:"timestamp"`
	StopReason string         `json:"stop_reason,omitempty"`
	RawStop    string         `json:"raw_stop_reason,omitempty"`
	Usage      *usageDTO      `json:"usage,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	ToolName   string         `json:"tool_name,omitempty"`
	IsError    bool           `json:"is_error,omitempty"`
}

// MarshalMessage encodes a single message. The gorm package stores chats
// one message per row in this form.
func MarshalMessage(msg deck.Message) ([]byte, error) {
	rec, err := encodeMessage(msg)
	if err != nil {
		return nil, err
	}
	return json.Marshal(rec)
}

// UnmarshalMessage decodes a message written by [MarshalMessage].
func UnmarshalMessage(data []byte) (deck.Message, error) {
	var rec messageRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal message: %w", err)
	}
	return rec.decode()
}

func encodeMessage(msg deck.Message) (messageRecord, error) {
	var (
		rec    messageRecord
		blocks []deck.ContentBlock
	)
	switch m := msg.(type) {
	case deck.UserMessage:
		rec = messageRecord{Type: string(deck.RoleUser), Timestamp: m.Timestamp}
		blocks = m.Content
	case deck.AssistantMessage:
		rec = messageRecord{
			Type:       string(deck.RoleAssistant),
			Timestamp:  m.Timestamp,
			StopReason: string(m.StopReason),
			RawStop:    m.RawStopReason,
		}
		if m.Usage != (deck.Usage{}) {
			rec.Usage = newUsageDTO(m.Usage)
		}
		blocks = m.Content
	case deck.ToolResultMessage:
		rec = messageRecord{
			Type:       string(deck.RoleToolResult),
			Timestamp:  m.Timestamp,
			ToolCallID: m.ToolCallID,
			ToolName:   m.ToolName,
			IsError:    m.IsError,
		}
		blocks = m.Content
	default:
		return messageRecord{}, fmt.Errorf("unknown message type: %T", msg)
	}
	content, err := encodeBlocks(blocks)
	if err != nil {
		return messageRecord{}, err
	}
	rec.Content = content
	return rec, nil
}

func (rec messageRecord) decode() (deck.Message, error) {
	blocks, err := decodeBlocks(rec.Content)
	if err != nil {
		return nil, err
	}
	switch deck.Role(rec.Type) {
	case deck.RoleUser:
		return deck.UserMessage{Content: blocks, Timestamp: rec.Timestamp}, nil
	case deck.RoleAssistant:
		msg := deck.AssistantMessage{
			Content:       blocks,
			StopReason:    deck.StopReason(rec.StopReason),
			RawStopReason: rec.RawStop,
			Timestamp:     rec.Timestamp,
		}
		if rec.Usage != nil {
			msg.Usage = rec.Usage.usage()
		}
		return msg, nil
	case deck.RoleToolResult:
		return deck.ToolResultMessage{
			ToolCallID: rec.ToolCallID,
			ToolName:   rec.ToolName,
			Content:    blocks,
			IsError:    rec.IsError,
			Timestamp:  rec.Timestamp,
		}, nil
	}
	return nil, fmt.Errorf("unknown message type: %q", rec.Type)
}
