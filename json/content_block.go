package json

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/fwojciec/deck"
)

const (
	blockText     = "text"
	blockThinking = "thinking"
	blockImage    = "image"
	blockToolCall = "tool_call"
)

// contentBlock is one flattened content block. Type selects which of the
// remaining fields are meaningful; binary fields travel as base64.
type contentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	Thinking  string          `json:"thinking,omitempty"`
	Signature string          `json:"signature,omitempty"`
	Data      string          `json:"data,omitempty"`
	MimeType  string          `json:"mime_type,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

func encodeBlocks(blocks []deck.ContentBlock) ([]contentBlock, error) {
	out := make([]contentBlock, 0, len(blocks))
	for i, b := range blocks {
		var cb contentBlock
		switch b := b.(type) {
		case deck.TextBlock:
			cb = contentBlock{Type: blockText, Text: b.Text}
		case deck.ThinkingBlock:
			cb = contentBlock{Type: blockThinking, Thinking: b.Thinking, Signature: encode64(b.Signature)}
		case deck.ImageBlock:
			cb = contentBlock{Type: blockImage, Data: encode64(b.Data), MimeType: b.MimeType}
		case deck.ToolCallBlock:
			cb = contentBlock{
				Type:      blockToolCall,
				ID:        b.ID,
				Name:      b.Name,
				Arguments: b.Arguments,
				Signature: encode64(b.Signature),
			}
		default:
			return nil, fmt.Errorf("content block %d: unknown type %T", i, b)
		}
		out = append(out, cb)
	}
	return out, nil
}

func decodeBlocks(in []contentBlock) ([]deck.ContentBlock, error) {
	out := make([]deck.ContentBlock, 0, len(in))
	for i, cb := range in {
		b, err := cb.decode()
		if err != nil {
			return nil, fmt.Errorf("content block %d: %w", i, err)
		}
		out = append(out, b)
	}
	return out, nil
}

func (cb contentBlock) decode() (deck.ContentBlock, error) {
	switch cb.Type {
	case blockText:
		return deck.TextBlock{Text: cb.Text}, nil
	case blockThinking:
		sig, err := decode64("thinking signature", cb.Signature)
		if err != nil {
			return nil, err
		}
		return deck.ThinkingBlock{Thinking: cb.Thinking, Signature: sig}, nil
	case blockImage:
		data, err := decode64("image data", cb.Data)
		if err != nil {
			return nil, err
		}
		return deck.ImageBlock{Data: data, MimeType: cb.MimeType}, nil
	case blockToolCall:
		sig, err := decode64("tool call signature", cb.Signature)
		if err != nil {
			return nil, err
		}
		var args json.RawMessage
		if len(cb.Arguments) > 0 {
			// Indented envelopes re-indent nested raw values.
			var buf bytes.Buffer
			if err := json.Compact(&buf, cb.Arguments); err != nil {
				return nil, fmt.Errorf("compact tool call arguments: %w", err)
			}
			args = buf.Bytes()
		}
		return deck.ToolCallBlock{ID: cb.ID, Name: cb.Name, Arguments: args, Signature: sig}, nil
	}
	return nil, fmt.Errorf("unknown content block type: %q", cb.Type)
}

func encode64(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(b)
}

func decode64(what, s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", what, err)
	}
	return b, nil
}
