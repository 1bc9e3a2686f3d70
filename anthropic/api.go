// Package anthropic implements [deck.Provider] for the Anthropic Messages API.
//
// Responses arrive as server-sent events. Each event payload is read with
// gjson, and tool_use input fragments are forwarded unchanged as
// [deck.EventToolCallDelta] so slides can render while arguments stream.
package anthropic

import "encoding/json"

const (
	defaultBaseURL   = "https://api.anthropic.com"
	defaultModel     = "claude-sonnet-4-20250514"
	defaultMaxTokens = 8192
	apiVersion       = "2023-06-01"
	messagesPath     = "/v1/messages"
)

// cacheControl marks a prompt caching breakpoint.
type cacheControl struct {
	Type string `json:"type"`
}

var ephemeral = &cacheControl{Type: "ephemeral"}

type apiRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream"`
	System      []apiBlock    `json:"system,omitempty"`
	Messages    []apiMessage  `json:"messages"`
	Tools       []apiTool     `json:"tools,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
	Cache       *cacheControl `json:"cache_control,omitempty"`
}

type apiMessage struct {
	Role    string     `json:"role"`
	Content []apiBlock `json:"content"`
}

// apiBlock is a request content block; Type selects the populated fields.
type apiBlock struct {
	Type string `json:"type"`

	Text      string `json:"text,omitempty"`
	Thinking  string `json:"thinking,omitempty"`
	Signature string `json:"signature,omitempty"`

	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	ToolUseID string     `json:"tool_use_id,omitempty"`
	Content   []apiBlock `json:"content,omitempty"`
	IsError   bool       `json:"is_error,omitempty"`

	Source *apiImage `json:"source,omitempty"`

	Cache *cacheControl `json:"cache_control,omitempty"`
}

type apiImage struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type apiTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
	Cache       *cacheControl   `json:"cache_control,omitempty"`
}
