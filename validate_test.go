package deck_test

import (
	"encoding/json"
	"testing"

	"github.com/fwojciec/deck"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userText(s string) deck.Message {
	return deck.UserMessage{Content: []deck.ContentBlock{deck.TextBlock{Text: s}}}
}

func temp(v float64) *float64 { return &v }

func TestRequest_Validate(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		req  deck.Request
		want string
	}{
		"defaults": {req: deck.Request{Messages: []deck.Message{userText("hi")}}},
		"all fields": {req: deck.Request{
			Model:        "claude-sonnet-4-5",
			SystemPrompt: "You design infographics.",
			Messages:     []deck.Message{userText("a roadmap")},
			Tools:        []deck.Tool{{Name: deck.ToolNameCreate}, {Name: deck.ToolNameEdit}},
			MaxTokens:    4096,
			Temperature:  temp(1),
		}},
		"temperature 0":         {req: deck.Request{Temperature: temp(0)}},
		"temperature 2":         {req: deck.Request{Temperature: temp(2)}},
		"temperature below 0":   {req: deck.Request{Temperature: temp(-0.1)}, want: "temperature"},
		"temperature above 2":   {req: deck.Request{Temperature: temp(2.1)}, want: "temperature"},
		"negative max_tokens":   {req: deck.Request{MaxTokens: -1}, want: "max_tokens"},
		"duplicate tool":        {req: deck.Request{Tools: []deck.Tool{{Name: deck.ToolNameCreate}, {Name: deck.ToolNameCreate}}}, want: "duplicate tool"},
		"nameless tool":         {req: deck.Request{Tools: []deck.Tool{{Description: "nameless"}}}, want: "tool name required"},
		"invalid second message": {
			req: deck.Request{Messages: []deck.Message{
				userText("hi"),
				deck.AssistantMessage{Content: []deck.ContentBlock{deck.ToolCallBlock{Name: deck.ToolNameCreate}}},
			}},
			want: "message 1",
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			err := tt.req.Validate()
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, deck.ErrValidation)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateMessage(t *testing.T) {
	t.Parallel()

	var (
		text     = deck.TextBlock{Text: "hello"}
		thinking = deck.ThinkingBlock{Thinking: "hmm"}
		image    = deck.ImageBlock{Data: []byte{0x89}, MimeType: "image/png"}
		call     = deck.ToolCallBlock{ID: "tc_1", Name: deck.ToolNameCreate, Arguments: json.RawMessage(`{}`)}
	)
	result := func(blocks ...deck.ContentBlock) deck.ToolResultMessage {
		return deck.ToolResultMessage{ToolCallID: "tc_1", ToolName: deck.ToolNameCreate, Content: blocks}
	}

	tests := map[string]struct {
		msg  deck.Message
		want []string
	}{
		"user text":              {msg: deck.UserMessage{Content: []deck.ContentBlock{text}}},
		"user image":             {msg: deck.UserMessage{Content: []deck.ContentBlock{image}}},
		"user empty":             {msg: deck.UserMessage{}},
		"user tool call":         {msg: deck.UserMessage{Content: []deck.ContentBlock{call}}, want: []string{"ToolCallBlock", "user"}},
		"user thinking":          {msg: deck.UserMessage{Content: []deck.ContentBlock{thinking}}, want: []string{"ThinkingBlock", "user"}},
		"assistant mixed":        {msg: deck.AssistantMessage{Content: []deck.ContentBlock{thinking, text, call}}},
		"assistant empty":        {msg: deck.AssistantMessage{}},
		"assistant image":        {msg: deck.AssistantMessage{Content: []deck.ContentBlock{image}}, want: []string{"ImageBlock", "assistant"}},
		"assistant unnamed call": {msg: deck.AssistantMessage{Content: []deck.ContentBlock{deck.ToolCallBlock{ID: "tc_1"}}}, want: []string{"id and a name"}},
		"result text and image":  {msg: result(text, image)},
		"result empty":           {msg: result()},
		"result tool call":       {msg: result(call), want: []string{"ToolCallBlock", "tool_result"}},
		"result thinking":        {msg: result(thinking), want: []string{"ThinkingBlock", "tool_result"}},
		"result without call id": {msg: deck.ToolResultMessage{ToolName: deck.ToolNameCreate}, want: []string{"call id"}},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			err := deck.ValidateMessage(tt.msg)
			if len(tt.want) == 0 {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, deck.ErrValidation)
			for _, w := range tt.want {
				assert.Contains(t, err.Error(), w)
			}
		})
	}
}
