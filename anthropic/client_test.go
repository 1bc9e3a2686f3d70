package anthropic_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fwojciec/deck"
	"github.com/fwojciec/deck/anthropic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestClient_Request(t *testing.T) {
	t.Parallel()

	t.Run("wire format", func(t *testing.T) {
		t.Parallel()

		var rec recorded
		srv := serve(t, &rec, sseEvent{"message_start", messageStart})

		temp := 0.2
		s, err := newClient(srv).Stream(context.Background(), deck.Request{
			Model:        "claude-opus-4-20250514",
			SystemPrompt: "Draw infographics.",
			Messages: []deck.Message{
				deck.UserMessage{Content: []deck.ContentBlock{deck.TextBlock{Text: "Goals"}}},
				deck.AssistantMessage{Content: []deck.ContentBlock{
					deck.ToolCallBlock{ID: "tu_1", Name: deck.ToolNameCreate, Arguments: json.RawMessage(`{"syntax":"infographic x"}`)},
				}},
				deck.ToolResultMessage{ToolCallID: "tu_1", Content: []deck.ContentBlock{deck.TextBlock{Text: `{"status":"created"}`}}},
			},
			Tools: []deck.Tool{
				{Name: deck.ToolNameCreate, Description: "create", Parameters: json.RawMessage(`{"type":"object"}`)},
				{Name: deck.ToolNameEdit, Description: "edit", Parameters: json.RawMessage(`{"type":"object"}`)},
			},
			MaxTokens:   1024,
			Temperature: &temp,
		})
		require.NoError(t, err)
		defer s.Close()

		assert.Equal(t, "test-key", rec.header.Get("X-Api-Key"))
		assert.Equal(t, "2023-06-01", rec.header.Get("Anthropic-Version"))

		doc := gjson.ParseBytes(rec.body)
		assert.Equal(t, "claude-opus-4-20250514", doc.Get("model").String())
		assert.Equal(t, int64(1024), doc.Get("max_tokens").Int())
		assert.True(t, doc.Get("stream").Bool())
		assert.InDelta(t, 0.2, doc.Get("temperature").Float(), 1e-9)
		assert.Equal(t, "Draw infographics.", doc.Get("system.0.text").String())
		assert.Equal(t, "ephemeral", doc.Get("system.0.cache_control.type").String())
		assert.Equal(t, "ephemeral", doc.Get("cache_control.type").String())

		assert.Equal(t, int64(3), doc.Get("messages.#").Int())
		assert.Equal(t, "tool_use", doc.Get("messages.1.content.0.type").String())
		assert.Equal(t, "infographic x", doc.Get("messages.1.content.0.input.syntax").String())
		assert.Equal(t, "user", doc.Get("messages.2.role").String())
		assert.Equal(t, "tu_1", doc.Get("messages.2.content.0.tool_use_id").String())

		assert.False(t, doc.Get("tools.0.cache_control").Exists())
		assert.Equal(t, "ephemeral", doc.Get("tools.1.cache_control.type").String())
	})

	t.Run("client defaults", func(t *testing.T) {
		t.Parallel()

		var rec recorded
		srv := serve(t, &rec, sseEvent{"message_start", messageStart})
		s, err := newClient(srv, anthropic.WithModel("claude-haiku"), anthropic.WithMaxTokens(256)).
			Stream(context.Background(), hello())
		require.NoError(t, err)
		defer s.Close()

		doc := gjson.ParseBytes(rec.body)
		assert.Equal(t, "claude-haiku", doc.Get("model").String())
		assert.Equal(t, int64(256), doc.Get("max_tokens").Int())
		assert.False(t, doc.Get("system").Exists())
		assert.False(t, doc.Get("tools").Exists())
	})

	t.Run("consecutive tool results share a user message", func(t *testing.T) {
		t.Parallel()

		var rec recorded
		srv := serve(t, &rec, sseEvent{"message_start", messageStart})
		s, err := newClient(srv).Stream(context.Background(), deck.Request{Messages: []deck.Message{
			deck.AssistantMessage{Content: []deck.ContentBlock{
				deck.ToolCallBlock{ID: "a", Name: deck.ToolNameDelete},
				deck.ToolCallBlock{ID: "b", Name: deck.ToolNameDelete},
			}},
			deck.ToolResultMessage{ToolCallID: "a"},
			deck.ToolResultMessage{ToolCallID: "b", IsError: true},
		}})
		require.NoError(t, err)
		defer s.Close()

		doc := gjson.ParseBytes(rec.body)
		require.Equal(t, int64(2), doc.Get("messages.#").Int())
		assert.Equal(t, "{}", doc.Get("messages.0.content.0.input").Raw)
		assert.Equal(t, int64(2), doc.Get("messages.1.content.#").Int())
		assert.True(t, doc.Get("messages.1.content.1.is_error").Bool())
	})
}

func TestClient_HTTPError(t *testing.T) {
	t.Parallel()

	t.Run("api error body", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
		}))
		t.Cleanup(srv.Close)

		_, err := newClient(srv).Stream(context.Background(), hello())
		require.Error(t, err)
		assert.Equal(t, "anthropic: rate_limit_error: slow down", err.Error())
	})

	t.Run("plain body", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("bad gateway"))
		}))
		t.Cleanup(srv.Close)

		_, err := newClient(srv).Stream(context.Background(), hello())
		require.Error(t, err)
		assert.Equal(t, "anthropic: HTTP 502: bad gateway", err.Error())
	})
}
