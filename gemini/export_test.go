package gemini

import (
	"context"
	"iter"

	"github.com/fwojciec/deck"
	"google.golang.org/genai"
)

// NewStream exposes the chunk decoder to tests.
func NewStream(ctx context.Context, seq iter.Seq2[*genai.GenerateContentResponse, error], newID func() string) deck.Stream {
	return newStream(ctx, seq, newID)
}

// Contents exposes message conversion to tests.
func Contents(msgs []deck.Message) []*genai.Content { return contents(msgs) }

// Tools exposes tool conversion to tests.
func Tools(ts []deck.Tool) []*genai.Tool { return tools(ts) }

// Config exposes request configuration to tests.
func Config(req deck.Request) *genai.GenerateContentConfig { return config(req) }
