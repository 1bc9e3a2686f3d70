package anthropic_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fwojciec/deck"
	"github.com/fwojciec/deck/anthropic"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

type sseEvent struct {
	name string
	data string
}

const messageStart = `{"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","content":[],"model":"claude-sonnet-4-20250514","stop_reason":null,"usage":{"input_tokens":12,"output_tokens":1}}}`

func endTurn(reason string, outputTokens int) []sseEvent {
	return []sseEvent{
		{"message_delta", fmt.Sprintf(`{"type":"message_delta","delta":{"stop_reason":%q},"usage":{"output_tokens":%d}}`, reason, outputTokens)},
		{"message_stop", `{"type":"message_stop"}`},
	}
}

// recorded is the last request a test server received.
type recorded struct {
	body   []byte
	header http.Header
}

// serve writes events as an SSE response and records the request.
func serve(t *testing.T, rec *recorded, events ...sseEvent) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rec != nil {
			rec.body, _ = io.ReadAll(r.Body)
			rec.header = r.Header.Clone()
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Request-Id", "req_1")
		w.WriteHeader(http.StatusOK)
		flusher, _ := w.(http.Flusher)
		for _, e := range events {
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.name, e.data)
			if flusher != nil {
				flusher.Flush()
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newClient(srv *httptest.Server, opts ...anthropic.Option) *anthropic.Client {
	logger, _ := logtest.NewNullLogger()
	return anthropic.New("test-key", append([]anthropic.Option{
		anthropic.WithBaseURL(srv.URL),
		anthropic.WithLogger(logger),
	}, opts...)...)
}

func hello() deck.Request {
	return deck.Request{Messages: []deck.Message{
		deck.UserMessage{Content: []deck.ContentBlock{deck.TextBlock{Text: "Hi"}}},
	}}
}

func open(t *testing.T, events ...sseEvent) deck.Stream {
	t.Helper()
	s, err := newClient(serve(t, nil, events...)).Stream(context.Background(), hello())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func drain(t *testing.T, s deck.Stream) []deck.Event {
	t.Helper()
	var events []deck.Event
	for {
		evt, err := s.Next()
		if err == io.EOF {
			return events
		}
		require.NoError(t, err)
		events = append(events, evt)
	}
}
