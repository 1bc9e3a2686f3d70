package anthropic

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fwojciec/deck"
	"github.com/tidwall/gjson"
)

// Interface compliance check.
var _ deck.Stream = (*stream)(nil)

// stream implements [deck.Stream] over an SSE response body.
type stream struct {
	ctx     context.Context
	body    io.ReadCloser
	scanner *bufio.Scanner
	state   deck.StreamState
	msg     deck.AssistantMessage
	blocks  map[int64]*block
	err     error
}

// block accumulates one content block by its stream index.
type block struct {
	kind string
	id   string
	name string
	buf  strings.Builder
	sig  []byte
	pos  int
}

func newStream(ctx context.Context, body io.ReadCloser) *stream {
	sc := bufio.NewScanner(body)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &stream{
		ctx:     ctx,
		body:    body,
		scanner: sc,
		state:   deck.StreamStateNew,
		blocks:  make(map[int64]*block),
	}
}

// Next returns the next semantic event, or io.EOF after message_stop.
func (s *stream) Next() (deck.Event, error) {
	switch s.state {
	case deck.StreamStateComplete:
		return nil, io.EOF
	case deck.StreamStateError:
		return nil, s.err
	case deck.StreamStateClosed:
		return nil, deck.ErrStreamClosed
	}

	for {
		name, data, err := s.read()
		if err != nil {
			s.fail(err)
			return nil, s.err
		}
		s.state = deck.StreamStateStreaming

		evt, err := s.handle(name, gjson.Parse(data))
		if err != nil {
			s.fail(err)
			return nil, s.err
		}
		if s.state == deck.StreamStateComplete {
			return nil, io.EOF
		}
		if evt != nil {
			return evt, nil
		}
	}
}

// State returns the current stream state.
func (s *stream) State() deck.StreamState { return s.state }

// Message returns the message assembled so far.
func (s *stream) Message() (deck.AssistantMessage, error) {
	if s.state == deck.StreamStateNew {
		return deck.AssistantMessage{}, deck.ErrStreamNotReady
	}
	return s.msg, nil
}

// Close releases the response body. Closing before completion marks the
// message aborted.
func (s *stream) Close() error {
	if !s.state.Finished() {
		s.state = deck.StreamStateClosed
		s.msg.StopReason = deck.StopAborted
		s.msg.RawStopReason = "aborted"
	}
	return s.body.Close()
}

func (s *stream) fail(err error) {
	s.state = deck.StreamStateError
	switch {
	case errors.Is(err, io.EOF):
		s.err = errors.New("anthropic: unexpected end of stream")
	case s.ctx.Err() != nil:
		s.err = err
		s.msg.StopReason = deck.StopAborted
		s.msg.RawStopReason = "aborted"
		return
	default:
		s.err = err
	}
	s.msg.StopReason = deck.StopError
	s.msg.RawStopReason = "error"
}

// read returns the next SSE event name and data payload.
func (s *stream) read() (string, string, error) {
	var name string
	var data strings.Builder
	for s.scanner.Scan() {
		line := s.scanner.Text()
		if line == "" {
			if data.Len() > 0 {
				return name, data.String(), nil
			}
			continue
		}
		if v, ok := strings.CutPrefix(line, "event: "); ok {
			name = v
		} else if v, ok := strings.CutPrefix(line, "data: "); ok {
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(v)
		}
	}
	if err := s.scanner.Err(); err != nil {
		return "", "", fmt.Errorf("anthropic: %w", err)
	}
	if data.Len() > 0 {
		return name, data.String(), nil
	}
	return "", "", io.EOF
}

// handle applies one event; it returns nil for events with no semantic
// counterpart such as ping.
func (s *stream) handle(name string, data gjson.Result) (deck.Event, error) {
	switch name {
	case "message_start":
		s.usage(data.Get("message.usage"))
	case "content_block_start":
		return s.start(data)
	case "content_block_delta":
		return s.delta(data)
	case "content_block_stop":
		return s.stop(data)
	case "message_delta":
		s.usage(data.Get("usage"))
		if reason := data.Get("delta.stop_reason"); reason.Type == gjson.String {
			s.msg.RawStopReason = reason.String()
			s.msg.StopReason = stopReason(reason.String())
		}
	case "message_stop":
		s.state = deck.StreamStateComplete
	case "error":
		return nil, fmt.Errorf("anthropic: %s: %s", data.Get("error.type").String(), data.Get("error.message").String())
	}
	return nil, nil
}

// usage merges the counters present in u; absent and null fields keep
// their previous values.
func (s *stream) usage(u gjson.Result) {
	set := func(path string, dst *int) {
		if v := u.Get(path); v.Type == gjson.Number {
			*dst = int(v.Int())
		}
	}
	set("input_tokens", &s.msg.Usage.InputTokens)
	set("output_tokens", &s.msg.Usage.OutputTokens)
	set("cache_read_input_tokens", &s.msg.Usage.CacheReadTokens)
	set("cache_creation_input_tokens", &s.msg.Usage.CacheWriteTokens)
}

func (s *stream) start(data gjson.Result) (deck.Event, error) {
	cb := data.Get("content_block")
	b := &block{
		kind: cb.Get("type").String(),
		id:   cb.Get("id").String(),
		name: cb.Get("name").String(),
		pos:  len(s.msg.Content),
	}
	s.blocks[data.Get("index").Int()] = b

	switch b.kind {
	case "tool_use":
		s.msg.Content = append(s.msg.Content, deck.ToolCallBlock{ID: b.id, Name: b.name})
		return deck.EventToolCallBegin{ID: b.id, Name: b.name}, nil
	case "text":
		s.msg.Content = append(s.msg.Content, deck.TextBlock{})
	case "thinking":
		s.msg.Content = append(s.msg.Content, deck.ThinkingBlock{})
	default:
		b.pos = -1
	}
	return nil, nil
}

func (s *stream) delta(data gjson.Result) (deck.Event, error) {
	index := data.Get("index").Int()
	b := s.blocks[index]
	if b == nil {
		return nil, fmt.Errorf("anthropic: delta for unknown block index %d", index)
	}
	d := data.Get("delta")
	switch d.Get("type").String() {
	case "text_delta":
		text := d.Get("text").String()
		b.buf.WriteString(text)
		s.msg.Content[b.pos] = deck.TextBlock{Text: b.buf.String()}
		return deck.EventTextDelta{Delta: text}, nil
	case "thinking_delta":
		text := d.Get("thinking").String()
		b.buf.WriteString(text)
		s.msg.Content[b.pos] = deck.ThinkingBlock{Thinking: b.buf.String(), Signature: b.sig}
		return deck.EventThinkingDelta{Delta: text}, nil
	case "signature_delta":
		b.sig = append(b.sig, d.Get("signature").String()...)
		s.msg.Content[b.pos] = deck.ThinkingBlock{Thinking: b.buf.String(), Signature: b.sig}
	case "input_json_delta":
		partial := d.Get("partial_json").String()
		b.buf.WriteString(partial)
		return deck.EventToolCallDelta{ID: b.id, Delta: partial}, nil
	}
	return nil, nil
}

func (s *stream) stop(data gjson.Result) (deck.Event, error) {
	index := data.Get("index").Int()
	b := s.blocks[index]
	if b == nil {
		return nil, fmt.Errorf("anthropic: stop for unknown block index %d", index)
	}
	if b.kind != "tool_use" {
		return nil, nil
	}
	args := b.buf.String()
	if args == "" {
		args = "{}"
	}
	call := deck.ToolCallBlock{ID: b.id, Name: b.name, Arguments: json.RawMessage(args)}
	s.msg.Content[b.pos] = call
	return deck.EventToolCallEnd{Call: call}, nil
}

func stopReason(raw string) deck.StopReason {
	switch raw {
	case "end_turn", "stop_sequence":
		return deck.StopEndTurn
	case "max_tokens":
		return deck.StopLength
	case "tool_use":
		return deck.StopToolUse
	default:
		return deck.StopUnknown
	}
}
