package mock

import (
	"io"

	"github.com/fwojciec/deck"
)

// Interface compliance check.
var _ deck.Stream = (*Stream)(nil)

// Stream is a test double for deck.Stream.
// NextFn and MessageFn panic when nil to catch missing setup. CloseFn and
// StateFn are nil-safe because test code commonly defers Close.
type Stream struct {
	NextFn    func() (deck.Event, error)
	StateFn   func() deck.StreamState
	MessageFn func() (deck.AssistantMessage, error)
	CloseFn   func() error
}

// Next delegates to NextFn.
func (s *Stream) Next() (deck.Event, error) {
	return s.NextFn()
}

// State delegates to StateFn. Returns StreamStateNew when StateFn is nil.
func (s *Stream) State() deck.StreamState {
	if s.StateFn == nil {
		return deck.StreamStateNew
	}
	return s.StateFn()
}

// Message delegates to MessageFn.
func (s *Stream) Message() (deck.AssistantMessage, error) {
	return s.MessageFn()
}

// Close delegates to CloseFn. Returns nil when CloseFn is not set.
func (s *Stream) Close() error {
	if s.CloseFn == nil {
		return nil
	}
	return s.CloseFn()
}

// NewStream returns a Stream that yields events in order, then io.EOF,
// and reports msg as the assembled message.
func NewStream(msg deck.AssistantMessage, events ...deck.Event) *Stream {
	i := 0
	state := deck.StreamStateNew
	return &Stream{
		NextFn: func() (deck.Event, error) {
			if i >= len(events) {
				state = deck.StreamStateComplete
				return nil, io.EOF
			}
			state = deck.StreamStateStreaming
			e := events[i]
			i++
			return e, nil
		},
		StateFn: func() deck.StreamState { return state },
		MessageFn: func() (deck.AssistantMessage, error) {
			return msg, nil
		},
	}
}
