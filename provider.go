package deck

import "context"

// StreamState is the position of a Stream in its lifecycle.
type StreamState int

const (
	StreamStateNew StreamState = iota
	StreamStateStreaming
	StreamStateComplete
	StreamStateError
	StreamStateClosed
)

// Finished reports whether the stream reached a terminal state on its own,
// either by completing or by failing.
func (s StreamState) Finished() bool {
	return s == StreamStateComplete || s == StreamStateError
}

// Stream yields the events of one model response. Next returns io.EOF after
// the last event. Cancellation flows through the context given to
// Provider.Stream.
//
// Message returns the assistant message assembled so far. It is complete in
// StreamStateComplete and partial otherwise; a failed stream reports
// StopError, a cancelled or closed one StopAborted. Before the first Next it
// returns ErrStreamNotReady. Close after a terminal state leaves that
// state's message in place.
type Stream interface {
	Next() (Event, error)
	State() StreamState
	Message() (AssistantMessage, error)
	Close() error
}

// Provider opens response streams against one LLM backend. Implementations
// must not mutate the slices shared through req.
type Provider interface {
	Stream(ctx context.Context, req Request) (Stream, error)
}

// Request is one model call. Zero values defer to the provider's defaults.
type Request struct {
	Model        string
	SystemPrompt string
	Messages     []Message
	Tools        []Tool
	MaxTokens    int
	Temperature  *float64
}
