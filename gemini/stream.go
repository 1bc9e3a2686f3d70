package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/fwojciec/deck"
	"google.golang.org/genai"
)

// Interface compliance check.
var _ deck.Stream = (*stream)(nil)

// stream implements [deck.Stream] over the SDK's push iterator. A chunk can
// carry several parts, so events decoded from one chunk wait in pending.
type stream struct {
	ctx     context.Context
	pull    func() (*genai.GenerateContentResponse, error, bool)
	stop    func()
	newID   func() string
	state   deck.StreamState
	msg     deck.AssistantMessage
	pending []deck.Event
	finish  genai.FinishReason
	err     error
}

func newStream(ctx context.Context, seq iter.Seq2[*genai.GenerateContentResponse, error], newID func() string) *stream {
	next, stop := iter.Pull2(seq)
	return &stream{
		ctx:   ctx,
		pull:  next,
		stop:  stop,
		newID: newID,
		state: deck.StreamStateNew,
	}
}

// Next returns the next semantic event, or io.EOF once the iterator is
// exhausted.
func (s *stream) Next() (deck.Event, error) {
	for {
		switch s.state {
		case deck.StreamStateComplete:
			return nil, io.EOF
		case deck.StreamStateError:
			return nil, s.err
		case deck.StreamStateClosed:
			return nil, deck.ErrStreamClosed
		}
		if len(s.pending) > 0 {
			evt := s.pending[0]
			s.pending = s.pending[1:]
			return evt, nil
		}

		chunk, err, ok := s.pull()
		if !ok {
			s.complete()
			continue
		}
		s.state = deck.StreamStateStreaming
		if err != nil {
			s.fail(fmt.Errorf("gemini: %w", err))
			continue
		}
		if err := s.handle(chunk); err != nil {
			s.fail(err)
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

// Close stops the underlying iterator. Closing before completion marks the
// message aborted.
func (s *stream) Close() error {
	if !s.state.Finished() {
		s.state = deck.StreamStateClosed
		s.msg.StopReason = deck.StopAborted
		s.msg.RawStopReason = "aborted"
	}
	s.stop()
	return nil
}

func (s *stream) fail(err error) {
	s.state = deck.StreamStateError
	s.err = err
	s.pending = nil
	if s.ctx.Err() != nil || errors.Is(err, context.Canceled) {
		s.msg.StopReason = deck.StopAborted
		s.msg.RawStopReason = "aborted"
		return
	}
	s.msg.StopReason = deck.StopError
	if s.msg.RawStopReason == "" {
		s.msg.RawStopReason = "error"
	}
}

func (s *stream) complete() {
	s.state = deck.StreamStateComplete
	s.msg.RawStopReason = string(s.finish)
	switch s.finish {
	case genai.FinishReasonStop, "":
		s.msg.StopReason = deck.StopEndTurn
		if s.hasCalls() {
			s.msg.StopReason = deck.StopToolUse
		}
	case genai.FinishReasonMaxTokens:
		s.msg.StopReason = deck.StopLength
	case genai.FinishReasonSafety, genai.FinishReasonRecitation, genai.FinishReasonBlocklist,
		genai.FinishReasonProhibitedContent, genai.FinishReasonSPII, genai.FinishReasonMalformedFunctionCall:
		s.msg.StopReason = deck.StopError
	default:
		s.msg.StopReason = deck.StopUnknown
	}
}

func (s *stream) hasCalls() bool {
	for _, b := range s.msg.Content {
		if _, ok := b.(deck.ToolCallBlock); ok {
			return true
		}
	}
	return false
}

func (s *stream) handle(chunk *genai.GenerateContentResponse) error {
	if chunk == nil {
		return nil
	}
	if u := chunk.UsageMetadata; u != nil {
		s.msg.Usage = deck.Usage{
			InputTokens:     int(u.PromptTokenCount),
			OutputTokens:    int(u.CandidatesTokenCount + u.ThoughtsTokenCount),
			CacheReadTokens: int(u.CachedContentTokenCount),
		}
	}
	if len(chunk.Candidates) == 0 {
		if fb := chunk.PromptFeedback; fb != nil && fb.BlockReason != "" {
			s.msg.RawStopReason = string(fb.BlockReason)
			return fmt.Errorf("gemini: prompt blocked: %s", fb.BlockReason)
		}
		return nil
	}
	cand := chunk.Candidates[0]
	if cand.FinishReason != "" {
		s.finish = cand.FinishReason
	}
	if cand.Content == nil {
		return nil
	}
	for _, p := range cand.Content.Parts {
		if err := s.part(p); err != nil {
			return err
		}
	}
	return nil
}

// part folds one response part into the message. Adjacent text parts of the
// same kind extend the last block.
func (s *stream) part(p *genai.Part) error {
	if p == nil {
		return nil
	}
	if fc := p.FunctionCall; fc != nil {
		return s.call(fc, p.ThoughtSignature)
	}
	last := len(s.msg.Content) - 1
	if p.Text == "" {
		// A bare signature belongs to the preceding thought.
		if last >= 0 && len(p.ThoughtSignature) > 0 {
			if tb, ok := s.msg.Content[last].(deck.ThinkingBlock); ok {
				tb.Signature = append(tb.Signature, p.ThoughtSignature...)
				s.msg.Content[last] = tb
			}
		}
		return nil
	}
	if p.Thought {
		if last >= 0 {
			if tb, ok := s.msg.Content[last].(deck.ThinkingBlock); ok {
				tb.Thinking += p.Text
				tb.Signature = append(tb.Signature, p.ThoughtSignature...)
				s.msg.Content[last] = tb
				s.pending = append(s.pending, deck.EventThinkingDelta{Delta: p.Text})
				return nil
			}
		}
		s.msg.Content = append(s.msg.Content, deck.ThinkingBlock{Thinking: p.Text, Signature: p.ThoughtSignature})
		s.pending = append(s.pending, deck.EventThinkingDelta{Delta: p.Text})
		return nil
	}
	if last >= 0 {
		if tb, ok := s.msg.Content[last].(deck.TextBlock); ok {
			tb.Text += p.Text
			s.msg.Content[last] = tb
			s.pending = append(s.pending, deck.EventTextDelta{Delta: p.Text})
			return nil
		}
	}
	s.msg.Content = append(s.msg.Content, deck.TextBlock{Text: p.Text})
	s.pending = append(s.pending, deck.EventTextDelta{Delta: p.Text})
	return nil
}

func (s *stream) call(fc *genai.FunctionCall, sig []byte) error {
	args := json.RawMessage("{}")
	if len(fc.Args) > 0 {
		b, err := json.Marshal(fc.Args)
		if err != nil {
			return fmt.Errorf("gemini: invalid tool call arguments for %s: %w", fc.Name, err)
		}
		args = b
	}
	id := fc.ID
	if id == "" {
		id = s.newID()
	}
	call := deck.ToolCallBlock{ID: id, Name: fc.Name, Arguments: args, Signature: sig}
	s.msg.Content = append(s.msg.Content, call)
	s.pending = append(s.pending,
		deck.EventToolCallBegin{ID: id, Name: fc.Name},
		deck.EventToolCallDelta{ID: id, Delta: string(args)},
		deck.EventToolCallEnd{Call: call},
	)
	return nil
}
