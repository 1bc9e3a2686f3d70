// Package toolcall turns provider stream events into snapshots of the
// infographic tool calls they carry.
package toolcall

import (
	"strings"

	"github.com/fwojciec/deck"
	"github.com/tidwall/gjson"
)

// Assembler accumulates tool call argument deltas and reports a fresh
// deck.ToolCallPart whenever a call's parsed input or state changes. Calls
// to tools other than createInfographic and editInfographic are ignored.
//
// An Assembler is not safe for concurrent use.
type Assembler struct {
	calls map[string]*call
}

type call struct {
	kind    deck.ToolKind
	args    strings.Builder
	last    deck.ToolCallPart
	emitted bool
}

// NewAssembler returns an empty Assembler.
func NewAssembler() *Assembler {
	return &Assembler{calls: make(map[string]*call)}
}

// Apply consumes one event. It returns a snapshot and true when the event
// changed an infographic tool call.
func (a *Assembler) Apply(e deck.Event) (deck.ToolCallPart, bool) {
	switch e := e.(type) {
	case deck.EventToolCallBegin:
		if kind, ok := deck.ParseToolKind(e.Name); ok {
			a.calls[e.ID] = &call{kind: kind}
		}
	case deck.EventToolCallDelta:
		c := a.calls[e.ID]
		if c == nil {
			return deck.ToolCallPart{}, false
		}
		c.args.WriteString(e.Delta)
		comp, ok := Complete(c.args.String())
		if !ok {
			return deck.ToolCallPart{}, false
		}
		input, ok := readInput(comp)
		if !ok {
			return deck.ToolCallPart{}, false
		}
		return c.emit(e.ID, deck.ToolInputStreaming, input)
	case deck.EventToolCallEnd:
		c := a.calls[e.Call.ID]
		if c == nil {
			kind, ok := deck.ParseToolKind(e.Call.Name)
			if !ok {
				return deck.ToolCallPart{}, false
			}
			c = &call{kind: kind}
			a.calls[e.Call.ID] = c
		}
		input, ok := readInput(Completion{JSON: string(e.Call.Arguments)})
		if !ok {
			input = c.last.Input
		}
		return c.emit(e.Call.ID, deck.ToolInputAvailable, input)
	case deck.EventToolResult:
		c := a.calls[e.ID]
		if c == nil {
			return deck.ToolCallPart{}, false
		}
		state := deck.ToolOutputAvailable
		if e.IsError {
			state = deck.ToolOutputError
		}
		return c.emit(e.ID, state, c.last.Input)
	}
	return deck.ToolCallPart{}, false
}

// Reset forgets all calls.
func (a *Assembler) Reset() {
	clear(a.calls)
}

func (c *call) emit(id string, state deck.ToolState, input deck.ToolInput) (deck.ToolCallPart, bool) {
	part := deck.ToolCallPart{CallID: id, Kind: c.kind, State: state, Input: input}
	if c.emitted && part == c.last {
		return deck.ToolCallPart{}, false
	}
	c.last = part
	c.emitted = true
	return part, true
}

// readInput extracts the infographic fields. An id whose string value was
// cut off is withheld, since a prefix of an id names a different target.
func readInput(comp Completion) (deck.ToolInput, bool) {
	doc := gjson.Parse(comp.JSON)
	if !doc.IsObject() {
		return deck.ToolInput{}, false
	}
	in := deck.ToolInput{
		Title:  doc.Get("title").String(),
		Syntax: doc.Get("syntax").String(),
	}
	if comp.Open != "infographicId" {
		in.InfographicID = doc.Get("infographicId").String()
	}
	return in, true
}
