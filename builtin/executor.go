package builtin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fwojciec/deck"
	"github.com/google/uuid"
)

// Compile-time interface check.
var _ deck.ToolExecutor = (*Executor)(nil)

// Slide is the live slide the tools operate on.
type Slide interface {
	deck.InfographicEditor
	Infographic(id string) (deck.Infographic, bool)
	Infographics() []deck.Infographic
	DeleteInfographic(id string) error
}

// Targets exposes what streaming already applied for a call.
type Targets interface {
	TargetID(callID string) (string, bool)
	Flush()
}

// Executor applies the final arguments of infographic tool calls. Streaming
// has usually produced the content already; the executor makes the
// complete arguments authoritative and reports ids back to the model.
type Executor struct {
	slide   Slide
	targets Targets
	newID   func() string
}

// Option configures an Executor.
type Option func(*Executor)

// WithIDGenerator sets how ids are minted for creations that never streamed.
func WithIDGenerator(fn func() string) Option {
	return func(e *Executor) { e.newID = fn }
}

// NewExecutor creates an Executor for slide. targets may be nil when no
// streaming reconciler is attached.
func NewExecutor(slide Slide, targets Targets, opts ...Option) *Executor {
	e := &Executor{slide: slide, targets: targets, newID: uuid.NewString}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Tools returns the tool definitions the executor handles.
func (e *Executor) Tools() []deck.Tool {
	return []deck.Tool{CreateTool(), EditTool(), DeleteTool(), ListTool()}
}

// Execute dispatches a tool call by name. Unknown tool names return an IsError
// result so the model can self-correct.
func (e *Executor) Execute(ctx context.Context, call deck.ToolCallBlock) (*deck.ToolResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch call.Name {
	case deck.ToolNameCreate:
		return e.create(call)
	case deck.ToolNameEdit:
		return e.edit(call)
	case deck.ToolNameDelete:
		return e.delete(call)
	case ToolNameList:
		return e.list()
	default:
		return domainError(fmt.Sprintf("unknown tool: %s", call.Name)), nil
	}
}

func (e *Executor) create(call deck.ToolCallBlock) (*deck.ToolResult, error) {
	var a createArgs
	if err := json.Unmarshal(call.Arguments, &a); err != nil {
		return domainError(fmt.Sprintf("invalid arguments: %s", err)), nil
	}
	if a.Syntax == "" {
		return domainError("syntax is required"), nil
	}
	e.flush()

	if id, ok := e.targetID(call.ID); ok {
		if _, exists := e.slide.Infographic(id); !exists {
			return domainError(fmt.Sprintf("infographic %s was deleted while it was being created", id)), nil
		}
		if err := e.slide.UpdateInfographicContent(id, a.Syntax); err != nil {
			return nil, fmt.Errorf("builtin: update %s: %w", id, err)
		}
		return jsonResult("infographicId", id, "title", a.Title, "status", "created")
	}

	id := e.newID()
	after := ""
	if all := e.slide.Infographics(); len(all) > 0 {
		after = all[len(all)-1].ID
	}
	if err := e.slide.InsertInfographic(deck.Infographic{ID: id, Content: a.Syntax}, after); err != nil {
		return nil, fmt.Errorf("builtin: insert %s: %w", id, err)
	}
	return jsonResult("infographicId", id, "title", a.Title, "status", "created")
}

func (e *Executor) edit(call deck.ToolCallBlock) (*deck.ToolResult, error) {
	var a editArgs
	if err := json.Unmarshal(call.Arguments, &a); err != nil {
		return domainError(fmt.Sprintf("invalid arguments: %s", err)), nil
	}
	if a.InfographicID == "" {
		return domainError("infographicId is required"), nil
	}
	if a.Syntax == "" {
		return domainError("syntax is required"), nil
	}
	e.flush()

	if _, ok := e.slide.Infographic(a.InfographicID); !ok {
		return domainError(fmt.Sprintf("infographic %s not found", a.InfographicID)), nil
	}
	if err := e.slide.UpdateInfographicContent(a.InfographicID, a.Syntax); err != nil {
		return nil, fmt.Errorf("builtin: update %s: %w", a.InfographicID, err)
	}
	return jsonResult("infographicId", a.InfographicID, "status", "updated")
}

func (e *Executor) delete(call deck.ToolCallBlock) (*deck.ToolResult, error) {
	var a deleteArgs
	if err := json.Unmarshal(call.Arguments, &a); err != nil {
		return domainError(fmt.Sprintf("invalid arguments: %s", err)), nil
	}
	if a.InfographicID == "" {
		return domainError("infographicId is required"), nil
	}
	e.flush()

	err := e.slide.DeleteInfographic(a.InfographicID)
	switch {
	case errors.Is(err, deck.ErrNotFound):
		return domainError(fmt.Sprintf("infographic %s not found", a.InfographicID)), nil
	case err != nil:
		return nil, fmt.Errorf("builtin: delete %s: %w", a.InfographicID, err)
	}
	return jsonResult("infographicId", a.InfographicID, "status", "deleted", "remaining", len(e.slide.Infographics()))
}

func (e *Executor) list() (*deck.ToolResult, error) {
	type entry struct {
		InfographicID string `json:"infographicId"`
		Title         string `json:"title,omitempty"`
		Syntax        string `json:"syntax"`
	}
	all := e.slide.Infographics()
	entries := make([]entry, 0, len(all))
	for _, ig := range all {
		entries = append(entries, entry{InfographicID: ig.ID, Title: ig.Title(), Syntax: ig.Content})
	}
	return jsonResult("count", len(entries), "infographics", entries)
}

func (e *Executor) flush() {
	if e.targets != nil {
		e.targets.Flush()
	}
}

func (e *Executor) targetID(callID string) (string, bool) {
	if e.targets == nil {
		return "", false
	}
	return e.targets.TargetID(callID)
}
