package reconcile

import (
	"errors"

	"github.com/fwojciec/deck"
)

// ErrMissingTarget reports an edit fragment that does not name its
// infographic yet.
var ErrMissingTarget = errors.New("reconcile: edit has no infographic id")

// Resolution is the outcome of resolving a create call.
type Resolution struct {
	TargetID string
	// AfterID is the infographic the new target goes after when Created is
	// true. Empty means no infographic was created earlier in the turn.
	AfterID string
	Created bool
}

// CallTracker maps tool call ids to the infographics they affect for the
// duration of one turn. It has no side effects on the slide, so callers
// decide how to emit the insert a first sighting implies.
//
// A CallTracker is not safe for concurrent use.
type CallTracker struct {
	newID    func() string
	targets  map[string]string
	anchor   string
	notified map[string]struct{}
	dropped  map[string]struct{}
}

// NewCallTracker returns an empty tracker minting ids with newID.
func NewCallTracker(newID func() string) *CallTracker {
	return &CallTracker{
		newID:    newID,
		targets:  make(map[string]string),
		notified: make(map[string]struct{}),
		dropped:  make(map[string]struct{}),
	}
}

// ResolveCreate returns the target of a create call. The first sighting of
// callID mints an id, records it and moves the insertion anchor to it.
func (t *CallTracker) ResolveCreate(callID string) Resolution {
	if id, ok := t.targets[callID]; ok {
		return Resolution{TargetID: id}
	}
	id := t.newID()
	t.targets[callID] = id
	res := Resolution{TargetID: id, AfterID: t.anchor, Created: true}
	t.anchor = id
	return res
}

// Drop records that the insert a create resolution implied never landed.
// callID keeps its target so later fragments do not mint again, and the
// anchor moves back to res.AfterID when it still points at the target.
func (t *CallTracker) Drop(callID string, res Resolution) {
	t.dropped[callID] = struct{}{}
	if t.anchor == res.TargetID {
		t.anchor = res.AfterID
	}
}

// Placed reports whether callID resolved to a target whose insert landed.
func (t *CallTracker) Placed(callID string) bool {
	if _, ok := t.targets[callID]; !ok {
		return false
	}
	_, dropped := t.dropped[callID]
	return !dropped
}

// ResolveEdit returns the infographic an edit fragment targets.
func (t *CallTracker) ResolveEdit(part deck.ToolCallPart) (string, error) {
	if part.Input.InfographicID == "" {
		return "", ErrMissingTarget
	}
	return part.Input.InfographicID, nil
}

// MarkNotified reports true the first time it sees callID in a turn.
func (t *CallTracker) MarkNotified(callID string) bool {
	if _, ok := t.notified[callID]; ok {
		return false
	}
	t.notified[callID] = struct{}{}
	return true
}

// TargetID returns the infographic minted for a create call.
func (t *CallTracker) TargetID(callID string) (string, bool) {
	id, ok := t.targets[callID]
	return id, ok
}

// Anchor returns the most recently created target, if any.
func (t *CallTracker) Anchor() string { return t.anchor }

// Reset forgets every call seen this turn.
func (t *CallTracker) Reset() {
	clear(t.targets)
	clear(t.notified)
	clear(t.dropped)
	t.anchor = ""
}
