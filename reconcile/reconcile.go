// Package reconcile applies streamed infographic tool calls to a slide while
// the model is still producing their arguments.
package reconcile

import (
	"errors"
	"sync"
	"time"

	"github.com/fwojciec/deck"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// ThrottleInterval is the minimum spacing between streamed content commits.
const ThrottleInterval = 300 * time.Millisecond

// Reconciler turns tool call snapshots into slide mutations. Create calls
// insert an infographic on first sight; later snapshots of create and edit
// calls update content through a Throttler. A ready or error status ends
// the turn: pending content is flushed and all call tracking is forgotten.
//
// Reconciler is safe for concurrent use. The editor and the focus handler
// are called with internal locks held and must not call back into it.
type Reconciler struct {
	editor   deck.InfographicEditor
	clock    deck.Clock
	interval time.Duration
	newID    func() string
	anchor   func() string
	onFocus  func(id string)
	logger   logrus.FieldLogger
	meter    metric.Meter
	metrics  *metrics

	mu        sync.Mutex
	tracker   *CallTracker
	throttle  *Throttler
	streaming bool
	closed    bool
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithClock sets the time source. Defaults to deck.SystemClock.
func WithClock(c deck.Clock) Option {
	return func(r *Reconciler) { r.clock = c }
}

// WithInterval overrides ThrottleInterval.
func WithInterval(d time.Duration) Option {
	return func(r *Reconciler) { r.interval = d }
}

// WithIDGenerator sets how new infographic ids are minted. Defaults to
// random UUIDs.
func WithIDGenerator(fn func() string) Option {
	return func(r *Reconciler) { r.newID = fn }
}

// WithAnchor sets where the first infographic of a turn is inserted when
// nothing was created earlier in the turn, typically the selection. An
// empty result inserts at the head.
func WithAnchor(fn func() string) Option {
	return func(r *Reconciler) { r.anchor = fn }
}

// WithFocusHandler sets the callback fired the first time each edit call
// names its infographic.
func WithFocusHandler(fn func(id string)) Option {
	return func(r *Reconciler) { r.onFocus = fn }
}

// WithLogger sets the logger. Defaults to the logrus standard logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(r *Reconciler) { r.logger = l }
}

// WithMeter sets the meter for reconciler counters. Defaults to the global
// meter provider.
func WithMeter(m metric.Meter) Option {
	return func(r *Reconciler) { r.meter = m }
}

// New returns an idle Reconciler writing to editor.
func New(editor deck.InfographicEditor, opts ...Option) *Reconciler {
	r := &Reconciler{
		editor:   editor,
		clock:    deck.SystemClock(),
		interval: ThrottleInterval,
		newID:    uuid.NewString,
		logger:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.meter == nil {
		r.meter = otel.Meter(instrumentationName)
	}
	r.metrics = newMetrics(r.meter, r.logger)
	r.tracker = NewCallTracker(r.newID)
	r.throttle = NewThrottler(r.clock, r.interval, r.commit, r.logger)
	return r
}

// Apply handles the latest snapshot of one tool call.
func (r *Reconciler) Apply(part deck.ToolCallPart) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.streaming = true
	switch part.Kind {
	case deck.ToolCreate:
		r.applyCreate(part)
	case deck.ToolEdit:
		r.applyEdit(part)
	default:
		r.logger.WithField("call_id", part.CallID).Debugf("reconcile: ignoring %s call", part.Kind)
	}
}

func (r *Reconciler) applyCreate(part deck.ToolCallPart) {
	res := r.tracker.ResolveCreate(part.CallID)
	if !res.Created {
		if r.tracker.Placed(part.CallID) {
			r.schedule(res.TargetID, part.Input.Syntax)
		}
		return
	}
	after := res.AfterID
	if after == "" && r.anchor != nil {
		after = r.anchor()
	}
	ig := deck.Infographic{ID: res.TargetID, Content: part.Input.Syntax}
	if err := r.editor.InsertInfographic(ig, after); err != nil {
		r.metrics.add(r.metrics.sinkErrors)
		r.logger.WithError(err).WithFields(logrus.Fields{
			"call_id":   part.CallID,
			"target_id": ig.ID,
		}).Error("reconcile: insert failed")
		r.tracker.Drop(part.CallID, res)
		return
	}
	r.metrics.add(r.metrics.inserts)
	r.throttle.Record(Commit{TargetID: ig.ID, Content: ig.Content})
}

func (r *Reconciler) applyEdit(part deck.ToolCallPart) {
	id, err := r.tracker.ResolveEdit(part)
	if err != nil {
		r.metrics.add(r.metrics.dropped)
		r.logger.WithField("call_id", part.CallID).Debug("reconcile: dropping edit fragment without infographic id")
		return
	}
	if r.tracker.MarkNotified(part.CallID) && r.onFocus != nil {
		r.metrics.add(r.metrics.focusJumps)
		r.onFocus(id)
	}
	r.schedule(id, part.Input.Syntax)
}

func (r *Reconciler) schedule(id, content string) {
	if content == "" {
		return
	}
	r.throttle.Schedule(Commit{TargetID: id, Content: content})
}

// commit runs under the throttler's lock, possibly on a timer goroutine,
// so it must not take r.mu.
func (r *Reconciler) commit(c Commit) error {
	err := r.editor.UpdateInfographicContent(c.TargetID, c.Content)
	switch {
	case errors.Is(err, deck.ErrNotFound):
		r.logger.WithField("target_id", c.TargetID).Debug("reconcile: target no longer exists")
		return nil
	case err != nil:
		r.metrics.add(r.metrics.sinkErrors)
		return err
	}
	r.metrics.add(r.metrics.commits)
	return nil
}

// SetStatus feeds the chat status to the lifecycle gate. Leaving the
// active states ends the turn once; active states only mark it started.
func (r *Reconciler) SetStatus(status deck.ChatStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	if status.Active() {
		r.streaming = true
		return
	}
	if !r.streaming {
		return
	}
	r.streaming = false
	r.throttle.Flush()
	r.tracker.Reset()
	r.throttle.Reset()
}

// Streaming reports whether a turn is in progress.
func (r *Reconciler) Streaming() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.streaming
}

// TargetID returns the infographic a create call placed on the slide this
// turn. A call whose insert failed reports false.
func (r *Reconciler) TargetID(callID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.tracker.Placed(callID) {
		return "", false
	}
	return r.tracker.TargetID(callID)
}

// Flush applies pending content immediately without ending the turn.
func (r *Reconciler) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.throttle.Flush()
}

// Close cancels any armed timer without applying pending content. The
// Reconciler ignores all calls afterwards.
func (r *Reconciler) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.throttle.Stop()
}
