package reconcile

import (
	"sync"
	"time"

	"github.com/fwojciec/deck"
	"github.com/sirupsen/logrus"
)

// Commit is a content update for one infographic.
type Commit struct {
	TargetID string
	Content  string
}

// Throttler applies commits no more often than once per interval. It holds
// a single pending commit shared by all targets: scheduling for one target
// replaces whatever was pending for another.
//
// A commit arriving at least interval after the previous one is applied
// immediately. Otherwise one trailing timer is (re)armed to fire interval
// after the previous commit and applies whatever is pending at that time.
type Throttler struct {
	clock    deck.Clock
	interval time.Duration
	apply    func(Commit) error
	logger   logrus.FieldLogger

	mu      sync.Mutex
	pending *Commit
	last    time.Time // zero until the first commit of a turn
	applied map[string]string
	timer   deck.Timer
	gen     uint64
	stopped bool
}

// NewThrottler returns a Throttler passing commits to apply. Errors from
// apply are logged and never returned to the scheduler.
func NewThrottler(clock deck.Clock, interval time.Duration, apply func(Commit) error, logger logrus.FieldLogger) *Throttler {
	return &Throttler{
		clock:    clock,
		interval: interval,
		apply:    apply,
		logger:   logger,
		applied:  make(map[string]string),
	}
}

// Schedule makes c the pending commit and applies it now or arms the
// trailing timer. Content identical to what was last applied to the same
// target is ignored unless a different value for that target is pending.
func (t *Throttler) Schedule(c Commit) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	if t.pending != nil && t.pending.TargetID == c.TargetID {
		if t.pending.Content == c.Content {
			return
		}
	} else if content, ok := t.applied[c.TargetID]; ok && content == c.Content {
		return
	}

	t.pending = &c
	t.cancelLocked()
	now := t.clock.Now()
	elapsed := now.Sub(t.last)
	if t.last.IsZero() || elapsed >= t.interval {
		t.commitLocked(now)
		return
	}
	gen := t.gen
	t.timer = t.clock.AfterFunc(t.interval-elapsed, func() { t.fire(gen) })
}

// Flush cancels the trailing timer and applies the pending commit, if any.
func (t *Throttler) Flush() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.cancelLocked()
	t.commitLocked(t.clock.Now())
}

// Reset makes the next commit unthrottled and forgets applied content.
func (t *Throttler) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = time.Time{}
	clear(t.applied)
}

// Record notes content that reached the target without going through
// Schedule, such as the body of a fresh insert.
func (t *Throttler) Record(c Commit) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.applied[c.TargetID] = c.Content
}

// Pending returns the commit waiting for the trailing timer.
func (t *Throttler) Pending() (Commit, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending == nil {
		return Commit{}, false
	}
	return *t.pending, true
}

// Stop cancels the trailing timer and drops the pending commit without
// applying it. Later calls are ignored.
func (t *Throttler) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	t.cancelLocked()
	t.pending = nil
}

func (t *Throttler) fire(gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	// A callback that lost the race with cancelLocked must not commit.
	if t.stopped || gen != t.gen {
		return
	}
	t.timer = nil
	t.commitLocked(t.clock.Now())
}

func (t *Throttler) cancelLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.gen++
}

func (t *Throttler) commitLocked(now time.Time) {
	if t.pending == nil {
		return
	}
	c := *t.pending
	t.pending = nil
	t.last = now
	if err := t.apply(c); err != nil {
		t.logger.WithError(err).WithField("target_id", c.TargetID).Error("reconcile: commit failed")
		return
	}
	t.applied[c.TargetID] = c.Content
}
