package reconcile_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/fwojciec/deck/mock"
	"github.com/fwojciec/deck/reconcile"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type appliedCommit struct {
	reconcile.Commit
	at time.Time
}

func newTestThrottler(t *testing.T) (*reconcile.Throttler, *mock.Clock, *[]appliedCommit) {
	t.Helper()
	clock := mock.NewClock(epoch)
	var applied []appliedCommit
	logger, _ := logtest.NewNullLogger()
	th := reconcile.NewThrottler(clock, reconcile.ThrottleInterval, func(c reconcile.Commit) error {
		applied = append(applied, appliedCommit{Commit: c, at: clock.Now()})
		return nil
	}, logger)
	return th, clock, &applied
}

func TestThrottler_Schedule(t *testing.T) {
	t.Parallel()

	t.Run("first commit is immediate", func(t *testing.T) {
		t.Parallel()
		th, clock, applied := newTestThrottler(t)
		th.Schedule(reconcile.Commit{TargetID: "a", Content: "v1"})
		require.Len(t, *applied, 1)
		assert.Equal(t, "v1", (*applied)[0].Content)
		assert.Zero(t, clock.Timers())
	})

	t.Run("commit inside the window waits for the trailing timer", func(t *testing.T) {
		t.Parallel()
		th, clock, applied := newTestThrottler(t)
		th.Schedule(reconcile.Commit{TargetID: "a", Content: "v1"})
		clock.Advance(100 * time.Millisecond)
		th.Schedule(reconcile.Commit{TargetID: "a", Content: "v2"})
		clock.Advance(100 * time.Millisecond)
		th.Schedule(reconcile.Commit{TargetID: "a", Content: "v3"})

		assert.Len(t, *applied, 1)
		pending, ok := th.Pending()
		require.True(t, ok)
		assert.Equal(t, "v3", pending.Content)
		assert.Equal(t, 1, clock.Timers(), "re-arming replaces the previous timer")

		clock.Advance(99 * time.Millisecond)
		assert.Len(t, *applied, 1)
		clock.Advance(time.Millisecond)
		require.Len(t, *applied, 2)
		assert.Equal(t, "v3", (*applied)[1].Content)
		assert.Equal(t, epoch.Add(300*time.Millisecond), (*applied)[1].at, "trailing commit lands one interval after the last commit")
		_, ok = th.Pending()
		assert.False(t, ok)
	})

	t.Run("commit after a quiet interval is immediate", func(t *testing.T) {
		t.Parallel()
		th, clock, applied := newTestThrottler(t)
		th.Schedule(reconcile.Commit{TargetID: "a", Content: "v1"})
		clock.Advance(reconcile.ThrottleInterval)
		th.Schedule(reconcile.Commit{TargetID: "a", Content: "v2"})
		assert.Len(t, *applied, 2)
	})

	t.Run("bounded commits for a 10ms stream over one second", func(t *testing.T) {
		t.Parallel()
		th, clock, applied := newTestThrottler(t)
		for i := range 100 {
			th.Schedule(reconcile.Commit{TargetID: "a", Content: fmt.Sprintf("v%d", i)})
			clock.Advance(10 * time.Millisecond)
		}
		clock.Advance(time.Second)

		assert.LessOrEqual(t, len(*applied), 5)
		require.NotEmpty(t, *applied)
		assert.Equal(t, "v99", (*applied)[len(*applied)-1].Content)
		for i := 1; i < len(*applied); i++ {
			gap := (*applied)[i].at.Sub((*applied)[i-1].at)
			assert.GreaterOrEqual(t, gap, reconcile.ThrottleInterval)
		}
	})

	t.Run("single pending buffer is shared across targets", func(t *testing.T) {
		t.Parallel()
		th, clock, applied := newTestThrottler(t)
		th.Schedule(reconcile.Commit{TargetID: "a", Content: "a1"})
		th.Schedule(reconcile.Commit{TargetID: "a", Content: "a2"})
		th.Schedule(reconcile.Commit{TargetID: "b", Content: "b1"})
		clock.Advance(time.Second)

		require.Len(t, *applied, 2)
		assert.Equal(t, reconcile.Commit{TargetID: "a", Content: "a1"}, (*applied)[0].Commit)
		assert.Equal(t, reconcile.Commit{TargetID: "b", Content: "b1"}, (*applied)[1].Commit)
	})

	t.Run("skips content already applied", func(t *testing.T) {
		t.Parallel()
		th, clock, applied := newTestThrottler(t)
		th.Record(reconcile.Commit{TargetID: "a", Content: "v1"})
		th.Schedule(reconcile.Commit{TargetID: "a", Content: "v1"})
		assert.Empty(t, *applied)

		th.Schedule(reconcile.Commit{TargetID: "a", Content: "v2"})
		th.Schedule(reconcile.Commit{TargetID: "a", Content: "v2"})
		clock.Advance(time.Second)
		assert.Len(t, *applied, 1)
	})

	t.Run("reverting to applied content replaces a pending value", func(t *testing.T) {
		t.Parallel()
		th, clock, applied := newTestThrottler(t)
		th.Schedule(reconcile.Commit{TargetID: "a", Content: "v1"})
		th.Schedule(reconcile.Commit{TargetID: "a", Content: "v2"})
		th.Schedule(reconcile.Commit{TargetID: "a", Content: "v1"})
		clock.Advance(time.Second)
		require.Len(t, *applied, 2)
		assert.Equal(t, "v1", (*applied)[1].Content)
	})
}

func TestThrottler_Flush(t *testing.T) {
	t.Parallel()
	th, clock, applied := newTestThrottler(t)
	th.Schedule(reconcile.Commit{TargetID: "a", Content: "v1"})
	th.Schedule(reconcile.Commit{TargetID: "a", Content: "v2"})

	th.Flush()

	require.Len(t, *applied, 2)
	assert.Equal(t, "v2", (*applied)[1].Content)
	assert.Zero(t, clock.Timers())
	clock.Advance(time.Second)
	assert.Len(t, *applied, 2, "flushed commit is applied once")

	th.Flush()
	assert.Len(t, *applied, 2, "flush without pending is a no-op")
}

func TestThrottler_Reset(t *testing.T) {
	t.Parallel()
	th, _, applied := newTestThrottler(t)
	th.Schedule(reconcile.Commit{TargetID: "a", Content: "v1"})
	th.Reset()
	th.Schedule(reconcile.Commit{TargetID: "a", Content: "v1"})
	assert.Len(t, *applied, 2, "reset forgets the last commit time and applied content")
}

func TestThrottler_Stop(t *testing.T) {
	t.Parallel()
	th, clock, applied := newTestThrottler(t)
	th.Schedule(reconcile.Commit{TargetID: "a", Content: "v1"})
	th.Schedule(reconcile.Commit{TargetID: "a", Content: "v2"})
	require.Equal(t, 1, clock.Timers())

	th.Stop()

	assert.Zero(t, clock.Timers(), "no timer outlives stop")
	clock.Advance(time.Second)
	th.Schedule(reconcile.Commit{TargetID: "a", Content: "v3"})
	th.Flush()
	assert.Len(t, *applied, 1, "stop drops pending content")
}

func TestThrottler_ApplyError(t *testing.T) {
	t.Parallel()
	clock := mock.NewClock(epoch)
	logger, hook := logtest.NewNullLogger()
	var calls []string
	th := reconcile.NewThrottler(clock, reconcile.ThrottleInterval, func(c reconcile.Commit) error {
		calls = append(calls, c.Content)
		if c.Content == "bad" {
			return errors.New("render failed")
		}
		return nil
	}, logger)

	th.Schedule(reconcile.Commit{TargetID: "a", Content: "bad"})
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Equal(t, "a", hook.LastEntry().Data["target_id"])

	clock.Advance(time.Second)
	th.Schedule(reconcile.Commit{TargetID: "a", Content: "bad"})
	th.Schedule(reconcile.Commit{TargetID: "a", Content: "good"})
	clock.Advance(time.Second)

	assert.Equal(t, []string{"bad", "bad", "good"}, calls, "failed content is retried and later commits proceed")
}
