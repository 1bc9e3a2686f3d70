package deck_test

import (
	"testing"

	"github.com/fwojciec/deck"
	"github.com/stretchr/testify/assert"
)

func TestUsage(t *testing.T) {
	t.Parallel()

	step1 := deck.Usage{InputTokens: 120, OutputTokens: 40, CacheWriteTokens: 900}
	step2 := deck.Usage{InputTokens: 30, OutputTokens: 15, CacheReadTokens: 900}

	total := step1.Add(step2)
	assert.Equal(t, deck.Usage{InputTokens: 150, OutputTokens: 55, CacheReadTokens: 900, CacheWriteTokens: 900}, total)
	assert.Equal(t, 1950, total.Input())
	assert.Equal(t, step1, deck.Usage{}.Add(step1))
}

func TestStopReason_Incomplete(t *testing.T) {
	t.Parallel()
	for reason, want := range map[deck.StopReason]bool{
		deck.StopEndTurn: false,
		deck.StopToolUse: false,
		deck.StopLength:  true,
		deck.StopError:   true,
		deck.StopAborted: false,
		deck.StopUnknown: false,
	} {
		assert.Equal(t, want, reason.Incomplete(), "%s", reason)
	}
}
