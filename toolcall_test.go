package deck_test

import (
	"testing"

	"github.com/fwojciec/deck"
	"github.com/stretchr/testify/assert"
)

func TestParseToolKind(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		want   deck.ToolKind
		wantOK bool
	}{
		{"createInfographic", deck.ToolCreate, true},
		{"editInfographic", deck.ToolEdit, true},
		{"deleteInfographic", 0, false},
		{"unknown", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			kind, ok := deck.ParseToolKind(tt.name)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, kind)
			if ok {
				assert.Equal(t, tt.name, kind.String())
			}
		})
	}
}

func TestToolState_Streaming(t *testing.T) {
	t.Parallel()
	assert.True(t, deck.ToolInputStreaming.Streaming())
	assert.False(t, deck.ToolInputAvailable.Streaming())
	assert.False(t, deck.ToolOutputAvailable.Streaming())
	assert.False(t, deck.ToolOutputError.Streaming())
}

func TestChatStatus_Active(t *testing.T) {
	t.Parallel()
	assert.True(t, deck.StatusSubmitted.Active())
	assert.True(t, deck.StatusStreaming.Active())
	assert.False(t, deck.StatusReady.Active())
	assert.False(t, deck.StatusError.Active())
}
