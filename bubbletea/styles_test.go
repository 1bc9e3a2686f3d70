package bubbletea_test

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/deck"
	bt "github.com/fwojciec/deck/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestNewStyles(t *testing.T) {
	t.Parallel()

	t.Run("maps theme indices to foreground colors", func(t *testing.T) {
		t.Parallel()
		styles := bt.NewStyles(deck.DefaultTheme())

		assert.Equal(t, lipgloss.Color("4"), styles.UserMsg.GetForeground())
		assert.True(t, styles.UserMsg.GetBold())
		assert.Equal(t, lipgloss.Color("8"), styles.Thinking.GetForeground())
		assert.True(t, styles.Thinking.GetFaint())
		assert.Equal(t, lipgloss.Color("3"), styles.ToolCall.GetForeground())
		assert.Equal(t, lipgloss.Color("1"), styles.Error.GetForeground())
		assert.Equal(t, lipgloss.Color("2"), styles.Success.GetForeground())
		assert.Equal(t, lipgloss.Color("5"), styles.Accent.GetForeground())
		assert.Equal(t, lipgloss.Color("6"), styles.Selection.GetForeground())
		assert.Equal(t, lipgloss.Color("0"), styles.Code.GetBackground())
	})

	t.Run("negative index yields no color", func(t *testing.T) {
		t.Parallel()
		styles := bt.NewStyles(deck.Theme{Selection: -1})
		assert.Equal(t, lipgloss.NoColor{}, styles.Selection.GetForeground())
	})
}
