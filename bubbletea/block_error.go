package bubbletea

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/deck"
)

var _ MessageBlock = (*ErrorBlock)(nil)

// ErrorBlock renders a turn that ended with an error.
type ErrorBlock struct {
	err    error
	styles Styles
}

func NewErrorBlock(err error, styles Styles) *ErrorBlock {
	return &ErrorBlock{err: err, styles: styles}
}

func (b *ErrorBlock) Update(tea.Msg) (MessageBlock, tea.Cmd) {
	return b, nil
}

func (b *ErrorBlock) View(width int) string {
	content := b.styles.Error.Render("✗ " + b.err.Error())
	if hint := errorHint(b.err); hint != "" {
		content += "\n  " + b.styles.Muted.Render(hint)
	}
	return lipgloss.NewStyle().Width(width).Render(content)
}

func errorHint(err error) string {
	switch {
	case errors.Is(err, deck.ErrBusy):
		return "wait for the current turn to finish"
	case errors.Is(err, deck.ErrNotFound):
		return "the slide may have been deleted"
	case errors.Is(err, deck.ErrConflict):
		return "the slide changed elsewhere, reload to continue"
	}
	return ""
}
