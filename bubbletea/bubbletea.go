// Package bubbletea provides the terminal UI: the chat that drives a slide
// on the left and the slide's infographics on the right.
package bubbletea

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/deck"
	"github.com/fwojciec/deck/studio"
)

// Session is the open slide the UI edits. *studio.Session implements it.
type Session interface {
	Slide() deck.Slide
	Chat() deck.Chat
	Select(id string)
	Selected() string
	Send(ctx context.Context, text string, obs studio.Observer) error
	DeleteInfographic(ctx context.Context, id string) error
}

var _ Session = (*studio.Session)(nil)

// Run creates and runs the Bubble Tea TUI program. It blocks until the program
// exits. The program quits when ctx is cancelled.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	_, err := p.Run()
	return err
}

// EventMsg wraps a streaming event for delivery to the model.
type EventMsg struct {
	Event deck.Event
}

// ChangeMsg reports an edit applied to the slide while streaming.
type ChangeMsg struct {
	Change deck.SlideChange
}

// FocusMsg asks the UI to select an infographic the model started writing.
type FocusMsg struct {
	ID string
}

// StatusMsg carries a chat status transition.
type StatusMsg struct {
	Status deck.ChatStatus
}

// DoneMsg signals that a turn has finished.
type DoneMsg struct {
	Err error
}
