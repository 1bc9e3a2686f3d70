package bubbletea

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/deck"
	"github.com/fwojciec/deck/studio"
)

var _ tea.Model = Model{}

const (
	minPanelWidth = 24
	maxPanelWidth = 44
	// Below this width the slide panel is hidden.
	minSplitWidth = 64
)

// Model is the Bubble Tea model for the deck TUI.
type Model struct {
	// Input is the text input component. Exported for test access.
	Input textinput.Model
	// Viewport is the scrollable chat area. Exported for test access.
	Viewport viewport.Model

	session Session
	theme   deck.Theme
	styles  Styles

	slide    deck.Slide
	selected string

	blocks     []MessageBlock
	blockFocus int // index of focused collapsible block (-1 = none)

	// Blocks receiving deltas in the current assistant message. A tool call
	// ends the message, so the next text or thinking starts new blocks.
	text     *AssistantTextBlock
	thinking *ThinkingBlock
	calls    map[string]*ToolCallBlock

	running bool
	status  deck.ChatStatus
	cancel  context.CancelFunc
	msgs    chan tea.Msg
	err     error

	ready bool
	width int
}

// New creates a TUI Model for an open slide.
func New(session Session, theme deck.Theme) Model {
	ti := textinput.New()
	ti.Placeholder = "Describe an infographic..."
	ti.Prompt = ""
	ti.Focus()
	ti.CharLimit = 0

	return Model{
		Input:      ti,
		session:    session,
		theme:      theme,
		styles:     NewStyles(theme),
		slide:      session.Slide(),
		selected:   session.Selected(),
		blockFocus: -1,
		calls:      make(map[string]*ToolCallBlock),
	}
}

// Running reports whether a turn is in progress.
func (m Model) Running() bool { return m.running }

// Err returns the error of the last turn, if any.
func (m Model) Err() error { return m.err }

// Selected returns the selected infographic id.
func (m Model) Selected() string { return m.selected }

// Slide returns the slide as last shown.
func (m Model) Slide() deck.Slide { return m.slide }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.resize(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case EventMsg:
		m = m.processEvent(msg.Event)
		m = m.refreshChat()
		return m, m.listen()

	case ChangeMsg:
		m = m.refreshSlide()
		return m, m.listen()

	case FocusMsg:
		m.session.Select(msg.ID)
		m = m.refreshSlide()
		return m, m.listen()

	case StatusMsg:
		m.status = msg.Status
		return m, m.listen()

	case DoneMsg:
		return m.finish(msg.Err)

	case deletedMsg:
		if msg.err != nil {
			m.err = msg.err
		}
		return m.refreshSlide(), nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)
	if !m.running {
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	body := m.Viewport.View()
	if pw := panelWidth(m.width); pw > 0 {
		sep := m.styles.Border.Render(strings.TrimSuffix(strings.Repeat("│\n", m.Viewport.Height), "\n"))
		panel := renderPanel(m.slide, m.selected, pw, m.Viewport.Height, m.styles)
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, sep, panel)
	}
	return body + "\n" + m.statusLine() + "\n" + m.Input.View()
}

func (m Model) resize(msg tea.WindowSizeMsg) Model {
	const inputHeight, statusHeight, gaps = 1, 1, 2
	vpHeight := max(msg.Height-inputHeight-statusHeight-gaps, 1)
	m.width = msg.Width
	chatWidth := chatWidth(msg.Width)

	if !m.ready {
		m.Viewport = viewport.New(chatWidth, vpHeight)
		m = m.loadChat()
		m.ready = true
	} else {
		m.Viewport.Width = chatWidth
		m.Viewport.Height = vpHeight
	}
	m.Input.Width = msg.Width
	return m.refreshChat()
}

func panelWidth(width int) int {
	if width < minSplitWidth {
		return 0
	}
	return min(max(width/3, minPanelWidth), maxPanelWidth)
}

func chatWidth(width int) int {
	if pw := panelWidth(width); pw > 0 {
		return width - pw - 1
	}
	return width
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.cancel != nil {
			m.cancel()
		}
		return m, tea.Quit

	case tea.KeyEsc:
		if m.running && m.cancel != nil {
			m.cancel()
		}
		return m, nil

	case tea.KeyEnter:
		if m.running {
			return m, nil
		}
		text := strings.TrimSpace(m.Input.Value())
		if text == "" {
			return m, nil
		}
		return m.submit(text)

	case tea.KeyCtrlN:
		return m.moveSelection(1), nil

	case tea.KeyCtrlP:
		return m.moveSelection(-1), nil

	case tea.KeyCtrlX:
		if m.running || m.selected == "" {
			return m, nil
		}
		return m, deleteInfographic(m.session, m.selected)

	case tea.KeyTab:
		if m.blockFocus >= 0 {
			block, cmd := m.blocks[m.blockFocus].Update(ToggleMsg{})
			m.blocks[m.blockFocus] = block
			return m.refreshChat(), cmd
		}
		return m, nil

	case tea.KeyShiftTab:
		return m.cycleFocus().refreshChat(), nil
	}

	if m.running {
		return m, nil
	}
	// Character keys go to the input only; j and k would otherwise scroll.
	var cmds []tea.Cmd
	var cmd tea.Cmd
	if msg.Type != tea.KeyRunes {
		m.Viewport, cmd = m.Viewport.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.Input, cmd = m.Input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) submit(text string) (tea.Model, tea.Cmd) {
	m.Input.SetValue("")
	m.Input.Blur()
	m.err = nil
	m.blocks = append(m.blocks, NewUserMessageBlock(text, m.styles))
	m.text, m.thinking = nil, nil
	m.calls = make(map[string]*ToolCallBlock)

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.msgs = make(chan tea.Msg, 256)
	m.running = true
	m.status = deck.StatusSubmitted

	return m.refreshChat(), tea.Batch(send(ctx, m.session, text, m.msgs), m.listen())
}

func (m Model) finish(err error) (tea.Model, tea.Cmd) {
	if m.cancel != nil {
		m.cancel()
	}
	m.running = false
	m.cancel = nil
	m.msgs = nil
	m.text, m.thinking = nil, nil
	if err != nil && !errors.Is(err, context.Canceled) {
		m.err = err
		m.blocks = append(m.blocks, NewErrorBlock(err, m.styles))
	}
	cmd := m.Input.Focus()
	m = m.refreshSlide()
	m = m.updateBlockFocus()
	return m.refreshChat(), cmd
}

// moveSelection steps through the infographics. With nothing selected it
// starts at the first going forward and at the last going back.
func (m Model) moveSelection(step int) Model {
	igs := m.slide.Infographics
	if len(igs) == 0 {
		return m
	}
	i := m.slide.Index(m.selected)
	switch {
	case i < 0 && step > 0:
		i = 0
	case i < 0:
		i = len(igs) - 1
	default:
		i = min(max(i+step, 0), len(igs)-1)
	}
	m.session.Select(igs[i].ID)
	m.selected = m.session.Selected()
	return m
}

func (m Model) refreshSlide() Model {
	m.slide = m.session.Slide()
	m.selected = m.session.Selected()
	return m
}

func (m Model) refreshChat() Model {
	if !m.ready {
		return m
	}
	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()
	return m
}

// loadChat creates blocks for the messages already in the chat.
func (m Model) loadChat() Model {
	for _, msg := range m.session.Chat().Messages {
		switch msg := msg.(type) {
		case deck.UserMessage:
			for _, b := range msg.Content {
				if tb, ok := b.(deck.TextBlock); ok {
					m.blocks = append(m.blocks, NewUserMessageBlock(tb.Text, m.styles))
				}
			}
		case deck.AssistantMessage:
			for _, b := range msg.Content {
				switch cb := b.(type) {
				case deck.TextBlock:
					block := NewAssistantTextBlock(m.theme)
					block.Append(cb.Text)
					m.blocks = append(m.blocks, block)
				case deck.ThinkingBlock:
					block := NewThinkingBlock(m.styles)
					block.Append(cb.Thinking)
					m.blocks = append(m.blocks, block)
				case deck.ToolCallBlock:
					block := NewToolCallBlock(cb.Name, cb.ID, m.styles)
					block.Finish(cb)
					m.blocks = append(m.blocks, block)
				}
			}
		case deck.ToolResultMessage:
			m.blocks = append(m.blocks, NewToolResultBlock(msg.ToolName, msg.Text(), msg.IsError, m.styles))
		}
	}
	return m.updateBlockFocus()
}

func (m Model) renderContent() string {
	var b strings.Builder
	for i, block := range m.blocks {
		if i > 0 {
			b.WriteString(blockSeparator(m.blocks[i-1], block))
		}
		b.WriteString(block.View(m.Viewport.Width))
	}
	return b.String()
}

func (m Model) processEvent(evt deck.Event) Model {
	switch e := evt.(type) {
	case deck.EventTextDelta:
		if m.text == nil {
			m.text = NewAssistantTextBlock(m.theme)
			m.blocks = append(m.blocks, m.text)
		}
		m.text.Append(e.Delta)
	case deck.EventThinkingDelta:
		if m.thinking == nil {
			m.thinking = NewThinkingBlock(m.styles)
			m.blocks = append(m.blocks, m.thinking)
			m = m.updateBlockFocus()
		}
		m.thinking.Append(e.Delta)
	case deck.EventToolCallBegin:
		m.text, m.thinking = nil, nil
		b := NewToolCallBlock(e.Name, e.ID, m.styles)
		m.blocks = append(m.blocks, b)
		m.calls[e.ID] = b
		m = m.updateBlockFocus()
	case deck.EventToolCallDelta:
		if b, ok := m.calls[e.ID]; ok {
			b.AppendArgs(e.Delta)
		}
	case deck.EventToolCallEnd:
		if b, ok := m.calls[e.Call.ID]; ok {
			b.Finish(e.Call)
		}
	case deck.EventToolResult:
		m.blocks = append(m.blocks, NewToolResultBlock(e.ToolName, e.Content, e.IsError, m.styles))
		m = m.updateBlockFocus()
	}
	return m
}

func collapsible(b MessageBlock) bool {
	switch b.(type) {
	case *ThinkingBlock, *ToolCallBlock, *ToolResultBlock:
		return true
	}
	return false
}

// updateBlockFocus focuses the last collapsible block.
func (m Model) updateBlockFocus() Model {
	m.blockFocus = -1
	for i := len(m.blocks) - 1; i >= 0; i-- {
		if collapsible(m.blocks[i]) {
			m.blockFocus = i
			break
		}
	}
	return m
}

// cycleFocus moves the focus to the previous collapsible block, wrapping
// around.
func (m Model) cycleFocus() Model {
	n := len(m.blocks)
	if n == 0 {
		return m
	}
	start := m.blockFocus - 1
	if start < 0 {
		start = n - 1
	}
	for i := range n {
		idx := (start - i + n) % n
		if collapsible(m.blocks[idx]) {
			m.blockFocus = idx
			return m
		}
	}
	m.blockFocus = -1
	return m
}

func (m Model) statusLine() string {
	switch {
	case m.err != nil:
		return m.styles.Error.Render("Error: " + m.err.Error())
	case m.running && m.status == deck.StatusStreaming:
		return m.styles.Muted.Render("Generating... Esc to stop")
	case m.running:
		return m.styles.Muted.Render("Waiting for the model... Esc to stop")
	}
	return m.styles.Muted.Render("Enter to send, Ctrl+N/Ctrl+P to select, Ctrl+X to delete, Ctrl+C to quit")
}

func (m Model) listen() tea.Cmd {
	if m.msgs == nil {
		return nil
	}
	ch := m.msgs
	return func() tea.Msg { return <-ch }
}

// send runs one turn and forwards its progress to ch, ending with DoneMsg.
// Progress reported after ctx is cancelled is dropped.
func send(ctx context.Context, s Session, text string, ch chan<- tea.Msg) tea.Cmd {
	return func() tea.Msg {
		post := func(msg tea.Msg) {
			select {
			case ch <- msg:
			case <-ctx.Done():
			}
		}
		err := s.Send(ctx, text, studio.Observer{
			OnEvent:  func(e deck.Event) { post(EventMsg{Event: e}) },
			OnChange: func(c deck.SlideChange) { post(ChangeMsg{Change: c}) },
			OnFocus:  func(id string) { post(FocusMsg{ID: id}) },
			OnStatus: func(st deck.ChatStatus) { post(StatusMsg{Status: st}) },
		})
		ch <- DoneMsg{Err: err}
		return nil
	}
}

type deletedMsg struct{ err error }

func deleteInfographic(s Session, id string) tea.Cmd {
	return func() tea.Msg {
		return deletedMsg{err: s.DeleteInfographic(context.Background(), id)}
	}
}
