package studio

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/fwojciec/deck"
	"github.com/fwojciec/deck/agent"
	"github.com/fwojciec/deck/builtin"
	"github.com/fwojciec/deck/goldmark"
	"github.com/fwojciec/deck/memory"
	"github.com/fwojciec/deck/reconcile"
	"github.com/fwojciec/deck/toolcall"
	"github.com/sirupsen/logrus"
)

// titleLength bounds chat titles derived from the first message.
const titleLength = 60

// Observer receives the progress of one Send. Any field may be nil.
// OnChange may be called from a timer goroutine while streaming.
type Observer struct {
	OnEvent  func(deck.Event)
	OnChange func(deck.SlideChange)
	OnFocus  func(infographicID string)
	OnStatus func(deck.ChatStatus)
}

// Session is one open slide with its chat. Send runs one message at a time;
// the remaining methods are safe to call concurrently with it.
type Session struct {
	studio     *Studio
	slide      *memory.Slide
	reconciler *reconcile.Reconciler
	assembler  *toolcall.Assembler
	executor   *builtin.Executor
	loop       *agent.Loop
	logger     logrus.FieldLogger

	mu     sync.Mutex
	chat   *deck.Chat
	obs    Observer
	busy   bool
	closed bool
}

func newSession(s *Studio, slide deck.Slide, chat *deck.Chat) *Session {
	sess := &Session{
		studio:    s,
		slide:     memory.NewSlide(slide),
		assembler: toolcall.NewAssembler(),
		chat:      chat,
		logger:    s.logger.WithField("slide_id", slide.ID),
	}
	opts := []reconcile.Option{
		reconcile.WithClock(s.clock),
		reconcile.WithIDGenerator(s.newID),
		reconcile.WithAnchor(sess.slide.Selected),
		reconcile.WithFocusHandler(sess.focus),
		reconcile.WithLogger(sess.logger),
	}
	if s.interval > 0 {
		opts = append(opts, reconcile.WithInterval(s.interval))
	}
	if s.meter != nil {
		opts = append(opts, reconcile.WithMeter(s.meter))
	}
	sess.reconciler = reconcile.New(sess.slide, opts...)
	sess.executor = builtin.NewExecutor(sess.slide, sess.reconciler, builtin.WithIDGenerator(s.newID))
	sess.loop = agent.New(s.provider, sess.executor)
	sess.slide.OnChange(sess.changed)
	return sess
}

// ID returns the slide id.
func (s *Session) ID() string { return s.slide.Snapshot().ID }

// Slide returns the current state of the slide.
func (s *Session) Slide() deck.Slide { return s.slide.Snapshot() }

// Chat returns a copy of the chat.
func (s *Session) Chat() deck.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *s.chat
	c.Messages = slices.Clone(c.Messages)
	return c
}

// ChatID returns the id of the session's chat.
func (s *Session) ChatID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chat.ID
}

// Busy reports whether a message is being answered.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Select marks the infographic new content is placed after and the
// fallback edits.
func (s *Session) Select(id string) { s.slide.Select(id) }

// Selected returns the selected infographic id.
func (s *Session) Selected() string { return s.slide.Selected() }

// Send appends a user message and runs the model until it stops calling
// tools. The slide and chat are persisted afterwards, also on failure.
func (s *Session) Send(ctx context.Context, text string, obs Observer) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("studio: empty message: %w", deck.ErrValidation)
	}
	if err := s.begin(obs); err != nil {
		return err
	}
	defer s.end()

	// The loop appends to a private copy so Chat stays consistent while it runs.
	s.mu.Lock()
	chat := *s.chat
	chat.Messages = append(slices.Clone(s.chat.Messages), deck.UserMessage{
		Content:   []deck.ContentBlock{deck.TextBlock{Text: text}},
		Timestamp: s.studio.clock.Now(),
	})
	if chat.Title == "" {
		chat.Title = truncate(text, titleLength)
	}
	s.mu.Unlock()
	start := len(chat.Messages)

	opts := []agent.RunOption{
		agent.WithEventHandler(func(e deck.Event) { s.event(obs, e) }),
		agent.WithStatusHandler(func(st deck.ChatStatus) { s.status(obs, st) }),
		agent.WithModel(s.studio.model),
		agent.WithLogger(s.logger),
	}
	if s.studio.maxSteps > 0 {
		opts = append(opts, agent.WithMaxSteps(s.studio.maxSteps))
	}
	runErr := s.loop.Run(ctx, &chat, s.executor.Tools(), opts...)

	s.mu.Lock()
	s.chat = &chat
	s.mu.Unlock()
	if runErr == nil {
		s.fallback(chat.Messages[start:])
	}
	if err := s.persist(context.WithoutCancel(ctx)); err != nil {
		if runErr != nil {
			s.logger.WithError(err).Error("studio: persist after failed turn")
			return runErr
		}
		return err
	}
	return runErr
}

func (s *Session) begin(obs Observer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("studio: session closed: %w", deck.ErrStreamClosed)
	}
	if s.busy {
		return deck.ErrBusy
	}
	s.busy = true
	s.obs = obs
	return nil
}

func (s *Session) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	s.obs = Observer{}
}

func (s *Session) event(obs Observer, e deck.Event) {
	if obs.OnEvent != nil {
		obs.OnEvent(e)
	}
	if part, ok := s.assembler.Apply(e); ok {
		s.reconciler.Apply(part)
	}
}

func (s *Session) status(obs Observer, st deck.ChatStatus) {
	s.reconciler.SetStatus(st)
	if !st.Active() {
		s.assembler.Reset()
	}
	if obs.OnStatus != nil {
		obs.OnStatus(st)
	}
}

func (s *Session) focus(id string) {
	s.slide.Select(id)
	s.mu.Lock()
	fn := s.obs.OnFocus
	s.mu.Unlock()
	if fn != nil {
		fn(id)
	}
}

func (s *Session) changed(c deck.SlideChange) {
	s.mu.Lock()
	fn := s.obs.OnChange
	s.mu.Unlock()
	if fn != nil {
		fn(c)
	}
}

// fallback applies syntax the model wrote as text instead of calling a tool.
func (s *Session) fallback(msgs []deck.Message) {
	var text string
	for _, m := range msgs {
		am, ok := m.(deck.AssistantMessage)
		if !ok {
			continue
		}
		for _, tc := range am.ToolCalls() {
			if _, ok := deck.ParseToolKind(tc.Name); ok || tc.Name == deck.ToolNameDelete {
				return
			}
		}
		if t := am.Text(); t != "" {
			text = t
		}
	}
	syntax, ok := goldmark.ExtractSyntax(text)
	if !ok {
		return
	}
	if id := s.slide.Selected(); id != "" {
		if _, exists := s.slide.Infographic(id); exists {
			if err := s.slide.UpdateInfographicContent(id, syntax); err != nil {
				s.logger.WithError(err).Warn("studio: apply text syntax")
			}
			return
		}
	}
	id := s.studio.newID()
	after := ""
	if all := s.slide.Infographics(); len(all) > 0 {
		after = all[len(all)-1].ID
	}
	if err := s.slide.InsertInfographic(deck.Infographic{ID: id, Content: syntax}, after); err != nil {
		s.logger.WithError(err).Warn("studio: insert text syntax")
		return
	}
	s.slide.Select(id)
}

// UpdateInfographic replaces an infographic's syntax by hand.
func (s *Session) UpdateInfographic(ctx context.Context, id, syntax string) error {
	if err := s.idle(); err != nil {
		return err
	}
	if _, ok := s.slide.Infographic(id); !ok {
		return fmt.Errorf("studio: infographic %s: %w", id, deck.ErrNotFound)
	}
	if err := s.slide.UpdateInfographicContent(id, syntax); err != nil {
		return err
	}
	return s.persist(ctx)
}

// DeleteInfographic removes an infographic by hand.
func (s *Session) DeleteInfographic(ctx context.Context, id string) error {
	if err := s.idle(); err != nil {
		return err
	}
	if err := s.slide.DeleteInfographic(id); err != nil {
		return err
	}
	return s.persist(ctx)
}

// MoveInfographic reorders an infographic by hand.
func (s *Session) MoveInfographic(ctx context.Context, id string, index int) error {
	if err := s.idle(); err != nil {
		return err
	}
	if err := s.slide.MoveInfographic(id, index); err != nil {
		return err
	}
	return s.persist(ctx)
}

// DeleteMessage removes a message from the chat by index. See
// [deck.Chat.DeleteMessage].
func (s *Session) DeleteMessage(ctx context.Context, index int) error {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return deck.ErrBusy
	}
	err := s.chat.DeleteMessage(index)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("studio: %w", err)
	}
	return s.persist(ctx)
}

// SetTitle renames the slide.
func (s *Session) SetTitle(ctx context.Context, title string) error {
	s.slide.SetTitle(title)
	return s.persist(ctx)
}

func (s *Session) idle() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return deck.ErrBusy
	}
	return nil
}

func (s *Session) persist(ctx context.Context) error {
	snap := s.slide.Snapshot()
	if err := s.studio.slides.UpdateSlide(ctx, &snap); err != nil {
		return fmt.Errorf("studio: save slide: %w", err)
	}
	s.mu.Lock()
	chat := *s.chat
	chat.Messages = slices.Clone(chat.Messages)
	s.mu.Unlock()
	if err := s.studio.chats.SaveChat(ctx, &chat); err != nil {
		return fmt.Errorf("studio: save chat: %w", err)
	}
	return nil
}

// Close stops streaming work without applying pending content. Send fails
// afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.reconciler.Close()
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}
