package studio_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fwojciec/deck"
	"github.com/fwojciec/deck/mock"
	"github.com/fwojciec/deck/studio"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// store keeps slides and chats in maps behind the mock services.
type store struct {
	mu     sync.Mutex
	slides map[string]deck.Slide
	chats  map[string]deck.Chat
	saves  int
}

func newStore(slides ...deck.Slide) *store {
	s := &store{slides: map[string]deck.Slide{}, chats: map[string]deck.Chat{}}
	for _, sl := range slides {
		s.slides[sl.ID] = sl
	}
	return s
}

func (s *store) slideService() *mock.SlideService {
	return &mock.SlideService{
		FindSlideByIDFn: func(_ context.Context, id string) (*deck.Slide, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			sl, ok := s.slides[id]
			if !ok {
				return nil, deck.ErrNotFound
			}
			return &sl, nil
		},
		CreateSlideFn: func(_ context.Context, sl *deck.Slide) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.slides[sl.ID] = *sl
			return nil
		},
		UpdateSlideFn: func(_ context.Context, sl *deck.Slide) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.slides[sl.ID] = *sl
			return nil
		},
	}
}

func (s *store) chatService() *mock.ChatService {
	return &mock.ChatService{
		FindChatByIDFn: func(_ context.Context, id string) (*deck.Chat, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			c, ok := s.chats[id]
			if !ok {
				return nil, deck.ErrNotFound
			}
			return &c, nil
		},
		SaveChatFn: func(_ context.Context, c *deck.Chat) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.chats[c.ID] = *c
			s.saves++
			return nil
		},
	}
}

func (s *store) slide(id string) deck.Slide {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slides[id]
}

func (s *store) chat(id string) deck.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chats[id]
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

// turns returns a provider replaying one scripted stream per request.
func turns(streams ...func() *mock.Stream) *mock.Provider {
	var mu sync.Mutex
	n := 0
	return &mock.Provider{
		StreamFn: func(_ context.Context, _ deck.Request) (deck.Stream, error) {
			mu.Lock()
			defer mu.Unlock()
			s := streams[min(n, len(streams)-1)]
			n++
			return s(), nil
		},
	}
}

func reply(text string) func() *mock.Stream {
	return func() *mock.Stream {
		return mock.NewStream(deck.AssistantMessage{
			Content:    []deck.ContentBlock{deck.TextBlock{Text: text}},
			StopReason: deck.StopEndTurn,
		}, deck.EventTextDelta{Delta: text})
	}
}

// toolTurn streams a single tool call whose arguments arrive in chunks.
func toolTurn(id, name string, chunks ...string) func() *mock.Stream {
	return func() *mock.Stream {
		var args string
		events := []deck.Event{deck.EventToolCallBegin{ID: id, Name: name}}
		for _, c := range chunks {
			args += c
			events = append(events, deck.EventToolCallDelta{ID: id, Delta: c})
		}
		call := deck.ToolCallBlock{ID: id, Name: name, Arguments: json.RawMessage(args)}
		events = append(events, deck.EventToolCallEnd{Call: call})
		return mock.NewStream(deck.AssistantMessage{
			Content:    []deck.ContentBlock{call},
			StopReason: deck.StopToolUse,
		}, events...)
	}
}

type fixture struct {
	store  *store
	studio *studio.Studio
	clock  *mock.Clock
}

func newFixture(t *testing.T, provider deck.Provider, slides ...deck.Slide) *fixture {
	t.Helper()
	st := newStore(slides...)
	clock := mock.NewClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	logger, _ := logtest.NewNullLogger()
	return &fixture{
		store: st,
		clock: clock,
		studio: studio.New(st.slideService(), st.chatService(), provider,
			studio.WithClock(clock),
			studio.WithIDGenerator(sequentialIDs()),
			studio.WithLogger(logger),
		),
	}
}

func contents(s deck.Slide) []string {
	out := make([]string, 0, len(s.Infographics))
	for _, ig := range s.Infographics {
		out = append(out, ig.ID+":"+ig.Content)
	}
	return out
}

func TestStudio_Create(t *testing.T) {
	t.Parallel()

	f := newFixture(t, turns(reply("hi")))
	slide, err := f.studio.Create(context.Background(), "Roadmap")
	require.NoError(t, err)

	assert.Equal(t, "id-2", slide.ID)
	assert.Equal(t, "id-1", slide.ChatID)
	assert.Equal(t, "Roadmap", f.store.slide("id-2").Title)
	chat := f.store.chat("id-1")
	assert.Equal(t, "Roadmap", chat.Title)
	assert.Contains(t, chat.SystemPrompt, deck.ToolNameCreate)
}

func TestStudio_Open(t *testing.T) {
	t.Parallel()

	t.Run("creates and links a missing chat", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, turns(reply("hi")), deck.Slide{ID: "s1", Title: "Plan"})

		sess, err := f.studio.Open(context.Background(), "s1")
		require.NoError(t, err)
		defer sess.Close()

		assert.Equal(t, "s1", sess.ID())
		assert.Equal(t, "id-1", f.store.slide("s1").ChatID)
		assert.Equal(t, "Plan", f.store.chat("id-1").Title)
		assert.NotEmpty(t, sess.Chat().SystemPrompt)
	})

	t.Run("loads the linked chat", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, turns(reply("hi")), deck.Slide{ID: "s1", ChatID: "c1"})
		f.store.chats["c1"] = deck.Chat{ID: "c1", Title: "Existing", SystemPrompt: "custom"}

		sess, err := f.studio.Open(context.Background(), "s1")
		require.NoError(t, err)
		defer sess.Close()

		assert.Equal(t, "Existing", sess.Chat().Title)
		assert.Equal(t, "custom", sess.Chat().SystemPrompt)
	})

	t.Run("unknown slide", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, turns(reply("hi")))

		_, err := f.studio.Open(context.Background(), "nope")
		require.ErrorIs(t, err, deck.ErrNotFound)
	})
}

func TestSession_Send(t *testing.T) {
	t.Parallel()

	t.Run("streams a created infographic onto the slide", func(t *testing.T) {
		t.Parallel()
		provider := turns(
			toolTurn("tc_1", deck.ToolNameCreate,
				`{"title":"Goals","syntax":"infographic list`,
				`-grid-badge-card\ndata\n  title Goals`,
				`\n  items\n    - label Hire"}`,
			),
			reply("Added it."),
		)
		f := newFixture(t, provider, deck.Slide{ID: "s1"})
		sess, err := f.studio.Open(context.Background(), "s1")
		require.NoError(t, err)
		defer sess.Close()

		var mu sync.Mutex
		var ops []deck.ChangeOp
		var statuses []deck.ChatStatus
		err = sess.Send(context.Background(), "Quarterly goals: hire", studio.Observer{
			OnChange: func(c deck.SlideChange) {
				mu.Lock()
				defer mu.Unlock()
				ops = append(ops, c.Op)
			},
			OnStatus: func(s deck.ChatStatus) { statuses = append(statuses, s) },
		})
		require.NoError(t, err)

		want := "infographic list-grid-badge-card\ndata\n  title Goals\n  items\n    - label Hire"
		assert.Equal(t, []string{"id-2:" + want}, contents(sess.Slide()))
		assert.Equal(t, deck.ChangeInsert, ops[0])
		assert.Equal(t, []deck.ChatStatus{deck.StatusSubmitted, deck.StatusStreaming, deck.StatusReady}, statuses)

		saved := f.store.slide("s1")
		assert.Equal(t, []string{"id-2:" + want}, contents(saved))
		chat := f.store.chat("id-1")
		require.Len(t, chat.Messages, 4)
		assert.Equal(t, "Quarterly goals: hire", chat.Title)
		trm, ok := chat.Messages[2].(deck.ToolResultMessage)
		require.True(t, ok)
		assert.False(t, trm.IsError)
	})

	t.Run("edit jumps the selection to its target", func(t *testing.T) {
		t.Parallel()
		provider := turns(
			toolTurn("tc_1", deck.ToolNameEdit, `{"infographicId":"b",`, `"syntax":"infographic v2"}`),
			reply("Updated."),
		)
		f := newFixture(t, provider, deck.Slide{ID: "s1", Infographics: []deck.Infographic{
			{ID: "a", Content: "infographic a"},
			{ID: "b", Content: "infographic b"},
		}})
		sess, err := f.studio.Open(context.Background(), "s1")
		require.NoError(t, err)
		defer sess.Close()

		var focused []string
		err = sess.Send(context.Background(), "update b", studio.Observer{
			OnFocus: func(id string) { focused = append(focused, id) },
		})
		require.NoError(t, err)

		assert.Equal(t, []string{"b"}, focused)
		assert.Equal(t, "b", sess.Selected())
		assert.Equal(t, []string{"a:infographic a", "b:infographic v2"}, contents(sess.Slide()))
	})

	t.Run("new infographic follows the selection", func(t *testing.T) {
		t.Parallel()
		provider := turns(
			toolTurn("tc_1", deck.ToolNameCreate, `{"syntax":"infographic new"}`),
			reply("ok"),
		)
		f := newFixture(t, provider, deck.Slide{ID: "s1", Infographics: []deck.Infographic{
			{ID: "a", Content: "x"},
			{ID: "b", Content: "y"},
		}})
		sess, err := f.studio.Open(context.Background(), "s1")
		require.NoError(t, err)
		defer sess.Close()
		sess.Select("a")

		require.NoError(t, sess.Send(context.Background(), "add one", studio.Observer{}))

		assert.Equal(t, []string{"a:x", "id-2:infographic new", "b:y"}, contents(sess.Slide()))
	})

	t.Run("syntax written as text is applied", func(t *testing.T) {
		t.Parallel()
		provider := turns(reply("Here:\n\n```plain\ninfographic chart-pie-plain-text\ndata\n  title Share\n```"))
		f := newFixture(t, provider, deck.Slide{ID: "s1"})
		sess, err := f.studio.Open(context.Background(), "s1")
		require.NoError(t, err)
		defer sess.Close()

		require.NoError(t, sess.Send(context.Background(), "pie chart", studio.Observer{}))

		assert.Equal(t, []string{"id-2:infographic chart-pie-plain-text\ndata\n  title Share"}, contents(sess.Slide()))
		assert.Equal(t, "id-2", sess.Selected())
	})

	t.Run("syntax written as text replaces the selection", func(t *testing.T) {
		t.Parallel()
		provider := turns(reply("```plain\ninfographic compare-swot\n```"))
		f := newFixture(t, provider, deck.Slide{ID: "s1", Infographics: []deck.Infographic{{ID: "a", Content: "old"}}})
		sess, err := f.studio.Open(context.Background(), "s1")
		require.NoError(t, err)
		defer sess.Close()
		sess.Select("a")

		require.NoError(t, sess.Send(context.Background(), "swot", studio.Observer{}))

		assert.Equal(t, []string{"a:infographic compare-swot"}, contents(sess.Slide()))
	})

	t.Run("provider failure ends the turn and still persists", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("overloaded")
		provider := &mock.Provider{
			StreamFn: func(_ context.Context, _ deck.Request) (deck.Stream, error) { return nil, boom },
		}
		f := newFixture(t, provider, deck.Slide{ID: "s1"})
		sess, err := f.studio.Open(context.Background(), "s1")
		require.NoError(t, err)
		defer sess.Close()

		var statuses []deck.ChatStatus
		err = sess.Send(context.Background(), "hello", studio.Observer{
			OnStatus: func(s deck.ChatStatus) { statuses = append(statuses, s) },
		})
		require.ErrorIs(t, err, boom)

		assert.Equal(t, []deck.ChatStatus{deck.StatusSubmitted, deck.StatusError}, statuses)
		assert.Len(t, f.store.chat("id-1").Messages, 1)
		assert.False(t, sess.Busy())
	})

	t.Run("rejects a second message while busy", func(t *testing.T) {
		t.Parallel()
		release := make(chan struct{})
		started := make(chan struct{})
		provider := &mock.Provider{
			StreamFn: func(_ context.Context, _ deck.Request) (deck.Stream, error) {
				close(started)
				<-release
				return reply("done")(), nil
			},
		}
		f := newFixture(t, provider, deck.Slide{ID: "s1"})
		sess, err := f.studio.Open(context.Background(), "s1")
		require.NoError(t, err)
		defer sess.Close()

		done := make(chan error, 1)
		go func() { done <- sess.Send(context.Background(), "first", studio.Observer{}) }()
		<-started

		assert.True(t, sess.Busy())
		require.ErrorIs(t, sess.Send(context.Background(), "second", studio.Observer{}), deck.ErrBusy)
		require.ErrorIs(t, sess.DeleteInfographic(context.Background(), "x"), deck.ErrBusy)

		close(release)
		require.NoError(t, <-done)
		assert.False(t, sess.Busy())
	})

	t.Run("rejects empty text", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, turns(reply("x")), deck.Slide{ID: "s1"})
		sess, err := f.studio.Open(context.Background(), "s1")
		require.NoError(t, err)
		defer sess.Close()

		require.ErrorIs(t, sess.Send(context.Background(), "  ", studio.Observer{}), deck.ErrValidation)
	})

	t.Run("fails after close", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, turns(reply("x")), deck.Slide{ID: "s1"})
		sess, err := f.studio.Open(context.Background(), "s1")
		require.NoError(t, err)
		sess.Close()

		require.ErrorIs(t, sess.Send(context.Background(), "hi", studio.Observer{}), deck.ErrStreamClosed)
	})
}

func TestSession_HandEdits(t *testing.T) {
	t.Parallel()

	open := func(t *testing.T) (*fixture, *studio.Session) {
		t.Helper()
		f := newFixture(t, turns(reply("x")), deck.Slide{ID: "s1", Infographics: []deck.Infographic{
			{ID: "a", Content: "one"},
			{ID: "b", Content: "two"},
		}})
		sess, err := f.studio.Open(context.Background(), "s1")
		require.NoError(t, err)
		t.Cleanup(sess.Close)
		return f, sess
	}

	t.Run("update persists", func(t *testing.T) {
		t.Parallel()
		f, sess := open(t)

		require.NoError(t, sess.UpdateInfographic(context.Background(), "a", "uno"))
		assert.Equal(t, []string{"a:uno", "b:two"}, contents(f.store.slide("s1")))
	})

	t.Run("update of unknown id", func(t *testing.T) {
		t.Parallel()
		_, sess := open(t)

		require.ErrorIs(t, sess.UpdateInfographic(context.Background(), "zz", "x"), deck.ErrNotFound)
	})

	t.Run("delete persists", func(t *testing.T) {
		t.Parallel()
		f, sess := open(t)

		require.NoError(t, sess.DeleteInfographic(context.Background(), "a"))
		assert.Equal(t, []string{"b:two"}, contents(f.store.slide("s1")))
	})

	t.Run("move persists", func(t *testing.T) {
		t.Parallel()
		f, sess := open(t)

		require.NoError(t, sess.MoveInfographic(context.Background(), "b", 0))
		assert.Equal(t, []string{"b:two", "a:one"}, contents(f.store.slide("s1")))
	})

	t.Run("message deletion persists the chat", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, turns(reply("x")), deck.Slide{ID: "s1", ChatID: "c1"})
		f.store.chats["c1"] = deck.Chat{ID: "c1", Messages: []deck.Message{
			deck.UserMessage{Content: []deck.ContentBlock{deck.TextBlock{Text: "first"}}},
			deck.UserMessage{Content: []deck.ContentBlock{deck.TextBlock{Text: "second"}}},
		}}
		sess, err := f.studio.Open(context.Background(), "s1")
		require.NoError(t, err)
		t.Cleanup(sess.Close)

		require.NoError(t, sess.DeleteMessage(context.Background(), 0))
		require.Len(t, f.store.chat("c1").Messages, 1)
		assert.Len(t, sess.Chat().Messages, 1)
		require.ErrorIs(t, sess.DeleteMessage(context.Background(), 5), deck.ErrNotFound)
	})

	t.Run("title persists", func(t *testing.T) {
		t.Parallel()
		f, sess := open(t)

		require.NoError(t, sess.SetTitle(context.Background(), "Renamed"))
		assert.Equal(t, "Renamed", f.store.slide("s1").Title)
	})
}
