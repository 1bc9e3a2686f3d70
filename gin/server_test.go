package gin_test

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fwojciec/deck"
	deckgin "github.com/fwojciec/deck/gin"
	"github.com/fwojciec/deck/gorm"
	"github.com/fwojciec/deck/mock"
	"github.com/fwojciec/deck/studio"
	"github.com/gin-gonic/gin"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

const syntax = "infographic list-row-simple-horizontal-arrow\ndata\n  items\n    - label Plan"

type fixture struct {
	server *deckgin.Server
	http   *httptest.Server
	db     *gorm.DB
	reqs   []deck.Request
	mu     sync.Mutex
}

type response struct {
	Code int
	Body string
}

// newFixture serves a studio backed by SQLite whose provider replays turns
// in order.
func newFixture(t *testing.T, opts []deckgin.Option, turns ...*mock.Stream) *fixture {
	t.Helper()
	f := &fixture{}
	logger, _ := logtest.NewNullLogger()
	db, err := gorm.Open(filepath.Join(t.TempDir(), "deck.db"), gorm.WithLogger(logger))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	f.db = db

	provider := &mock.Provider{StreamFn: func(_ context.Context, req deck.Request) (deck.Stream, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.reqs = append(f.reqs, req)
		if len(turns) == 0 {
			return nil, fmt.Errorf("no more turns")
		}
		s := turns[0]
		turns = turns[1:]
		return s, nil
	}}
	n := 0
	var idMu sync.Mutex
	st := studio.New(db, db, provider,
		studio.WithClock(mock.NewClock(time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC))),
		studio.WithLogger(logger),
		studio.WithIDGenerator(func() string {
			idMu.Lock()
			defer idMu.Unlock()
			n++
			return fmt.Sprintf("id-%d", n)
		}),
	)
	f.server = deckgin.New(st, db, db, append([]deckgin.Option{deckgin.WithLogger(logger)}, opts...)...)
	t.Cleanup(f.server.Close)
	f.http = httptest.NewServer(f.server.Handler())
	t.Cleanup(f.http.Close)
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) response {
	t.Helper()
	req, err := http.NewRequest(method, f.http.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	res, err := f.http.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return response{Code: res.StatusCode, Body: string(data)}
}

func (f *fixture) create(t *testing.T, title string) string {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/slides", fmt.Sprintf(`{"title":%q}`, title))
	require.Equal(t, http.StatusCreated, w.Code, w.Body)
	return gjson.Get(w.Body, "id").String()
}

type event struct {
	name string
	data string
}

func parseSSE(t *testing.T, body string) []event {
	t.Helper()
	var events []event
	var cur event
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if cur.name != "" {
				events = append(events, cur)
			}
			cur = event{}
		case strings.HasPrefix(line, "event:"):
			cur.name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			cur.data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}
	require.NoError(t, sc.Err())
	if cur.name != "" {
		events = append(events, cur)
	}
	return events
}

func names(events []event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.name
	}
	return out
}

func createTurn(callID, args string) *mock.Stream {
	call := deck.ToolCallBlock{ID: callID, Name: deck.ToolNameCreate, Arguments: json.RawMessage(args)}
	return mock.NewStream(
		deck.AssistantMessage{Content: []deck.ContentBlock{call}, StopReason: deck.StopToolUse},
		deck.EventToolCallBegin{ID: callID, Name: deck.ToolNameCreate},
		deck.EventToolCallDelta{ID: callID, Delta: args},
		deck.EventToolCallEnd{Call: call},
	)
}

func textTurn(text string) *mock.Stream {
	return mock.NewStream(
		deck.AssistantMessage{Content: []deck.ContentBlock{deck.TextBlock{Text: text}}, StopReason: deck.StopEndTurn},
		deck.EventTextDelta{Delta: text},
	)
}

func TestServer_Health(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	w := f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body)
}

func TestServer_Slides(t *testing.T) {
	t.Parallel()

	t.Run("create list get", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		id := f.create(t, "Roadmap")

		w := f.do(t, http.MethodGet, "/api/slides", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, int64(1), gjson.Get(w.Body, "#").Int())
		assert.Equal(t, "Roadmap", gjson.Get(w.Body, "0.title").String())

		w = f.do(t, http.MethodGet, "/api/slides/"+id, "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, id, gjson.Get(w.Body, "id").String())
		assert.NotEmpty(t, gjson.Get(w.Body, "chatId").String())
	})

	t.Run("missing slide", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		w := f.do(t, http.MethodGet, "/api/slides/nope", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, gjson.Get(w.Body, "error").String(), "not found")
	})

	t.Run("bad body", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		w := f.do(t, http.MethodPost, "/api/slides", `{`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("patch title and selection", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		id := f.create(t, "Draft")

		w := f.do(t, http.MethodPatch, "/api/slides/"+id, `{"title":"Final","selected":"ig-9"}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body)
		assert.Equal(t, "Final", gjson.Get(w.Body, "title").String())
		assert.False(t, gjson.Get(w.Body, "selected").Exists(), "unknown ids clear the selection")

		stored, err := f.db.FindSlideByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, "Final", stored.Title)
	})

	t.Run("delete", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		id := f.create(t, "Gone")

		chatID := gjson.Get(f.do(t, http.MethodGet, "/api/slides/"+id, "").Body, "chatId").String()
		require.NotEmpty(t, chatID)

		w := f.do(t, http.MethodDelete, "/api/slides/"+id, "")
		assert.Equal(t, http.StatusNoContent, w.Code)
		w = f.do(t, http.MethodDelete, "/api/slides/"+id, "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		w = f.do(t, http.MethodGet, "/api/chats/"+chatID, "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestServer_Chats(t *testing.T) {
	t.Parallel()

	// setup runs one text turn so the chat holds a user and an assistant message.
	setup := func(t *testing.T) (*fixture, string, string) {
		t.Helper()
		f := newFixture(t, nil, textTurn("Hello."))
		id := f.create(t, "Roadmap")
		w := f.do(t, http.MethodPost, "/api/slides/"+id+"/chat", `{"text":"hi"}`)
		require.Equal(t, http.StatusOK, w.Code)
		chatID := gjson.Get(f.do(t, http.MethodGet, "/api/slides/"+id, "").Body, "chatId").String()
		require.NotEmpty(t, chatID)
		return f, id, chatID
	}

	t.Run("list", func(t *testing.T) {
		t.Parallel()
		f, _, chatID := setup(t)
		f.create(t, "Second")

		w := f.do(t, http.MethodGet, "/api/chats", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, int64(2), gjson.Get(w.Body, "#").Int())
		assert.Contains(t, gjson.Get(w.Body, "#.id").String(), chatID)
		assert.False(t, gjson.Get(w.Body, "0.messages").Exists())
	})

	t.Run("delete message from an open session", func(t *testing.T) {
		t.Parallel()
		f, _, chatID := setup(t)

		w := f.do(t, http.MethodDelete, "/api/chats/"+chatID+"/messages/1", "")
		require.Equal(t, http.StatusNoContent, w.Code, w.Body)

		stored, err := f.db.FindChatByID(context.Background(), chatID)
		require.NoError(t, err)
		require.Len(t, stored.Messages, 1)
		assert.Equal(t, deck.RoleUser, stored.Messages[0].Role())

		w = f.do(t, http.MethodGet, "/api/chats/"+chatID, "")
		assert.Equal(t, int64(1), gjson.Get(w.Body, "messages.#").Int())
	})

	t.Run("delete message without a session", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		ctx := context.Background()
		require.NoError(t, f.db.SaveChat(ctx, &deck.Chat{ID: "c1", Messages: []deck.Message{
			deck.UserMessage{Content: []deck.ContentBlock{deck.TextBlock{Text: "one"}}},
			deck.UserMessage{Content: []deck.ContentBlock{deck.TextBlock{Text: "two"}}},
		}}))

		w := f.do(t, http.MethodDelete, "/api/chats/c1/messages/0", "")
		require.Equal(t, http.StatusNoContent, w.Code, w.Body)
		stored, err := f.db.FindChatByID(ctx, "c1")
		require.NoError(t, err)
		require.Len(t, stored.Messages, 1)

		assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, "/api/chats/c1/messages/7", "").Code)
		assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodDelete, "/api/chats/c1/messages/x", "").Code)
		assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, "/api/chats/nope/messages/0", "").Code)
	})

	t.Run("delete chat", func(t *testing.T) {
		t.Parallel()
		f, id, chatID := setup(t)

		w := f.do(t, http.MethodDelete, "/api/chats/"+chatID, "")
		require.Equal(t, http.StatusNoContent, w.Code, w.Body)
		assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/chats/"+chatID, "").Code)
		assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, "/api/chats/"+chatID, "").Code)

		// The slide survives and gets a fresh chat when reopened.
		w = f.do(t, http.MethodPatch, "/api/slides/"+id, `{"title":"Again"}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body)
		newChat := gjson.Get(w.Body, "chatId").String()
		assert.NotEmpty(t, newChat)
		assert.NotEqual(t, chatID, newChat)
	})
}

func TestServer_SessionOpenRunsUnlocked(t *testing.T) {
	t.Parallel()

	entered := make(chan struct{})
	release := make(chan struct{})
	slides := &mock.SlideService{
		FindSlideByIDFn: func(_ context.Context, id string) (*deck.Slide, error) {
			close(entered)
			<-release
			return nil, fmt.Errorf("slide %s: %w", id, deck.ErrNotFound)
		},
		ListSlidesFn: func(context.Context) ([]*deck.Slide, error) {
			return []*deck.Slide{{ID: "slow"}}, nil
		},
	}
	chats := &mock.ChatService{}
	logger, _ := logtest.NewNullLogger()
	st := studio.New(slides, chats, &mock.Provider{}, studio.WithLogger(logger))
	srv := deckgin.New(st, slides, chats, deckgin.WithLogger(logger))
	t.Cleanup(srv.Close)
	h := srv.Handler()

	opened := make(chan int, 1)
	go func() {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/api/slides/slow", strings.NewReader(`{"title":"x"}`)))
		opened <- w.Code
	}()
	<-entered

	listed := make(chan int, 1)
	go func() {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/slides", nil))
		listed <- w.Code
	}()
	select {
	case code := <-listed:
		assert.Equal(t, http.StatusOK, code)
	case <-time.After(2 * time.Second):
		t.Error("listing waited for another slide's session to open")
	}

	close(release)
	assert.Equal(t, http.StatusNotFound, <-opened)
	if t.Failed() {
		<-listed
	}
}

func TestServer_Chat(t *testing.T) {
	t.Parallel()

	t.Run("streams a turn and persists the slide", func(t *testing.T) {
		t.Parallel()
		args := fmt.Sprintf(`{"title":"Plan","syntax":%q}`, syntax)
		f := newFixture(t, nil, createTurn("call-1", args), textTurn("Done."))
		id := f.create(t, "Roadmap")

		w := f.do(t, http.MethodPost, "/api/slides/"+id+"/chat", `{"text":"Make a roadmap"}`)
		require.Equal(t, http.StatusOK, w.Code)
		events := parseSSE(t, w.Body)
		got := names(events)

		assert.Equal(t, "status", got[0])
		assert.Contains(t, got, "change")
		assert.Contains(t, got, "text")
		assert.Equal(t, "done", got[len(got)-1])
		assert.NotContains(t, got, "error")

		done := events[len(events)-1].data
		assert.Equal(t, int64(1), gjson.Get(done, "infographics.#").Int())
		assert.Equal(t, syntax, gjson.Get(done, "infographics.0.content").String())
		assert.Equal(t, "list-row-simple-horizontal-arrow", gjson.Get(done, "infographics.0.template").String())

		stored, err := f.db.FindSlideByID(context.Background(), id)
		require.NoError(t, err)
		require.Len(t, stored.Infographics, 1)
		assert.Equal(t, syntax, stored.Infographics[0].Content)

		w = f.do(t, http.MethodGet, "/api/chats/"+stored.ChatID, "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, int64(4), gjson.Get(w.Body, "messages.#").Int())

		f.mu.Lock()
		defer f.mu.Unlock()
		require.Len(t, f.reqs, 2)
		assert.NotEmpty(t, f.reqs[0].SystemPrompt)
		assert.Len(t, f.reqs[0].Tools, 4)
	})

	t.Run("provider failure ends with error then done", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		id := f.create(t, "Roadmap")

		w := f.do(t, http.MethodPost, "/api/slides/"+id+"/chat", `{"text":"hi"}`)
		require.Equal(t, http.StatusOK, w.Code)
		got := names(parseSSE(t, w.Body))
		assert.Contains(t, got, "error")
		assert.Equal(t, "done", got[len(got)-1])
	})

	t.Run("empty text", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		id := f.create(t, "Roadmap")
		w := f.do(t, http.MethodPost, "/api/slides/"+id+"/chat", `{"text":""}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rate limited per slide", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, []deckgin.Option{deckgin.WithRateLimit(rate.Every(time.Hour), 1)}, textTurn("one"), textTurn("two"))
		id := f.create(t, "Roadmap")
		other := f.create(t, "Other")

		w := f.do(t, http.MethodPost, "/api/slides/"+id+"/chat", `{"text":"first"}`)
		require.Equal(t, http.StatusOK, w.Code)
		w = f.do(t, http.MethodPost, "/api/slides/"+id+"/chat", `{"text":"second"}`)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		w = f.do(t, http.MethodPost, "/api/slides/"+other+"/chat", `{"text":"first"}`)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestServer_Infographics(t *testing.T) {
	t.Parallel()

	setup := func(t *testing.T) (*fixture, string, string) {
		t.Helper()
		args := fmt.Sprintf(`{"syntax":%q}`, syntax)
		f := newFixture(t, nil, createTurn("call-1", args), textTurn("ok"), createTurn("call-2", args), textTurn("ok"))
		id := f.create(t, "Roadmap")
		for range 2 {
			w := f.do(t, http.MethodPost, "/api/slides/"+id+"/chat", `{"text":"add one"}`)
			require.Equal(t, http.StatusOK, w.Code)
		}
		w := f.do(t, http.MethodGet, "/api/slides/"+id, "")
		require.Equal(t, int64(2), gjson.Get(w.Body, "infographics.#").Int())
		return f, id, gjson.Get(w.Body, "infographics.0.id").String()
	}

	t.Run("put", func(t *testing.T) {
		t.Parallel()
		f, id, ig := setup(t)
		w := f.do(t, http.MethodPut, "/api/slides/"+id+"/infographics/"+ig, `{"syntax":"infographic sequence-steps-simple"}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body)
		assert.Equal(t, "sequence-steps-simple", gjson.Get(w.Body, "template").String())

		w = f.do(t, http.MethodPut, "/api/slides/"+id+"/infographics/nope", `{"syntax":"infographic x"}`)
		assert.Equal(t, http.StatusNotFound, w.Code)
		w = f.do(t, http.MethodPut, "/api/slides/"+id+"/infographics/"+ig, `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("move", func(t *testing.T) {
		t.Parallel()
		f, id, ig := setup(t)
		w := f.do(t, http.MethodPost, "/api/slides/"+id+"/infographics/"+ig+"/move", `{"index":1}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body)
		assert.Equal(t, ig, gjson.Get(w.Body, "infographics.1.id").String())
	})

	t.Run("delete", func(t *testing.T) {
		t.Parallel()
		f, id, ig := setup(t)
		w := f.do(t, http.MethodDelete, "/api/slides/"+id+"/infographics/"+ig, "")
		require.Equal(t, http.StatusNoContent, w.Code)
		w = f.do(t, http.MethodDelete, "/api/slides/"+id+"/infographics/"+ig, "")
		assert.Equal(t, http.StatusNotFound, w.Code)

		stored, err := f.db.FindSlideByID(context.Background(), id)
		require.NoError(t, err)
		assert.Len(t, stored.Infographics, 1)
	})
}
