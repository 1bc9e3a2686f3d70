package gin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/fwojciec/deck"
	deckjson "github.com/fwojciec/deck/json"
	"github.com/fwojciec/deck/studio"
	"github.com/gin-gonic/gin"
)

// sse is one server-sent event queued for the response writer.
type sse struct {
	name string
	data any
}

type chatRequest struct {
	Text string `json:"text" binding:"required"`
}

// chat runs one turn and streams its progress. Observer callbacks arrive
// from the turn goroutine and the throttle timer, so they are funneled
// through a channel to the single writer.
func (s *Server) chat(c *gin.Context) {
	id := c.Param("id")
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, fmt.Errorf("invalid body: %v: %w", err, deck.ErrValidation))
		return
	}
	if !s.allow(id) {
		_ = c.Error(fmt.Errorf("slide %s: rate limited", id))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{Error: "too many messages, slow down"})
		return
	}
	ctx := c.Request.Context()
	sess, err := s.session(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}
	if sess.Busy() {
		fail(c, fmt.Errorf("slide %s: %w", id, deck.ErrBusy))
		return
	}

	events := make(chan sse, 64)
	done := make(chan error, 1)
	send := func(name string, data any) {
		select {
		case events <- sse{name: name, data: data}:
		case <-ctx.Done():
		}
	}
	go func() {
		done <- sess.Send(ctx, req.Text, observer(send))
	}()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Stream(func(w io.Writer) bool {
		select {
		case e := <-events:
			c.SSEvent(e.name, e.data)
			return true
		case err := <-done:
			// Drain what the turn queued before it returned.
		drain:
			for {
				select {
				case e := <-events:
					c.SSEvent(e.name, e.data)
				default:
					break drain
				}
			}
			s.finish(c, sess, err)
			return false
		case <-ctx.Done():
			s.logger.WithField("slide_id", id).Debug("gin: client disconnected")
			return false
		}
	})
}

func (s *Server) finish(c *gin.Context, sess *studio.Session, err error) {
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		return
	case errors.Is(err, deck.ErrBusy):
		c.SSEvent("error", errorResponse{Error: err.Error()})
		return
	default:
		_ = c.Error(err)
		c.SSEvent("error", errorResponse{Error: err.Error()})
	}
	c.SSEvent("done", sessionResponse(sess.Slide(), sess.Selected(), false))
}

func observer(send func(string, any)) studio.Observer {
	return studio.Observer{
		OnEvent: func(e deck.Event) {
			switch e := e.(type) {
			case deck.EventTextDelta:
				send("text", gin.H{"delta": e.Delta})
			case deck.EventToolCallBegin:
				send("tool", gin.H{"id": e.ID, "name": e.Name, "state": "begin"})
			case deck.EventToolResult:
				send("tool", gin.H{"id": e.ID, "name": e.ToolName, "state": "result", "isError": e.IsError})
			}
		},
		OnChange: func(ch deck.SlideChange) {
			send("change", changeResponse{
				Op:          ch.Op,
				Infographic: newInfographicResponse(ch.Infographic),
				AfterID:     ch.AfterID,
			})
		},
		OnFocus: func(id string) {
			send("focus", gin.H{"infographicId": id})
		},
		OnStatus: func(st deck.ChatStatus) {
			send("status", gin.H{"status": st})
		},
	}
}

type chatSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// listChats returns the recent chats, newest first, without messages.
func (s *Server) listChats(c *gin.Context) {
	chats, err := s.chats.ListChats(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	out := make([]chatSummary, len(chats))
	for i, ch := range chats {
		out[i] = chatSummary{ID: ch.ID, Title: ch.Title, CreatedAt: ch.CreatedAt, UpdatedAt: ch.UpdatedAt}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getChat(c *gin.Context) {
	id := c.Param("id")
	var chat deck.Chat
	if sess, ok := s.chatSession(id); ok {
		chat = sess.Chat()
	} else {
		found, err := s.chats.FindChatByID(c.Request.Context(), id)
		if err != nil {
			fail(c, err)
			return
		}
		chat = *found
	}
	data, err := deckjson.MarshalChat(chat)
	if err != nil {
		fail(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

// deleteChat removes a chat. A slide that used it starts a new chat the
// next time it is opened.
func (s *Server) deleteChat(c *gin.Context) {
	id := c.Param("id")
	if sess, ok := s.chatSession(id); ok {
		if sess.Busy() {
			fail(c, fmt.Errorf("chat %s: %w", id, deck.ErrBusy))
			return
		}
		s.forget(sess.ID())
	}
	if err := s.chats.DeleteChat(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// deleteMessage removes one message, by position, from a chat.
func (s *Server) deleteMessage(c *gin.Context) {
	id := c.Param("id")
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		fail(c, fmt.Errorf("message index %q: %w", c.Param("index"), deck.ErrValidation))
		return
	}
	ctx := c.Request.Context()
	if sess, ok := s.chatSession(id); ok {
		if err := sess.DeleteMessage(ctx, index); err != nil {
			fail(c, err)
			return
		}
		c.Status(http.StatusNoContent)
		return
	}
	chat, err := s.chats.FindChatByID(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}
	if err := chat.DeleteMessage(index); err != nil {
		fail(c, err)
		return
	}
	if err := s.chats.SaveChat(ctx, chat); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
