// Package gin serves slides and chats over HTTP with gin. Chat turns stream
// back to the client as server-sent events while the slide is rebuilt.
package gin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/fwojciec/deck"
	"github.com/fwojciec/deck/studio"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	defaultRate  = rate.Limit(0.5)
	defaultBurst = 2

	shutdownTimeout = 5 * time.Second
)

// Server routes HTTP requests to a [studio.Studio]. Open sessions are
// cached per slide so concurrent requests see one live slide.
type Server struct {
	studio *studio.Studio
	slides deck.SlideService
	chats  deck.ChatService
	engine *gin.Engine
	logger logrus.FieldLogger

	limit rate.Limit
	burst int

	mu       sync.Mutex
	sessions map[string]*studio.Session
	limiters map[string]*rate.Limiter
}

// Option configures a [Server].
type Option func(*Server)

// WithLogger sets the logger used for access and error logs.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Server) { s.logger = l }
}

// WithRateLimit sets the per-slide limit for chat messages.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(s *Server) {
		s.limit = limit
		s.burst = burst
	}
}

// New returns a Server with its routes registered.
func New(st *studio.Studio, slides deck.SlideService, chats deck.ChatService, opts ...Option) *Server {
	s := &Server{
		studio:   st,
		slides:   slides,
		chats:    chats,
		logger:   logrus.StandardLogger(),
		limit:    defaultRate,
		burst:    defaultBurst,
		sessions: make(map[string]*studio.Session),
		limiters: make(map[string]*rate.Limiter),
	}
	for _, o := range opts {
		o(s)
	}

	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), s.accessLog())
	s.engine.GET("/health", s.health)

	api := s.engine.Group("/api")
	{
		api.GET("/slides", s.listSlides)
		api.POST("/slides", s.createSlide)
		api.GET("/slides/:id", s.getSlide)
		api.PATCH("/slides/:id", s.patchSlide)
		api.DELETE("/slides/:id", s.deleteSlide)
		api.PUT("/slides/:id/infographics/:infographicId", s.putInfographic)
		api.DELETE("/slides/:id/infographics/:infographicId", s.deleteInfographic)
		api.POST("/slides/:id/infographics/:infographicId/move", s.moveInfographic)
		api.POST("/slides/:id/chat", s.chat)
		api.GET("/chats", s.listChats)
		api.GET("/chats/:id", s.getChat)
		api.DELETE("/chats/:id", s.deleteChat)
		api.DELETE("/chats/:id/messages/:index", s.deleteMessage)
	}
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

// ListenAndServe serves on addr until ctx is canceled, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.WithField("addr", addr).Info("gin: listening")

	select {
	case err := <-errc:
		return fmt.Errorf("gin: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("gin: shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("gin: %w", err)
	}
	return nil
}

// Close closes all cached sessions.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		sess.Close()
		delete(s.sessions, id)
	}
}

// session returns the cached session for a slide, opening it on first use.
// Opening reads the database, so it runs unlocked; when two requests race,
// the first stored session wins and the other is closed.
func (s *Server) session(ctx context.Context, id string) (*studio.Session, error) {
	if sess, ok := s.cached(id); ok {
		return sess, nil
	}
	sess, err := s.studio.Open(ctx, id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[id]; ok {
		sess.Close()
		return existing, nil
	}
	s.sessions[id] = sess
	return sess, nil
}

// chatSession returns the open session whose chat has the given id.
func (s *Server) chatSession(chatID string) (*studio.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.ChatID() == chatID {
			return sess, true
		}
	}
	return nil, false
}

// cached returns the open session for a slide without opening one.
func (s *Server) cached(id string) (*studio.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

func (s *Server) forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		sess.Close()
		delete(s.sessions, id)
	}
	delete(s.limiters, id)
}

func (s *Server) allow(id string) bool {
	s.mu.Lock()
	l, ok := s.limiters[id]
	if !ok {
		l = rate.NewLimiter(s.limit, s.burst)
		s.limiters[id] = l
	}
	s.mu.Unlock()
	return l.Allow()
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		entry := s.logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		})
		if len(c.Errors) > 0 {
			entry.WithError(c.Errors.Last()).Warn("gin: request failed")
			return
		}
		entry.Debug("gin: request")
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
