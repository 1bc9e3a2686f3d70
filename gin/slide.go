package gin

import (
	"fmt"
	"net/http"

	"github.com/fwojciec/deck"
	"github.com/gin-gonic/gin"
)

func (s *Server) listSlides(c *gin.Context) {
	slides, err := s.slides.ListSlides(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	out := make([]slideResponse, len(slides))
	for i, sl := range slides {
		if sess, ok := s.cached(sl.ID); ok {
			out[i] = sessionResponse(sess.Slide(), sess.Selected(), sess.Busy())
			continue
		}
		out[i] = newSlideResponse(*sl)
	}
	c.JSON(http.StatusOK, out)
}

type createSlideRequest struct {
	Title string `json:"title"`
}

func (s *Server) createSlide(c *gin.Context) {
	var req createSlideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, fmt.Errorf("invalid body: %v: %w", err, deck.ErrValidation))
		return
	}
	sl, err := s.studio.Create(c.Request.Context(), req.Title)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, newSlideResponse(*sl))
}

func (s *Server) getSlide(c *gin.Context) {
	id := c.Param("id")
	if sess, ok := s.cached(id); ok {
		c.JSON(http.StatusOK, sessionResponse(sess.Slide(), sess.Selected(), sess.Busy()))
		return
	}
	sl, err := s.slides.FindSlideByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newSlideResponse(*sl))
}

type patchSlideRequest struct {
	Title    *string `json:"title"`
	Selected *string `json:"selected"`
}

func (s *Server) patchSlide(c *gin.Context) {
	var req patchSlideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, fmt.Errorf("invalid body: %v: %w", err, deck.ErrValidation))
		return
	}
	sess, err := s.session(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if req.Selected != nil {
		sess.Select(*req.Selected)
	}
	if req.Title != nil {
		if err := sess.SetTitle(c.Request.Context(), *req.Title); err != nil {
			fail(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, sessionResponse(sess.Slide(), sess.Selected(), sess.Busy()))
}

func (s *Server) deleteSlide(c *gin.Context) {
	id := c.Param("id")
	if sess, ok := s.cached(id); ok && sess.Busy() {
		fail(c, fmt.Errorf("slide %s: %w", id, deck.ErrBusy))
		return
	}
	if err := s.slides.DeleteSlide(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	s.forget(id)
	c.Status(http.StatusNoContent)
}

type infographicRequest struct {
	Syntax string `json:"syntax" binding:"required"`
}

func (s *Server) putInfographic(c *gin.Context) {
	var req infographicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, fmt.Errorf("invalid body: %v: %w", err, deck.ErrValidation))
		return
	}
	sess, err := s.session(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	id := c.Param("infographicId")
	if err := sess.UpdateInfographic(c.Request.Context(), id, req.Syntax); err != nil {
		fail(c, err)
		return
	}
	sl := sess.Slide()
	i := sl.Index(id)
	if i < 0 {
		fail(c, fmt.Errorf("infographic %s: %w", id, deck.ErrNotFound))
		return
	}
	c.JSON(http.StatusOK, newInfographicResponse(sl.Infographics[i]))
}

func (s *Server) deleteInfographic(c *gin.Context) {
	sess, err := s.session(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if err := sess.DeleteInfographic(c.Request.Context(), c.Param("infographicId")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type moveRequest struct {
	Index *int `json:"index" binding:"required"`
}

func (s *Server) moveInfographic(c *gin.Context) {
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, fmt.Errorf("invalid body: %v: %w", err, deck.ErrValidation))
		return
	}
	sess, err := s.session(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if err := sess.MoveInfographic(c.Request.Context(), c.Param("infographicId"), *req.Index); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse(sess.Slide(), sess.Selected(), sess.Busy()))
}

func sessionResponse(sl deck.Slide, selected string, busy bool) slideResponse {
	r := newSlideResponse(sl)
	r.Selected = selected
	r.Busy = busy
	return r
}
