package gin

import (
	"errors"
	"net/http"
	"time"

	"github.com/fwojciec/deck"
	"github.com/gin-gonic/gin"
)

type infographicResponse struct {
	ID       string `json:"id"`
	Content  string `json:"content"`
	Template string `json:"template,omitempty"`
}

type slideResponse struct {
	ID           string                `json:"id"`
	ChatID       string                `json:"chatId,omitempty"`
	Title        string                `json:"title"`
	Position     int                   `json:"position"`
	Selected     string                `json:"selected,omitempty"`
	Busy         bool                  `json:"busy,omitempty"`
	Infographics []infographicResponse `json:"infographics"`
	CreatedAt    time.Time             `json:"createdAt"`
	UpdatedAt    time.Time             `json:"updatedAt"`
}

func newInfographicResponse(ig deck.Infographic) infographicResponse {
	return infographicResponse{ID: ig.ID, Content: ig.Content, Template: ig.Template()}
}

func newSlideResponse(sl deck.Slide) slideResponse {
	igs := make([]infographicResponse, len(sl.Infographics))
	for i, ig := range sl.Infographics {
		igs[i] = newInfographicResponse(ig)
	}
	return slideResponse{
		ID:           sl.ID,
		ChatID:       sl.ChatID,
		Title:        sl.Title,
		Position:     sl.Position,
		Infographics: igs,
		CreatedAt:    sl.CreatedAt,
		UpdatedAt:    sl.UpdatedAt,
	}
}

type changeResponse struct {
	Op          deck.ChangeOp       `json:"op"`
	Infographic infographicResponse `json:"infographic"`
	AfterID     string              `json:"afterId,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, deck.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, deck.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, deck.ErrConflict), errors.Is(err, deck.ErrBusy):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail records err on the context and writes its JSON error response.
// Internal errors are not echoed to the client.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	code := statusOf(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		msg = http.StatusText(code)
	}
	c.AbortWithStatusJSON(code, errorResponse{Error: msg})
}
