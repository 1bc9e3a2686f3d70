package mock

import "github.com/fwojciec/deck"

// Interface compliance check.
var _ deck.InfographicEditor = (*InfographicEditor)(nil)

// InfographicEditor is a test double for deck.InfographicEditor.
type InfographicEditor struct {
	InsertInfographicFn        func(ig deck.Infographic, afterID string) error
	UpdateInfographicContentFn func(id, content string) error
}

// InsertInfographic delegates to InsertInfographicFn.
func (e *InfographicEditor) InsertInfographic(ig deck.Infographic, afterID string) error {
	return e.InsertInfographicFn(ig, afterID)
}

// UpdateInfographicContent delegates to UpdateInfographicContentFn.
func (e *InfographicEditor) UpdateInfographicContent(id, content string) error {
	return e.UpdateInfographicContentFn(id, content)
}
