// Package mock provides test doubles for deck interfaces using function fields.
package mock

import (
	"context"

	"github.com/fwojciec/deck"
)

// Interface compliance check.
var _ deck.Provider = (*Provider)(nil)

// Provider is a test double for deck.Provider.
// Set StreamFn before calling Stream.
type Provider struct {
	StreamFn func(ctx context.Context, req deck.Request) (deck.Stream, error)
}

// Stream delegates to StreamFn.
func (p *Provider) Stream(ctx context.Context, req deck.Request) (deck.Stream, error) {
	return p.StreamFn(ctx, req)
}
