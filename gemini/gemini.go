// Package gemini implements [deck.Provider] for the Google Gemini API.
//
// It wraps the google.golang.org/genai SDK. The SDK delivers whole function
// calls per chunk, so each call is surfaced as a begin, a single delta
// carrying the full argument JSON, and an end event. The slide reconciler
// sees the same event shape as it does for providers that stream arguments.
package gemini

const (
	defaultModel     = "gemini-3.1-pro-preview"
	defaultMaxTokens = 65536
)
