package deck

// Usage counts the tokens of one model response. Providers normalize their
// fields so that InputTokens excludes cached tokens; the three input
// categories never overlap and derived values are clamped at zero.
type Usage struct {
	InputTokens      int
	OutputTokens     int
	CacheReadTokens  int
	CacheWriteTokens int
}

// Input returns every input token, cached or not.
func (u Usage) Input() int {
	return u.InputTokens + u.CacheReadTokens + u.CacheWriteTokens
}

// Add returns the sum of u and o. A turn with several model steps reports
// the sum of its responses.
func (u Usage) Add(o Usage) Usage {
	return Usage{
		InputTokens:      u.InputTokens + o.InputTokens,
		OutputTokens:     u.OutputTokens + o.OutputTokens,
		CacheReadTokens:  u.CacheReadTokens + o.CacheReadTokens,
		CacheWriteTokens: u.CacheWriteTokens + o.CacheWriteTokens,
	}
}
