package deck

// StopReason is why a model response ended, normalized across providers.
type StopReason string

const (
	StopEndTurn StopReason = "end_turn"
	StopLength  StopReason = "length"
	StopToolUse StopReason = "tool_use"
	StopError   StopReason = "error"
	StopAborted StopReason = "aborted"
	StopUnknown StopReason = "unknown"
)

// Incomplete reports whether the response was cut short by the provider:
// it hit the token limit or failed mid-stream.
func (r StopReason) Incomplete() bool {
	return r == StopLength || r == StopError
}
