package deck

// Names of the tools the model uses to edit a slide.
const (
	ToolNameCreate = "createInfographic"
	ToolNameEdit   = "editInfographic"
	ToolNameDelete = "deleteInfographic"
)

// ToolKind distinguishes calls that create an infographic from calls that
// edit an existing one.
type ToolKind int

const (
	ToolCreate ToolKind = iota + 1
	ToolEdit
)

func (k ToolKind) String() string {
	switch k {
	case ToolCreate:
		return ToolNameCreate
	case ToolEdit:
		return ToolNameEdit
	default:
		return "unknown"
	}
}

// ParseToolKind maps a tool name to its kind. Tools that do not stream
// content into the slide report false.
func ParseToolKind(name string) (ToolKind, bool) {
	switch name {
	case ToolNameCreate:
		return ToolCreate, true
	case ToolNameEdit:
		return ToolEdit, true
	default:
		return 0, false
	}
}

// ToolState is the progress of one tool call.
type ToolState string

const (
	ToolInputStreaming  ToolState = "input-streaming"
	ToolInputAvailable  ToolState = "input-available"
	ToolOutputAvailable ToolState = "output-available"
	ToolOutputError     ToolState = "output-error"
)

// Streaming reports whether the call's arguments are still arriving.
func (s ToolState) Streaming() bool { return s == ToolInputStreaming }

// ToolInput is the subset of infographic tool arguments the reconciler reads.
// Any field may be empty while the arguments are still streaming.
type ToolInput struct {
	InfographicID string
	Title         string
	Syntax        string
}

// ToolCallPart is the latest snapshot of one infographic tool call. Each
// snapshot replaces the previous one for the same CallID.
type ToolCallPart struct {
	CallID string
	Kind   ToolKind
	State  ToolState
	Input  ToolInput
}
