// Package transcript holds the conversation data model and the fold that
// applies stream events to it. A transcript is an ordered list of messages;
// an assistant message is an ordered list of parts (prose spans, tool
// invocations, preview markers) in the exact temporal order they arrived.
package transcript

import "time"

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Tool part statuses. A status only moves forward: running -> done/error.
const (
	StatusRunning = "running"
	StatusDone    = "done"
	StatusError   = "error"
)

// Part is one ordered fragment of an assistant message: TextPart, ToolPart
// or PreviewPart.
type Part interface {
	part()
}

// TextPart is a span of assistant prose. While Complete is false and the
// part is the last of its message, incoming tokens append to it; once
// complete it never grows again.
type TextPart struct {
	Content  string
	Complete bool
}

// ToolPart marks one tool invocation. ID correlates a later tool_end with
// this part.
type ToolPart struct {
	ID     string
	Title  string
	Status string
}

// PreviewPart marks that a build step produced a navigable URL. At most one
// is appended per assistant message.
type PreviewPart struct {
	ID     string
	Title  string
	URL    string
	Status string
}

func (TextPart) part()    {}
func (ToolPart) part()    {}
func (PreviewPart) part() {}

// Message is one transcript entry. Content is the derived flattened text:
// it always equals the in-order concatenation of all text parts' content.
// Streaming is true only on the assistant message of the run currently
// being applied; hydrated and finished messages are immutable.
type Message struct {
	Role      string
	Content   string
	Parts     []Part
	Timestamp time.Time
	Streaming bool
}

// NewUserMessage builds an immutable user entry.
func NewUserMessage(content string) Message {
	return Message{
		Role:      RoleUser,
		Content:   content,
		Parts:     []Part{TextPart{Content: content, Complete: true}},
		Timestamp: time.Now(),
	}
}
