// Package protocol defines the wire format of the agent event stream: one
// JSON object per "data: " line, events separated by a blank line. Each
// recognized payload type maps to its own Event variant; unknown types map
// to Ignored so downstream code never sees raw JSON.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Tool step statuses carried by the stream.
const (
	StepStatusRunning = "running"
	StepStatusDone    = "done"
	StepStatusError   = "error"
)

// Step is the canonical tool descriptor attached to tool_start and
// preview_ready events.
type Step struct {
	ID     string `json:"id"`
	Type   string `json:"type,omitempty"`
	Title  string `json:"title"`
	Status string `json:"status"`
	URL    string `json:"url,omitempty"`
}

// Event is one parsed occurrence from the stream. The set of variants is
// closed: Token, ToolStart, ToolEnd, PreviewReady, ErrorEvent, Done and
// Ignored.
type Event interface {
	event()
}

// Token is an incremental span of assistant prose.
type Token struct {
	Content string
}

// ToolStart announces a tool invocation. Step is the canonical descriptor;
// when the server sends only the bare tool name the descriptor is
// synthesized from it.
type ToolStart struct {
	Tool string
	Step Step
}

// ToolEnd closes a previously announced tool invocation. StepID is the
// correlation key; Tool is the legacy fallback when no step_id was sent.
type ToolEnd struct {
	Tool   string
	StepID string
	Result string
}

// PreviewReady reports that a build step produced a navigable URL. Both
// "preview_ready" and "preview_url" payloads decode to this variant.
type PreviewReady struct {
	URL string
}

// ErrorEvent carries a human-readable failure message. It does not by
// itself terminate the run.
type ErrorEvent struct {
	Message string
}

// Done is the terminal event of a run.
type Done struct{}

// Ignored stands in for any unrecognized payload type.
type Ignored struct {
	Type string
}

func (Token) event()        {}
func (ToolStart) event()    {}
func (ToolEnd) event()      {}
func (PreviewReady) event() {}
func (ErrorEvent) event()   {}
func (Done) event()         {}
func (Ignored) event()      {}

// envelope mirrors the server's event model: a type discriminator plus
// all-optional fields, of which each type uses a subset.
type envelope struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	Tool    string `json:"tool,omitempty"`
	Step    *Step  `json:"step,omitempty"`
	StepID  string `json:"step_id,omitempty"`
	Result  string `json:"result,omitempty"`
	URL     string `json:"url,omitempty"`
	Message string `json:"message,omitempty"`
}

// ParseLine decodes one JSON payload (the text after the "data: " prefix)
// into its Event variant. Unknown types yield Ignored, not an error; a
// non-JSON payload yields an error the caller is expected to drop.
func ParseLine(payload []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("malformed event payload: %w", err)
	}

	switch env.Type {
	case "token":
		return Token{Content: env.Content}, nil
	case "tool_start":
		step := Step{ID: env.Tool, Title: env.Tool, Status: StepStatusRunning}
		if env.Step != nil {
			step = *env.Step
		}
		return ToolStart{Tool: env.Tool, Step: step}, nil
	case "tool_end":
		return ToolEnd{Tool: env.Tool, StepID: env.StepID, Result: env.Result}, nil
	case "preview_ready", "preview_url":
		return PreviewReady{URL: env.URL}, nil
	case "error":
		return ErrorEvent{Message: env.Message}, nil
	case "done":
		return Done{}, nil
	default:
		return Ignored{Type: env.Type}, nil
	}
}
