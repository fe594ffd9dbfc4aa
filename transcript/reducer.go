package transcript

import (
	"time"

	"appforge/protocol"
)

// Effects carries the out-of-band results of applying one event: things the
// stream session must surface somewhere other than the transcript itself.
type Effects struct {
	// PreviewURL is set on every preview event, even when the transcript
	// already holds a preview part (the coordinator always tracks the
	// latest URL).
	PreviewURL string
	// Notice is a user-facing message from an error event.
	Notice string
	// Done is true when the terminal event was observed.
	Done bool
}

// Reduce folds one event into the transcript and returns the next state.
// The input slice is never mutated: the result shares untouched messages
// but replaces the tail message (and its parts slice) whenever the event
// changes it, so callers can hold snapshots safely.
func Reduce(msgs []Message, event protocol.Event) ([]Message, Effects) {
	var fx Effects

	switch ev := event.(type) {
	case protocol.Token:
		msgs = ensureAssistant(msgs)
		return updateTail(msgs, func(m *Message) {
			m.Content += ev.Content
			if last, ok := openText(m.Parts); ok {
				parts := append([]Part(nil), m.Parts...)
				parts[len(parts)-1] = TextPart{Content: last.Content + ev.Content}
				m.Parts = parts
				return
			}
			m.Parts = append(append([]Part(nil), m.Parts...), TextPart{Content: ev.Content})
		}), fx

	case protocol.ToolStart:
		msgs = ensureAssistant(msgs)
		return updateTail(msgs, func(m *Message) {
			m.Parts = append(append([]Part(nil), m.Parts...), ToolPart{
				ID:     ev.Step.ID,
				Title:  ev.Step.Title,
				Status: StatusRunning,
			})
		}), fx

	case protocol.ToolEnd:
		msgs = ensureAssistant(msgs)
		return updateTail(msgs, func(m *Message) {
			key := ev.StepID
			if key == "" {
				key = ev.Tool
			}
			// earliest still-running part wins; ids only need to be
			// unique within the run's pending set
			for i, p := range m.Parts {
				tool, ok := p.(ToolPart)
				if !ok || tool.Status != StatusRunning {
					continue
				}
				if tool.ID != key && tool.Title != key {
					continue
				}
				parts := append([]Part(nil), m.Parts...)
				tool.Status = StatusDone
				parts[i] = tool
				m.Parts = parts
				return
			}
			// unmatched tool_end is a no-op
		}), fx

	case protocol.PreviewReady:
		fx.PreviewURL = ev.URL
		msgs = ensureAssistant(msgs)
		return updateTail(msgs, func(m *Message) {
			for _, p := range m.Parts {
				if _, ok := p.(PreviewPart); ok {
					// one preview part per message; the first wins
					return
				}
			}
			m.Parts = append(append([]Part(nil), m.Parts...), PreviewPart{
				Title:  "Preview Ready",
				URL:    ev.URL,
				Status: StatusDone,
			})
		}), fx

	case protocol.ErrorEvent:
		// surfaced out of band; never creates the assistant message
		fx.Notice = ev.Message
		return msgs, fx

	case protocol.Done:
		fx.Done = true
		return msgs, fx

	default:
		// protocol.Ignored and anything future
		return msgs, fx
	}
}

// CloseRun marks the trailing assistant message immutable: the streaming
// flag drops and every open text part is completed, so tokens from a later
// run never merge into it.
func CloseRun(msgs []Message) []Message {
	if len(msgs) == 0 || !msgs[len(msgs)-1].Streaming {
		return msgs
	}
	return updateTail(msgs, func(m *Message) {
		m.Streaming = false
		parts := append([]Part(nil), m.Parts...)
		for i, p := range parts {
			if text, ok := p.(TextPart); ok && !text.Complete {
				text.Complete = true
				parts[i] = text
			}
		}
		m.Parts = parts
	})
}

// ensureAssistant lazily appends the run's assistant message before the
// first part-producing event.
func ensureAssistant(msgs []Message) []Message {
	if n := len(msgs); n > 0 {
		if tail := msgs[n-1]; tail.Role == RoleAssistant && tail.Streaming {
			return msgs
		}
	}
	next := append([]Message(nil), msgs...)
	return append(next, Message{Role: RoleAssistant, Timestamp: time.Now(), Streaming: true})
}

func openText(parts []Part) (TextPart, bool) {
	if len(parts) == 0 {
		return TextPart{}, false
	}
	text, ok := parts[len(parts)-1].(TextPart)
	if !ok || text.Complete {
		return TextPart{}, false
	}
	return text, true
}

// updateTail replaces the last message with an edited copy.
func updateTail(msgs []Message, edit func(*Message)) []Message {
	next := append([]Message(nil), msgs...)
	tail := next[len(next)-1]
	edit(&tail)
	next[len(next)-1] = tail
	return next
}
