package tui

import (
	"fmt"
	"regexp"
	"strings"

	"appforge/transcript"
)

var multiNewline = regexp.MustCompile(`\n{2,}`)

// squashNewlines collapses runs of blank lines so streamed prose stays
// compact in the viewport.
func squashNewlines(text string) string {
	text = strings.Trim(text, "\n")
	return multiNewline.ReplaceAllString(text, "\n")
}

// blockquote prefixes each non-blank line, used for user prompts.
func blockquote(text string) string {
	text = strings.TrimRight(text, "\n")
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line != "" {
			out = append(out, "> "+line)
		}
	}
	return strings.Join(out, "\n")
}

func truncate(text string, max int) string {
	if len(text) <= max {
		return text
	}
	if max <= 3 {
		return text[:max]
	}
	return text[:max-3] + "..."
}

// renderMessage flattens one transcript message into display lines.
func renderMessage(msg transcript.Message, spinnerFrame string) []string {
	var lines []string

	switch msg.Role {
	case transcript.RoleUser:
		lines = append(lines, userRoleStyle.Render("you"))
		lines = append(lines, strings.Split(blockquote(msg.Content), "\n")...)
	default:
		label := "assistant"
		if msg.Streaming {
			label = "assistant " + spinnerFrame
		}
		lines = append(lines, assistantRoleStyle.Render(label))
		for _, part := range msg.Parts {
			lines = append(lines, renderPart(part, spinnerFrame)...)
		}
	}
	lines = append(lines, "")
	return lines
}

func renderPart(part transcript.Part, spinnerFrame string) []string {
	switch p := part.(type) {
	case transcript.TextPart:
		text := squashNewlines(p.Content)
		if text == "" {
			return nil
		}
		return strings.Split(text, "\n")

	case transcript.ToolPart:
		switch p.Status {
		case transcript.StatusDone:
			return []string{toolDoneStyle.Render("  ✓ " + p.Title)}
		case transcript.StatusError:
			return []string{toolErrorStyle.Render("  ✗ " + p.Title)}
		default:
			return []string{toolRunningStyle.Render(fmt.Sprintf("  %s %s", spinnerFrame, p.Title))}
		}

	case transcript.PreviewPart:
		return []string{previewStyle.Render("  ⧉ " + p.URL)}

	default:
		return nil
	}
}
