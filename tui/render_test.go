package tui

import (
	"strings"
	"testing"

	"appforge/transcript"
)

func TestSquashNewlines(t *testing.T) {
	got := squashNewlines("\n\na\n\n\nb\n")
	if got != "a\nb" {
		t.Errorf("squashNewlines mismatch: %q", got)
	}
}

func TestBlockquote(t *testing.T) {
	got := blockquote("line one\n\nline two\n")
	if got != "> line one\n> line two" {
		t.Errorf("blockquote mismatch: %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate mismatch: %q", got)
	}
	if got := truncate("a long session name", 10); got != "a long ..." {
		t.Errorf("truncate mismatch: %q", got)
	}
}

func TestRenderMessage_UserBlockquoted(t *testing.T) {
	lines := renderMessage(transcript.NewUserMessage("build a todo app"), "")
	joined := strings.Join(lines, "\n")
	if !strings.Contains(joined, "> build a todo app") {
		t.Errorf("user prompt not blockquoted: %q", joined)
	}
}

func TestRenderMessage_PartGlyphs(t *testing.T) {
	msg := transcript.Message{
		Role: transcript.RoleAssistant,
		Parts: []transcript.Part{
			transcript.ToolPart{ID: "t1", Title: "Edited App.jsx", Status: transcript.StatusDone},
			transcript.ToolPart{ID: "t2", Title: "Running npm", Status: transcript.StatusRunning},
			transcript.ToolPart{ID: "t3", Title: "Broken step", Status: transcript.StatusError},
			transcript.TextPart{Content: "Here you go", Complete: true},
			transcript.PreviewPart{URL: "https://x.e2b.app", Status: transcript.StatusDone},
		},
	}
	joined := strings.Join(renderMessage(msg, "·"), "\n")
	for _, want := range []string{"✓ Edited App.jsx", "· Running npm", "✗ Broken step", "Here you go", "⧉ https://x.e2b.app"} {
		if !strings.Contains(joined, want) {
			t.Errorf("rendered message missing %q:\n%s", want, joined)
		}
	}
}

func TestRenderMessage_EmptyTextPartSkipped(t *testing.T) {
	msg := transcript.Message{
		Role:  transcript.RoleAssistant,
		Parts: []transcript.Part{transcript.TextPart{Content: "\n\n"}},
	}
	lines := renderMessage(msg, "")
	// role label plus trailing blank only
	if len(lines) != 2 {
		t.Errorf("line count mismatch: got %d, want 2: %q", len(lines), lines)
	}
}
