package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"appforge/client"
	"appforge/transcript"
)

func sampleSession() client.Session {
	return client.Session{
		ID:         "sess-1234",
		Name:       "todo-app",
		PreviewURL: "https://x.e2b.app",
		Status:     "ready",
		CreatedAt:  time.Now(),
	}
}

func sampleTranscript() []transcript.Message {
	assistant := transcript.Message{
		Role:    transcript.RoleAssistant,
		Content: "Here you go",
		Parts: []transcript.Part{
			transcript.ToolPart{ID: "t1", Title: "Edited App.jsx", Status: transcript.StatusDone},
			transcript.TextPart{Content: "Here you go", Complete: true},
			transcript.PreviewPart{URL: "https://x.e2b.app", Status: transcript.StatusDone},
		},
	}
	return []transcript.Message{transcript.NewUserMessage("build a todo app"), assistant}
}

func TestArchive_CreatesRepoAndCommit(t *testing.T) {
	archiver := NewArchiver(t.TempDir())

	hash, err := archiver.Archive(sampleSession(), sampleTranscript())
	if err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	if len(hash) != 40 {
		t.Errorf("expected a full commit hash, got %q", hash)
	}

	dir := filepath.Join(archiver.baseDir, "sess-1234")
	data, err := os.ReadFile(filepath.Join(dir, "transcript.md"))
	if err != nil {
		t.Fatalf("transcript.md not written: %v", err)
	}
	content := string(data)
	for _, want := range []string{"# todo-app", "build a todo app", "Edited App.jsx", "https://x.e2b.app"} {
		if !strings.Contains(content, want) {
			t.Errorf("transcript.md missing %q", want)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "session.json")); err != nil {
		t.Errorf("session.json not written: %v", err)
	}
}

func TestArchive_NewCommitPerRun(t *testing.T) {
	archiver := NewArchiver(t.TempDir())
	session := sampleSession()

	first, err := archiver.Archive(session, sampleTranscript())
	if err != nil {
		t.Fatalf("first Archive failed: %v", err)
	}

	msgs := append(sampleTranscript(), transcript.NewUserMessage("make it dark mode"))
	second, err := archiver.Archive(session, msgs)
	if err != nil {
		t.Fatalf("second Archive failed: %v", err)
	}
	if first == second {
		t.Error("expected a new commit for a changed transcript")
	}
}

func TestArchive_UnchangedTranscriptKeepsHead(t *testing.T) {
	archiver := NewArchiver(t.TempDir())
	session := sampleSession()
	msgs := sampleTranscript()

	first, err := archiver.Archive(session, msgs)
	if err != nil {
		t.Fatalf("first Archive failed: %v", err)
	}
	second, err := archiver.Archive(session, msgs)
	if err != nil {
		t.Fatalf("second Archive failed: %v", err)
	}
	if first != second {
		t.Errorf("unchanged transcript produced a new commit: %s vs %s", first, second)
	}
}

func TestRenderMarkdown_CommitSummaryFallback(t *testing.T) {
	if got := commitSummary(nil); got != "archive transcript" {
		t.Errorf("fallback summary mismatch: %q", got)
	}
	long := strings.Repeat("x", 100)
	msgs := []transcript.Message{transcript.NewUserMessage(long)}
	if got := commitSummary(msgs); len(got) != 72 {
		t.Errorf("summary not truncated: %d chars", len(got))
	}
}
