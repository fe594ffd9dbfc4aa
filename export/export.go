// Package export archives a session's transcript into a local git
// repository, one commit per completed run, so conversation history
// survives the ephemeral sandbox.
package export

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"appforge/client"
	"appforge/transcript"
)

// Archiver writes session snapshots under a base directory, one
// subdirectory per session.
type Archiver struct {
	baseDir string
}

func NewArchiver(baseDir string) *Archiver {
	return &Archiver{baseDir: baseDir}
}

// Archive renders the transcript to markdown alongside the session record
// and commits both. Returns the commit hash.
func (a *Archiver) Archive(session client.Session, msgs []transcript.Message) (string, error) {
	dir := filepath.Join(a.baseDir, session.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	repo, err := openOrInit(dir)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(filepath.Join(dir, "transcript.md"), []byte(RenderMarkdown(session, msgs)), 0644); err != nil {
		return "", fmt.Errorf("failed to write transcript: %w", err)
	}
	meta, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal session record: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "session.json"), meta, 0644); err != nil {
		return "", fmt.Errorf("failed to write session record: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to get worktree: %w", err)
	}
	if _, err := worktree.Add("."); err != nil {
		return "", fmt.Errorf("failed to stage archive files: %w", err)
	}

	status, err := worktree.Status()
	if err != nil {
		return "", fmt.Errorf("failed to read worktree status: %w", err)
	}
	if status.IsClean() {
		head, err := repo.Head()
		if err != nil {
			return "", fmt.Errorf("nothing to commit and no history: %w", err)
		}
		slog.Debug("archive unchanged", "session_id", session.ID)
		return head.Hash().String(), nil
	}

	hash, err := worktree.Commit(commitSummary(msgs), &git.CommitOptions{
		Author: &object.Signature{
			Name:  "appforge",
			Email: "appforge@localhost",
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to commit archive: %w", err)
	}

	slog.Info("session archived", "session_id", session.ID, "commit", hash.String())
	return hash.String(), nil
}

func openOrInit(dir string) (*git.Repository, error) {
	repo, err := git.PlainOpen(dir)
	if err == nil {
		return repo, nil
	}
	repo, err = git.PlainInit(dir, false)
	if err != nil {
		return nil, fmt.Errorf("failed to init archive repository: %w", err)
	}
	return repo, nil
}

// commitSummary takes the latest user prompt as the commit message.
func commitSummary(msgs []transcript.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == transcript.RoleUser {
			summary := strings.TrimSpace(msgs[i].Content)
			if len(summary) > 72 {
				summary = summary[:69] + "..."
			}
			return summary
		}
	}
	return "archive transcript"
}

// RenderMarkdown flattens the transcript for human reading.
func RenderMarkdown(session client.Session, msgs []transcript.Message) string {
	var b strings.Builder
	title := session.Name
	if title == "" {
		title = session.ID
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	if session.PreviewURL != "" {
		fmt.Fprintf(&b, "Preview: %s\n\n", session.PreviewURL)
	}

	for _, msg := range msgs {
		fmt.Fprintf(&b, "## %s — %s\n\n", msg.Role, msg.Timestamp.Format("2006-01-02 15:04"))
		for _, part := range msg.Parts {
			switch p := part.(type) {
			case transcript.TextPart:
				fmt.Fprintf(&b, "%s\n\n", strings.TrimSpace(p.Content))
			case transcript.ToolPart:
				fmt.Fprintf(&b, "- [%s] %s\n", p.Status, p.Title)
			case transcript.PreviewPart:
				fmt.Fprintf(&b, "- [preview] %s\n", p.URL)
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}
