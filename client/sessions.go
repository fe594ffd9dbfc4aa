package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"appforge/protocol"
	"appforge/transcript"
)

// Session is one conversation session as the directory reports it. ID is
// immutable; PreviewURL and Status are the only fields that change over a
// session's life.
type Session struct {
	ID         string    `json:"id"`
	Name       string    `json:"name,omitempty"`
	SandboxID  string    `json:"sandbox_id,omitempty"`
	PreviewURL string    `json:"preview_url,omitempty"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// StoredMessage is one persisted transcript entry. Steps is the recorded
// tool/preview sequence of the producing run; Content is the flattened
// assistant prose.
type StoredMessage struct {
	ID        int64           `json:"id"`
	SessionID string          `json:"session_id"`
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	Steps     []protocol.Step `json:"steps,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func (c *Client) ListSessions(ctx context.Context) ([]Session, error) {
	var sessions []Session
	if err := c.do(ctx, http.MethodGet, "/sessions", nil, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (c *Client) CreateSession(ctx context.Context) (Session, error) {
	var session Session
	if err := c.do(ctx, http.MethodPost, "/sessions", nil, &session); err != nil {
		return Session{}, err
	}
	slog.Info("session created", "session_id", session.ID, "status", session.Status)
	return session, nil
}

func (c *Client) GetSession(ctx context.Context, id string) (Session, error) {
	var session Session
	if err := c.do(ctx, http.MethodGet, "/sessions/"+id, nil, &session); err != nil {
		return Session{}, err
	}
	return session, nil
}

func (c *Client) RenameSession(ctx context.Context, id, name string) (Session, error) {
	var session Session
	body := map[string]string{"name": name}
	if err := c.do(ctx, http.MethodPatch, "/sessions/"+id, body, &session); err != nil {
		return Session{}, err
	}
	return session, nil
}

func (c *Client) DeleteSession(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/sessions/"+id, nil, nil); err != nil {
		return err
	}
	slog.Info("session deleted", "session_id", id)
	return nil
}

// ListMessages fetches the persisted transcript, hydrated into render-ready
// messages.
func (c *Client) ListMessages(ctx context.Context, id string) ([]transcript.Message, error) {
	var stored []StoredMessage
	if err := c.do(ctx, http.MethodGet, "/sessions/"+id+"/messages", nil, &stored); err != nil {
		return nil, err
	}
	msgs := make([]transcript.Message, 0, len(stored))
	for _, m := range stored {
		msgs = append(msgs, HydrateMessage(m))
	}
	return msgs, nil
}

// sendResponse is the backend's answer to a message submission.
type sendResponse struct {
	Status    string `json:"status"`
	StreamURL string `json:"stream_url"`
}

// SendMessage hands the prompt to the backend and returns the path of the
// event stream for the run it triggers.
func (c *Client) SendMessage(ctx context.Context, id, content string) (string, error) {
	var resp sendResponse
	body := map[string]string{"content": content}
	if err := c.do(ctx, http.MethodPost, "/sessions/"+id+"/message", body, &resp); err != nil {
		return "", err
	}
	if resp.StreamURL == "" {
		return "", fmt.Errorf("send message: backend returned no stream_url")
	}
	return resp.StreamURL, nil
}

// HydrateMessage converts a persisted message into the transcript model.
// The backend stores steps and flat content separately, losing their
// interleaving, so restored assistant messages render steps in recorded
// order followed by one complete text part.
func HydrateMessage(m StoredMessage) transcript.Message {
	msg := transcript.Message{
		Role:      m.Role,
		Content:   m.Content,
		Timestamp: m.CreatedAt,
	}
	for _, step := range m.Steps {
		switch step.Type {
		case "preview":
			msg.Parts = append(msg.Parts, transcript.PreviewPart{
				ID:     step.ID,
				Title:  step.Title,
				URL:    step.URL,
				Status: step.Status,
			})
		default:
			msg.Parts = append(msg.Parts, transcript.ToolPart{
				ID:     step.ID,
				Title:  step.Title,
				Status: step.Status,
			})
		}
	}
	if m.Content != "" {
		msg.Parts = append(msg.Parts, transcript.TextPart{Content: m.Content, Complete: true})
	}
	return msg
}
