package client_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"appforge/client"
	"appforge/mockagent"
	"appforge/protocol"
	"appforge/transcript"
)

const testToken = "test-access-token"

func newTestBackend(t *testing.T, script mockagent.Script) *client.Client {
	t.Helper()
	server := httptest.NewServer(mockagent.New(testToken, script))
	t.Cleanup(server.Close)
	return client.New(server.URL, testToken)
}

func TestSessions_CreateListGet(t *testing.T) {
	api := newTestBackend(t, nil)
	ctx := context.Background()

	created, err := api.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if created.ID == "" {
		t.Fatal("created session has no id")
	}
	if created.Status != "ready" {
		t.Errorf("Status mismatch: got %q", created.Status)
	}

	sessions, err := api.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != created.ID {
		t.Errorf("list mismatch: %+v", sessions)
	}

	got, err := api.GetSession(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("GetSession id mismatch: got %q", got.ID)
	}
}

func TestSessions_Rename(t *testing.T) {
	api := newTestBackend(t, nil)
	ctx := context.Background()

	created, err := api.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	renamed, err := api.RenameSession(ctx, created.ID, "todo-app")
	if err != nil {
		t.Fatalf("RenameSession failed: %v", err)
	}
	if renamed.Name != "todo-app" {
		t.Errorf("Name mismatch: got %q", renamed.Name)
	}
}

func TestSessions_Delete(t *testing.T) {
	api := newTestBackend(t, nil)
	ctx := context.Background()

	created, err := api.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if err := api.DeleteSession(ctx, created.ID); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	got, err := api.GetSession(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.Status != "terminated" {
		t.Errorf("Status mismatch after delete: got %q", got.Status)
	}
}

func TestSessions_BadToken(t *testing.T) {
	server := httptest.NewServer(mockagent.New(testToken, nil))
	defer server.Close()

	api := client.New(server.URL, "wrong-token")
	if _, err := api.ListSessions(context.Background()); err == nil {
		t.Error("expected error with bad token")
	} else if !strings.Contains(err.Error(), "401") {
		t.Errorf("expected 401 in error, got %v", err)
	}
}

func TestHydrateMessage_StepsAndContent(t *testing.T) {
	stored := client.StoredMessage{
		Role:    "assistant",
		Content: "Here you go",
		Steps: []protocol.Step{
			{ID: "step-1", Type: "tool", Title: "Edited App.jsx", Status: "done"},
			{ID: "step-2", Type: "preview", Title: "Preview Ready", URL: "https://x.e2b.app", Status: "done"},
		},
	}
	msg := client.HydrateMessage(stored)

	if len(msg.Parts) != 3 {
		t.Fatalf("part count mismatch: got %d, want 3", len(msg.Parts))
	}
	if tool, ok := msg.Parts[0].(transcript.ToolPart); !ok || tool.Title != "Edited App.jsx" {
		t.Errorf("parts[0] mismatch: %+v", msg.Parts[0])
	}
	if pv, ok := msg.Parts[1].(transcript.PreviewPart); !ok || pv.URL != "https://x.e2b.app" {
		t.Errorf("parts[1] mismatch: %+v", msg.Parts[1])
	}
	text, ok := msg.Parts[2].(transcript.TextPart)
	if !ok || text.Content != "Here you go" {
		t.Errorf("parts[2] mismatch: %+v", msg.Parts[2])
	}
	if !text.Complete {
		t.Error("hydrated text part must be complete")
	}
	if msg.Streaming {
		t.Error("hydrated message must not be streaming")
	}
}
