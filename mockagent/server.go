// Package mockagent is an in-process double of the builder backend: session
// CRUD, message submission and a scripted agent event stream, speaking the
// exact wire contract of the real server. It backs the transport-level
// tests and the demo mode of the chat client.
package mockagent

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"appforge/client"
	"appforge/protocol"
)

// Script produces the event sequence one run streams back for a prompt.
type Script func(sessionID, prompt string) []protocol.Event

// Server holds the in-memory session and message tables.
type Server struct {
	token  string
	script Script

	mu       sync.Mutex
	sessions map[string]*client.Session
	order    []string
	messages map[string][]client.StoredMessage
	pending  map[string]string
	nextID   int64

	mux *http.ServeMux
}

func New(token string, script Script) *Server {
	if script == nil {
		script = DefaultScript
	}
	s := &Server{
		token:    token,
		script:   script,
		sessions: make(map[string]*client.Session),
		messages: make(map[string][]client.StoredMessage),
		pending:  make(map[string]string),
		mux:      http.NewServeMux(),
	}
	s.mux.HandleFunc("POST /sessions", s.auth(s.createSession))
	s.mux.HandleFunc("GET /sessions", s.auth(s.listSessions))
	s.mux.HandleFunc("GET /sessions/{id}", s.auth(s.getSession))
	s.mux.HandleFunc("PATCH /sessions/{id}", s.auth(s.renameSession))
	s.mux.HandleFunc("DELETE /sessions/{id}", s.auth(s.deleteSession))
	s.mux.HandleFunc("GET /sessions/{id}/messages", s.auth(s.listMessages))
	s.mux.HandleFunc("POST /sessions/{id}/message", s.auth(s.postMessage))
	s.mux.HandleFunc("GET /sessions/{id}/sse", s.auth(s.streamEvents))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+s.token {
			httpError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next(w, r)
	}
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	session := &client.Session{
		ID:        uuid.NewString(),
		SandboxID: "sbx-" + uuid.NewString()[:8],
		Status:    "ready",
		CreatedAt: time.Now().UTC(),
	}
	s.mu.Lock()
	s.sessions[session.ID] = session
	s.order = append(s.order, session.ID)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := make([]client.Session, 0, len(s.order))
	// newest first, matching the backend's created_at ordering
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, *s.sessions[s.order[i]])
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	session, ok := s.sessions[r.PathValue("id")]
	var copied client.Session
	if ok {
		copied = *session
	}
	s.mu.Unlock()
	if !ok {
		httpError(w, http.StatusNotFound, "Session not found")
		return
	}
	writeJSON(w, http.StatusOK, copied)
}

func (s *Server) renameSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Name) == "" {
		httpError(w, http.StatusBadRequest, "name required")
		return
	}
	s.mu.Lock()
	session, ok := s.sessions[r.PathValue("id")]
	var copied client.Session
	if ok {
		session.Name = body.Name
		copied = *session
	}
	s.mu.Unlock()
	if !ok {
		httpError(w, http.StatusNotFound, "Session not found")
		return
	}
	writeJSON(w, http.StatusOK, copied)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	session, ok := s.sessions[r.PathValue("id")]
	if ok {
		session.Status = "terminated"
	}
	s.mu.Unlock()
	if !ok {
		httpError(w, http.StatusNotFound, "Session not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "terminated"})
}

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.mu.Lock()
	_, ok := s.sessions[id]
	msgs := append([]client.StoredMessage(nil), s.messages[id]...)
	s.mu.Unlock()
	if !ok {
		httpError(w, http.StatusNotFound, "Session not found")
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (s *Server) postMessage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var body struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpError(w, http.StatusBadRequest, "content required")
		return
	}

	s.mu.Lock()
	session, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		httpError(w, http.StatusNotFound, "Session not found")
		return
	}
	if session.Status == "busy" {
		s.mu.Unlock()
		httpError(w, http.StatusConflict, "Session is busy")
		return
	}
	session.Status = "busy"
	s.nextID++
	s.messages[id] = append(s.messages[id], client.StoredMessage{
		ID:        s.nextID,
		SessionID: id,
		Role:      "user",
		Content:   body.Content,
		CreatedAt: time.Now().UTC(),
	})
	s.pending[id] = body.Content
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{
		"status":     "processing",
		"stream_url": "/sessions/" + id + "/sse",
	})
}

func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.mu.Lock()
	_, ok := s.sessions[id]
	prompt, hasPending := s.pending[id]
	delete(s.pending, id)
	s.mu.Unlock()
	if !ok {
		httpError(w, http.StatusNotFound, "Session not found")
		return
	}
	if !hasPending {
		httpError(w, http.StatusBadRequest, "No pending message")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	flusher, _ := w.(http.Flusher)

	// collect the run outcome up front and persist it before streaming,
	// so a client that acts on the done event sees consistent state
	events := s.script(id, prompt)
	var (
		content    string
		steps      []protocol.Step
		previewURL string
	)
	for _, event := range events {
		switch ev := event.(type) {
		case protocol.Token:
			content += ev.Content
		case protocol.ToolStart:
			steps = append(steps, ev.Step)
		case protocol.ToolEnd:
			for i := range steps {
				if steps[i].ID == ev.StepID || steps[i].Title == ev.Tool {
					steps[i].Status = protocol.StepStatusDone
					break
				}
			}
		case protocol.PreviewReady:
			previewURL = ev.URL
			steps = append(steps, protocol.Step{
				ID:     fmt.Sprintf("step-%d", len(steps)+1),
				Type:   "preview",
				Title:  "Preview Ready",
				URL:    ev.URL,
				Status: protocol.StepStatusDone,
			})
		}
	}

	s.mu.Lock()
	if content != "" || len(steps) > 0 {
		s.nextID++
		s.messages[id] = append(s.messages[id], client.StoredMessage{
			ID:        s.nextID,
			SessionID: id,
			Role:      "assistant",
			Content:   content,
			Steps:     steps,
			CreatedAt: time.Now().UTC(),
		})
	}
	if session, ok := s.sessions[id]; ok {
		session.Status = "ready"
		if previewURL != "" {
			session.PreviewURL = previewURL
		}
	}
	s.mu.Unlock()

	for _, event := range events {
		fmt.Fprintf(w, "data: %s\n\n", marshalEvent(event))
		if flusher != nil {
			flusher.Flush()
		}
	}
	slog.Debug("mock run streamed", "session_id", id, "steps", len(steps))
}

// DefaultScript mirrors a typical build run: edit a file, start the dev
// server, answer, surface the preview.
func DefaultScript(sessionID, prompt string) []protocol.Event {
	host := sessionID
	if len(host) > 8 {
		host = host[:8]
	}
	url := "https://" + host + ".e2b.app"
	return []protocol.Event{
		protocol.ToolStart{Tool: "write_file", Step: protocol.Step{
			ID: "step-1", Type: "tool", Title: "Edited App.jsx", Status: protocol.StepStatusRunning,
		}},
		protocol.ToolEnd{Tool: "write_file", StepID: "step-1"},
		protocol.ToolStart{Tool: "start_dev_server", Step: protocol.Step{
			ID: "step-2", Type: "tool", Title: "Starting dev server", Status: protocol.StepStatusRunning,
		}},
		protocol.ToolEnd{Tool: "start_dev_server", StepID: "step-2"},
		protocol.Token{Content: "I built what you asked for: "},
		protocol.Token{Content: prompt},
		protocol.PreviewReady{URL: url},
		protocol.Done{},
	}
}

// marshalEvent renders an event back into its wire payload.
func marshalEvent(event protocol.Event) []byte {
	var payload any
	switch ev := event.(type) {
	case protocol.Token:
		payload = map[string]any{"type": "token", "content": ev.Content}
	case protocol.ToolStart:
		payload = map[string]any{"type": "tool_start", "tool": ev.Tool, "step": ev.Step}
	case protocol.ToolEnd:
		payload = map[string]any{"type": "tool_end", "tool": ev.Tool, "step_id": ev.StepID, "result": ev.Result}
	case protocol.PreviewReady:
		payload = map[string]any{"type": "preview_ready", "url": ev.URL}
	case protocol.ErrorEvent:
		payload = map[string]any{"type": "error", "message": ev.Message}
	case protocol.Done:
		payload = map[string]any{"type": "done"}
	default:
		payload = map[string]any{"type": "unknown"}
	}
	data, _ := json.Marshal(payload)
	return data
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
