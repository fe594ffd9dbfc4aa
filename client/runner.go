package client

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"appforge/transcript"
)

// Submit guard rejections. Rejected submits are no-ops, not queued.
var (
	ErrEmptyMessage = errors.New("message is blank")
	ErrNoSession    = errors.New("no session selected")
	ErrRunActive    = errors.New("a run is already active for this session")
)

// Runner enforces one active run per session and owns the run goroutines.
// It is the analog of a listener registry: each active run is tracked with
// its cancel func so switching away from or deleting a session can stop
// reading its stream (best-effort local cancellation; the server side keeps
// working).
type Runner struct {
	client *Client
	sink   RunSink

	mu     sync.Mutex
	active map[string]*activeRun
	wg     sync.WaitGroup
}

type activeRun struct {
	session *StreamSession
	cancel  context.CancelFunc
}

func NewRunner(c *Client, sink RunSink) *Runner {
	return &Runner{
		client: c,
		sink:   sink,
		active: make(map[string]*activeRun),
	}
}

// Submit starts a run for the session. The user message is appended to the
// bound store synchronously before the network is touched, so a send
// failure leaves the transcript with the prompt but no assistant message.
func (r *Runner) Submit(ctx context.Context, sessionID string, store *transcript.Store, content string) error {
	if sessionID == "" {
		return ErrNoSession
	}
	if strings.TrimSpace(content) == "" {
		return ErrEmptyMessage
	}

	r.mu.Lock()
	if _, exists := r.active[sessionID]; exists {
		r.mu.Unlock()
		return ErrRunActive
	}

	runCtx, cancel := context.WithCancel(ctx)
	session := newStreamSession(r.client, sessionID, store, r.sink)
	r.active[sessionID] = &activeRun{session: session, cancel: cancel}
	r.mu.Unlock()

	store.AppendUser(content)

	r.wg.Add(1)
	go func() {
		defer func() {
			cancel()
			r.remove(sessionID)
			r.wg.Done()
		}()
		session.run(runCtx, content)
	}()
	slog.Debug("run started", "session_id", sessionID)
	return nil
}

// Busy reports whether the session has a run in flight.
func (r *Runner) Busy(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, exists := r.active[sessionID]
	return exists
}

// Cancel stops reading the session's stream, if one is active.
func (r *Runner) Cancel(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if run, exists := r.active[sessionID]; exists {
		run.cancel()
		slog.Debug("cancelled active run", "session_id", sessionID)
	}
}

// Shutdown cancels every active run and waits for the goroutines to drain.
func (r *Runner) Shutdown() {
	r.mu.Lock()
	for sessionID, run := range r.active {
		run.cancel()
		slog.Debug("cancelled active run", "session_id", sessionID)
	}
	r.mu.Unlock()
	r.wg.Wait()
	slog.Info("runner stopped")
}

func (r *Runner) remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, sessionID)
}
