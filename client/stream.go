package client

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"appforge/protocol"
	"appforge/transcript"
)

// RunState tracks one run's lifecycle: idle -> sending -> streaming ->
// done|failed.
type RunState int

const (
	RunIdle RunState = iota
	RunSending
	RunStreaming
	RunDone
	RunFailed
)

func (s RunState) String() string {
	switch s {
	case RunSending:
		return "sending"
	case RunStreaming:
		return "streaming"
	case RunDone:
		return "done"
	case RunFailed:
		return "failed"
	default:
		return "idle"
	}
}

// RunSink receives the observable results of a run. Calls are made from
// the run's goroutine, one at a time.
type RunSink interface {
	// TranscriptUpdated fires after each applied event.
	TranscriptUpdated(sessionID string)
	// PreviewReady fires on every preview event with the latest URL.
	PreviewReady(sessionID, url string)
	// Notice surfaces an application-level error event; the run continues.
	Notice(sessionID, message string)
	// RunFinished fires exactly once, err nil on a clean finish. The
	// partial transcript built before a failure is retained either way.
	RunFinished(sessionID string, err error)
}

// StreamSession drives one run. Session ID and transcript store are bound
// at creation: if the UI navigates to another session mid-run, late events
// still land only in this captured store and can never touch the newly
// displayed transcript.
type StreamSession struct {
	client    *Client
	sessionID string
	store     *transcript.Store
	sink      RunSink

	mu    sync.Mutex
	state RunState
}

func newStreamSession(c *Client, sessionID string, store *transcript.Store, sink RunSink) *StreamSession {
	return &StreamSession{
		client:    c,
		sessionID: sessionID,
		store:     store,
		sink:      sink,
		state:     RunIdle,
	}
}

func (s *StreamSession) State() RunState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Active reports whether the run still holds its session's submit guard.
func (s *StreamSession) Active() bool {
	state := s.State()
	return state == RunSending || state == RunStreaming
}

func (s *StreamSession) setState(state RunState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// run executes the whole lifecycle. Every exit path goes through finish,
// which clears the streaming state and seals the partial assistant message;
// a transport error must never leave the session stuck in "streaming".
func (s *StreamSession) run(ctx context.Context, content string) {
	s.setState(RunSending)

	streamURL, err := s.client.SendMessage(ctx, s.sessionID, content)
	if err != nil {
		// nothing was streamed, so no assistant message exists yet;
		// the transcript holds only the already-appended user message
		s.finish(err)
		return
	}

	body, err := s.client.openStream(ctx, streamURL)
	if err != nil {
		s.finish(err)
		return
	}
	defer body.Close()

	s.setState(RunStreaming)
	slog.Debug("run streaming", "session_id", s.sessionID, "stream_url", streamURL)

	decoder := protocol.NewDecoder(body)
	for {
		event, err := decoder.Next()
		if errors.Is(err, io.EOF) {
			// end of stream is as terminal as an explicit done event
			s.finish(nil)
			return
		}
		if err != nil {
			// mid-stream transport failure: keep the partial
			// transcript, clear the flags
			s.finish(err)
			return
		}

		fx := s.store.Apply(event)
		s.sink.TranscriptUpdated(s.sessionID)
		if fx.PreviewURL != "" {
			s.sink.PreviewReady(s.sessionID, fx.PreviewURL)
		}
		if fx.Notice != "" {
			s.sink.Notice(s.sessionID, fx.Notice)
		}
		if fx.Done {
			s.finish(nil)
			return
		}
	}
}

func (s *StreamSession) finish(err error) {
	s.store.CloseRun()
	if err != nil {
		s.setState(RunFailed)
		slog.Error("run failed", "session_id", s.sessionID, "error", err)
	} else {
		s.setState(RunDone)
		slog.Debug("run finished", "session_id", s.sessionID)
	}
	s.sink.RunFinished(s.sessionID, err)
}
