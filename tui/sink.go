package tui

import tea "github.com/charmbracelet/bubbletea"

// Run update messages delivered from the stream goroutine into the
// bubbletea loop. Each carries the session it belongs to so stale updates
// from a superseded run can be recognized and ignored.
type (
	transcriptMsg struct {
		sessionID string
	}
	previewMsg struct {
		sessionID string
		url       string
	}
	noticeMsg struct {
		sessionID string
		text      string
	}
	finishedMsg struct {
		sessionID string
		err       error
	}
)

// channelSink adapts client.RunSink to the program's message channel. Sink
// calls arrive from the run goroutine; the channel hands them to the
// single-threaded Update loop.
type channelSink struct {
	updates chan tea.Msg
}

func newChannelSink() *channelSink {
	return &channelSink{updates: make(chan tea.Msg, 256)}
}

func (s *channelSink) TranscriptUpdated(sessionID string) {
	s.updates <- transcriptMsg{sessionID: sessionID}
}

func (s *channelSink) PreviewReady(sessionID, url string) {
	s.updates <- previewMsg{sessionID: sessionID, url: url}
}

func (s *channelSink) Notice(sessionID, message string) {
	s.updates <- noticeMsg{sessionID: sessionID, text: message}
}

func (s *channelSink) RunFinished(sessionID string, err error) {
	s.updates <- finishedMsg{sessionID: sessionID, err: err}
}
