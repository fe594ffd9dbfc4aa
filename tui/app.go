// Package tui is the interactive chat surface: a session list and a chat
// view that renders the live transcript while an agent run streams.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/goombaio/namegenerator"

	"appforge/client"
	"appforge/export"
	"appforge/preview"
	"appforge/transcript"
)

type mode int

const (
	modeList mode = iota
	modeChat
	modeRename
)

// Messages produced by async REST calls. Each result carries the session it
// was requested for, so a result arriving after the user moved on is
// discarded instead of overwriting the current view.
type (
	sessionsLoadedMsg struct {
		sessions []client.Session
		err      error
	}
	sessionOpenedMsg struct {
		sessionID string
		msgs      []transcript.Message
		err       error
	}
	sessionCreatedMsg struct {
		session client.Session
		err     error
	}
	sessionRenamedMsg struct {
		session client.Session
		err     error
	}
	sessionDeletedMsg struct {
		sessionID string
		err       error
	}
	archivedMsg struct {
		hash string
		err  error
	}
)

type Model struct {
	api      *client.Client
	runner   *client.Runner
	coord    *preview.Coordinator
	archiver *export.Archiver
	dir      *directory
	sink     *channelSink

	sessions []client.Session
	cursor   int
	offset   int
	width    int
	height   int
	mode     mode

	active client.Session
	store  *transcript.Store
	stores map[string]*transcript.Store

	input       textinput.Model
	renameInput textinput.Model
	spin        spinner.Model

	streaming bool
	loading   bool
	status    string
	quitting  bool
}

func New(api *client.Client, archiver *export.Archiver) Model {
	sink := newChannelSink()
	dir := &directory{}

	input := textinput.New()
	input.Placeholder = "describe what to build..."
	input.CharLimit = 2000

	renameInput := textinput.New()
	renameInput.Placeholder = "session name"
	renameInput.CharLimit = 100

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	return Model{
		api:         api,
		runner:      client.NewRunner(api, sink),
		coord:       preview.New(dir),
		archiver:    archiver,
		dir:         dir,
		sink:        sink,
		stores:      make(map[string]*transcript.Store),
		input:       input,
		renameInput: renameInput,
		spin:        spin,
		width:       120,
		height:      30,
	}
}

// Runner exposes the run manager so main can drain it on shutdown.
func (m Model) Runner() *client.Runner {
	return m.runner
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadSessions(), m.spin.Tick, m.waitForUpdate())
}

// waitForUpdate re-arms the bridge from the run goroutine: it blocks on the
// sink channel and feeds exactly one update into the program loop.
func (m Model) waitForUpdate() tea.Cmd {
	ch := m.sink.updates
	return func() tea.Msg {
		return <-ch
	}
}

func (m Model) loadSessions() tea.Cmd {
	api := m.api
	return func() tea.Msg {
		sessions, err := api.ListSessions(context.Background())
		return sessionsLoadedMsg{sessions: sessions, err: err}
	}
}

func (m Model) openSession(s client.Session) tea.Cmd {
	api := m.api
	return func() tea.Msg {
		msgs, err := api.ListMessages(context.Background(), s.ID)
		return sessionOpenedMsg{sessionID: s.ID, msgs: msgs, err: err}
	}
}

func (m Model) createSession() tea.Cmd {
	api := m.api
	return func() tea.Msg {
		session, err := api.CreateSession(context.Background())
		if err != nil {
			return sessionCreatedMsg{err: err}
		}
		name := namegenerator.NewNameGenerator(time.Now().UnixNano()).Generate()
		if renamed, err := api.RenameSession(context.Background(), session.ID, name); err == nil {
			session = renamed
		}
		return sessionCreatedMsg{session: session}
	}
}

func (m Model) renameSession(id, name string) tea.Cmd {
	api := m.api
	return func() tea.Msg {
		session, err := api.RenameSession(context.Background(), id, name)
		return sessionRenamedMsg{session: session, err: err}
	}
}

func (m Model) deleteSession(id string) tea.Cmd {
	api := m.api
	return func() tea.Msg {
		err := api.DeleteSession(context.Background(), id)
		return sessionDeletedMsg{sessionID: id, err: err}
	}
}

func (m Model) archiveSession() tea.Cmd {
	archiver := m.archiver
	session := m.active
	msgs := m.store.Snapshot()
	return func() tea.Msg {
		hash, err := archiver.Archive(session, msgs)
		return archivedMsg{hash: hash, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case sessionsLoadedMsg:
		if msg.err != nil {
			m.status = "failed to load sessions: " + msg.err.Error()
			return m, nil
		}
		m.dir.Replace(msg.sessions)
		m.sessions = m.dir.Snapshot()
		if m.cursor >= len(m.sessions) {
			m.cursor = max(0, len(m.sessions)-1)
		}
		return m, nil

	case sessionOpenedMsg:
		// discard a stale hydration if the user already moved on
		if msg.sessionID != m.active.ID {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.status = "failed to load transcript: " + msg.err.Error()
			return m, nil
		}
		// a run that started after the fetch owns the store now; hydrating
		// would wipe its partial assistant message
		if m.runner.Busy(msg.sessionID) {
			return m, nil
		}
		m.store.Hydrate(msg.msgs)
		return m, nil

	case sessionCreatedMsg:
		if msg.err != nil {
			m.status = "failed to create session: " + msg.err.Error()
			return m, nil
		}
		m.dir.Put(msg.session)
		m.sessions = m.dir.Snapshot()
		m.cursor = 0
		return m.enterChat(msg.session)

	case sessionRenamedMsg:
		if msg.err != nil {
			m.status = "rename failed: " + msg.err.Error()
			return m, nil
		}
		m.dir.Put(msg.session)
		m.sessions = m.dir.Snapshot()
		if m.active.ID == msg.session.ID {
			m.active = msg.session
		}
		return m, nil

	case sessionDeletedMsg:
		if msg.err != nil {
			m.status = "delete failed: " + msg.err.Error()
			return m, nil
		}
		// deleting drops the bound transcript as well
		if store, ok := m.stores[msg.sessionID]; ok {
			store.Clear()
			delete(m.stores, msg.sessionID)
		}
		m.runner.Cancel(msg.sessionID)
		m.dir.Remove(msg.sessionID)
		m.sessions = m.dir.Snapshot()
		if m.cursor >= len(m.sessions) {
			m.cursor = max(0, len(m.sessions)-1)
		}
		return m, nil

	case archivedMsg:
		if msg.err != nil {
			m.status = "archive failed: " + msg.err.Error()
		} else {
			m.status = "archived at " + truncate(msg.hash, 10)
		}
		return m, nil

	case transcriptMsg:
		// the bound store already holds the new state; a stale update for
		// another session changes nothing on screen
		return m, m.waitForUpdate()

	case previewMsg:
		// the singleton preview is whatever the active session built; a
		// late URL from another session only lands on its directory record
		if m.active.ID == msg.sessionID {
			m.coord.SetURL(msg.sessionID, msg.url)
			m.active.PreviewURL = msg.url
		} else {
			m.dir.SetSessionPreviewURL(msg.sessionID, msg.url)
		}
		m.sessions = m.dir.Snapshot()
		return m, m.waitForUpdate()

	case noticeMsg:
		if msg.sessionID == m.active.ID {
			m.status = msg.text
		}
		return m, m.waitForUpdate()

	case finishedMsg:
		if msg.sessionID == m.active.ID {
			m.streaming = false
			if msg.err != nil {
				m.status = "run failed: " + msg.err.Error()
			}
		}
		return m, m.waitForUpdate()

	case tea.KeyMsg:
		switch m.mode {
		case modeList:
			return m.updateList(msg)
		case modeChat:
			return m.updateChat(msg)
		case modeRename:
			return m.updateRename(msg)
		}
	}
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.sessions)-1 {
			m.cursor++
		}

	case "enter":
		if len(m.sessions) == 0 {
			return m, nil
		}
		return m.enterChat(m.sessions[m.cursor])

	case "n":
		m.status = ""
		return m, m.createSession()

	case "r":
		if len(m.sessions) == 0 {
			return m, nil
		}
		m.renameInput.SetValue(m.sessions[m.cursor].Name)
		m.renameInput.Focus()
		m.renameInput.CursorEnd()
		m.mode = modeRename
		return m, nil

	case "d":
		if len(m.sessions) == 0 {
			return m, nil
		}
		return m, m.deleteSession(m.sessions[m.cursor].ID)

	case "R":
		return m, m.loadSessions()
	}
	return m, nil
}

func (m Model) enterChat(s client.Session) (tea.Model, tea.Cmd) {
	m.active = s
	store, ok := m.stores[s.ID]
	if !ok {
		store = transcript.NewStore()
		m.stores[s.ID] = store
	}
	m.store = store
	m.coord.Reset(s.PreviewURL)
	m.streaming = m.runner.Busy(s.ID)
	m.status = ""
	m.input.Focus()
	m.mode = modeChat
	if m.streaming {
		// the live run's bound store is already the freshest transcript;
		// the server has not persisted the in-flight message yet
		m.loading = false
		return m, nil
	}
	m.loading = true
	return m, m.openSession(s)
}

func (m Model) updateChat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "esc":
		// leaving the chat does not abort the run; late events keep
		// landing in this session's bound store
		m.mode = modeList
		return m, m.loadSessions()

	case "enter":
		return m.submit()

	case "ctrl+r":
		m.coord.ForceReload()
		_, reload := m.coord.Current()
		m.status = fmt.Sprintf("preview reloaded (#%d)", reload)
		return m, nil

	case "ctrl+o":
		if m.archiver == nil {
			m.status = "no archive directory configured"
			return m, nil
		}
		return m, m.archiveSession()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	content := m.input.Value()
	err := m.runner.Submit(context.Background(), m.active.ID, m.store, content)
	switch {
	case errors.Is(err, client.ErrEmptyMessage):
		return m, nil
	case errors.Is(err, client.ErrRunActive):
		m.status = "the agent is still working on this session"
		return m, nil
	case err != nil:
		m.status = "submit failed: " + err.Error()
		return m, nil
	}
	m.input.Reset()
	m.streaming = true
	m.status = ""
	return m, m.spin.Tick
}

func (m Model) updateRename(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeList
		return m, nil
	case "enter":
		name := strings.TrimSpace(m.renameInput.Value())
		m.mode = modeList
		if name == "" || len(m.sessions) == 0 {
			return m, nil
		}
		return m, m.renameSession(m.sessions[m.cursor].ID, name)
	}
	var cmd tea.Cmd
	m.renameInput, cmd = m.renameInput.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	switch m.mode {
	case modeChat:
		return m.viewChat()
	case modeRename:
		return m.viewRename()
	default:
		return m.viewList()
	}
}

func (m Model) viewList() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("appforge sessions"))
	b.WriteString("\n")
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-20s %-10s %-8s %s", "NAME", "STATUS", "PREVIEW", "CREATED")))
	b.WriteString("\n")

	if len(m.sessions) == 0 {
		b.WriteString(dimStyle.Render("  no sessions — press n to create one"))
		b.WriteString("\n")
	}
	for i, s := range m.sessions {
		name := s.Name
		if name == "" {
			name = truncate(s.ID, 12)
		}
		previewTag := "-"
		if s.PreviewURL != "" {
			previewTag = "yes"
		}
		row := fmt.Sprintf("%-20s %-10s %-8s %s",
			truncate(name, 20), s.Status, previewTag, s.CreatedAt.Local().Format("01-02 15:04"))
		if i == m.cursor {
			b.WriteString(selectedStyle.Render(row))
		} else {
			b.WriteString(normalStyle.Render(row))
		}
		b.WriteString("\n")
	}

	if m.status != "" {
		b.WriteString(noticeStyle.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("enter open · n new · r rename · d delete · R refresh · q quit"))
	return b.String()
}

func (m Model) viewChat() string {
	var lines []string
	for _, msg := range m.store.Snapshot() {
		lines = append(lines, renderMessage(msg, m.spin.View())...)
	}
	if m.loading && len(lines) == 0 {
		lines = append(lines, dimStyle.Render("loading transcript..."))
	}

	// keep the tail of the conversation in view
	visible := max(1, m.height-6)
	if len(lines) > visible {
		lines = lines[len(lines)-visible:]
	}

	name := m.active.Name
	if name == "" {
		name = truncate(m.active.ID, 12)
	}
	state := "ready"
	if m.streaming {
		state = "streaming " + m.spin.View()
	}
	url, reload := m.coord.Current()
	previewInfo := "no preview yet"
	if url != "" {
		previewInfo = fmt.Sprintf("%s (#%d)", url, reload)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(name))
	b.WriteString("\n")
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(statusBarStyle.Render(fmt.Sprintf("%s · %s", state, previewInfo)))
	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(noticeStyle.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("enter send · ctrl+r reload preview · ctrl+o archive · esc sessions · ctrl+c quit"))
	return b.String()
}

func (m Model) viewRename() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("rename session"))
	b.WriteString("\n")
	b.WriteString(m.renameInput.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter confirm · esc cancel"))
	return b.String()
}
