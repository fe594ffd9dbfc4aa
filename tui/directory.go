package tui

import (
	"sync"

	"appforge/client"
)

// directory is the view-side mirror of the session list. The preview
// coordinator writes URLs back into it so re-selecting a session restores
// its preview without a new build.
type directory struct {
	mu       sync.Mutex
	sessions []client.Session
}

func (d *directory) Replace(sessions []client.Session) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sessions = append([]client.Session(nil), sessions...)
}

func (d *directory) Snapshot() []client.Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]client.Session(nil), d.sessions...)
}

func (d *directory) Put(session client.Session) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.sessions {
		if d.sessions[i].ID == session.ID {
			d.sessions[i] = session
			return
		}
	}
	d.sessions = append([]client.Session{session}, d.sessions...)
}

func (d *directory) Remove(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.sessions {
		if d.sessions[i].ID == id {
			d.sessions = append(d.sessions[:i], d.sessions[i+1:]...)
			return
		}
	}
}

// SetSessionPreviewURL implements preview.Mirror.
func (d *directory) SetSessionPreviewURL(id, url string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.sessions {
		if d.sessions[i].ID == id {
			d.sessions[i].PreviewURL = url
			return
		}
	}
}
