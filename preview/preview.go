// Package preview tracks the navigable URL of a session's sandboxed build
// output for the consuming view.
package preview

import (
	"log/slog"
	"sync"
)

// Mirror writes a session's preview URL back into the session directory's
// record, so re-selecting the session later restores the preview without a
// new build.
type Mirror interface {
	SetSessionPreviewURL(sessionID, url string)
}

// Coordinator holds the single current preview URL and a render
// invalidation counter. Bumping the counter forces the consuming surface to
// reload even when the URL string is unchanged.
type Coordinator struct {
	mu     sync.Mutex
	url    string
	reload uint64
	mirror Mirror
}

// New creates a coordinator. mirror may be nil when there is no directory
// to write back into (tests, detached views).
func New(mirror Mirror) *Coordinator {
	return &Coordinator{mirror: mirror}
}

// SetURL replaces the current URL with the latest one, invalidates the
// consuming surface and mirrors the URL onto the session record.
func (c *Coordinator) SetURL(sessionID, url string) {
	c.mu.Lock()
	c.url = url
	c.reload++
	c.mu.Unlock()

	if c.mirror != nil {
		c.mirror.SetSessionPreviewURL(sessionID, url)
	}
	slog.Debug("preview url updated", "session_id", sessionID, "url", url)
}

// ForceReload bumps the invalidation counter without changing the URL;
// the explicit user-initiated refresh.
func (c *Coordinator) ForceReload() {
	c.mu.Lock()
	c.reload++
	c.mu.Unlock()
}

// Current returns the URL and the invalidation counter the consuming view
// keys its reloads on.
func (c *Coordinator) Current() (string, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.url, c.reload
}

// Reset clears the tracked URL, used when switching sessions.
func (c *Coordinator) Reset(url string) {
	c.mu.Lock()
	c.url = url
	c.reload++
	c.mu.Unlock()
}
