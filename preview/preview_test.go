package preview

import (
	"sync"
	"testing"
)

type fakeMirror struct {
	mu   sync.Mutex
	urls map[string]string
}

func (m *fakeMirror) SetSessionPreviewURL(sessionID, url string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.urls == nil {
		m.urls = make(map[string]string)
	}
	m.urls[sessionID] = url
}

func TestCoordinator_SetURL(t *testing.T) {
	mirror := &fakeMirror{}
	coord := New(mirror)

	coord.SetURL("s1", "https://a.e2b.app")
	url, reload := coord.Current()
	if url != "https://a.e2b.app" {
		t.Errorf("URL mismatch: got %q", url)
	}
	if reload != 1 {
		t.Errorf("reload counter mismatch: got %d, want 1", reload)
	}
	if mirror.urls["s1"] != "https://a.e2b.app" {
		t.Errorf("mirror not updated: %v", mirror.urls)
	}
}

func TestCoordinator_LatestURLWins(t *testing.T) {
	coord := New(nil)
	coord.SetURL("s1", "https://a.e2b.app")
	coord.SetURL("s1", "https://b.e2b.app")

	url, reload := coord.Current()
	if url != "https://b.e2b.app" {
		t.Errorf("URL mismatch: got %q", url)
	}
	if reload != 2 {
		t.Errorf("reload counter mismatch: got %d, want 2", reload)
	}
}

func TestCoordinator_ForceReloadKeepsURL(t *testing.T) {
	coord := New(nil)
	coord.SetURL("s1", "https://a.e2b.app")
	_, before := coord.Current()

	coord.ForceReload()

	url, after := coord.Current()
	if url != "https://a.e2b.app" {
		t.Errorf("ForceReload changed the URL: %q", url)
	}
	if after != before+1 {
		t.Errorf("reload counter mismatch: got %d, want %d", after, before+1)
	}
}

func TestCoordinator_NilMirror(t *testing.T) {
	coord := New(nil)
	// must not panic without a directory to mirror into
	coord.SetURL("s1", "https://a.e2b.app")
	if url, _ := coord.Current(); url != "https://a.e2b.app" {
		t.Errorf("URL mismatch: got %q", url)
	}
}
