package protocol

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func drain(t *testing.T, d *Decoder) []Event {
	t.Helper()
	var events []Event
	for {
		event, err := d.Next()
		if errors.Is(err, io.EOF) {
			return events
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		events = append(events, event)
	}
}

func TestDecoder_FullStream(t *testing.T) {
	stream := "data: {\"type\":\"tool_start\",\"tool\":\"write_file\",\"step\":{\"id\":\"t1\",\"title\":\"write_file\",\"status\":\"running\"}}\n\n" +
		"data: {\"type\":\"tool_end\",\"tool\":\"write_file\",\"step_id\":\"t1\"}\n\n" +
		"data: {\"type\":\"token\",\"content\":\"Here\"}\n\n" +
		"data: {\"type\":\"token\",\"content\":\" you go\"}\n\n" +
		"data: {\"type\":\"preview_ready\",\"url\":\"https://x.e2b.app\"}\n\n" +
		"data: {\"type\":\"done\"}\n\n"

	events := drain(t, NewDecoder(strings.NewReader(stream)))
	if len(events) != 6 {
		t.Fatalf("event count mismatch: got %d, want 6", len(events))
	}
	if _, ok := events[0].(ToolStart); !ok {
		t.Errorf("events[0]: expected ToolStart, got %T", events[0])
	}
	if _, ok := events[5].(Done); !ok {
		t.Errorf("events[5]: expected Done, got %T", events[5])
	}
}

// A truncated line between two valid ones must yield the same events as the
// stream with the bad line removed.
func TestDecoder_MalformedLineDropped(t *testing.T) {
	valid := "data: {\"type\":\"token\",\"content\":\"a\"}\n\n" +
		"data: {\"type\":\"token\",\"content\":\"b\"}\n\n"
	corrupted := "data: {\"type\":\"token\",\"content\":\"a\"}\n\n" +
		"data: {\"type\":\"tok\n\n" +
		"data: {\"type\":\"token\",\"content\":\"b\"}\n\n"

	want := drain(t, NewDecoder(strings.NewReader(valid)))
	got := drain(t, NewDecoder(strings.NewReader(corrupted)))

	if len(got) != len(want) {
		t.Fatalf("event count mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("events[%d] mismatch: got %#v, want %#v", i, got[i], want[i])
		}
	}
}

func TestDecoder_SkipsNonDataLines(t *testing.T) {
	stream := ": comment\n" +
		"event: message\n" +
		"data: {\"type\":\"done\"}\n\n"
	events := drain(t, NewDecoder(strings.NewReader(stream)))
	if len(events) != 1 {
		t.Fatalf("event count mismatch: got %d, want 1", len(events))
	}
	if _, ok := events[0].(Done); !ok {
		t.Errorf("expected Done, got %T", events[0])
	}
}

func TestDecoder_CRLF(t *testing.T) {
	stream := "data: {\"type\":\"token\",\"content\":\"hi\"}\r\n\r\ndata: {\"type\":\"done\"}\r\n\r\n"
	events := drain(t, NewDecoder(strings.NewReader(stream)))
	if len(events) != 2 {
		t.Fatalf("event count mismatch: got %d, want 2", len(events))
	}
	if token := events[0].(Token); token.Content != "hi" {
		t.Errorf("Content mismatch: got %q", token.Content)
	}
}

func TestDecoder_EmptyStream(t *testing.T) {
	if _, err := NewDecoder(strings.NewReader("")).Next(); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestDecoder_LargeTokenLine(t *testing.T) {
	big := strings.Repeat("x", 200*1024)
	stream := "data: {\"type\":\"token\",\"content\":\"" + big + "\"}\n\ndata: {\"type\":\"done\"}\n\n"
	events := drain(t, NewDecoder(strings.NewReader(stream)))
	if len(events) != 2 {
		t.Fatalf("event count mismatch: got %d, want 2", len(events))
	}
	if token := events[0].(Token); len(token.Content) != len(big) {
		t.Errorf("large token length mismatch: got %d, want %d", len(token.Content), len(big))
	}
}
