package protocol

import (
	"bufio"
	"bytes"
	"io"
	"log/slog"
)

// Token lines can carry large spans of generated code, so the scanner
// buffer is far above bufio's default.
const maxLineSize = 1 << 20

var dataPrefix = []byte("data: ")

// Decoder reads events off a raw chunked-response body. Framing is
// line-oriented: payload lines start with "data: ", blank lines separate
// events, anything else (comments, truncated fragments) is skipped.
type Decoder struct {
	scanner *bufio.Scanner
}

func NewDecoder(r io.Reader) *Decoder {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Decoder{scanner: s}
}

// Next returns the next well-formed event. Malformed payload lines are
// dropped rather than aborting the stream: chunk boundaries do not align
// with event boundaries, and losing a stray fragment is preferable to
// killing the whole run. Returns io.EOF when the stream ends cleanly,
// otherwise the underlying read error.
func (d *Decoder) Next() (Event, error) {
	for d.scanner.Scan() {
		line := bytes.TrimRight(d.scanner.Bytes(), "\r")
		if len(line) == 0 {
			// blank separator between events
			continue
		}
		if !bytes.HasPrefix(line, dataPrefix) {
			slog.Debug("skipping non-data stream line", "length", len(line))
			continue
		}
		event, err := ParseLine(line[len(dataPrefix):])
		if err != nil {
			slog.Debug("dropping malformed event line", "error", err)
			continue
		}
		return event, nil
	}
	if err := d.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}
