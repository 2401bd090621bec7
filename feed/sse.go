package feed

import (
	"bufio"
	"io"
	"strings"
)

// rawEvent is a single parsed SSE event from the wire.
type rawEvent struct {
	Event string
	Data  string
	ID    string
}

// sseReader reads SSE events from an io.Reader using a bufio.Scanner.
type sseReader struct {
	scanner *bufio.Scanner
}

func newSSEReader(r io.Reader) *sseReader {
	return &sseReader{scanner: bufio.NewScanner(r)}
}

// Next returns the next complete SSE event, or an error (io.EOF at end of stream).
// It blocks until a full event is available.
func (s *sseReader) Next() (rawEvent, error) {
	var ev rawEvent
	var dataParts []string
	hasFields := false

	for s.scanner.Scan() {
		line := s.scanner.Text()

		// Blank line dispatches the event
		if line == "" {
			if hasFields {
				ev.Data = strings.Join(dataParts, "\n")
				return ev, nil
			}
			continue
		}

		// Comment lines (starting with ':') are ignored
		if strings.HasPrefix(line, ":") {
			continue
		}

		// Split on first ':'
		field := line
		value := ""
		if idx := strings.Index(line, ":"); idx >= 0 {
			field = line[:idx]
			value = line[idx+1:]
			// Strip single leading space from value per SSE spec
			if strings.HasPrefix(value, " ") {
				value = value[1:]
			}
		}

		switch field {
		case "event":
			ev.Event = value
			hasFields = true
		case "data":
			dataParts = append(dataParts, value)
			hasFields = true
		case "id":
			ev.ID = value
			hasFields = true
		}
	}

	if err := s.scanner.Err(); err != nil {
		return rawEvent{}, err
	}

	// EOF with accumulated fields: dispatch final event
	if hasFields {
		ev.Data = strings.Join(dataParts, "\n")
		return ev, nil
	}

	return rawEvent{}, io.EOF
}
