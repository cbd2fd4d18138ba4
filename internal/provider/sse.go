package provider

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// sseEvent is one server-sent event envelope.
type sseEvent struct {
	name string
	data string
}

// sseReader incrementally assembles SSE events from a byte stream. Lines are
// buffered internally, so event boundaries need not align with transport
// reads.
type sseReader struct {
	r *bufio.Reader
}

func newSSEReader(r io.Reader) *sseReader {
	return &sseReader{r: bufio.NewReaderSize(r, 4096)}
}

// next returns the next complete event, or io.EOF when the transport ends.
func (s *sseReader) next() (sseEvent, error) {
	var name string
	var dataLines []string
	for {
		line, err := s.r.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return sseEvent{}, io.EOF
			}
			return sseEvent{}, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if len(dataLines) > 0 {
				return sseEvent{name: name, data: strings.Join(dataLines, "\n")}, nil
			}
			name = ""
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		switch {
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
}
