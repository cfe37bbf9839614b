package sink

import (
	"bytes"
	"io"
	"sync"

	"github.com/goccy/go-json"
)

// StateEmitter writes Singer state values as JSON lines, typically to stdout.
type StateEmitter struct {
	mu sync.Mutex
	w  io.Writer
}

func NewStateEmitter(w io.Writer) *StateEmitter {
	return &StateEmitter{w: w}
}

// Emit writes state compacted onto one line. An empty state writes nothing.
func (s *StateEmitter) Emit(state json.RawMessage) error {
	if len(bytes.TrimSpace(state)) == 0 {
		return nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, state); err != nil {
		return err
	}
	buf.WriteByte('\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.w.Write(buf.Bytes())
	return err
}
