// Package csvfile materializes stream records as excel-dialect CSV files.
//
// A file goes through two states: the header is written once, which creates
// or truncates it, and then any number of batches are appended. Each batch is
// serialized into memory before a single append, so an encoding failure never
// leaves a partial row behind. Operations on one path are serialized; distinct
// paths share nothing but the lock table.
package csvfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"target-csv/internal/errors"
	"target-csv/internal/model"
)

type pathState struct {
	mu            sync.Mutex
	headerWritten bool
	owner         string
}

// Writer writes CSV headers and batches. It is safe for concurrent use.
type Writer struct {
	escape rune

	mu    sync.Mutex
	paths map[string]*pathState
}

// NewWriter returns a Writer using escape as escape character (0 for none).
func NewWriter(escape rune) *Writer {
	return &Writer{
		escape: escape,
		paths:  make(map[string]*pathState),
	}
}

func canonical(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

func (w *Writer) state(path string) *pathState {
	key := canonical(path)
	w.mu.Lock()
	defer w.mu.Unlock()
	st, ok := w.paths[key]
	if !ok {
		st = &pathState{}
		w.paths[key] = st
	}
	return st
}

// Claim records owner as the only stream allowed to write path. Claiming
// again with the same owner is a no-op.
func (w *Writer) Claim(path, owner string) error {
	st := w.state(path)
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.owner != "" && st.owner != owner {
		return fmt.Errorf("%w: %s resolves for both %s and %s",
			errors.ErrDuplicateOutputPath, path, st.owner, owner)
	}
	st.owner = owner
	return nil
}

// HeaderWritten reports whether WriteHeader has succeeded for path.
func (w *Writer) HeaderWritten(path string) bool {
	st := w.state(path)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.headerWritten
}

// WriteHeader creates missing parent directories, then creates or truncates
// path and writes the header row. Calling it again discards prior content.
func (w *Writer) WriteHeader(path string, keys []string) error {
	header := EncodeHeader(keys, w.escape)

	st := w.state(path)
	st.mu.Lock()
	defer st.mu.Unlock()

	if err := ensureParentDir(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, header, 0o644); err != nil {
		return errors.WrapIO(err, "Writer", "WriteHeader", "write header to "+path)
	}
	st.headerWritten = true
	return nil
}

// AppendBatch appends one row per record and returns the number written.
// The header must have been written through this Writer first.
func (w *Writer) AppendBatch(path string, keys []string, records []model.Record) (int, error) {
	body, err := EncodeRecords(keys, records, w.escape)
	if err != nil {
		return 0, errors.WrapData(err, "Writer", "AppendBatch", "encode records for "+path)
	}

	st := w.state(path)
	st.mu.Lock()
	defer st.mu.Unlock()

	if !st.headerWritten {
		return 0, errors.Wrap(errors.ErrHeaderNotWritten, "Writer", "AppendBatch", "append to "+path)
	}
	if len(records) == 0 {
		return 0, nil
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return 0, errors.WrapIO(err, "Writer", "AppendBatch", "open "+path)
	}
	if _, err := f.Write(body); err != nil {
		f.Close()
		return 0, errors.WrapIO(err, "Writer", "AppendBatch", "append to "+path)
	}
	if err := f.Close(); err != nil {
		return 0, errors.WrapIO(err, "Writer", "AppendBatch", "close "+path)
	}
	return len(records), nil
}

// ensureParentDir creates every missing directory above path. An existing
// directory is not an error.
func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.WrapIO(fmt.Errorf("create directory %s: %w", dir, err), "Writer", "WriteHeader", "ensure parent directory")
	}
	return nil
}
