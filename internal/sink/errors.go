package sink

import "target-csv/internal/errors"

var (
	// ErrOpenSink marks failures to prepare a stream's output file.
	ErrOpenSink = errors.New("open sink")
	// ErrWriteSink marks failures to append a batch.
	ErrWriteSink = errors.New("write sink")
)
