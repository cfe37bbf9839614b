// Package sink drains per-stream batches into CSV files.
package sink

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"target-csv/internal/csvfile"
	"target-csv/internal/metric"
	"target-csv/internal/model"
	"target-csv/internal/plugins"
	"target-csv/internal/report"
	"target-csv/internal/stages"
)

// CSVSink owns the output file of one stream. It writes the header once and
// then appends every batch it is handed, in order.
type CSVSink struct {
	stream     model.StreamDescriptor
	path       string
	writer     *csvfile.Writer
	transforms []plugins.Transform
	metrics    *metric.Metrics
	report     *report.Report
	log        *slog.Logger

	mu    sync.Mutex
	ready bool
}

// Stream returns the descriptor the sink was built for.
func (s *CSVSink) Stream() model.StreamDescriptor { return s.stream }

// Path returns the resolved output path.
func (s *CSVSink) Path() string { return s.path }

// Setup truncates the output file and writes the header. It runs at most
// once per sink; later calls are no-ops.
func (s *CSVSink) Setup() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setupLocked()
}

func (s *CSVSink) setupLocked() error {
	if s.ready {
		return nil
	}
	if err := s.writer.WriteHeader(s.path, s.stream.ColumnKeys); err != nil {
		return fmt.Errorf("%w: stream %s: %w", ErrOpenSink, s.stream.Name, err)
	}
	s.ready = true
	s.log.Info("opened csv file", "path", s.path, "columns", len(s.stream.ColumnKeys))
	return nil
}

// ProcessBatch coerces batch into records, applies the transforms and
// appends the result. The header is written first if Setup has not run.
func (s *CSVSink) ProcessBatch(ctx context.Context, batch any) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	start := time.Now()
	records := stages.Coerce(s.log, s.stream.Name, batch)
	for _, transform := range s.transforms {
		if err := transform(records); err != nil {
			return 0, fmt.Errorf("stream %s: %w", s.stream.Name, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.setupLocked(); err != nil {
		return 0, err
	}

	n, err := s.writer.AppendBatch(s.path, s.stream.ColumnKeys, records)
	if err != nil {
		return n, fmt.Errorf("%w: stream %s: %w", ErrWriteSink, s.stream.Name, err)
	}
	elapsed := time.Since(start)

	s.metrics.ObserveBatch(s.stream.Name, n, elapsed)
	if s.report != nil {
		s.report.AddBatch(s.stream.Name, n)
	}
	s.log.Debug("batch written", "records", n, "elapsed", elapsed)
	return n, nil
}
