package singer

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"target-csv/internal/config"
	"target-csv/internal/csvfile"
	"target-csv/internal/errors"
	"target-csv/internal/metric"
	"target-csv/internal/model"
	"target-csv/internal/naming"
	"target-csv/internal/report"
	"target-csv/internal/sink"
)

// Options configure a Target.
type Options struct {
	Config   config.Config
	Logger   *slog.Logger
	Metrics  *metric.Metrics
	StateOut io.Writer        // receives the final STATE line; nil discards it
	Now      func() time.Time // run clock; defaults to time.Now
}

type streamSink struct {
	csv     *sink.CSVSink
	batched *sink.BatchedSink
}

// Target consumes one Singer message stream and writes one CSV file per
// stream. It is not safe for concurrent Process calls.
type Target struct {
	cfg      config.Config
	log      *slog.Logger
	runID    string
	now      func() time.Time
	resolver *naming.Resolver
	writer   *csvfile.Writer
	metrics  *metric.Metrics
	report   *report.Report
	state    *sink.StateEmitter

	sinks       map[string]*streamSink
	order       []string
	latestState json.RawMessage
}

// New fixes the run timestamp and prepares the shared writer.
func New(opts Options) (*Target, error) {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	stateOut := opts.StateOut
	if stateOut == nil {
		stateOut = io.Discard
	}

	runID := uuid.NewString()
	started := now()
	cfg := opts.Config

	resolver, err := naming.NewResolver(naming.Options{
		Template:        cfg.FileNamingScheme,
		DatestampFormat: cfg.DatestampFormat,
		TimestampFormat: cfg.TimestampFormat,
		Timezone:        cfg.TimestampTimezone,
		OutputDirectory: cfg.OutputDirectory,
	}, started)
	if err != nil {
		return nil, err
	}

	return &Target{
		cfg:      cfg,
		log:      log.With("run_id", runID),
		runID:    runID,
		now:      now,
		resolver: resolver,
		writer:   csvfile.NewWriter(cfg.EscapeRune()),
		metrics:  opts.Metrics,
		report:   report.NewReport(runID, started),
		state:    sink.NewStateEmitter(stateOut),
		sinks:    make(map[string]*streamSink),
	}, nil
}

// RunID returns the identifier attached to this run's logs and report.
func (t *Target) RunID() string { return t.runID }

// Report returns the run statistics collected so far.
func (t *Target) Report() *report.Report { return t.report }

// LatestState returns the most recent STATE value seen.
func (t *Target) LatestState() json.RawMessage { return t.latestState }

// Process reads newline-delimited messages from r until EOF, then drains
// every sink and emits the latest state. Any error aborts the run.
func (t *Target) Process(ctx context.Context, r io.Reader) error {
	reader := bufio.NewReader(r)
	lineNo := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, readErr := reader.ReadBytes('\n')
		if readErr != nil && readErr != io.EOF {
			return errors.WrapIO(readErr, "Target", "Process", "read input")
		}
		lineNo++

		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			t.report.TotalLines++
			msg, err := ParseMessage(trimmed)
			if err != nil {
				return fmt.Errorf("line %d: %w", lineNo, err)
			}
			if err := t.Handle(ctx, msg); err != nil {
				return fmt.Errorf("line %d: %w", lineNo, err)
			}
		}

		if readErr == io.EOF {
			break
		}
	}

	return t.Finish(ctx)
}

// Handle applies one message.
func (t *Target) Handle(ctx context.Context, msg Message) error {
	t.metrics.ObserveMessage(msg.Type)

	switch msg.Type {
	case TypeSchema:
		t.report.SchemaMessages++
		return t.handleSchema(msg)
	case TypeRecord:
		t.report.RecordMessages++
		return t.handleRecord(ctx, msg)
	case TypeState:
		t.report.StateMessages++
		if msg.Value != nil {
			t.latestState = msg.Value
		}
		return nil
	default:
		t.report.OtherMessages++
		t.log.Debug("ignoring message", "type", msg.Type, "stream", msg.Stream)
		return nil
	}
}

func (t *Target) handleSchema(msg Message) error {
	stream, err := model.NewStreamDescriptor(msg.Stream, msg.Schema, msg.KeyProperties)
	if err != nil {
		return err
	}

	if existing, ok := t.sinks[msg.Stream]; ok {
		if !slices.Equal(existing.csv.Stream().ColumnKeys, stream.ColumnKeys) {
			t.log.Warn("schema changed mid-run, keeping the original columns",
				"stream", msg.Stream,
				"columns", existing.csv.Stream().ColumnKeys,
				"received", stream.ColumnKeys)
		}
		return nil
	}

	csvSink, err := sink.Build(t.cfg, stream, sink.Deps{
		Writer:   t.writer,
		Resolver: t.resolver,
		Metrics:  t.metrics,
		Report:   t.report,
		Logger:   t.log,
	})
	if err != nil {
		return err
	}
	if err := csvSink.Setup(); err != nil {
		return err
	}

	t.sinks[msg.Stream] = &streamSink{
		csv:     csvSink,
		batched: sink.NewBatchedSink(csvSink, t.cfg.BatchSizeRows),
	}
	t.order = append(t.order, msg.Stream)
	return nil
}

func (t *Target) handleRecord(ctx context.Context, msg Message) error {
	s, ok := t.sinks[msg.Stream]
	if !ok {
		return errors.WrapData(
			fmt.Errorf("%w: %s", errors.ErrUnknownStream, msg.Stream),
			"Target", "handleRecord", "route record")
	}
	_, err := s.batched.Write(ctx, msg.Record)
	return err
}

// DrainAll flushes every sink, at most max_parallelism at a time.
func (t *Target) DrainAll(ctx context.Context) error {
	limit := t.cfg.MaxParallelism
	if limit < 1 {
		limit = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, name := range t.order {
		s := t.sinks[name]
		g.Go(func() error {
			_, err := s.batched.Flush(gctx)
			return err
		})
	}
	return g.Wait()
}

// Finish drains all sinks, emits the latest state and writes the report.
func (t *Target) Finish(ctx context.Context) error {
	if err := t.DrainAll(ctx); err != nil {
		return err
	}
	if err := t.state.Emit(t.latestState); err != nil {
		return errors.WrapIO(err, "Target", "Finish", "emit state")
	}

	t.report.Finish(t.now())
	if t.cfg.ReportPath != "" {
		if err := t.report.WriteJSON(t.cfg.ReportPath); err != nil {
			return errors.WrapIO(err, "Target", "Finish", "write report")
		}
	}

	t.log.Info("run complete",
		"streams", len(t.order),
		"lines", t.report.TotalLines,
		"records_written", t.report.RecordsWritten(),
		"duration_ms", t.report.DurationMS)
	return nil
}
