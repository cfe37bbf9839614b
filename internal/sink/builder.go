package sink

import (
	"fmt"
	"log/slog"

	"target-csv/internal/config"
	"target-csv/internal/csvfile"
	"target-csv/internal/errors"
	"target-csv/internal/metric"
	"target-csv/internal/model"
	"target-csv/internal/naming"
	"target-csv/internal/plugins"
	"target-csv/internal/report"
)

// Deps are the run-wide collaborators shared by every sink.
type Deps struct {
	Writer   *csvfile.Writer
	Resolver *naming.Resolver
	Metrics  *metric.Metrics
	Report   *report.Report
	Logger   *slog.Logger
}

// Build constructs the sink for one stream. It validates the configuration
// against the stream's columns and resolves the path but touches no files.
func Build(cfg config.Config, stream model.StreamDescriptor, deps Deps) (*CSVSink, error) {
	if key := cfg.RecordSortPropertyName; key != "" && !stream.HasColumn(key) {
		return nil, errors.WrapConfig(
			fmt.Errorf("%w: %q is not a property of stream %s", errors.ErrSortKeyNotInSchema, key, stream.Name),
			"Sink", "Build", "check record_sort_property_name")
	}

	transforms, err := plugins.BuildTransforms(cfg)
	if err != nil {
		return nil, errors.WrapConfig(err, "Sink", "Build", "build transforms")
	}

	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	path := deps.Resolver.Resolve(stream.Name)
	if err := deps.Writer.Claim(path, stream.Name); err != nil {
		return nil, errors.WrapConfig(err, "Sink", "Build", "claim output path")
	}
	if deps.Report != nil {
		deps.Report.AddStream(stream.Name, path)
	}

	return &CSVSink{
		stream:     stream,
		path:       path,
		writer:     deps.Writer,
		transforms: transforms,
		metrics:    deps.Metrics,
		report:     deps.Report,
		log:        log.With("stream", stream.Name),
	}, nil
}
