// Package naming turns a file naming scheme into the output path of a stream.
package naming

import (
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata" // timezone names must resolve without a system zoneinfo

	strftime "github.com/ncruces/go-strftime"

	"target-csv/internal/errors"
)

// Options carries the naming settings of one run.
type Options struct {
	Template        string // e.g. "{stream_name}_{datestamp}.csv"
	DatestampFormat string // strftime pattern
	TimestampFormat string // strftime pattern
	Timezone        string // IANA name, empty means UTC
	OutputDirectory string // optional prefix directory
}

// Resolver computes stream output paths. The run timestamp is fixed when the
// resolver is built, so every stream and batch of a run sees the same value.
type Resolver struct {
	template  string
	dir       string
	runTime   time.Time
	datestamp string
	timestamp string
}

// NewResolver formats runTime once in the configured timezone.
func NewResolver(opts Options, runTime time.Time) (*Resolver, error) {
	tz := opts.Timezone
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, errors.WrapConfig(errors.ErrUnknownTimezone, "Resolver", "New", "load timezone "+tz)
	}

	local := runTime.In(loc)
	return &Resolver{
		template:  opts.Template,
		dir:       opts.OutputDirectory,
		runTime:   local,
		datestamp: strftime.Format(opts.DatestampFormat, local),
		timestamp: strftime.Format(opts.TimestampFormat, local),
	}, nil
}

// RunTime returns the run timestamp in the configured timezone.
func (r *Resolver) RunTime() time.Time {
	return r.runTime
}

// Filename substitutes {stream_name}, {datestamp} and {timestamp}. Any other
// brace expression is left as written.
func (r *Resolver) Filename(streamName string) string {
	return strings.NewReplacer(
		"{stream_name}", streamName,
		"{datestamp}", r.datestamp,
		"{timestamp}", r.timestamp,
	).Replace(r.template)
}

// Resolve returns the output path for streamName. Directories are not created here.
func (r *Resolver) Resolve(streamName string) string {
	filename := r.Filename(streamName)
	if r.dir == "" {
		return filename
	}
	return filepath.Join(r.dir, filename)
}
