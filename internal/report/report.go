package report

import (
	"os"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// StreamStats counts what was written for one stream.
type StreamStats struct {
	Path    string `json:"path"`
	Records int    `json:"records"`
	Batches int    `json:"batches"`
}

// Report aggregates the statistics of one target run. Batch counters may be
// updated from concurrent drains.
type Report struct {
	RunID          string                  `json:"run_id"`
	StartedAt      time.Time               `json:"started_at"`
	DurationMS     int64                   `json:"duration_ms"`
	TotalLines     int                     `json:"total_lines"`
	SchemaMessages int                     `json:"schema_messages"`
	RecordMessages int                     `json:"record_messages"`
	StateMessages  int                     `json:"state_messages"`
	OtherMessages  int                     `json:"other_messages"`
	Streams        map[string]*StreamStats `json:"streams"`

	mu sync.Mutex
}

// NewReport initializes a Report with maps ready to use.
func NewReport(runID string, startedAt time.Time) *Report {
	return &Report{
		RunID:     runID,
		StartedAt: startedAt,
		Streams:   make(map[string]*StreamStats),
	}
}

func (r *Report) stream(name string) *StreamStats {
	st, ok := r.Streams[name]
	if !ok {
		st = &StreamStats{}
		r.Streams[name] = st
	}
	return st
}

// AddStream registers a stream and the file it writes to.
func (r *Report) AddStream(name, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stream(name).Path = path
}

// AddBatch counts one drained batch of n records.
func (r *Report) AddBatch(name string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.stream(name)
	st.Batches++
	st.Records += n
}

// RecordsWritten sums the records written across streams.
func (r *Report) RecordsWritten() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, st := range r.Streams {
		total += st.Records
	}
	return total
}

// StreamNames returns the registered streams in sorted order.
func (r *Report) StreamNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.Streams))
	for name := range r.Streams {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Finish stamps the run duration.
func (r *Report) Finish(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.DurationMS = now.Sub(r.StartedAt).Milliseconds()
}

// WriteJSON writes the report to a JSON file at the given path.
func (r *Report) WriteJSON(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
