package report

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportCountsBatchesConcurrently(t *testing.T) {
	r := NewReport("run-1", time.Now())
	r.AddStream("users", "/out/users.csv")
	r.AddStream("employees", "/out/employees.csv")

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		for _, name := range []string{"users", "employees"} {
			wg.Add(1)
			go func(name string) {
				defer wg.Done()
				r.AddBatch(name, 10)
			}(name)
		}
	}
	wg.Wait()

	assert.Equal(t, 60, r.RecordsWritten())
	assert.Equal(t, []string{"employees", "users"}, r.StreamNames())
	assert.Equal(t, 3, r.Streams["users"].Batches)
	assert.Equal(t, "/out/users.csv", r.Streams["users"].Path)
}

func TestReportWriteJSON(t *testing.T) {
	start := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	r := NewReport("run-1", start)
	r.TotalLines = 4
	r.SchemaMessages = 1
	r.RecordMessages = 2
	r.StateMessages = 1
	r.AddStream("users", "users.csv")
	r.AddBatch("users", 2)
	r.Finish(start.Add(1500 * time.Millisecond))

	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, r.WriteJSON(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "run-1", got["run_id"])
	assert.EqualValues(t, 1500, got["duration_ms"])
	assert.EqualValues(t, 4, got["total_lines"])
	streams := got["streams"].(map[string]any)
	users := streams["users"].(map[string]any)
	assert.EqualValues(t, 2, users["records"])
	assert.EqualValues(t, 1, users["batches"])
}

func TestReportWriteJSONBadPath(t *testing.T) {
	r := NewReport("run-1", time.Now())
	err := r.WriteJSON(filepath.Join(t.TempDir(), "missing", "report.json"))
	assert.Error(t, err)
}
