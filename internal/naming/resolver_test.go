package naming

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"target-csv/internal/errors"
)

func defaultOptions(template string) Options {
	return Options{
		Template:        template,
		DatestampFormat: "%Y-%m-%d",
		TimestampFormat: "%Y-%m-%d.T%H%M%S",
		Timezone:        "UTC",
	}
}

func TestResolveDatestampTemplate(t *testing.T) {
	ts := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	r, err := NewResolver(defaultOptions("{stream_name}_{datestamp}.csv"), ts)
	require.NoError(t, err)

	assert.Equal(t, "users_2024-01-15.csv", r.Resolve("users"))
}

func TestResolveTimestampAndUnknownPlaceholders(t *testing.T) {
	ts := time.Date(2024, 1, 15, 9, 5, 7, 0, time.UTC)
	r, err := NewResolver(defaultOptions("{stream_name}/{timestamp}-{run_id}.csv"), ts)
	require.NoError(t, err)

	assert.Equal(t, "orders/2024-01-15.T090507-{run_id}.csv", r.Resolve("orders"))
}

func TestResolveWithOutputDirectory(t *testing.T) {
	opts := defaultOptions("{stream_name}.csv")
	opts.OutputDirectory = filepath.Join("to", "folder")
	r, err := NewResolver(opts, time.Now())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("to", "folder", "foo.csv"), r.Resolve("foo"))
}

func TestResolveWithoutDirectoryIsBareFilename(t *testing.T) {
	r, err := NewResolver(defaultOptions("{stream_name}.csv"), time.Now())
	require.NoError(t, err)
	assert.Equal(t, "foo.csv", r.Resolve("foo"))
}

func TestResolveUsesConfiguredTimezone(t *testing.T) {
	// 23:30 UTC is already the next day in Tokyo.
	ts := time.Date(2024, 1, 15, 23, 30, 0, 0, time.UTC)
	opts := defaultOptions("{datestamp}.csv")
	opts.Timezone = "Asia/Tokyo"
	r, err := NewResolver(opts, ts)
	require.NoError(t, err)

	assert.Equal(t, "2024-01-16.csv", r.Resolve("any"))
	assert.Equal(t, "Asia/Tokyo", r.RunTime().Location().String())
}

func TestResolveCustomFormats(t *testing.T) {
	ts := time.Date(2024, 3, 9, 14, 0, 0, 0, time.UTC)
	opts := defaultOptions("{datestamp}_{timestamp}.csv")
	opts.DatestampFormat = "%Y%m%d"
	opts.TimestampFormat = "%H%M"
	r, err := NewResolver(opts, ts)
	require.NoError(t, err)

	assert.Equal(t, "20240309_1400.csv", r.Resolve("s"))
}

func TestResolveIsStableAcrossCalls(t *testing.T) {
	r, err := NewResolver(defaultOptions("{stream_name}_{timestamp}.csv"), time.Now())
	require.NoError(t, err)

	first := r.Resolve("users")
	time.Sleep(1100 * time.Millisecond)
	assert.Equal(t, first, r.Resolve("users"))
}

func TestUnknownTimezoneIsConfigurationError(t *testing.T) {
	opts := defaultOptions("{stream_name}.csv")
	opts.Timezone = "Mars/Olympus_Mons"
	_, err := NewResolver(opts, time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUnknownTimezone)
	assert.True(t, errors.IsConfig(err))
}
