package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"target-csv/internal/errors"
)

func captureLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, nil)), &buf
}

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse(Raw{}, nil)
	require.NoError(t, err)

	assert.Equal(t, "{stream_name}.csv", cfg.FileNamingScheme)
	assert.Equal(t, "%Y-%m-%d", cfg.DatestampFormat)
	assert.Equal(t, "%Y-%m-%d.T%H%M%S", cfg.TimestampFormat)
	assert.Equal(t, "UTC", cfg.TimestampTimezone)
	assert.Equal(t, OverwriteReplaceFile, cfg.OverwriteBehavior)
	assert.Equal(t, 0, cfg.BatchSizeRows)
	assert.Equal(t, 8, cfg.MaxParallelism)
	assert.Empty(t, cfg.OutputDirectory)
	assert.Equal(t, rune(0), cfg.EscapeRune())
}

func TestOutputDirectoryPrecedence(t *testing.T) {
	tests := []struct {
		name     string
		raw      Raw
		expected string
		warned   bool
	}{
		{"output_path only", Raw{"output_path": "/a"}, "/a", false},
		{"destination_path only", Raw{"destination_path": "/b"}, "/b", false},
		{"deprecated only", Raw{"output_path_prefix": "/tmp/out"}, "/tmp/out", true},
		{"current beats alias", Raw{"output_path": "/a", "destination_path": "/b"}, "/a", false},
		{"alias beats deprecated", Raw{"destination_path": "/b", "output_path_prefix": "/c"}, "/b", false},
		{"all three", Raw{"output_path": "/a", "destination_path": "/b", "output_path_prefix": "/c"}, "/a", false},
		{"none", Raw{}, "", false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			log, buf := captureLogger()
			cfg, err := Parse(test.raw, log)
			require.NoError(t, err)
			assert.Equal(t, test.expected, cfg.OutputDirectory)
			assert.Equal(t, test.warned, strings.Contains(buf.String(), "deprecated"))
		})
	}
}

func TestDeprecatedAliasWarnsOncePerResolution(t *testing.T) {
	log, buf := captureLogger()

	dir := ResolveOutputDirectory(Raw{"output_path_prefix": "/tmp/out"}, log)
	assert.Equal(t, "/tmp/out", dir)
	assert.Equal(t, 1, strings.Count(buf.String(), "level=WARN"))

	ResolveOutputDirectory(Raw{"output_path_prefix": "/tmp/out"}, log)
	assert.Equal(t, 2, strings.Count(buf.String(), "level=WARN"))
}

func TestAppendRecordsFailsFast(t *testing.T) {
	_, err := Parse(Raw{"overwrite_behavior": "append_records"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrAppendNotSupported)
	assert.True(t, errors.IsConfig(err))
	assert.Contains(t, err.Error(), "not supported")
}

func TestValidateRejectsBadSettings(t *testing.T) {
	tests := []struct {
		name string
		raw  Raw
	}{
		{"unknown overwrite behavior", Raw{"overwrite_behavior": "merge"}},
		{"multi-char escape", Raw{"escape_character": "ab"}},
		{"quote as escape", Raw{"escape_character": `"`}},
		{"negative batch size", Raw{"batch_size_rows": -1}},
		{"bad log level", Raw{"log_level": "loud"}},
		{"wrong type", Raw{"output_path": 42}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Parse(test.raw, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrInvalidConfig)
			assert.True(t, errors.IsConfig(err))
		})
	}
}

func TestLoadJSONAndYAML(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{
		"destination_path": "/data/out",
		"file_naming_scheme": "{stream_name}_{datestamp}.csv",
		"escape_character": "\\",
		"batch_size_rows": 500
	}`), 0o644))

	cfg, err := Load(jsonPath, nil)
	require.NoError(t, err)
	assert.Equal(t, "/data/out", cfg.OutputDirectory)
	assert.Equal(t, "{stream_name}_{datestamp}.csv", cfg.FileNamingScheme)
	assert.Equal(t, '\\', cfg.EscapeRune())
	assert.Equal(t, 500, cfg.BatchSizeRows)

	yamlPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(
		"output_path: /yaml/out\n"+
			"timestamp_timezone: Europe/Berlin\n"+
			"record_sort_property_name: id\n"+
			"max_parallelism: 2\n"), 0o644))

	cfg, err = Load(yamlPath, nil)
	require.NoError(t, err)
	assert.Equal(t, "/yaml/out", cfg.OutputDirectory)
	assert.Equal(t, "Europe/Berlin", cfg.TimestampTimezone)
	assert.Equal(t, "id", cfg.RecordSortPropertyName)
	assert.Equal(t, 2, cfg.MaxParallelism)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"), nil)
	require.Error(t, err)
	assert.True(t, errors.IsConfig(err))
}

func TestFromEnvOverridesFile(t *testing.T) {
	t.Setenv("TARGET_CSV_OUTPUT_PATH", "/env/out")
	t.Setenv("TARGET_CSV_BATCH_SIZE_ROWS", "25")

	raw := FromEnv(Raw{"output_path": "/file/out", "file_naming_scheme": "{stream_name}.txt"})
	cfg, err := Parse(raw, nil)
	require.NoError(t, err)
	assert.Equal(t, "/env/out", cfg.OutputDirectory)
	assert.Equal(t, 25, cfg.BatchSizeRows)
	assert.Equal(t, "{stream_name}.txt", cfg.FileNamingScheme)
}

func TestFromEnvKeepsUnparsableIntegerForValidation(t *testing.T) {
	t.Setenv("TARGET_CSV_BATCH_SIZE_ROWS", "abc")

	raw := FromEnv(Raw{})
	assert.Equal(t, "abc", raw["batch_size_rows"])

	_, err := Parse(raw, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
	assert.True(t, errors.IsConfig(err))
	assert.Contains(t, err.Error(), "batch_size_rows")
}

func TestExplicitZeroParallelismIsKept(t *testing.T) {
	cfg, err := Parse(Raw{"max_parallelism": 0}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.MaxParallelism)

	cfg, err = Parse(Raw{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.MaxParallelism)

	t.Setenv("TARGET_CSV_MAX_PARALLELISM", "0")
	cfg, err = Parse(FromEnv(Raw{"max_parallelism": 4}), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.MaxParallelism)
}

func TestMergeKeepsBaseWhenOverrideEmpty(t *testing.T) {
	merged := Merge(Default(), Config{LogLevel: "debug"})
	assert.Equal(t, "debug", merged.LogLevel)
	assert.Equal(t, "json", merged.LogFormat)
	assert.Equal(t, "{stream_name}.csv", merged.FileNamingScheme)
}

func TestAboutCarriesSettingsSchema(t *testing.T) {
	about := NewAbout()
	assert.Equal(t, "target-csv", about.Name)
	assert.Contains(t, string(about.Settings), "file_naming_scheme")
}
