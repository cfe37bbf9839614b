package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"target-csv/internal/errors"
)

const (
	OverwriteReplaceFile   = "replace_file"
	OverwriteAppendRecords = "append_records"
)

// Config holds the resolved target options.
type Config struct {
	// OutputDirectory is resolved once from the output path aliases.
	OutputDirectory string `json:"-" yaml:"-"`

	OutputPath       string `json:"output_path,omitempty" yaml:"output_path,omitempty"`
	DestinationPath  string `json:"destination_path,omitempty" yaml:"destination_path,omitempty"`
	OutputPathPrefix string `json:"output_path_prefix,omitempty" yaml:"output_path_prefix,omitempty"` // deprecated

	FileNamingScheme       string `json:"file_naming_scheme,omitempty" yaml:"file_naming_scheme,omitempty"`
	DatestampFormat        string `json:"datestamp_format,omitempty" yaml:"datestamp_format,omitempty"`
	TimestampFormat        string `json:"timestamp_format,omitempty" yaml:"timestamp_format,omitempty"`
	TimestampTimezone      string `json:"timestamp_timezone,omitempty" yaml:"timestamp_timezone,omitempty"`
	RecordSortPropertyName string `json:"record_sort_property_name,omitempty" yaml:"record_sort_property_name,omitempty"`
	OverwriteBehavior      string `json:"overwrite_behavior,omitempty" yaml:"overwrite_behavior,omitempty"` // replace_file|append_records
	EscapeCharacter        string `json:"escape_character,omitempty" yaml:"escape_character,omitempty"`

	// Batching configuration
	BatchSizeRows  int `json:"batch_size_rows,omitempty" yaml:"batch_size_rows,omitempty"`
	MaxParallelism int `json:"max_parallelism,omitempty" yaml:"max_parallelism,omitempty"`

	ReportPath string `json:"report_path,omitempty" yaml:"report_path,omitempty"`

	// Logging configuration
	LogLevel  string `json:"log_level,omitempty" yaml:"log_level,omitempty"`   // debug, info, warn, error
	LogFormat string `json:"log_format,omitempty" yaml:"log_format,omitempty"` // json, text
}

// Raw is the flat key/value form of the configuration as supplied by the
// operator. Key presence matters for the output path aliases.
type Raw map[string]any

// Default returns a Config with the documented defaults.
func Default() Config {
	return Config{
		FileNamingScheme:  "{stream_name}.csv",
		DatestampFormat:   "%Y-%m-%d",
		TimestampFormat:   "%Y-%m-%d.T%H%M%S",
		TimestampTimezone: "UTC",
		OverwriteBehavior: OverwriteReplaceFile,
		BatchSizeRows:     0, // unbounded: one batch per stream per run
		MaxParallelism:    8,
		LogLevel:          "info",
		LogFormat:         "json",
	}
}

// Merge overlays non-zero values from override onto base.
func Merge(base, override Config) Config {
	result := base

	if override.OutputDirectory != "" {
		result.OutputDirectory = override.OutputDirectory
	}
	if override.OutputPath != "" {
		result.OutputPath = override.OutputPath
	}
	if override.DestinationPath != "" {
		result.DestinationPath = override.DestinationPath
	}
	if override.OutputPathPrefix != "" {
		result.OutputPathPrefix = override.OutputPathPrefix
	}
	if override.FileNamingScheme != "" {
		result.FileNamingScheme = override.FileNamingScheme
	}
	if override.DatestampFormat != "" {
		result.DatestampFormat = override.DatestampFormat
	}
	if override.TimestampFormat != "" {
		result.TimestampFormat = override.TimestampFormat
	}
	if override.TimestampTimezone != "" {
		result.TimestampTimezone = override.TimestampTimezone
	}
	if override.RecordSortPropertyName != "" {
		result.RecordSortPropertyName = override.RecordSortPropertyName
	}
	if override.OverwriteBehavior != "" {
		result.OverwriteBehavior = override.OverwriteBehavior
	}
	if override.EscapeCharacter != "" {
		result.EscapeCharacter = override.EscapeCharacter
	}
	if override.BatchSizeRows > 0 {
		result.BatchSizeRows = override.BatchSizeRows
	}
	if override.MaxParallelism > 0 {
		result.MaxParallelism = override.MaxParallelism
	}
	if override.ReportPath != "" {
		result.ReportPath = override.ReportPath
	}
	if override.LogLevel != "" {
		result.LogLevel = override.LogLevel
	}
	if override.LogFormat != "" {
		result.LogFormat = override.LogFormat
	}

	return result
}

// outputDirectoryKeys lists the keys that may carry the output directory,
// highest precedence first.
var outputDirectoryKeys = []struct {
	key        string
	deprecated bool
}{
	{key: "output_path"},
	{key: "destination_path"}, // hotgluexyz compatibility
	{key: "output_path_prefix", deprecated: true},
}

// ResolveOutputDirectory picks the output directory from the aliases present
// in raw. Selecting the deprecated key logs one warning.
func ResolveOutputDirectory(raw Raw, log *slog.Logger) string {
	for _, candidate := range outputDirectoryKeys {
		v, ok := raw[candidate.key]
		if !ok || v == nil {
			continue
		}
		dir := fmt.Sprint(v)
		if candidate.deprecated && log != nil {
			log.Warn("The property `output_path_prefix` is deprecated, please use `output_path`.",
				"key", candidate.key)
		}
		return dir
	}
	return ""
}

// envKeys maps the recognized options to TARGET_CSV_* variables.
var envKeys = []string{
	"output_path",
	"destination_path",
	"output_path_prefix",
	"file_naming_scheme",
	"datestamp_format",
	"timestamp_format",
	"timestamp_timezone",
	"record_sort_property_name",
	"overwrite_behavior",
	"escape_character",
	"batch_size_rows",
	"max_parallelism",
	"report_path",
	"log_level",
	"log_format",
}

var intKeys = map[string]bool{
	"batch_size_rows": true,
	"max_parallelism": true,
}

// FromEnv applies environment overrides to the provided raw config.
func FromEnv(base Raw) Raw {
	result := Raw{}
	for k, v := range base {
		result[k] = v
	}

	for _, key := range envKeys {
		v, ok := os.LookupEnv("TARGET_CSV_" + strings.ToUpper(key))
		if !ok || v == "" {
			continue
		}
		if intKeys[key] {
			// An unparsable value stays a string so schema validation reports it.
			if parsed, err := strconv.Atoi(v); err == nil {
				result[key] = parsed
			} else {
				result[key] = v
			}
			continue
		}
		result[key] = v
	}

	return result
}

// LoadRaw reads a JSON or YAML config file into a Raw map.
func LoadRaw(path string) (Raw, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapConfig(err, "Config", "LoadRaw", "read config file")
	}

	raw := Raw{}
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, errors.WrapConfig(err, "Config", "LoadRaw", "parse yaml")
		}
	default:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, errors.WrapConfig(err, "Config", "LoadRaw", "parse json")
		}
	}

	return raw, nil
}

// Parse validates raw against the settings schema, decodes it onto the
// defaults, resolves the output directory and validates the result.
func Parse(raw Raw, log *slog.Logger) (Config, error) {
	if err := ValidateRaw(raw); err != nil {
		return Config{}, err
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return Config{}, errors.WrapConfig(err, "Config", "Parse", "encode settings")
	}
	var parsed Config
	if err := json.Unmarshal(data, &parsed); err != nil {
		return Config{}, errors.WrapConfig(err, "Config", "Parse", "decode settings")
	}

	cfg := Merge(Default(), parsed)
	// Merge skips zero values; an explicit 0 still means sequential drains.
	if _, ok := raw["max_parallelism"]; ok {
		cfg.MaxParallelism = parsed.MaxParallelism
	}
	cfg.OutputDirectory = ResolveOutputDirectory(raw, log)

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads path (optional), applies environment overrides and parses the result.
func Load(path string, log *slog.Logger) (Config, error) {
	raw := Raw{}
	if path != "" {
		fileRaw, err := LoadRaw(path)
		if err != nil {
			return Config{}, err
		}
		raw = fileRaw
	}
	return Parse(FromEnv(raw), log)
}

// Validate checks the configuration for common misconfigurations and returns
// an error describing all issues found.
func Validate(cfg Config) error {
	// Append mode is recognized but deliberately unimplemented; fail before any I/O.
	if cfg.OverwriteBehavior == OverwriteAppendRecords {
		return errors.WrapConfig(errors.ErrAppendNotSupported, "Config", "Validate", "check overwrite_behavior")
	}

	var errs []string

	if cfg.OverwriteBehavior != "" && cfg.OverwriteBehavior != OverwriteReplaceFile {
		errs = append(errs, fmt.Sprintf("invalid overwrite_behavior %q: must be %s or %s",
			cfg.OverwriteBehavior, OverwriteReplaceFile, OverwriteAppendRecords))
	}

	if cfg.FileNamingScheme == "" {
		errs = append(errs, "file_naming_scheme cannot be empty")
	}

	if cfg.EscapeCharacter != "" {
		runes := []rune(cfg.EscapeCharacter)
		if len(runes) != 1 {
			errs = append(errs, fmt.Sprintf("escape_character must be a single character, got %q", cfg.EscapeCharacter))
		} else {
			switch runes[0] {
			case ',', '"', '\r', '\n':
				errs = append(errs, fmt.Sprintf("escape_character %q conflicts with the CSV dialect", cfg.EscapeCharacter))
			}
		}
	}

	// Validate numeric limits (must be non-negative)
	if cfg.BatchSizeRows < 0 {
		errs = append(errs, fmt.Sprintf("batch_size_rows cannot be negative: %d", cfg.BatchSizeRows))
	}
	if cfg.MaxParallelism < 0 {
		errs = append(errs, fmt.Sprintf("max_parallelism cannot be negative: %d", cfg.MaxParallelism))
	}

	// Validate log level
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if cfg.LogLevel != "" && !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		errs = append(errs, fmt.Sprintf("invalid log_level %q: must be debug, info, warn, or error", cfg.LogLevel))
	}

	// Validate log format
	validLogFormats := map[string]bool{"json": true, "text": true}
	if cfg.LogFormat != "" && !validLogFormats[strings.ToLower(cfg.LogFormat)] {
		errs = append(errs, fmt.Sprintf("invalid log_format %q: must be json or text", cfg.LogFormat))
	}

	if len(errs) > 0 {
		err := fmt.Errorf("%w:\n  - %s", errors.ErrInvalidConfig, strings.Join(errs, "\n  - "))
		return errors.WrapConfig(err, "Config", "Validate", "validate settings")
	}
	return nil
}

// EscapeRune returns the configured escape character, or 0 when unset.
func (c Config) EscapeRune() rune {
	if c.EscapeCharacter == "" {
		return 0
	}
	return []rune(c.EscapeCharacter)[0]
}
