package config

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/xeipuuv/gojsonschema"

	"target-csv/internal/errors"
)

// SettingsSchema is the JSON Schema of the accepted configuration keys.
// Unknown keys are allowed because orchestrators pass their own extras.
const SettingsSchema = `{
  "type": "object",
  "properties": {
    "output_path": {
      "type": "string",
      "description": "Filesystem path where to store output files. By default, the current working directory will be used."
    },
    "destination_path": {
      "type": "string",
      "description": "Filesystem path where to store output files. Alias for output_path to be compatible with the hotgluexyz variant."
    },
    "output_path_prefix": {
      "type": "string",
      "description": "DEPRECATED. Filesystem path where to store output files."
    },
    "file_naming_scheme": {
      "type": "string",
      "default": "{stream_name}.csv",
      "description": "The scheme with which output files will be named. May use {stream_name}, {datestamp} and {timestamp}."
    },
    "datestamp_format": {
      "type": "string",
      "default": "%Y-%m-%d",
      "description": "A strftime format string used for {datestamp}."
    },
    "timestamp_format": {
      "type": "string",
      "default": "%Y-%m-%d.T%H%M%S",
      "description": "A strftime format string used for {timestamp}."
    },
    "timestamp_timezone": {
      "type": "string",
      "default": "UTC",
      "description": "IANA timezone name used when generating {timestamp} and {datestamp}."
    },
    "record_sort_property_name": {
      "type": "string",
      "description": "A property in the record which will be used as a sort key. If omitted, records are not sorted."
    },
    "overwrite_behavior": {
      "type": "string",
      "enum": ["replace_file", "append_records"],
      "default": "replace_file",
      "description": "Behavior when the destination file already exists. append_records is not supported."
    },
    "escape_character": {
      "type": "string",
      "minLength": 1,
      "maxLength": 1,
      "description": "The character to use for escaping special characters."
    },
    "batch_size_rows": {
      "type": "integer",
      "minimum": 0,
      "description": "Drain a stream once it holds this many records. 0 keeps the whole stream in one batch."
    },
    "max_parallelism": {
      "type": "integer",
      "minimum": 0,
      "default": 8,
      "description": "Maximum number of streams written concurrently when draining."
    },
    "report_path": {
      "type": "string",
      "description": "Optional path of a JSON run report."
    },
    "log_level": {
      "type": "string",
      "enum": ["debug", "info", "warn", "error"]
    },
    "log_format": {
      "type": "string",
      "enum": ["json", "text"]
    }
  }
}`

var settingsLoader = gojsonschema.NewStringLoader(SettingsSchema)

// ValidateRaw checks raw against SettingsSchema.
func ValidateRaw(raw Raw) error {
	result, err := gojsonschema.Validate(settingsLoader, gojsonschema.NewGoLoader(map[string]any(raw)))
	if err != nil {
		return errors.WrapConfig(err, "Config", "ValidateRaw", "load settings schema")
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	err = fmt.Errorf("%w:\n  - %s", errors.ErrInvalidConfig, strings.Join(msgs, "\n  - "))
	return errors.WrapConfig(err, "Config", "ValidateRaw", "validate settings")
}

// About describes the target for the --about flag.
type About struct {
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Capabilities []string        `json:"capabilities"`
	Settings     json.RawMessage `json:"settings"`
}

// NewAbout returns the target description including the settings schema.
func NewAbout() About {
	return About{
		Name:         "target-csv",
		Description:  "Singer target that writes one CSV file per stream.",
		Capabilities: []string{"about"},
		Settings:     json.RawMessage(SettingsSchema),
	}
}
