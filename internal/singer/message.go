// Package singer reads Singer messages and dispatches them to per-stream
// CSV sinks.
package singer

import (
	"bytes"
	"fmt"

	"github.com/buger/jsonparser"
	"github.com/goccy/go-json"

	"target-csv/internal/errors"
	"target-csv/internal/model"
)

// Message types understood by the target.
const (
	TypeSchema          = "SCHEMA"
	TypeRecord          = "RECORD"
	TypeState           = "STATE"
	TypeActivateVersion = "ACTIVATE_VERSION"
)

// Message is one decoded input line. Only the fields of its Type are set.
type Message struct {
	Type          string
	Stream        string
	Schema        json.RawMessage
	KeyProperties []string
	Record        model.Record
	Value         json.RawMessage
}

func invalid(format string, args ...any) error {
	return errors.WrapData(
		fmt.Errorf("%w: %s", errors.ErrInvalidMessage, fmt.Sprintf(format, args...)),
		"Singer", "ParseMessage", "parse message")
}

// ParseMessage decodes one line. The type and stream are read without a full
// decode; record bodies keep numbers as json.Number.
func ParseMessage(line []byte) (Message, error) {
	if !json.Valid(line) {
		return Message{}, invalid("malformed JSON")
	}

	msgType, err := jsonparser.GetString(line, "type")
	if err != nil {
		return Message{}, invalid("missing or non-string \"type\"")
	}
	msg := Message{Type: msgType}

	switch msgType {
	case TypeSchema:
		if msg.Stream, err = requireStream(line); err != nil {
			return Message{}, err
		}
		schema, dataType, _, err := jsonparser.Get(line, "schema")
		if err != nil || dataType != jsonparser.Object {
			return Message{}, invalid("SCHEMA for %s has no \"schema\" object", msg.Stream)
		}
		msg.Schema = json.RawMessage(schema)
		if msg.KeyProperties, err = stringArray(line, "key_properties"); err != nil {
			return Message{}, invalid("SCHEMA for %s: key_properties: %v", msg.Stream, err)
		}

	case TypeRecord:
		if msg.Stream, err = requireStream(line); err != nil {
			return Message{}, err
		}
		body, dataType, _, err := jsonparser.Get(line, "record")
		if err != nil || dataType != jsonparser.Object {
			return Message{}, invalid("RECORD for %s has no \"record\" object", msg.Stream)
		}
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		if err := dec.Decode(&msg.Record); err != nil {
			return Message{}, invalid("RECORD for %s: %v", msg.Stream, err)
		}

	case TypeState:
		value, dataType, _, err := jsonparser.Get(line, "value")
		switch {
		case err != nil:
		case dataType == jsonparser.String:
			// jsonparser strips the quotes of string values.
			msg.Value = json.RawMessage(`"` + string(value) + `"`)
		default:
			msg.Value = json.RawMessage(value)
		}
	}

	return msg, nil
}

func requireStream(line []byte) (string, error) {
	stream, err := jsonparser.GetString(line, "stream")
	if err != nil || stream == "" {
		return "", invalid("missing \"stream\"")
	}
	return stream, nil
}

func stringArray(line []byte, key string) ([]string, error) {
	_, dataType, _, err := jsonparser.Get(line, key)
	if err == jsonparser.KeyPathNotFoundError || dataType == jsonparser.Null {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if dataType != jsonparser.Array {
		return nil, fmt.Errorf("expected array, got %s", dataType)
	}

	var out []string
	var itemErr error
	_, err = jsonparser.ArrayEach(line, func(value []byte, dataType jsonparser.ValueType, _ int, _ error) {
		if dataType != jsonparser.String {
			itemErr = fmt.Errorf("expected string item, got %s", dataType)
			return
		}
		s, err := jsonparser.ParseString(value)
		if err != nil {
			itemErr = err
			return
		}
		out = append(out, s)
	}, key)
	if err != nil {
		return nil, err
	}
	return out, itemErr
}
