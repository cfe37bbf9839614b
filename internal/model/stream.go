package model

import (
	"github.com/goccy/go-json"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"target-csv/internal/errors"
)

// Record is one row delivered by the upstream tap. Values keep their JSON
// shape: string, json.Number, bool, nil, map[string]any or []any.
type Record map[string]any

// Batch is an ordered group of records delivered together for one stream.
type Batch []Record

// StreamDescriptor identifies one logical stream and its fixed column order.
type StreamDescriptor struct {
	Name          string
	ColumnKeys    []string
	KeyProperties []string
}

// NewStreamDescriptor derives the column keys from a JSON schema document.
func NewStreamDescriptor(name string, schema json.RawMessage, keyProperties []string) (StreamDescriptor, error) {
	keys, err := ColumnKeys(schema)
	if err != nil {
		return StreamDescriptor{}, errors.WrapConfig(err, "StreamDescriptor", "New", "derive columns for stream "+name)
	}
	return StreamDescriptor{
		Name:          name,
		ColumnKeys:    keys,
		KeyProperties: keyProperties,
	}, nil
}

// HasColumn reports whether key is one of the declared columns.
func (d StreamDescriptor) HasColumn(key string) bool {
	for _, k := range d.ColumnKeys {
		if k == key {
			return true
		}
	}
	return false
}

// ColumnKeys returns the names under "properties" in declaration order.
// A schema without a "properties" section is an error; an empty one is not.
func ColumnKeys(schema json.RawMessage) ([]string, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(schema, &top); err != nil {
		return nil, err
	}
	raw, ok := top["properties"]
	if !ok || string(raw) == "null" {
		return nil, errors.ErrMissingProperties
	}

	props := orderedmap.New[string, any]()
	if err := json.Unmarshal(raw, props); err != nil {
		return nil, err
	}

	keys := make([]string, 0, props.Len())
	for pair := props.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys, nil
}
