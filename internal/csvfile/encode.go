package csvfile

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"target-csv/internal/model"
)

const (
	delimiter  = ','
	quote      = '"'
	terminator = "\r\n"
)

// Stringify renders a record value as CSV cell text. null renders empty,
// numbers keep their JSON literal, objects and arrays become compact JSON.
func Stringify(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case json.Number:
		return val.String(), nil
	case bool:
		return strconv.FormatBool(val), nil
	case float64:
		return formatFloat(val, 64), nil
	case float32:
		return formatFloat(float64(val), 32), nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case int32:
		return strconv.FormatInt(int64(val), 10), nil
	case uint64:
		return strconv.FormatUint(val, 10), nil
	case map[string]any, []any, model.Record:
		b, err := json.MarshalNoEscape(val)
		if err != nil {
			return "", err
		}
		return string(b), nil
	case fmt.Stringer:
		return val.String(), nil
	default:
		b, err := json.MarshalNoEscape(val)
		if err != nil {
			return fmt.Sprint(val), nil
		}
		return string(b), nil
	}
}

// formatFloat matches encoding/json: plain notation unless the exponent is
// very small or very large.
func formatFloat(f float64, bits int) string {
	abs := math.Abs(f)
	format := byte('f')
	if abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		format = 'e'
	}
	return strconv.FormatFloat(f, format, -1, bits)
}

// encoder writes excel-dialect rows: comma separated, quoted only when
// needed, quotes doubled, CRLF terminated. A non-zero escape rune is itself
// doubled inside quoted fields.
type encoder struct {
	buf    *bytes.Buffer
	escape rune
}

func (e encoder) needsQuotes(field string, only bool) bool {
	if field == "" {
		// A lone empty field would otherwise be an empty line, which readers skip.
		return only
	}
	if strings.ContainsAny(field, ",\"\r\n") || field[0] == ' ' || field[0] == '\t' {
		return true
	}
	return e.escape != 0 && strings.ContainsRune(field, e.escape)
}

func (e encoder) writeRow(fields []string) {
	for i, field := range fields {
		if i > 0 {
			e.buf.WriteByte(delimiter)
		}
		if !e.needsQuotes(field, len(fields) == 1) {
			e.buf.WriteString(field)
			continue
		}
		e.buf.WriteByte(quote)
		for _, r := range field {
			switch {
			case r == quote:
				e.buf.WriteString(`""`)
			case e.escape != 0 && r == e.escape:
				e.buf.WriteRune(r)
				e.buf.WriteRune(r)
			default:
				e.buf.WriteRune(r)
			}
		}
		e.buf.WriteByte(quote)
	}
	e.buf.WriteString(terminator)
}

// writeRecord lays record out in keys order. Missing keys become empty cells.
func (e encoder) writeRecord(keys []string, record model.Record, fields []string) error {
	for i, key := range keys {
		s, err := Stringify(record[key])
		if err != nil {
			return fmt.Errorf("column %q: %w", key, err)
		}
		fields[i] = s
	}
	e.writeRow(fields)
	return nil
}

// EncodeHeader returns the header row for keys.
func EncodeHeader(keys []string, escape rune) []byte {
	var buf bytes.Buffer
	encoder{buf: &buf, escape: escape}.writeRow(keys)
	return buf.Bytes()
}

// EncodeRecords serializes records in order into one buffer.
func EncodeRecords(keys []string, records []model.Record, escape rune) ([]byte, error) {
	var buf bytes.Buffer
	enc := encoder{buf: &buf, escape: escape}
	fields := make([]string, len(keys))
	for i, record := range records {
		if err := enc.writeRecord(keys, record, fields); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
