package csvfile

import (
	"fmt"
	"os"
	"unicode/utf8"

	"target-csv/internal/errors"
	"target-csv/internal/model"
)

// Read parses a file written by Writer. The first row names the columns and
// every later row is zipped against it, so all values come back as strings.
func Read(path string, escape rune) ([]model.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO(err, "csvfile", "Read", "open "+path)
	}

	rows, err := parseRows(data, escape)
	if err != nil {
		return nil, errors.WrapData(err, "csvfile", "Read", "parse "+path)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	header := rows[0]
	var records []model.Record
	for _, row := range rows[1:] {
		record := make(model.Record, len(header))
		for i, key := range header {
			if i < len(row) {
				record[key] = row[i]
			}
		}
		records = append(records, record)
	}
	return records, nil
}

// parseRows is the inverse of encoder.writeRow. Quoted fields keep CR and LF
// verbatim, with doubled quotes and doubled escape runes collapsed. Blank
// lines are skipped since the encoder never produces one for a row.
func parseRows(data []byte, escape rune) ([][]string, error) {
	var (
		rows [][]string
		row  []string
		line = 1
	)
	n := len(data)
	i := 0

	for i < n {
		if row == nil {
			if data[i] == '\n' {
				i++
				line++
				continue
			}
			if data[i] == '\r' && i+1 < n && data[i+1] == '\n' {
				i += 2
				line++
				continue
			}
		}

		var field []byte
		if data[i] == quote {
			i++
			closed := false
		quoted:
			for i < n {
				r, size := utf8.DecodeRune(data[i:])
				switch {
				case r == quote:
					if i+1 < n && data[i+1] == quote {
						field = append(field, quote)
						i += 2
						continue
					}
					i++
					closed = true
					break quoted
				case escape != 0 && r == escape:
					field = append(field, data[i:i+size]...)
					i += size
					if next, nextSize := utf8.DecodeRune(data[i:]); i < n && next == escape {
						i += nextSize
					}
				default:
					if r == '\n' {
						line++
					}
					field = append(field, data[i:i+size]...)
					i += size
				}
			}
			if !closed {
				return nil, fmt.Errorf("line %d: unterminated quoted field", line)
			}
		} else {
			for i < n && data[i] != delimiter && data[i] != '\r' && data[i] != '\n' {
				field = append(field, data[i])
				i++
			}
		}
		row = append(row, string(field))

		switch {
		case i >= n:
			rows = append(rows, row)
			row = nil
		case data[i] == delimiter:
			i++
			if i >= n {
				rows = append(rows, append(row, ""))
				row = nil
			}
		case data[i] == '\n':
			i++
			line++
			rows = append(rows, row)
			row = nil
		case data[i] == '\r' && i+1 < n && data[i+1] == '\n':
			i += 2
			line++
			rows = append(rows, row)
			row = nil
		default:
			return nil, fmt.Errorf("line %d: unexpected %q after field", line, data[i])
		}
	}
	return rows, nil
}
