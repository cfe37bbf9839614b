package stages

import (
	"fmt"
	"log/slog"

	"target-csv/internal/model"
)

// CoerceRecords turns a delivered batch into records. Anything that is not a
// sequence becomes an empty batch and ok is false; the caller decides how to
// report it. Sequence elements that are not objects are dropped and counted.
func CoerceRecords(v any) (records []model.Record, dropped int, ok bool) {
	switch batch := v.(type) {
	case nil:
		return nil, 0, false
	case []model.Record:
		return batch, 0, true
	case model.Batch:
		return []model.Record(batch), 0, true
	case []map[string]any:
		records = make([]model.Record, len(batch))
		for i, r := range batch {
			records[i] = model.Record(r)
		}
		return records, 0, true
	case []any:
		records = make([]model.Record, 0, len(batch))
		for _, item := range batch {
			switch r := item.(type) {
			case model.Record:
				records = append(records, r)
			case map[string]any:
				records = append(records, model.Record(r))
			default:
				dropped++
			}
		}
		return records, dropped, true
	}
	return nil, 0, false
}

// Coerce is CoerceRecords with the data-error recoveries logged as warnings.
func Coerce(log *slog.Logger, stream string, v any) []model.Record {
	records, dropped, ok := CoerceRecords(v)
	if !ok {
		log.Warn("batch is not a list of records, treating it as empty",
			"stream", stream, "type", fmt.Sprintf("%T", v))
		return nil
	}
	if dropped > 0 {
		log.Warn("dropped batch elements that are not records",
			"stream", stream, "dropped", dropped)
	}
	return records
}
