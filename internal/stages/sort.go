package stages

import (
	"cmp"
	"fmt"
	"math/big"
	"slices"
	"strconv"

	"github.com/goccy/go-json"

	"target-csv/internal/errors"
	"target-csv/internal/model"
)

// SortStage reorders a batch by one property, ascending and stable.
type SortStage struct {
	property string
}

// NewSortStage returns nil when property is empty, meaning batches keep
// their delivery order.
func NewSortStage(property string) *SortStage {
	if property == "" {
		return nil
	}
	return &SortStage{property: property}
}

// Property returns the name of the sort key.
func (s *SortStage) Property() string {
	if s == nil {
		return ""
	}
	return s.property
}

// Apply sorts records in place. Every record must carry the property, and
// all values must be mutually comparable; otherwise nothing is reordered.
func (s *SortStage) Apply(records []model.Record) error {
	if s == nil || len(records) == 0 {
		return nil
	}

	kinds := make(map[valueKind]struct{}, 1)
	for i, r := range records {
		v, ok := r[s.property]
		if !ok {
			return errors.WrapConfig(
				fmt.Errorf("%w: record %d has no %q", errors.ErrSortKeyMissing, i, s.property),
				"SortStage", "Apply", "sort batch")
		}
		kinds[kindOf(v)] = struct{}{}
	}
	if len(kinds) > 1 {
		return errors.WrapData(
			fmt.Errorf("%w: property %q mixes value types", errors.ErrIncomparableSortValues, s.property),
			"SortStage", "Apply", "sort batch")
	}
	for k := range kinds {
		if k == kindOther {
			return errors.WrapData(
				fmt.Errorf("%w: property %q holds objects or arrays", errors.ErrIncomparableSortValues, s.property),
				"SortStage", "Apply", "sort batch")
		}
	}

	var cmpErr error
	slices.SortStableFunc(records, func(a, b model.Record) int {
		c, err := compareValues(a[s.property], b[s.property])
		if err != nil && cmpErr == nil {
			cmpErr = err
		}
		return c
	})
	if cmpErr != nil {
		return errors.WrapData(fmt.Errorf("%w: %v", errors.ErrIncomparableSortValues, cmpErr),
			"SortStage", "Apply", "sort batch")
	}
	return nil
}

type valueKind int

const (
	kindNull valueKind = iota
	kindNumber
	kindString
	kindBool
	kindOther
)

func kindOf(v any) valueKind {
	switch v.(type) {
	case nil:
		return kindNull
	case json.Number, float64, float32, int, int64, int32, uint64:
		return kindNumber
	case string:
		return kindString
	case bool:
		return kindBool
	default:
		return kindOther
	}
}

func compareValues(a, b any) (int, error) {
	switch av := a.(type) {
	case nil:
		return 0, nil
	case string:
		bv := b.(string)
		switch {
		case av < bv:
			return -1, nil
		case av > bv:
			return 1, nil
		}
		return 0, nil
	case bool:
		bv := b.(bool)
		switch {
		case av == bv:
			return 0, nil
		case !av:
			return -1, nil
		}
		return 1, nil
	}

	return compareNumbers(a, b)
}

// compareNumbers orders integers exactly, including beyond 2^53, and falls
// back to arbitrary precision for decimals and exponents.
func compareNumbers(a, b any) (int, error) {
	if ai, ok := toInt64(a); ok {
		if bi, ok := toInt64(b); ok {
			return cmp.Compare(ai, bi), nil
		}
	}
	ar, err := toRat(a)
	if err != nil {
		return 0, err
	}
	br, err := toRat(b)
	if err != nil {
		return 0, err
	}
	return ar.Cmp(br), nil
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := strconv.ParseInt(n.String(), 10, 64)
		return i, err == nil
	case int:
		return int64(n), true
	case int64:
		return n, true
	case int32:
		return int64(n), true
	}
	return 0, false
}

func toRat(v any) (*big.Rat, error) {
	switch n := v.(type) {
	case json.Number:
		if r, ok := new(big.Rat).SetString(n.String()); ok {
			return r, nil
		}
		return nil, fmt.Errorf("not a number: %q", n.String())
	case float64:
		if r := new(big.Rat).SetFloat64(n); r != nil {
			return r, nil
		}
		return nil, fmt.Errorf("not a finite number: %v", n)
	case float32:
		if r := new(big.Rat).SetFloat64(float64(n)); r != nil {
			return r, nil
		}
		return nil, fmt.Errorf("not a finite number: %v", n)
	case int:
		return new(big.Rat).SetInt64(int64(n)), nil
	case int64:
		return new(big.Rat).SetInt64(n), nil
	case int32:
		return new(big.Rat).SetInt64(int64(n)), nil
	case uint64:
		return new(big.Rat).SetUint64(n), nil
	}
	return nil, fmt.Errorf("not a number: %T", v)
}
