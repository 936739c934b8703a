// Package frame is a small column store for the JSON tables handed to the chart tools.
// Column order follows first appearance in the input and dtypes use pandas names so
// the model sees the same vocabulary it would get from pandas.
package frame

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

const (
	Int64    = "int64"
	Float64  = "float64"
	Bool     = "bool"
	Datetime = "datetime64[ns]"
	Object   = "object"
)

var (
	ErrEmptyInput       = errors.New("no data provided")
	ErrUnsupportedShape = errors.New("data must be a JSON array of records or a JSON object")
	ErrLengthMismatch   = errors.New("all arrays must be of the same length")
)

// Record is one row with its keys in input order.
type Record = *orderedmap.OrderedMap[string, any]

type Frame struct {
	columns []string
	values  map[string][]any
	dtypes  map[string]string
	rows    int
}

// FromJSON accepts an array of records, a columnar object of equal-length arrays
// (scalars are broadcast) or a single record object.
func FromJSON(data []byte) (*Frame, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}

	switch data[0] {
	case '[':
		var records []Record
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("invalid records: %w", err)
		}
		return FromRecords(records), nil
	case '{':
		obj := orderedmap.New[string, any]()
		if err := json.Unmarshal(data, obj); err != nil {
			return nil, fmt.Errorf("invalid object: %w", err)
		}
		return fromObject(obj)
	default:
		return nil, ErrUnsupportedShape
	}
}

// FromRecords builds a frame from rows. Keys missing from a row become nulls.
func FromRecords(records []Record) *Frame {
	f := &Frame{values: map[string][]any{}, rows: len(records)}
	for i, rec := range records {
		if rec == nil {
			continue
		}
		for pair := rec.Oldest(); pair != nil; pair = pair.Next() {
			col, ok := f.values[pair.Key]
			if !ok {
				f.columns = append(f.columns, pair.Key)
				col = make([]any, len(records))
				f.values[pair.Key] = col
			}
			col[i] = pair.Value
		}
	}
	f.inferDtypes()
	return f
}

func fromObject(obj *orderedmap.OrderedMap[string, any]) (*Frame, error) {
	rows := -1
	for pair := obj.Oldest(); pair != nil; pair = pair.Next() {
		list, ok := pair.Value.([]any)
		if !ok {
			continue
		}
		if rows >= 0 && len(list) != rows {
			return nil, ErrLengthMismatch
		}
		rows = len(list)
	}

	if rows < 0 {
		return FromRecords([]Record{obj}), nil
	}

	f := &Frame{values: map[string][]any{}, rows: rows}
	for pair := obj.Oldest(); pair != nil; pair = pair.Next() {
		f.columns = append(f.columns, pair.Key)
		if list, ok := pair.Value.([]any); ok {
			f.values[pair.Key] = list
			continue
		}
		col := make([]any, rows)
		for i := range col {
			col[i] = pair.Value
		}
		f.values[pair.Key] = col
	}
	f.inferDtypes()
	return f, nil
}

func (f *Frame) Len() int { return f.rows }

func (f *Frame) Columns() []string { return append([]string(nil), f.columns...) }

func (f *Frame) Column(name string) ([]any, bool) {
	col, ok := f.values[name]
	return col, ok
}

func (f *Frame) Dtype(name string) string { return f.dtypes[name] }

// Records returns the rows with nulls for missing cells.
func (f *Frame) Records() []Record {
	out := make([]Record, f.rows)
	for i := range out {
		rec := orderedmap.New[string, any](len(f.columns))
		for _, c := range f.columns {
			rec.Set(c, f.values[c][i])
		}
		out[i] = rec
	}
	return out
}

// Head returns at most n rows.
func (f *Frame) Head(n int) []Record {
	records := f.Records()
	if n < len(records) {
		records = records[:n]
	}
	return records
}

// RecordsJSON encodes the frame as an array of records.
func (f *Frame) RecordsJSON() ([]byte, error) {
	return json.Marshal(f.Records())
}

func (f *Frame) inferDtypes() {
	f.dtypes = make(map[string]string, len(f.columns))
	for _, c := range f.columns {
		f.dtypes[c] = inferDtype(f.values[c])
	}
}

func inferDtype(values []any) string {
	var nulls, bools, ints, floats, times, others int
	for _, v := range values {
		switch x := v.(type) {
		case nil:
			nulls++
		case bool:
			bools++
		case float64:
			if isWhole(x) {
				ints++
			} else {
				floats++
			}
		case json.Number:
			if _, err := x.Int64(); err == nil {
				ints++
			} else {
				floats++
			}
		case string:
			if _, ok := parseTime(x); ok {
				times++
			} else {
				others++
			}
		default:
			others++
		}
	}

	nonNull := len(values) - nulls
	switch {
	case nonNull == 0 || others > 0:
		return Object
	case bools == nonNull:
		if nulls > 0 {
			return Object
		}
		return Bool
	case ints == nonNull && nulls == 0:
		return Int64
	case ints+floats == nonNull:
		return Float64
	case times == nonNull:
		return Datetime
	default:
		return Object
	}
}

func isWhole(x float64) bool {
	return !math.IsInf(x, 0) && x == math.Trunc(x) && math.Abs(x) < 1<<53
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
