package dataset

import (
	"math"
	"strconv"
)

// ResultSet is a normalized query result: named columns and rows aligned to
// them.
type ResultSet struct {
	Columns []string
	Rows    [][]any
}

// Normalize turns an executor result into a ResultSet.
//
// Encoded text is decoded with ParseRows. If decoding fails the returned set
// is empty and the *ResultParseError is returned alongside it so callers can
// log it and carry on. When the executor did not name its columns, names are
// recovered from sql with RecoverColumns, falling back to index labels.
func Normalize(raw RawResult, sql string) (*ResultSet, error) {
	switch raw.Kind {
	case RawRows:
		return fromRows(raw.Columns, raw.Rows, sql), nil
	case RawEncodedText:
		rows, err := ParseRows(raw.Text)
		if err != nil {
			return &ResultSet{}, err
		}
		return fromRows(nil, rows, sql), nil
	default:
		return &ResultSet{}, nil
	}
}

func fromRows(columns []string, rows [][]any, sql string) *ResultSet {
	if len(columns) == 0 {
		width := 0
		for _, row := range rows {
			width = max(width, len(row))
		}
		if width == 0 {
			return &ResultSet{}
		}
		if names, ok := RecoverColumns(sql, width); ok {
			columns = names
		} else {
			columns = indexLabels(width)
		}
	}

	aligned := make([][]any, len(rows))
	for i, row := range rows {
		out := make([]any, len(columns))
		copy(out, row)
		aligned[i] = out
	}
	return &ResultSet{Columns: columns, Rows: aligned}
}

func indexLabels(n int) []string {
	labels := make([]string, n)
	for i := range labels {
		labels[i] = strconv.Itoa(i)
	}
	return labels
}

// Len returns the number of rows.
func (r *ResultSet) Len() int { return len(r.Rows) }

// Empty reports whether the set has no rows.
func (r *ResultSet) Empty() bool { return len(r.Rows) == 0 }

// ColumnIndex returns the position of the named column.
func (r *ResultSet) ColumnIndex(name string) (int, bool) {
	for i, c := range r.Columns {
		if c == name {
			return i, true
		}
	}
	return -1, false
}

// HasColumns reports whether every name is a column of the set.
func (r *ResultSet) HasColumns(names ...string) bool {
	for _, n := range names {
		if _, ok := r.ColumnIndex(n); !ok {
			return false
		}
	}
	return true
}

// ColumnValues returns the values of the named column in row order.
func (r *ResultSet) ColumnValues(name string) ([]any, bool) {
	idx, ok := r.ColumnIndex(name)
	if !ok {
		return nil, false
	}
	values := make([]any, len(r.Rows))
	for i, row := range r.Rows {
		values[i] = JSONValue(row[idx])
	}
	return values, true
}

// Records returns every row as a column-keyed map.
func (r *ResultSet) Records() []map[string]any {
	return r.Preview(len(r.Rows))
}

// Preview returns the first n rows as column-keyed maps.
func (r *ResultSet) Preview(n int) []map[string]any {
	n = min(max(n, 0), len(r.Rows))
	records := make([]map[string]any, 0, n)
	for _, row := range r.Rows[:n] {
		rec := make(map[string]any, len(r.Columns))
		for i, col := range r.Columns {
			rec[col] = JSONValue(row[i])
		}
		records = append(records, rec)
	}
	return records
}

// JSONValue replaces values encoding/json cannot represent (NaN, ±Inf) with
// nil.
func JSONValue(v any) any {
	switch val := v.(type) {
	case float64:
		if math.IsInf(val, 0) || math.IsNaN(val) {
			return nil
		}
	case float32:
		if math.IsInf(float64(val), 0) || math.IsNaN(float64(val)) {
			return nil
		}
	}
	return v
}
