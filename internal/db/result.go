package db

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"time"
)

// Row is one result-set row. Columns keep the order the procedure returned
// them in, and the row marshals as a JSON object in that order.
type Row struct {
	cols []string
	vals []any
}

// NewRow builds a row from parallel column and value slices.
func NewRow(cols []string, vals []any) Row {
	return Row{cols: cols, vals: vals}
}

// Columns returns the column names in order.
func (r Row) Columns() []string { return r.cols }

// Get returns the value of the named column.
func (r Row) Get(col string) (any, bool) {
	for i, c := range r.cols {
		if c == col {
			return r.vals[i], true
		}
	}
	return nil, false
}

// String returns the named column as a string, or "" when absent or NULL.
func (r Row) String(col string) string {
	v, ok := r.Get(col)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	b, _ := json.Marshal(v)
	return string(b)
}

// MarshalJSON writes the row as an object preserving column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r.cols {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(r.vals[i])
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Result is the outcome of one procedure call.
type Result struct {
	ResultSets   [][]Row
	RowsAffected []int64
}

// Rows returns the first result set, or nil when there is none.
func (r *Result) Rows() []Row {
	if r == nil || len(r.ResultSets) == 0 {
		return nil
	}
	return r.ResultSets[0]
}

// Total returns the number of rows across every result set.
func (r *Result) Total() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, set := range r.ResultSets {
		n += len(set)
	}
	return n
}

// Affected returns the total rows affected.
func (r *Result) Affected() int64 {
	if r == nil {
		return 0
	}
	var n int64
	for _, c := range r.RowsAffected {
		n += c
	}
	return n
}

// ReadResultSets drains rows, following NextResultSet, into ordered rows.
// Sets without columns (row-count only) are skipped. The returned counts
// hold the size of each kept set.
func ReadResultSets(rows *sql.Rows) ([][]Row, []int64, error) {
	var (
		sets   [][]Row
		counts []int64
	)
	for {
		cols, err := rows.Columns()
		if err != nil {
			return nil, nil, err
		}
		set := []Row{}
		for rows.Next() {
			vals := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range vals {
				ptrs[i] = &vals[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return nil, nil, err
			}
			for i, v := range vals {
				vals[i] = normalizeValue(v)
			}
			set = append(set, Row{cols: cols, vals: vals})
		}
		if err := rows.Err(); err != nil {
			return nil, nil, err
		}
		if len(cols) > 0 {
			sets = append(sets, set)
			counts = append(counts, int64(len(set)))
		}
		if !rows.NextResultSet() {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return sets, counts, nil
}

func normalizeValue(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.RFC3339)
	}
	return v
}
