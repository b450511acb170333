package relation

import (
	"strconv"

	"github.com/Bilodev/Pydeas/internal/codec"
)

// Record is one row keyed by column name.
type Record map[string]string

// ID returns the positional identifier, or 0 if the record has none.
func (r Record) ID() int {
	id, err := strconv.Atoi(r[codec.IDColumn])
	if err != nil {
		return 0
	}
	return id
}

// Result is the ordered outcome of a query or search.
//
// An empty Result means no row matched; it is not an error.
type Result struct {
	Columns []string
	Records []Record
}

// Empty reports whether no row matched.
func (r *Result) Empty() bool {
	return r == nil || len(r.Records) == 0
}

// Len returns the number of matched records.
func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Records)
}

// IDs returns the positional identifiers of the matched records, in order.
func (r *Result) IDs() []int {
	if r == nil {
		return nil
	}
	ids := make([]int, len(r.Records))
	for i, rec := range r.Records {
		ids[i] = rec.ID()
	}
	return ids
}

// Table lays the matched records out as rows in column order.
func (r *Result) Table() *codec.Table {
	if r == nil {
		return codec.NewTable()
	}
	t := &codec.Table{Columns: r.Columns, Rows: make([][]string, len(r.Records))}
	for i, rec := range r.Records {
		row := make([]string, len(r.Columns))
		for j, col := range r.Columns {
			row[j] = rec[col]
		}
		t.Rows[i] = row
	}
	return t
}

func newResult(columns []string, rows [][]string) *Result {
	res := &Result{Columns: columns}
	for _, row := range rows {
		rec := make(Record, len(columns))
		for i, col := range columns {
			rec[col] = row[i]
		}
		res.Records = append(res.Records, rec)
	}
	return res
}
