package relation

import (
	"log/slog"

	"github.com/Bilodev/Pydeas/internal/predicate"
)

// Query returns the rows matching the predicate expression, in file order.
func (f *File) Query(expr string) (*Result, error) {
	t, positions, err := f.match(expr)
	if err != nil {
		return nil, err
	}
	rows := make([][]string, len(positions))
	for i, pos := range positions {
		rows[i] = t.Rows[pos-1]
	}
	return newResult(t.Columns, rows), nil
}

// Search returns the rows holding every value of filter, in file order. An
// empty filter returns every row.
func (f *File) Search(filter *predicate.Filter) (*Result, error) {
	t, err := f.load()
	if err != nil {
		return nil, err
	}
	if t.Len() == 0 {
		return newResult(t.Columns, nil), nil
	}
	rows, err := filter.Narrow(t.Columns, t.Rows)
	if err != nil {
		return nil, err
	}
	return newResult(t.Columns, rows), nil
}

// Delete removes every row matching the predicate expression. It reports
// whether any row matched.
func (f *File) Delete(expr string) (bool, error) {
	_, positions, err := f.match(expr)
	if err != nil {
		return false, err
	}
	if len(positions) == 0 {
		return false, nil
	}
	if err := f.DeleteByIndex(positions...); err != nil {
		return false, err
	}
	slog.Debug("Deleted rows", "relation", f.Name(), "expr", expr, "count", len(positions))
	return true, nil
}

// Update overwrites the given columns of every row matching the predicate
// expression, rewriting the file once. It reports whether any row matched.
func (f *File) Update(expr string, values map[string]string) (bool, error) {
	t, positions, err := f.match(expr)
	if err != nil {
		return false, err
	}
	if len(positions) == 0 {
		return false, nil
	}
	set, err := assignments(t, values)
	if err != nil {
		return false, err
	}
	for _, pos := range positions {
		set(t.Rows[pos-1])
	}
	if err := f.persist(t); err != nil {
		return false, err
	}
	slog.Debug("Updated rows", "relation", f.Name(), "expr", expr, "count", len(positions))
	return true, nil
}

// match loads the relation and returns the positions of the rows matching
// expr. The expression is always parsed, but columns are only checked when
// there are rows to evaluate.
func (f *File) match(expr string) (*Table, []int, error) {
	e, err := predicate.Parse(expr)
	if err != nil {
		return nil, nil, err
	}
	t, err := f.load()
	if err != nil {
		return nil, nil, err
	}
	if t.Len() == 0 {
		return t, nil, nil
	}
	m, err := e.Bind(t.Columns)
	if err != nil {
		return nil, nil, err
	}
	var positions []int
	for i, row := range t.Rows {
		if m(row) {
			positions = append(positions, i+1)
		}
	}
	return t, positions, nil
}
