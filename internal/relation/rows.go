package relation

import (
	"log/slog"
	"slices"
	"strconv"

	"github.com/Bilodev/Pydeas/internal/codec"
	dberrors "github.com/Bilodev/Pydeas/internal/errors"
)

// AddRow appends a row and returns its identifier. values fill the columns
// after "#" in order; missing trailing values are stored as "".
func (f *File) AddRow(values ...string) (int, error) {
	t, err := f.load()
	if err != nil {
		return 0, err
	}
	if len(values) >= t.Width() {
		return 0, dberrors.TooManyValues(t.Width(), len(values)).WithDetail("relation", f.Name())
	}
	id := t.Len() + 1
	row := make([]string, t.Width())
	row[0] = strconv.Itoa(id)
	copy(row[1:], values)
	if err := codec.AppendRow(f.fs, f.path, row); err != nil {
		return 0, err
	}
	return id, nil
}

// DeleteByIndex removes the rows with the given identifiers. Identifiers refer
// to the rows as they were when the call started, and the file is rewritten
// after each removal. If an identifier matches no remaining row the call stops
// with a RowNotFound error; removals already made stay persisted.
func (f *File) DeleteByIndex(positions ...int) error {
	t, err := f.load()
	if err != nil {
		return err
	}
	// ids[i] is the identifier t.Rows[i] had when loaded.
	ids := make([]int, t.Len())
	for i := range ids {
		ids[i] = i + 1
	}
	for _, pos := range positions {
		i := slices.Index(ids, pos)
		if i < 0 {
			return dberrors.RowNotFound(pos).WithDetail("relation", f.Name())
		}
		ids = slices.Delete(ids, i, i+1)
		t.Rows = slices.Delete(t.Rows, i, i+1)
		if err := f.persist(t); err != nil {
			return err
		}
		slog.Debug("Deleted row", "relation", f.Name(), "id", pos)
	}
	return nil
}

// UpdateByIndex overwrites the given columns of the row with identifier pos.
// Columns missing from values keep their current value.
func (f *File) UpdateByIndex(pos int, values map[string]string) error {
	t, err := f.load()
	if err != nil {
		return err
	}
	if pos < 1 || pos > t.Len() {
		return dberrors.RowNotFound(pos).WithDetail("relation", f.Name())
	}
	set, err := assignments(t, values)
	if err != nil {
		return err
	}
	set(t.Rows[pos-1])
	if err := f.persist(t); err != nil {
		return err
	}
	slog.Debug("Updated row", "relation", f.Name(), "id", pos)
	return nil
}

// assignments checks values against the schema and returns a function
// applying them to a row. The identifier column is never assigned.
func assignments(t *Table, values map[string]string) (func(row []string), error) {
	index := make(map[int]string, len(values))
	for name, value := range values {
		i := t.Index(name)
		if i < 0 {
			return nil, dberrors.ColumnNotFound(name)
		}
		if i == 0 {
			continue
		}
		index[i] = value
	}
	return func(row []string) {
		for i, value := range index {
			row[i] = value
		}
	}, nil
}
