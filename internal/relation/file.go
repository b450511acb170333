package relation

import (
	"log/slog"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/Bilodev/Pydeas/internal/codec"
	dberrors "github.com/Bilodev/Pydeas/internal/errors"
	"github.com/spf13/afero"
)

// Ext is the extension of relation files.
const Ext = ".csv"

// Table is the materialized content of a relation.
type Table = codec.Table

// Options tunes how a relation file is read and written.
type Options struct {
	// Lenient skips malformed lines with a warning instead of failing.
	Lenient bool
	// InPlace truncates and rewrites the file directly instead of renaming a
	// temporary file over it.
	InPlace bool
}

// File is a handle on one relation file.
type File struct {
	fs   afero.Fs
	path string
	opts Options
}

// Open returns a handle on the relation stored at path plus the ".csv"
// extension. The file must exist.
func Open(fsys afero.Fs, path string, opts Options) (*File, error) {
	full := path
	if !strings.HasSuffix(full, Ext) {
		full += Ext
	}
	ok, err := codec.Exists(fsys, full)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, dberrors.NotFound(full)
	}
	return &File{fs: fsys, path: full, opts: opts}, nil
}

// Path returns the path of the backing file.
func (f *File) Path() string {
	return f.path
}

// Name returns the relation name, which is the file name without extension.
func (f *File) Name() string {
	return strings.TrimSuffix(filepath.Base(f.path), Ext)
}

// Table loads the relation.
func (f *File) Table() (*Table, error) {
	return f.load()
}

// Columns returns the schema, starting with "#".
func (f *File) Columns() ([]string, error) {
	t, err := f.load()
	if err != nil {
		return nil, err
	}
	return t.Columns, nil
}

// Len returns the number of rows.
func (f *File) Len() (int, error) {
	t, err := f.load()
	if err != nil {
		return 0, err
	}
	return t.Len(), nil
}

// load reads the relation. Identifiers are positional, so whatever a
// hand-edited file holds in "#" is replaced by the row position.
func (f *File) load() (*Table, error) {
	t, err := codec.ReadFile(f.fs, f.path, f.opts.Lenient)
	if err != nil {
		return nil, err
	}
	renumber(t)
	return t, nil
}

func renumber(t *Table) {
	for i, row := range t.Rows {
		row[0] = strconv.Itoa(i + 1)
	}
}

// persist renumbers the rows and rewrites the whole file.
func (f *File) persist(t *Table) error {
	renumber(t)
	return codec.WriteFile(f.fs, f.path, t, f.opts.InPlace)
}

// AddColumn appends a column holding "" in every row. Adding a column that
// already exists does nothing.
func (f *File) AddColumn(name string) error {
	if name == "" {
		return dberrors.InvalidColumn(name, "empty name")
	}
	t, err := f.load()
	if err != nil {
		return err
	}
	if t.Index(name) >= 0 {
		return nil
	}
	t.Columns = append(t.Columns, name)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], "")
	}
	if err := f.persist(t); err != nil {
		return err
	}
	slog.Debug("Added column", "relation", f.Name(), "column", name)
	return nil
}

// AddColumns adds each column in order.
func (f *File) AddColumns(names ...string) error {
	for _, name := range names {
		if err := f.AddColumn(name); err != nil {
			return err
		}
	}
	return nil
}

// SetColumn stores value in the named column of every row, adding the column
// first when it does not exist.
func (f *File) SetColumn(name, value string) error {
	if name == "" {
		return dberrors.InvalidColumn(name, "empty name")
	}
	if name == codec.IDColumn {
		return dberrors.InvalidColumn(name, "identifiers are positional")
	}
	t, err := f.load()
	if err != nil {
		return err
	}
	i := t.Index(name)
	if i < 0 {
		t.Columns = append(t.Columns, name)
		for j := range t.Rows {
			t.Rows[j] = append(t.Rows[j], value)
		}
	} else {
		for _, row := range t.Rows {
			row[i] = value
		}
	}
	if err := f.persist(t); err != nil {
		return err
	}
	slog.Debug("Set column", "relation", f.Name(), "column", name, "rows", t.Len())
	return nil
}

// RemoveColumn drops the named column from the schema and every row.
func (f *File) RemoveColumn(name string) error {
	if name == codec.IDColumn {
		return dberrors.InvalidColumn(name, "the identifier column cannot be removed")
	}
	t, err := f.load()
	if err != nil {
		return err
	}
	i := t.Index(name)
	if i < 0 {
		return dberrors.ColumnNotFound(name)
	}
	t.Columns = slices.Delete(t.Columns, i, i+1)
	for j, row := range t.Rows {
		t.Rows[j] = slices.Delete(row, i, i+1)
	}
	if err := f.persist(t); err != nil {
		return err
	}
	slog.Debug("Removed column", "relation", f.Name(), "column", name)
	return nil
}
