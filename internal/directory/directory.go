// Package directory manages a data directory holding sibling relation files.
package directory

import (
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Bilodev/Pydeas/internal/codec"
	dberrors "github.com/Bilodev/Pydeas/internal/errors"
	"github.com/Bilodev/Pydeas/internal/relation"
	"github.com/spf13/afero"
)

// Dir is a data directory.
type Dir struct {
	fs   afero.Fs
	path string
	opts relation.Options
}

// OpenOrCreate returns the directory at path, creating it and its parents
// when missing. opts apply to every relation opened through it.
func OpenOrCreate(fsys afero.Fs, path string, opts relation.Options) (*Dir, error) {
	st, err := fsys.Stat(path)
	switch {
	case err == nil && !st.IsDir():
		return nil, dberrors.Newf(dberrors.CodeAlreadyExists, "%s exists and is not a directory", path)
	case err == nil:
	case os.IsNotExist(err):
		if err := fsys.MkdirAll(path, 0o755); err != nil {
			return nil, dberrors.IO("failed to create "+path, err)
		}
		slog.Debug("Created data directory", "path", path)
	default:
		return nil, dberrors.IO("failed to stat "+path, err)
	}
	return &Dir{fs: fsys, path: path, opts: opts}, nil
}

// Path returns the directory path.
func (d *Dir) Path() string {
	return d.path
}

// CreateFile creates a header-only relation unless it already exists, then
// opens it.
func (d *Dir) CreateFile(name string) (*relation.File, error) {
	name = strings.TrimSuffix(name, relation.Ext)
	if err := checkName(name); err != nil {
		return nil, err
	}
	base := filepath.Join(d.path, name)
	created, err := codec.CreateFile(d.fs, base+relation.Ext)
	if err != nil {
		return nil, err
	}
	if created {
		slog.Debug("Created relation", "dir", d.path, "name", name)
	}
	return relation.Open(d.fs, base, d.opts)
}

// CreateFiles creates every named relation.
func (d *Dir) CreateFiles(names ...string) ([]*relation.File, error) {
	files := make([]*relation.File, 0, len(names))
	for _, name := range names {
		f, err := d.CreateFile(name)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

// Open opens an existing relation.
func (d *Dir) Open(name string) (*relation.File, error) {
	name = strings.TrimSuffix(name, relation.Ext)
	if err := checkName(name); err != nil {
		return nil, err
	}
	return relation.Open(d.fs, filepath.Join(d.path, name), d.opts)
}

// AddDirectory creates a child directory.
func (d *Dir) AddDirectory(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	p := filepath.Join(d.path, name)
	if _, err := d.fs.Stat(p); err == nil {
		return dberrors.AlreadyExists(p)
	} else if !os.IsNotExist(err) {
		return dberrors.IO("failed to stat "+p, err)
	}
	if err := d.fs.Mkdir(p, 0o755); err != nil {
		return dberrors.IO("failed to create "+p, err)
	}
	slog.Debug("Created directory", "path", p)
	return nil
}

// AddDirectories creates every named child directory, skipping those that
// already exist.
func (d *Dir) AddDirectories(names ...string) error {
	for _, name := range names {
		if err := d.AddDirectory(name); err != nil && !dberrors.HasCode(err, dberrors.CodeAlreadyExists) {
			return err
		}
	}
	return nil
}

// Remove deletes a file or an empty child directory. A relation may be named
// without its extension.
func (d *Dir) Remove(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	p := filepath.Join(d.path, name)
	st, err := d.fs.Stat(p)
	if os.IsNotExist(err) {
		if rst, rerr := d.fs.Stat(p + relation.Ext); rerr == nil && !rst.IsDir() {
			p, st, err = p+relation.Ext, rst, nil
		}
	}
	if err != nil {
		if os.IsNotExist(err) {
			return dberrors.NotFound(p)
		}
		return dberrors.IO("failed to stat "+p, err)
	}
	if st.IsDir() {
		empty, err := afero.IsEmpty(d.fs, p)
		if err != nil {
			return dberrors.IO("failed to read "+p, err)
		}
		if !empty {
			return dberrors.Newf(dberrors.CodeDirectoryNotEmpty, "directory %s is not empty", p)
		}
	}
	if err := d.fs.Remove(p); err != nil {
		return dberrors.IO("failed to remove "+p, err)
	}
	slog.Debug("Removed", "path", p)
	return nil
}

// List returns the sorted names of every entry in the directory.
func (d *Dir) List() ([]string, error) {
	entries, err := afero.ReadDir(d.fs, d.path)
	if err != nil {
		return nil, dberrors.IO("failed to list "+d.path, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	slices.Sort(names)
	return names, nil
}

// Relations returns the sorted names of the relations in the directory.
// Hidden files, such as leftover temporary files, are ignored.
func (d *Dir) Relations() ([]string, error) {
	entries, err := afero.ReadDir(d.fs, d.path)
	if err != nil {
		return nil, dberrors.IO("failed to list "+d.path, err)
	}
	var names []string
	for _, e := range entries {
		n := e.Name()
		if e.IsDir() || strings.HasPrefix(n, ".") || filepath.Ext(n) != relation.Ext {
			continue
		}
		names = append(names, strings.TrimSuffix(n, relation.Ext))
	}
	slices.Sort(names)
	return names, nil
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return dberrors.InvalidName(name)
	}
	return nil
}
