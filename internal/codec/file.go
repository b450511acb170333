// Reads and persists relation files on an afero filesystem.

package codec

import (
	"bytes"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	dberrors "github.com/Bilodev/Pydeas/internal/errors"
	"github.com/spf13/afero"
)

// ReadFile loads the relation stored at path.
func ReadFile(fsys afero.Fs, path string, lenient bool) (*Table, error) {
	f, err := fsys.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, dberrors.NotFound(path).Wrap(err)
		}
		return nil, dberrors.IO("failed to open "+path, err)
	}
	defer func() {
		_ = f.Close()
	}()
	return Decode(f, DecodeOptions{Lenient: lenient, Name: path})
}

// WriteFile replaces the relation stored at path with t.
//
// Unless inPlace is set, the content is written to a temporary file in the
// same directory which is then renamed over path.
func WriteFile(fsys afero.Fs, path string, t *Table, inPlace bool) error {
	var buf bytes.Buffer
	if err := Encode(&buf, t); err != nil {
		return dberrors.IO("failed to encode "+path, err)
	}
	if inPlace {
		if err := afero.WriteFile(fsys, path, buf.Bytes(), 0o644); err != nil {
			return dberrors.IO("failed to write "+path, err)
		}
		slog.Debug("Rewrote relation", "path", path, "rows", t.Len(), "columns", t.Width())
		return nil
	}

	// The temporary file is created 0600; the replacement keeps the mode of
	// the file it replaces.
	perm := os.FileMode(0o644)
	if st, err := fsys.Stat(path); err == nil {
		perm = st.Mode().Perm()
	} else if !os.IsNotExist(err) {
		return dberrors.IO("failed to stat "+path, err)
	}
	tmp, err := afero.TempFile(fsys, filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return dberrors.IO("failed to create temporary file for "+path, err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = fsys.Remove(tmpName)
	}
	if err := fsys.Chmod(tmpName, perm); err != nil {
		_ = tmp.Close()
		cleanup()
		return dberrors.IO("failed to set mode of "+tmpName, err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		cleanup()
		return dberrors.IO("failed to write "+tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return dberrors.IO("failed to sync "+tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return dberrors.IO("failed to close "+tmpName, err)
	}
	if err := fsys.Rename(tmpName, path); err != nil {
		cleanup()
		return dberrors.IO("failed to replace "+path, err)
	}
	slog.Debug("Rewrote relation", "path", path, "rows", t.Len(), "columns", t.Width())
	return nil
}

// AppendRow appends one row to the relation stored at path.
//
// A missing trailing newline, as left by a header-only placeholder, is added
// before the row so the row never merges into the previous line.
func AppendRow(fsys afero.Fs, path string, row []string) error {
	f, err := fsys.OpenFile(path, os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		if os.IsNotExist(err) {
			return dberrors.NotFound(path).Wrap(err)
		}
		return dberrors.IO("failed to open "+path+" for append", err)
	}
	defer func() {
		_ = f.Close()
	}()

	var buf bytes.Buffer
	needsNewline, err := missingNewline(f)
	if err != nil {
		return dberrors.IO("failed to inspect "+path, err)
	}
	if needsNewline {
		buf.WriteByte('\n')
	}
	if err := EncodeRow(&buf, row); err != nil {
		return dberrors.IO("failed to encode row", err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		return dberrors.IO("failed to append to "+path, err)
	}
	slog.Debug("Appended row", "path", path, "id", row[0])
	return nil
}

func missingNewline(f afero.File) (bool, error) {
	st, err := f.Stat()
	if err != nil {
		return false, err
	}
	if st.Size() == 0 {
		return false, nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, st.Size()-1); err != nil {
		return false, err
	}
	return last[0] != '\n', nil
}

// CreateFile writes a header-only relation at path unless something already
// exists there. It reports whether the file was created.
func CreateFile(fsys afero.Fs, path string) (bool, error) {
	f, err := fsys.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return false, nil
		}
		return false, dberrors.IO("failed to create "+path, err)
	}
	defer func() {
		_ = f.Close()
	}()
	if err := EncodeRow(f, []string{IDColumn}); err != nil {
		_ = f.Close()
		_ = fsys.Remove(path)
		return false, dberrors.IO("failed to write header to "+path, err)
	}
	return true, nil
}

// Exists reports whether a regular file exists at path.
func Exists(fsys afero.Fs, path string) (bool, error) {
	st, err := fsys.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, dberrors.IO("failed to stat "+path, err)
	}
	return st.Mode()&fs.ModeType == 0, nil
}
