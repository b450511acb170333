// Encodes and decodes the CSV wire format of relation files.

package codec

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"strconv"

	dberrors "github.com/Bilodev/Pydeas/internal/errors"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DecodeOptions controls how a relation file is decoded.
type DecodeOptions struct {
	// Lenient skips malformed rows instead of failing and accepts lazy quotes.
	Lenient bool
	// Name identifies the source in errors and logs.
	Name string
}

// Decode reads a whole relation from r.
func Decode(r io.Reader, opts DecodeOptions) (*Table, error) {
	br := bufio.NewReader(r)
	if prefix, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(prefix, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = opts.Lenient

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, dberrors.Malformed(opts.Name, "missing header")
		}
		return nil, decodeError(opts.Name, err)
	}
	if err := validateHeader(header, opts.Lenient); err != nil {
		return nil, dberrors.Malformed(opts.Name, err.Error())
	}

	t := &Table{Columns: header}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if opts.Lenient && errors.As(err, &pe) {
				slog.Warn("Skipping malformed line", "file", opts.Name, "line", pe.Line, "err", pe.Err)
				continue
			}
			return nil, decodeError(opts.Name, err)
		}
		if len(rec) > len(header) {
			line, _ := cr.FieldPos(0)
			if opts.Lenient {
				slog.Warn("Skipping line with too many fields", "file", opts.Name, "line", line, "fields", len(rec), "columns", len(header))
				continue
			}
			return nil, dberrors.Malformed(opts.Name, "line "+strconv.Itoa(line)+": expected "+strconv.Itoa(len(header))+" fields, got "+strconv.Itoa(len(rec))).
				WithDetail("line", line)
		}
		for len(rec) < len(header) {
			rec = append(rec, "")
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

func validateHeader(header []string, lenient bool) error {
	if len(header) == 0 || header[0] != IDColumn {
		return errors.New(`header must start with the "#" column`)
	}
	seen := make(map[string]bool, len(header))
	for i, name := range header {
		if name == "" && !lenient {
			return errors.New("column " + strconv.Itoa(i) + " has no name")
		}
		if seen[name] {
			return errors.New("duplicate column " + strconv.Quote(name))
		}
		seen[name] = true
	}
	return nil
}

func decodeError(name string, err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return dberrors.Malformed(name, pe.Error()).WithDetail("line", pe.Line).Wrap(err)
	}
	return dberrors.IO("failed to read "+name, err)
}

// Encode writes the header and every row of t to w.
func Encode(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	return cw.WriteAll(t.Rows)
}

// EncodeRow writes a single row to w.
func EncodeRow(w io.Writer, row []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(row); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}
