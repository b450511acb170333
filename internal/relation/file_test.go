package relation

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	dberrors "github.com/Bilodev/Pydeas/internal/errors"
	"github.com/Bilodev/Pydeas/internal/predicate"
	"github.com/spf13/afero"
)

const peopleCSV = "#,name,age\n1,Joe,30\n2,Ann,25\n"

// newRelation writes content to /data/<name>.csv on an in-memory filesystem
// and opens it.
func newRelation(t *testing.T, name, content string) (*File, afero.Fs) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	if err := afero.WriteFile(fsys, "/data/"+name+".csv", []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := Open(fsys, "/data/"+name, Options{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return f, fsys
}

func readContent(t *testing.T, fsys afero.Fs, f *File) string {
	t.Helper()
	b, err := afero.ReadFile(fsys, f.Path())
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func assertContent(t *testing.T, fsys afero.Fs, f *File, want string) {
	t.Helper()
	if got := readContent(t, fsys, f); got != want {
		t.Errorf("file content:\n%s\nwant:\n%s", got, want)
	}
}

func TestOpen(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		_, err := Open(afero.NewMemMapFs(), "/data/people", Options{})
		if !dberrors.HasCode(err, dberrors.CodeNotFound) {
			t.Errorf("Open() error = %v, want NOT_FOUND", err)
		}
	})

	t.Run("directory", func(t *testing.T) {
		fsys := afero.NewMemMapFs()
		if err := fsys.MkdirAll("/data/people.csv", 0o755); err != nil {
			t.Fatal(err)
		}
		_, err := Open(fsys, "/data/people", Options{})
		if !dberrors.HasCode(err, dberrors.CodeNotFound) {
			t.Errorf("Open() error = %v, want NOT_FOUND", err)
		}
	})

	t.Run("names", func(t *testing.T) {
		f, _ := newRelation(t, "people", peopleCSV)
		if f.Path() != "/data/people.csv" {
			t.Errorf("Path() = %q", f.Path())
		}
		if f.Name() != "people" {
			t.Errorf("Name() = %q", f.Name())
		}
		cols, err := f.Columns()
		if err != nil {
			t.Fatal(err)
		}
		if !slices.Equal(cols, []string{"#", "name", "age"}) {
			t.Errorf("Columns() = %q", cols)
		}
		n, err := f.Len()
		if err != nil || n != 2 {
			t.Errorf("Len() = %d, %v, want 2", n, err)
		}
	})

	t.Run("extension already present", func(t *testing.T) {
		_, fsys := newRelation(t, "people", peopleCSV)
		f, err := Open(fsys, "/data/people.csv", Options{})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		if f.Path() != "/data/people.csv" {
			t.Errorf("Path() = %q", f.Path())
		}
	})
}

func TestAddColumn(t *testing.T) {
	t.Run("new column", func(t *testing.T) {
		f, fsys := newRelation(t, "people", peopleCSV)
		if err := f.AddColumn("city"); err != nil {
			t.Fatalf("AddColumn() error = %v", err)
		}
		assertContent(t, fsys, f, "#,name,age,city\n1,Joe,30,\n2,Ann,25,\n")
	})

	t.Run("idempotent", func(t *testing.T) {
		f, fsys := newRelation(t, "people", peopleCSV)
		for range 2 {
			if err := f.AddColumn("city"); err != nil {
				t.Fatalf("AddColumn() error = %v", err)
			}
		}
		assertContent(t, fsys, f, "#,name,age,city\n1,Joe,30,\n2,Ann,25,\n")
	})

	t.Run("existing column leaves file untouched", func(t *testing.T) {
		f, fsys := newRelation(t, "people", "#,name\n7,Joe\n")
		if err := f.AddColumn("name"); err != nil {
			t.Fatalf("AddColumn() error = %v", err)
		}
		assertContent(t, fsys, f, "#,name\n7,Joe\n")
	})

	t.Run("empty name", func(t *testing.T) {
		f, _ := newRelation(t, "people", peopleCSV)
		if err := f.AddColumn(""); !dberrors.HasCode(err, dberrors.CodeInvalidColumn) {
			t.Errorf("AddColumn() error = %v, want INVALID_COLUMN", err)
		}
	})

	t.Run("many", func(t *testing.T) {
		f, fsys := newRelation(t, "people", "#\n")
		if err := f.AddColumns("name", "age", "name"); err != nil {
			t.Fatalf("AddColumns() error = %v", err)
		}
		assertContent(t, fsys, f, "#,name,age\n")
	})
}

func TestAddRow(t *testing.T) {
	t.Run("full row", func(t *testing.T) {
		f, fsys := newRelation(t, "people", peopleCSV)
		id, err := f.AddRow("Bob", "9")
		if err != nil {
			t.Fatalf("AddRow() error = %v", err)
		}
		if id != 3 {
			t.Errorf("AddRow() = %d, want 3", id)
		}
		assertContent(t, fsys, f, peopleCSV+"3,Bob,9\n")
	})

	t.Run("short row is padded", func(t *testing.T) {
		f, fsys := newRelation(t, "people", peopleCSV)
		if _, err := f.AddRow("Bob"); err != nil {
			t.Fatalf("AddRow() error = %v", err)
		}
		assertContent(t, fsys, f, peopleCSV+"3,Bob,\n")
	})

	t.Run("too many values", func(t *testing.T) {
		f, fsys := newRelation(t, "people", peopleCSV)
		for _, values := range [][]string{{"Bob", "9", "x"}, {"Bob", "9", "x", "y"}} {
			if _, err := f.AddRow(values...); !dberrors.HasCode(err, dberrors.CodeTooManyValues) {
				t.Errorf("AddRow(%q) error = %v, want TOO_MANY_VALUES", values, err)
			}
		}
		assertContent(t, fsys, f, peopleCSV)
	})

	t.Run("header without newline", func(t *testing.T) {
		f, fsys := newRelation(t, "people", "#,name")
		id, err := f.AddRow("Joe")
		if err != nil {
			t.Fatalf("AddRow() error = %v", err)
		}
		if id != 1 {
			t.Errorf("AddRow() = %d, want 1", id)
		}
		assertContent(t, fsys, f, "#,name\n1,Joe\n")
	})

	t.Run("quoting", func(t *testing.T) {
		f, _ := newRelation(t, "people", "#,note\n")
		if _, err := f.AddRow("a, \"b\"\nc"); err != nil {
			t.Fatalf("AddRow() error = %v", err)
		}
		res, err := f.Search(nil)
		if err != nil {
			t.Fatal(err)
		}
		if got := res.Records[0]["note"]; got != "a, \"b\"\nc" {
			t.Errorf("note = %q", got)
		}
	})
}

func TestDeleteByIndex(t *testing.T) {
	const four = "#,name\n1,a\n2,b\n3,c\n4,d\n"
	tests := []struct {
		name      string
		positions []int
		want      string
		wantErr   bool
	}{
		{"first", []int{1}, "#,name\n1,b\n2,c\n3,d\n", false},
		{"middle", []int{2}, "#,name\n1,a\n2,c\n3,d\n", false},
		{"last", []int{4}, "#,name\n1,a\n2,b\n3,c\n", false},
		{"batch uses original ids", []int{2, 3}, "#,name\n1,a\n2,d\n", false},
		{"batch in any order", []int{4, 1}, "#,name\n1,b\n2,c\n", false},
		{"out of range", []int{5}, four, true},
		{"zero", []int{0}, four, true},
		{"partial batch stays persisted", []int{1, 9, 2}, "#,name\n1,b\n2,c\n3,d\n", true},
		{"repeated id", []int{2, 2}, "#,name\n1,a\n2,c\n3,d\n", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, fsys := newRelation(t, "letters", four)
			err := f.DeleteByIndex(tt.positions...)
			if tt.wantErr {
				if !dberrors.HasCode(err, dberrors.CodeRowNotFound) {
					t.Errorf("DeleteByIndex() error = %v, want ROW_NOT_FOUND", err)
				}
			} else if err != nil {
				t.Errorf("DeleteByIndex() error = %v", err)
			}
			assertContent(t, fsys, f, tt.want)
		})
	}
}

func TestUpdateByIndex(t *testing.T) {
	t.Run("merge", func(t *testing.T) {
		f, fsys := newRelation(t, "people", peopleCSV)
		if err := f.UpdateByIndex(2, map[string]string{"age": "26"}); err != nil {
			t.Fatalf("UpdateByIndex() error = %v", err)
		}
		assertContent(t, fsys, f, "#,name,age\n1,Joe,30\n2,Ann,26\n")
	})

	t.Run("identifier is kept", func(t *testing.T) {
		f, fsys := newRelation(t, "people", peopleCSV)
		if err := f.UpdateByIndex(1, map[string]string{"#": "9", "name": "Jo"}); err != nil {
			t.Fatalf("UpdateByIndex() error = %v", err)
		}
		assertContent(t, fsys, f, "#,name,age\n1,Jo,30\n2,Ann,25\n")
	})

	t.Run("errors", func(t *testing.T) {
		tests := []struct {
			name   string
			pos    int
			values map[string]string
			code   dberrors.ErrorCode
		}{
			{"past the end", 3, map[string]string{"age": "1"}, dberrors.CodeRowNotFound},
			{"zero", 0, map[string]string{"age": "1"}, dberrors.CodeRowNotFound},
			{"unknown column", 1, map[string]string{"salary": "1"}, dberrors.CodeColumnNotFound},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f, fsys := newRelation(t, "people", peopleCSV)
				if err := f.UpdateByIndex(tt.pos, tt.values); !dberrors.HasCode(err, tt.code) {
					t.Errorf("UpdateByIndex() error = %v, want %s", err, tt.code)
				}
				assertContent(t, fsys, f, peopleCSV)
			})
		}
	})
}

func TestSetColumn(t *testing.T) {
	t.Run("existing", func(t *testing.T) {
		f, fsys := newRelation(t, "people", peopleCSV)
		if err := f.SetColumn("age", "0"); err != nil {
			t.Fatalf("SetColumn() error = %v", err)
		}
		assertContent(t, fsys, f, "#,name,age\n1,Joe,0\n2,Ann,0\n")
	})

	t.Run("new", func(t *testing.T) {
		f, fsys := newRelation(t, "people", peopleCSV)
		if err := f.SetColumn("city", "Rome"); err != nil {
			t.Fatalf("SetColumn() error = %v", err)
		}
		assertContent(t, fsys, f, "#,name,age,city\n1,Joe,30,Rome\n2,Ann,25,Rome\n")
	})

	t.Run("invalid", func(t *testing.T) {
		f, _ := newRelation(t, "people", peopleCSV)
		for _, name := range []string{"", "#"} {
			if err := f.SetColumn(name, "x"); !dberrors.HasCode(err, dberrors.CodeInvalidColumn) {
				t.Errorf("SetColumn(%q) error = %v, want INVALID_COLUMN", name, err)
			}
		}
	})
}

func TestRemoveColumn(t *testing.T) {
	t.Run("existing", func(t *testing.T) {
		f, fsys := newRelation(t, "people", peopleCSV)
		if err := f.RemoveColumn("name"); err != nil {
			t.Fatalf("RemoveColumn() error = %v", err)
		}
		assertContent(t, fsys, f, "#,age\n1,30\n2,25\n")
	})

	t.Run("errors", func(t *testing.T) {
		f, fsys := newRelation(t, "people", peopleCSV)
		if err := f.RemoveColumn("#"); !dberrors.HasCode(err, dberrors.CodeInvalidColumn) {
			t.Errorf("RemoveColumn(#) error = %v, want INVALID_COLUMN", err)
		}
		if err := f.RemoveColumn("city"); !dberrors.HasCode(err, dberrors.CodeColumnNotFound) {
			t.Errorf("RemoveColumn(city) error = %v, want COLUMN_NOT_FOUND", err)
		}
		assertContent(t, fsys, f, peopleCSV)
	})
}

func TestQuery(t *testing.T) {
	t.Run("matches in order", func(t *testing.T) {
		f, _ := newRelation(t, "people", "#,name,age\n1,Joe,30\n2,Ann,25\n3,Bob,9\n")
		res, err := f.Query("age < 28")
		if err != nil {
			t.Fatalf("Query() error = %v", err)
		}
		if got := res.IDs(); !slices.Equal(got, []int{2, 3}) {
			t.Errorf("IDs() = %v, want [2 3]", got)
		}
		if res.Records[1]["name"] != "Bob" {
			t.Errorf("Records[1] = %v", res.Records[1])
		}
	})

	t.Run("no match", func(t *testing.T) {
		f, _ := newRelation(t, "people", peopleCSV)
		res, err := f.Query(`name == "Zed"`)
		if err != nil {
			t.Fatalf("Query() error = %v", err)
		}
		if !res.Empty() {
			t.Errorf("Empty() = false, records %v", res.Records)
		}
	})

	t.Run("empty relation", func(t *testing.T) {
		f, _ := newRelation(t, "people", "#,name\n")
		res, err := f.Query(`salary > 3`)
		if err != nil {
			t.Fatalf("Query() error = %v", err)
		}
		if !res.Empty() {
			t.Error("Empty() = false")
		}
	})

	t.Run("errors", func(t *testing.T) {
		f, _ := newRelation(t, "people", peopleCSV)
		if _, err := f.Query("salary > 3"); !dberrors.HasCode(err, dberrors.CodeColumnNotFound) {
			t.Errorf("Query() error = %v, want COLUMN_NOT_FOUND", err)
		}
		if _, err := f.Query("age <"); !dberrors.HasCode(err, dberrors.CodeInvalidExpression) {
			t.Errorf("Query() error = %v, want INVALID_EXPRESSION", err)
		}
	})
}

func TestSearch(t *testing.T) {
	tests := []struct {
		name   string
		filter *predicate.Filter
		want   []int
	}{
		{"empty filter", predicate.NewFilter(), []int{1, 2}},
		{"nil filter", nil, []int{1, 2}},
		{"one pair", predicate.NewFilter().Set("name", "Joe"), []int{1}},
		{"two pairs", predicate.NewFilter().Set("name", "Joe").Set("age", "25"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, _ := newRelation(t, "people", peopleCSV)
			res, err := f.Search(tt.filter)
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if got := res.IDs(); !slices.Equal(got, tt.want) {
				t.Errorf("IDs() = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("unknown column", func(t *testing.T) {
		f, _ := newRelation(t, "people", peopleCSV)
		_, err := f.Search(predicate.NewFilter().Set("salary", "3"))
		if !dberrors.HasCode(err, dberrors.CodeColumnNotFound) {
			t.Errorf("Search() error = %v, want COLUMN_NOT_FOUND", err)
		}
	})
}

func TestDelete(t *testing.T) {
	t.Run("matches", func(t *testing.T) {
		f, fsys := newRelation(t, "people", "#,name,age\n1,Joe,30\n2,Ann,25\n3,Bob,9\n4,Eve,40\n")
		ok, err := f.Delete("age < 28")
		if err != nil || !ok {
			t.Fatalf("Delete() = %v, %v, want true", ok, err)
		}
		assertContent(t, fsys, f, "#,name,age\n1,Joe,30\n2,Eve,40\n")
	})

	t.Run("no match", func(t *testing.T) {
		f, fsys := newRelation(t, "people", peopleCSV)
		ok, err := f.Delete("age > 100")
		if err != nil || ok {
			t.Fatalf("Delete() = %v, %v, want false", ok, err)
		}
		assertContent(t, fsys, f, peopleCSV)
	})

	t.Run("large numbers compare exactly", func(t *testing.T) {
		f, fsys := newRelation(t, "cards", "#,card\n1,12345678901234567890\n2,12345678901234567891\n3,9007199254740992\n4,9007199254740993\n")
		for _, expr := range []string{"card == 12345678901234567891", "card == 9007199254740993"} {
			ok, err := f.Delete(expr)
			if err != nil || !ok {
				t.Fatalf("Delete(%s) = %v, %v, want true", expr, ok, err)
			}
		}
		assertContent(t, fsys, f, "#,card\n1,12345678901234567890\n2,9007199254740992\n")
	})

	t.Run("blank values are never ordered", func(t *testing.T) {
		f, fsys := newRelation(t, "people", "#,name\n1,Joe\n2,Ann\n")
		if err := f.AddColumn("age"); err != nil {
			t.Fatal(err)
		}
		ok, err := f.Delete("age < 28")
		if err != nil || ok {
			t.Fatalf("Delete() = %v, %v, want false", ok, err)
		}
		assertContent(t, fsys, f, "#,name,age\n1,Joe,\n2,Ann,\n")
	})
}

func TestUpdate(t *testing.T) {
	t.Run("matches", func(t *testing.T) {
		f, fsys := newRelation(t, "people", "#,name,age\n1,Joe,30\n2,Ann,25\n3,Joe,9\n")
		ok, err := f.Update(`name == "Joe"`, map[string]string{"age": "31"})
		if err != nil || !ok {
			t.Fatalf("Update() = %v, %v, want true", ok, err)
		}
		assertContent(t, fsys, f, "#,name,age\n1,Joe,31\n2,Ann,25\n3,Joe,31\n")
	})

	t.Run("no match", func(t *testing.T) {
		f, _ := newRelation(t, "people", peopleCSV)
		ok, err := f.Update(`name == "Zed"`, map[string]string{"age": "31"})
		if err != nil || ok {
			t.Fatalf("Update() = %v, %v, want false", ok, err)
		}
	})

	t.Run("unknown column", func(t *testing.T) {
		f, fsys := newRelation(t, "people", peopleCSV)
		_, err := f.Update(`name == "Joe"`, map[string]string{"salary": "1"})
		if !dberrors.HasCode(err, dberrors.CodeColumnNotFound) {
			t.Errorf("Update() error = %v, want COLUMN_NOT_FOUND", err)
		}
		assertContent(t, fsys, f, peopleCSV)
	})
}

func TestScenario(t *testing.T) {
	fsys := afero.NewMemMapFs()
	if err := afero.WriteFile(fsys, "/data/people.csv", []byte("#\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := Open(fsys, "/data/people", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := f.AddColumns("name", "age"); err != nil {
		t.Fatal(err)
	}
	for _, row := range [][]string{{"Joe", "30"}, {"Ann", "25"}} {
		if _, err := f.AddRow(row...); err != nil {
			t.Fatal(err)
		}
	}

	res, err := f.Search(predicate.NewFilter().Set("name", "Joe"))
	if err != nil {
		t.Fatal(err)
	}
	if got := res.IDs(); !slices.Equal(got, []int{1}) {
		t.Errorf("Search() IDs = %v, want [1]", got)
	}

	ok, err := f.Delete("age < 28")
	if err != nil || !ok {
		t.Fatalf("Delete() = %v, %v", ok, err)
	}
	ok, err = f.Update(`name == "Joe"`, map[string]string{"age": "31"})
	if err != nil || !ok {
		t.Fatalf("Update() = %v, %v", ok, err)
	}
	assertContent(t, fsys, f, "#,name,age\n1,Joe,31\n")
}

func TestRoundTrip(t *testing.T) {
	for _, opts := range []Options{{}, {InPlace: true}} {
		t.Run(map[bool]string{false: "atomic", true: "in place"}[opts.InPlace], func(t *testing.T) {
			dir := t.TempDir()
			fsys := afero.NewOsFs()
			if err := afero.WriteFile(fsys, filepath.Join(dir, "people.csv"), []byte("#\n"), 0o644); err != nil {
				t.Fatal(err)
			}
			if err := fsys.Chmod(filepath.Join(dir, "people.csv"), 0o640); err != nil {
				t.Fatal(err)
			}
			f, err := Open(fsys, filepath.Join(dir, "people"), opts)
			if err != nil {
				t.Fatal(err)
			}
			if err := f.AddColumns("name", "note"); err != nil {
				t.Fatal(err)
			}
			if _, err := f.AddRow("Joe", "likes, commas"); err != nil {
				t.Fatal(err)
			}
			if _, err := f.AddRow("Ann"); err != nil {
				t.Fatal(err)
			}
			if err := f.SetColumn("city", "Rome"); err != nil {
				t.Fatal(err)
			}

			g, err := Open(fsys, filepath.Join(dir, "people"), opts)
			if err != nil {
				t.Fatal(err)
			}
			tbl, err := g.Table()
			if err != nil {
				t.Fatal(err)
			}
			if !slices.Equal(tbl.Columns, []string{"#", "name", "note", "city"}) {
				t.Errorf("Columns = %q", tbl.Columns)
			}
			want := [][]string{{"1", "Joe", "likes, commas", "Rome"}, {"2", "Ann", "", "Rome"}}
			if !slices.EqualFunc(tbl.Rows, want, slices.Equal[[]string]) {
				t.Errorf("Rows = %q, want %q", tbl.Rows, want)
			}
			entries, err := afero.ReadDir(fsys, dir)
			if err != nil {
				t.Fatal(err)
			}
			if len(entries) != 1 {
				t.Errorf("directory holds %d entries, want only the relation file", len(entries))
			}
			st, err := fsys.Stat(g.Path())
			if err != nil {
				t.Fatal(err)
			}
			if got := st.Mode().Perm(); got != 0o640 {
				t.Errorf("mode = %v, want %v", got, os.FileMode(0o640))
			}
		})
	}
}

func TestPositionalIdentifiers(t *testing.T) {
	const edited = "#,name\n7,Joe\n3,Ann\n"
	f, fsys := newRelation(t, "people", edited)

	tbl, err := f.Table()
	if err != nil {
		t.Fatal(err)
	}
	if tbl.Rows[0][0] != "1" || tbl.Rows[1][0] != "2" {
		t.Errorf("Table() ids = %q, %q, want 1, 2", tbl.Rows[0][0], tbl.Rows[1][0])
	}
	res, err := f.Query(`name == "Ann"`)
	if err != nil {
		t.Fatal(err)
	}
	if got := res.IDs(); !slices.Equal(got, []int{2}) {
		t.Errorf("Query() IDs = %v, want [2]", got)
	}
	res, err = f.Search(predicate.NewFilter().Set("name", "Joe"))
	if err != nil {
		t.Fatal(err)
	}
	if got := res.IDs(); !slices.Equal(got, []int{1}) {
		t.Errorf("Search() IDs = %v, want [1]", got)
	}
	res, err = f.Query("`#` == 3")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Empty() {
		t.Errorf("Query(# == 3) = %v, want no match", res.IDs())
	}
	// Reads never rewrite the file.
	assertContent(t, fsys, f, edited)

	if err := f.UpdateByIndex(2, map[string]string{"name": "Eve"}); err != nil {
		t.Fatal(err)
	}
	assertContent(t, fsys, f, "#,name\n1,Joe\n2,Eve\n")
}

func TestResult(t *testing.T) {
	var empty *Result
	if !empty.Empty() || empty.Len() != 0 || empty.Table().Width() != 1 {
		t.Error("nil Result is not empty")
	}
	res := newResult([]string{"#", "name"}, [][]string{{"1", "Joe"}, {"2", "Ann"}})
	if res.Len() != 2 || res.Records[1].ID() != 2 {
		t.Errorf("Result = %+v", res)
	}
	tbl := res.Table()
	if !slices.Equal(tbl.Rows[0], []string{"1", "Joe"}) {
		t.Errorf("Table().Rows[0] = %q", tbl.Rows[0])
	}
	if (Record{"name": "x"}).ID() != 0 {
		t.Error("Record without identifier has non-zero ID")
	}
}
