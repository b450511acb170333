package codec

import (
	"bytes"
	"slices"
	"strings"
	"testing"

	dberrors "github.com/Bilodev/Pydeas/internal/errors"
)

func TestDecode(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		tests := []struct {
			name     string
			input    string
			lenient  bool
			wantCols []string
			wantRows [][]string
		}{
			{
				"header only without newline",
				"#",
				false,
				[]string{"#"},
				nil,
			},
			{
				"header only",
				"#,name,age\n",
				false,
				[]string{"#", "name", "age"},
				nil,
			},
			{
				"two rows",
				"#,name,age\n1,Joe,30\n2,Ann,25\n",
				false,
				[]string{"#", "name", "age"},
				[][]string{{"1", "Joe", "30"}, {"2", "Ann", "25"}},
			},
			{
				"quoted values",
				"#,name,note\n1,\"Doe, Joe\",\"said \"\"hi\"\"\"\n",
				false,
				[]string{"#", "name", "note"},
				[][]string{{"1", "Doe, Joe", `said "hi"`}},
			},
			{
				"embedded newline",
				"#,note\n1,\"two\nlines\"\n",
				false,
				[]string{"#", "note"},
				[][]string{{"1", "two\nlines"}},
			},
			{
				"short row padded",
				"#,name,age\n1,Joe\n",
				false,
				[]string{"#", "name", "age"},
				[][]string{{"1", "Joe", ""}},
			},
			{
				"byte order mark",
				"\xEF\xBB\xBF#,name\n1,Joe\n",
				false,
				[]string{"#", "name"},
				[][]string{{"1", "Joe"}},
			},
			{
				"crlf line endings",
				"#,name\r\n1,Joe\r\n",
				false,
				[]string{"#", "name"},
				[][]string{{"1", "Joe"}},
			},
			{
				"lenient skips long rows",
				"#,name\n1,Joe\n2,Ann,extra\n3,Bob\n",
				true,
				[]string{"#", "name"},
				[][]string{{"1", "Joe"}, {"3", "Bob"}},
			},
			{
				"lenient accepts bare quotes",
				"#,name\n1,Jo\"e\n",
				true,
				[]string{"#", "name"},
				[][]string{{"1", `Jo"e`}},
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := Decode(strings.NewReader(tt.input), DecodeOptions{Lenient: tt.lenient, Name: "test.csv"})
				if err != nil {
					t.Fatalf("Decode() error = %v", err)
				}
				if !slices.Equal(got.Columns, tt.wantCols) {
					t.Errorf("Columns = %q, want %q", got.Columns, tt.wantCols)
				}
				if len(got.Rows) != len(tt.wantRows) {
					t.Fatalf("len(Rows) = %d, want %d", len(got.Rows), len(tt.wantRows))
				}
				for i := range tt.wantRows {
					if !slices.Equal(got.Rows[i], tt.wantRows[i]) {
						t.Errorf("Rows[%d] = %q, want %q", i, got.Rows[i], tt.wantRows[i])
					}
				}
			})
		}
	})

	t.Run("errors", func(t *testing.T) {
		tests := []struct {
			name  string
			input string
		}{
			{"empty file", ""},
			{"missing id column", "name,age\n"},
			{"duplicate column", "#,name,name\n"},
			{"unnamed column", "#,,age\n"},
			{"long row", "#,name\n1,Joe,extra\n"},
			{"bare quote", "#,name\n1,Jo\"e\n"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := Decode(strings.NewReader(tt.input), DecodeOptions{Name: "test.csv"})
				if err == nil {
					t.Fatal("Decode() expected error, got nil")
				}
				if code := dberrors.CodeOf(err); code != dberrors.CodeMalformed {
					t.Errorf("CodeOf() = %q, want %q", code, dberrors.CodeMalformed)
				}
			})
		}
	})
}

func TestEncode(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		want := &Table{
			Columns: []string{"#", "name", "note"},
			Rows: [][]string{
				{"1", "Joe", ""},
				{"2", "Doe, Ann", "multi\nline"},
				{"3", `"quoted"`, "plain"},
			},
		}
		var buf bytes.Buffer
		if err := Encode(&buf, want); err != nil {
			t.Fatalf("Encode() error = %v", err)
		}
		got, err := Decode(&buf, DecodeOptions{})
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if !slices.Equal(got.Columns, want.Columns) {
			t.Errorf("Columns = %q, want %q", got.Columns, want.Columns)
		}
		for i := range want.Rows {
			if !slices.Equal(got.Rows[i], want.Rows[i]) {
				t.Errorf("Rows[%d] = %q, want %q", i, got.Rows[i], want.Rows[i])
			}
		}
	})

	t.Run("header only", func(t *testing.T) {
		var buf bytes.Buffer
		if err := Encode(&buf, NewTable()); err != nil {
			t.Fatalf("Encode() error = %v", err)
		}
		if got := buf.String(); got != "#\n" {
			t.Errorf("Encode() = %q, want %q", got, "#\n")
		}
	})

	t.Run("EncodeRow", func(t *testing.T) {
		var buf bytes.Buffer
		if err := EncodeRow(&buf, []string{"3", "Doe, Joe", "41"}); err != nil {
			t.Fatalf("EncodeRow() error = %v", err)
		}
		if got, want := buf.String(), "3,\"Doe, Joe\",41\n"; got != want {
			t.Errorf("EncodeRow() = %q, want %q", got, want)
		}
	})
}

func TestTable(t *testing.T) {
	tbl := &Table{
		Columns: []string{"#", "name"},
		Rows:    [][]string{{"1", "Joe"}},
	}
	if tbl.Width() != 2 {
		t.Errorf("Width() = %d, want 2", tbl.Width())
	}
	if tbl.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tbl.Len())
	}
	if tbl.Index("name") != 1 || tbl.Index("age") != -1 {
		t.Errorf("Index() = %d/%d, want 1/-1", tbl.Index("name"), tbl.Index("age"))
	}
	c := tbl.Clone()
	c.Rows[0][1] = "Ann"
	c.Columns[1] = "first"
	if tbl.Rows[0][1] != "Joe" || tbl.Columns[1] != "name" {
		t.Error("Clone() shares storage with the original")
	}
}
