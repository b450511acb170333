package render

import (
	"fmt"
	"io"

	"github.com/Bilodev/Pydeas/internal/codec"
	"github.com/goccy/go-json"
	"github.com/invopop/jsonschema"
)

// RowSchema returns a JSON Schema describing one row of a relation. Every
// value is a string; the identifier must be a positive integer.
func RowSchema(name string, columns []string) *jsonschema.Schema {
	props := jsonschema.NewProperties()
	for _, col := range columns {
		s := &jsonschema.Schema{Type: "string"}
		if col == codec.IDColumn {
			s.Pattern = "^[1-9][0-9]*$"
			s.Description = "Positional identifier, 1-based."
		}
		props.Set(col, s)
	}
	return &jsonschema.Schema{
		Version:              jsonschema.Version,
		Title:                name,
		Type:                 "object",
		Properties:           props,
		Required:             columns,
		AdditionalProperties: jsonschema.FalseSchema,
	}
}

// Schema writes the row schema of a relation as indented JSON.
func Schema(w io.Writer, name string, columns []string) error {
	b, err := json.MarshalIndent(RowSchema(name, columns), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode schema: %w", err)
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return err
}
