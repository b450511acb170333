// Package render writes relations for people and for other programs.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/Bilodev/Pydeas/internal/codec"
	dberrors "github.com/Bilodev/Pydeas/internal/errors"
	"github.com/goccy/go-json"
	"github.com/olekukonko/tablewriter"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"
)

// Format is an output format.
type Format string

// Supported formats.
const (
	FormatTable Format = "table"
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// Formats lists every supported format.
var Formats = []Format{FormatTable, FormatCSV, FormatJSON, FormatYAML}

// ParseFormat returns the format named s, case insensitively.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", dberrors.Newf(dberrors.CodeInvalidConfig, "unknown format %q", s).WithDetail("formats", Formats)
}

// Options tunes rendering.
type Options struct {
	// Color enables ANSI colors in table output.
	Color bool
}

// Write renders t to w in the given format.
func Write(w io.Writer, format Format, t *codec.Table, opts Options) error {
	switch format {
	case FormatTable, "":
		Table(w, t, opts)
		return nil
	case FormatCSV:
		return codec.Encode(w, t)
	case FormatJSON:
		return JSON(w, t)
	case FormatYAML:
		return YAML(w, t)
	default:
		return dberrors.Newf(dberrors.CodeInvalidConfig, "unknown format %q", string(format))
	}
}

// Table draws t as a bordered text table. With colors on, the header is bold
// blue and the cells bright cyan.
func Table(w io.Writer, t *codec.Table, opts Options) {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetHeader(t.Columns)
	table.SetAutoWrapText(false)
	table.SetBorders(tablewriter.Border{Left: true, Top: true, Right: true, Bottom: true})
	table.SetCenterSeparator("+")
	if !opts.Color {
		table.AppendBulk(t.Rows)
		table.Render()
		return
	}
	header := make([]tablewriter.Colors, t.Width())
	cells := make([]tablewriter.Colors, t.Width())
	for i := range header {
		header[i] = tablewriter.Colors{tablewriter.Bold, tablewriter.FgBlueColor}
		cells[i] = tablewriter.Colors{tablewriter.FgHiCyanColor}
	}
	table.SetHeaderColor(header...)
	for _, row := range t.Rows {
		table.Rich(row, cells)
	}
	table.Render()
}

// records turns rows into objects keyed by column, keeping column order.
func records(t *codec.Table) []*orderedmap.OrderedMap[string, string] {
	out := make([]*orderedmap.OrderedMap[string, string], len(t.Rows))
	for i, row := range t.Rows {
		m := orderedmap.New[string, string]()
		for j, col := range t.Columns {
			m.Set(col, row[j])
		}
		out[i] = m
	}
	return out
}

// JSON writes t as an indented array of objects.
func JSON(w io.Writer, t *codec.Table) error {
	b, err := json.MarshalIndent(records(t), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode rows: %w", err)
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return err
}

// YAML writes t as a sequence of mappings. Every value is tagged as a string
// so numbers-looking text round trips.
func YAML(w io.Writer, t *codec.Table) error {
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, row := range t.Rows {
		m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for j, col := range t.Columns {
			m.Content = append(m.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: col},
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: row[j]},
			)
		}
		seq.Content = append(seq.Content, m)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(seq); err != nil {
		return fmt.Errorf("failed to encode rows: %w", err)
	}
	return enc.Close()
}
