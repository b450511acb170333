// Exact-match filters applied as a sequence of narrowing steps.

package predicate

import (
	"strings"

	dberrors "github.com/Bilodev/Pydeas/internal/errors"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Filter maps column names to the exact value a row must hold. Pairs keep
// their insertion order, which is the order rows are narrowed in.
type Filter struct {
	pairs *orderedmap.OrderedMap[string, string]
}

// NewFilter returns an empty filter.
func NewFilter() *Filter {
	return &Filter{pairs: orderedmap.New[string, string]()}
}

// Set requires column to equal value. Setting a column again replaces its
// value but keeps its original position.
func (f *Filter) Set(column, value string) *Filter {
	f.pairs.Set(column, value)
	return f
}

// Len returns the number of pairs.
func (f *Filter) Len() int {
	if f == nil {
		return 0
	}
	return f.pairs.Len()
}

// String returns the filter as space separated column=value pairs.
func (f *Filter) String() string {
	if f.Len() == 0 {
		return ""
	}
	parts := make([]string, 0, f.pairs.Len())
	for pair := f.pairs.Oldest(); pair != nil; pair = pair.Next() {
		parts = append(parts, pair.Key+"="+pair.Value)
	}
	return strings.Join(parts, " ")
}

// ParseFilter builds a filter from column=value arguments.
func ParseFilter(args []string) (*Filter, error) {
	f := NewFilter()
	for _, arg := range args {
		column, value, ok := strings.Cut(arg, "=")
		if !ok || column == "" {
			return nil, dberrors.Newf(dberrors.CodeInvalidExpression, "invalid filter %q, want column=value", arg)
		}
		f.Set(column, value)
	}
	return f, nil
}

// Narrow keeps the rows matching every pair, one pair at a time. It returns
// nil as soon as a step leaves no rows. An empty filter returns rows as is.
func (f *Filter) Narrow(columns []string, rows [][]string) ([][]string, error) {
	if f.Len() == 0 {
		return rows, nil
	}
	index := make(map[string]int, len(columns))
	for i, name := range columns {
		index[name] = i
	}
	result := rows
	for pair := f.pairs.Oldest(); pair != nil; pair = pair.Next() {
		i, ok := index[pair.Key]
		if !ok {
			return nil, dberrors.ColumnNotFound(pair.Key)
		}
		var kept [][]string
		for _, row := range result {
			if row[i] == pair.Value {
				kept = append(kept, row)
			}
		}
		if len(kept) == 0 {
			return nil, nil
		}
		result = kept
	}
	return result, nil
}
