package dataset

import (
	"math"
	"strconv"
	"strings"
)

// Kind is a column's value type.
type Kind int

const (
	Text Kind = iota
	Numeric
)

func (k Kind) String() string {
	if k == Numeric {
		return "numeric"
	}
	return "text"
}

// Column holds one column. Text columns use Values, where "" is missing;
// numeric columns use Numbers, where NaN is missing.
type Column struct {
	Name    string
	Kind    Kind
	Values  []string
	Numbers []float64
}

// Len returns the number of rows.
func (c *Column) Len() int {
	if c.Kind == Numeric {
		return len(c.Numbers)
	}
	return len(c.Values)
}

// Missing reports whether row i has no value.
func (c *Column) Missing(i int) bool {
	if c.Kind == Numeric {
		return math.IsNaN(c.Numbers[i])
	}
	return c.Values[i] == ""
}

// Unique counts distinct non-missing values.
func (c *Column) Unique() int {
	seen := make(map[string]struct{})
	for i := 0; i < c.Len(); i++ {
		if !c.Missing(i) {
			seen[c.key(i)] = struct{}{}
		}
	}
	return len(seen)
}

func (c *Column) key(i int) string {
	if c.Kind == Numeric {
		return strconv.FormatFloat(c.Numbers[i], 'g', -1, 64)
	}
	return c.Values[i]
}

func (c *Column) take(rows []int) *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	if c.Kind == Numeric {
		out.Numbers = make([]float64, len(rows))
		for j, i := range rows {
			out.Numbers[j] = c.Numbers[i]
		}
		return out
	}
	out.Values = make([]string, len(rows))
	for j, i := range rows {
		out.Values[j] = c.Values[i]
	}
	return out
}

// Frame is a table of equally long named columns.
type Frame struct {
	Columns []*Column
}

// NewFrame builds a text frame from a header and rows. Short rows are padded
// with missing values.
func NewFrame(header []string, rows [][]string) *Frame {
	f := &Frame{Columns: make([]*Column, len(header))}
	for j, name := range header {
		col := &Column{Name: strings.TrimSpace(name), Kind: Text, Values: make([]string, len(rows))}
		for i, row := range rows {
			if j < len(row) {
				col.Values[i] = normalize(row[j])
			}
		}
		f.Columns[j] = col
	}
	return f
}

// missingMarkers are read as empty cells.
var missingMarkers = map[string]bool{
	"na": true, "n/a": true, "nan": true, "null": true, "none": true, "#n/a": true, "-nan": true,
}

func normalize(cell string) string {
	cell = strings.TrimSpace(cell)
	if missingMarkers[strings.ToLower(cell)] {
		return ""
	}
	return cell
}

// NRows returns the number of rows.
func (f *Frame) NRows() int {
	if len(f.Columns) == 0 {
		return 0
	}
	return f.Columns[0].Len()
}

// Names lists the column names in order.
func (f *Frame) Names() []string {
	out := make([]string, len(f.Columns))
	for i, c := range f.Columns {
		out[i] = c.Name
	}
	return out
}

// Column finds a column by name.
func (f *Frame) Column(name string) (*Column, bool) {
	for _, c := range f.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Drop returns a frame without the named columns.
func (f *Frame) Drop(names ...string) *Frame {
	skip := make(map[string]bool, len(names))
	for _, n := range names {
		skip[n] = true
	}
	out := &Frame{}
	for _, c := range f.Columns {
		if !skip[c.Name] {
			out.Columns = append(out.Columns, c)
		}
	}
	return out
}

// Take returns a frame with the given rows, in that order.
func (f *Frame) Take(rows []int) *Frame {
	out := &Frame{Columns: make([]*Column, len(f.Columns))}
	for j, c := range f.Columns {
		out.Columns[j] = c.take(rows)
	}
	return out
}

func (f *Frame) rowKey(i int) string {
	var b strings.Builder
	for j, c := range f.Columns {
		if j > 0 {
			b.WriteByte(0x1f)
		}
		b.WriteString(c.key(i))
	}
	return b.String()
}
