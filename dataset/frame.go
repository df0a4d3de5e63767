// Package dataset provides a small column-oriented table used to carry
// rows between the readers, the merge engine, the feature store and the
// training pipeline. Cells are nullable and either numeric or string;
// numeric coercion follows the error-tolerant rule used throughout the
// pipeline (unparseable becomes null, never an error).
package dataset

import (
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/agriml/yieldpipe/pkg/errors"
)

// Value is a single nullable cell.
type Value struct {
	valid bool
	isNum bool
	num   float64
	str   string
}

// Null returns the null cell.
func Null() Value {
	return Value{}
}

// Num returns a numeric cell.
func Num(f float64) Value {
	return Value{valid: true, isNum: true, num: f}
}

// Str returns a string cell.
func Str(s string) Value {
	return Value{valid: true, str: s}
}

// IsNull reports whether the cell is null.
func (v Value) IsNull() bool {
	return !v.valid
}

// IsNum reports whether the cell holds a number.
func (v Value) IsNum() bool {
	return v.valid && v.isNum
}

// Float returns the numeric value and whether the cell holds one.
func (v Value) Float() (float64, bool) {
	if !v.valid || !v.isNum {
		return 0, false
	}
	return v.num, true
}

// Display returns the canonical string form of the cell: the shortest
// exact decimal for numbers, the string itself for strings, and "" for
// null. Join keys and duplicate detection both use this form.
func (v Value) Display() string {
	switch {
	case !v.valid:
		return ""
	case v.isNum:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	default:
		return v.str
	}
}

// Equal reports whether two cells hold the same value. Nulls compare
// equal to each other.
func (v Value) Equal(o Value) bool {
	if v.valid != o.valid {
		return false
	}
	if !v.valid {
		return true
	}
	if v.isNum != o.isNum {
		return false
	}
	if v.isNum {
		return v.num == o.num
	}
	return v.str == o.str
}

// Coerce converts the cell to numeric. Numbers pass through; strings are
// parsed (surrounding whitespace ignored); anything unparseable, including
// null, becomes null.
func (v Value) Coerce() Value {
	if !v.valid {
		return Null()
	}
	if v.isNum {
		return v
	}
	s := strings.TrimSpace(v.str)
	if s == "" {
		return Null()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Null()
	}
	return Num(f)
}

// Frame is an ordered set of equally sized named columns.
type Frame struct {
	cols  []string
	data  map[string][]Value
	nrows int
}

// New creates an empty frame with the given column order.
func New(cols ...string) *Frame {
	f := &Frame{
		cols: append([]string(nil), cols...),
		data: make(map[string][]Value, len(cols)),
	}
	for _, c := range cols {
		f.data[c] = nil
	}
	return f
}

// NumRows returns the number of rows.
func (f *Frame) NumRows() int {
	return f.nrows
}

// Columns returns the column names in order. The caller must not modify
// the returned slice.
func (f *Frame) Columns() []string {
	return f.cols
}

// HasColumn reports whether the named column exists.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.data[name]
	return ok
}

// At returns the cell at row i of the named column. A missing column
// reads as null.
func (f *Frame) At(i int, col string) Value {
	vals, ok := f.data[col]
	if !ok || i < 0 || i >= len(vals) {
		return Null()
	}
	return vals[i]
}

// Set overwrites the cell at row i of the named column.
func (f *Frame) Set(i int, col string, v Value) {
	if vals, ok := f.data[col]; ok && i >= 0 && i < len(vals) {
		vals[i] = v
	}
}

// AppendRow adds a row; columns absent from vals are filled with null.
func (f *Frame) AppendRow(vals map[string]Value) {
	for _, c := range f.cols {
		f.data[c] = append(f.data[c], vals[c])
	}
	f.nrows++
}

// AddColumn appends a new column. Its length must match the frame.
func (f *Frame) AddColumn(name string, vals []Value) error {
	if f.HasColumn(name) {
		return errors.Newf("dataset: column %q already exists", name)
	}
	if len(vals) != f.nrows {
		return errors.NewDimensionError("Frame.AddColumn", f.nrows, len(vals), 0)
	}
	f.cols = append(f.cols, name)
	f.data[name] = append([]Value(nil), vals...)
	return nil
}

// ColumnValues returns a copy of the named column, or nil if absent.
func (f *Frame) ColumnValues(name string) []Value {
	vals, ok := f.data[name]
	if !ok {
		return nil
	}
	return append([]Value(nil), vals...)
}

// Rename changes a column's name in place. Renaming a missing column is
// a no-op; renaming onto an existing name is rejected.
func (f *Frame) Rename(from, to string) error {
	if from == to || !f.HasColumn(from) {
		return nil
	}
	if f.HasColumn(to) {
		return errors.Newf("dataset: cannot rename %q to existing column %q", from, to)
	}
	for i, c := range f.cols {
		if c == from {
			f.cols[i] = to
		}
	}
	f.data[to] = f.data[from]
	delete(f.data, from)
	return nil
}

// Select returns a new frame restricted to the listed columns, in the
// listed order. Columns that do not exist are skipped.
func (f *Frame) Select(cols ...string) *Frame {
	var present []string
	for _, c := range cols {
		if f.HasColumn(c) {
			present = append(present, c)
		}
	}
	out := New(present...)
	out.nrows = f.nrows
	for _, c := range present {
		out.data[c] = append([]Value(nil), f.data[c]...)
	}
	return out
}

// Copy returns a deep copy of the frame.
func (f *Frame) Copy() *Frame {
	return f.Select(f.cols...)
}

// Filter returns a new frame holding the rows for which keep returns true.
func (f *Frame) Filter(keep func(row int) bool) *Frame {
	out := New(f.cols...)
	for i := 0; i < f.nrows; i++ {
		if !keep(i) {
			continue
		}
		row := make(map[string]Value, len(f.cols))
		for _, c := range f.cols {
			row[c] = f.data[c][i]
		}
		out.AppendRow(row)
	}
	return out
}

// CoerceNumeric converts every cell of the named column with Value.Coerce.
func (f *Frame) CoerceNumeric(col string) {
	vals, ok := f.data[col]
	if !ok {
		return
	}
	for i := range vals {
		vals[i] = vals[i].Coerce()
	}
}

// rowKey builds a canonical key over the given columns for joining and
// duplicate detection. \x1f separates fields; it cannot appear in data.
func (f *Frame) rowKey(i int, cols []string) string {
	var b strings.Builder
	for j, c := range cols {
		if j > 0 {
			b.WriteByte(0x1f)
		}
		b.WriteString(f.At(i, c).Display())
	}
	return b.String()
}

// DropDuplicates returns a new frame with exact duplicate rows removed,
// keeping the first occurrence.
func (f *Frame) DropDuplicates() *Frame {
	seen := make(map[string]struct{}, f.nrows)
	return f.Filter(func(i int) bool {
		k := f.rowKey(i, f.cols)
		if _, dup := seen[k]; dup {
			return false
		}
		seen[k] = struct{}{}
		return true
	})
}

// DropNullRows returns a new frame without the rows that are null in any
// of the given columns.
func (f *Frame) DropNullRows(cols ...string) *Frame {
	return f.Filter(func(i int) bool {
		for _, c := range cols {
			if f.At(i, c).IsNull() {
				return false
			}
		}
		return true
	})
}

// LeftJoin joins right onto f using the key columns. Every row of f
// appears at least once; a key matching several right rows fans out into
// several output rows, and an unmatched key leaves the right columns
// null. Non-key right columns colliding with existing names get suffix
// appended.
func (f *Frame) LeftJoin(right *Frame, keys []string, suffix string) (*Frame, error) {
	for _, k := range keys {
		if !f.HasColumn(k) {
			return nil, errors.NewColumnError(k, "join key", f.cols)
		}
		if !right.HasColumn(k) {
			return nil, errors.NewColumnError(k, "join key", right.cols)
		}
	}

	// Resolve right-hand output column names.
	var rightCols, outNames []string
	for _, c := range right.cols {
		isKey := false
		for _, k := range keys {
			if c == k {
				isKey = true
				break
			}
		}
		if isKey {
			continue
		}
		name := c
		if f.HasColumn(name) {
			name += suffix
		}
		rightCols = append(rightCols, c)
		outNames = append(outNames, name)
	}

	index := make(map[string][]int, right.nrows)
	for i := 0; i < right.nrows; i++ {
		k := right.rowKey(i, keys)
		index[k] = append(index[k], i)
	}

	out := New(append(append([]string(nil), f.cols...), outNames...)...)
	for i := 0; i < f.nrows; i++ {
		base := make(map[string]Value, len(out.cols))
		for _, c := range f.cols {
			base[c] = f.data[c][i]
		}
		matches := index[f.rowKey(i, keys)]
		if len(matches) == 0 {
			out.AppendRow(base)
			continue
		}
		for _, m := range matches {
			row := make(map[string]Value, len(out.cols))
			for k, v := range base {
				row[k] = v
			}
			for j, c := range rightCols {
				row[outNames[j]] = right.data[c][m]
			}
			out.AppendRow(row)
		}
	}
	return out, nil
}

// Matrix assembles the listed columns into a dense matrix. Null and
// non-numeric cells become NaN.
func (f *Frame) Matrix(cols []string) (*mat.Dense, error) {
	if f.nrows == 0 || len(cols) == 0 {
		return nil, errors.ErrEmptyData
	}
	for _, c := range cols {
		if !f.HasColumn(c) {
			return nil, errors.NewColumnError(c, "matrix", f.cols)
		}
	}
	m := mat.NewDense(f.nrows, len(cols), nil)
	for j, c := range cols {
		for i := 0; i < f.nrows; i++ {
			if v, ok := f.data[c][i].Float(); ok {
				m.Set(i, j, v)
			} else {
				m.Set(i, j, math.NaN())
			}
		}
	}
	return m, nil
}
