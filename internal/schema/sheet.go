package schema

import (
	"time"

	"github.com/rotisserie/eris"
)

// Layout is the untyped shape of a sheet: its file stem and ordered fields.
// Exporters work against a Layout and rows of typed cell values.
type Layout struct {
	Name   string
	Fields []Field
}

// Header returns the field names in order.
func (l Layout) Header() []string {
	names := make([]string, len(l.Fields))
	for i, f := range l.Fields {
		names[i] = f.Name
	}
	return names
}

// Sheet binds a Layout to the entity type it encodes.
type Sheet[T any] struct {
	Layout
	Encode func(T) []any
	Decode func(*Row) T
}

// Rows encodes items in order.
func (s Sheet[T]) Rows(items []T) [][]any {
	out := make([][]any, len(items))
	for i, item := range items {
		out[i] = s.Encode(item)
	}
	return out
}

// Parse decodes rows into entities. Rows must have one value per field, typed
// by the field kinds.
func (s Sheet[T]) Parse(rows [][]any) ([]T, error) {
	out := make([]T, 0, len(rows))
	for i, values := range rows {
		if len(values) != len(s.Fields) {
			return nil, eris.Errorf("schema: %s row %d has %d values, want %d", s.Name, i+1, len(values), len(s.Fields))
		}
		r := &Row{layout: s.Layout, values: values}
		item := s.Decode(r)
		if r.err != nil {
			return nil, eris.Wrapf(r.err, "schema: %s row %d", s.Name, i+1)
		}
		out = append(out, item)
	}
	return out, nil
}

// Row reads typed values out of one decoded row by position. The first type
// mismatch is kept and later reads return zero values.
type Row struct {
	layout Layout
	values []any
	pos    int
	err    error
}

func (r *Row) next() any {
	if r.pos >= len(r.values) {
		r.fail(eris.New("row exhausted"))
		return nil
	}
	v := r.values[r.pos]
	r.pos++
	return v
}

func (r *Row) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *Row) mismatch(v any, want string) {
	name := "?"
	if r.pos-1 < len(r.layout.Fields) {
		name = r.layout.Fields[r.pos-1].Name
	}
	r.fail(eris.Errorf("field %s: got %T, want %s", name, v, want))
}

// Int reads an int.
func (r *Row) Int() int {
	v := r.next()
	n, ok := v.(int)
	if !ok {
		r.mismatch(v, "int")
	}
	return n
}

// Float reads a float64.
func (r *Row) Float() float64 {
	v := r.next()
	f, ok := v.(float64)
	if !ok {
		r.mismatch(v, "float64")
	}
	return f
}

// Text reads a string.
func (r *Row) Text() string {
	v := r.next()
	s, ok := v.(string)
	if !ok {
		r.mismatch(v, "string")
	}
	return s
}

// Bool reads a bool.
func (r *Row) Bool() bool {
	v := r.next()
	b, ok := v.(bool)
	if !ok {
		r.mismatch(v, "bool")
	}
	return b
}

// Time reads a date or timestamp.
func (r *Row) Time() time.Time {
	v := r.next()
	t, ok := v.(time.Time)
	if !ok {
		r.mismatch(v, "time.Time")
	}
	return t
}

// IntPtr reads a nullable int.
func (r *Row) IntPtr() *int {
	v := r.next()
	if v == nil {
		return nil
	}
	n, ok := v.(int)
	if !ok {
		r.mismatch(v, "int")
		return nil
	}
	return &n
}

// TextPtr reads a nullable string.
func (r *Row) TextPtr() *string {
	v := r.next()
	if v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		r.mismatch(v, "string")
		return nil
	}
	return &s
}

// Strings reads a string list.
func (r *Row) Strings() []string {
	v := r.next()
	list, ok := v.([]string)
	if !ok {
		r.mismatch(v, "[]string")
	}
	return list
}
