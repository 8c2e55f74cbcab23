// Package schema declares, per entity kind, the SQL table layout and the
// tabular sheet layout used by the loader and the exporters. Field order is
// explicit; nothing is derived from struct reflection.
package schema

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/city-pulse/internal/model"
)

// Kind is the value type of a tabular field.
type Kind int

// Field kinds. Nullable kinds carry nil for absent values.
const (
	KindInt Kind = iota
	KindFloat
	KindString
	KindBool
	KindDate
	KindTimestamp
	KindNullableInt
	KindNullableString
	KindStringList
)

var kindNames = map[Kind]string{
	KindInt:            "int",
	KindFloat:          "float",
	KindString:         "string",
	KindBool:           "bool",
	KindDate:           "date",
	KindTimestamp:      "timestamp",
	KindNullableInt:    "nullable_int",
	KindNullableString: "nullable_string",
	KindStringList:     "string_list",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Field is one named column of a sheet.
type Field struct {
	Name string
	Kind Kind
}

// Format renders v as a tabular cell. nil renders as the empty string.
func (k Kind) Format(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	switch k {
	case KindInt, KindNullableInt:
		n, ok := v.(int)
		if !ok {
			return "", typeError(k, v)
		}
		return strconv.Itoa(n), nil
	case KindFloat:
		f, ok := v.(float64)
		if !ok {
			return "", typeError(k, v)
		}
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	case KindString, KindNullableString:
		s, ok := v.(string)
		if !ok {
			return "", typeError(k, v)
		}
		return s, nil
	case KindBool:
		b, ok := v.(bool)
		if !ok {
			return "", typeError(k, v)
		}
		return strconv.FormatBool(b), nil
	case KindDate, KindTimestamp:
		t, ok := v.(time.Time)
		if !ok {
			return "", typeError(k, v)
		}
		return t.Format(k.layout()), nil
	case KindStringList:
		list, ok := v.([]string)
		if !ok {
			return "", typeError(k, v)
		}
		data, err := json.Marshal(list)
		if err != nil {
			return "", eris.Wrap(err, "schema: marshal string list")
		}
		return string(data), nil
	}
	return "", eris.Errorf("schema: unknown kind %s", k)
}

// Parse reads a tabular cell back into the value type of k. Empty cells
// parse to nil for nullable kinds and to an empty list for string lists.
func (k Kind) Parse(s string) (any, error) {
	switch k {
	case KindNullableInt, KindNullableString:
		if s == "" {
			return nil, nil
		}
	case KindStringList:
		if s == "" {
			return []string{}, nil
		}
	}

	switch k {
	case KindInt, KindNullableInt:
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, eris.Wrapf(err, "schema: parse %s %q", k, s)
		}
		return n, nil
	case KindFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, eris.Wrapf(err, "schema: parse %s %q", k, s)
		}
		return f, nil
	case KindString, KindNullableString:
		return s, nil
	case KindBool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, eris.Wrapf(err, "schema: parse %s %q", k, s)
		}
		return b, nil
	case KindDate, KindTimestamp:
		t, err := time.ParseInLocation(k.layout(), s, time.Local)
		if err != nil {
			return nil, eris.Wrapf(err, "schema: parse %s %q", k, s)
		}
		return t, nil
	case KindStringList:
		var list []string
		if err := json.Unmarshal([]byte(s), &list); err != nil {
			return nil, eris.Wrapf(err, "schema: parse %s %q", k, s)
		}
		return list, nil
	}
	return nil, eris.Errorf("schema: unknown kind %s", k)
}

// JSONValue converts v to the value written into a JSON record. Dates and
// timestamps become their tabular text form; everything else passes through.
func (k Kind) JSONValue(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch k {
	case KindDate, KindTimestamp:
		return k.Format(v)
	}
	return v, nil
}

// FromJSON converts a value decoded with json.Decoder.UseNumber back into the
// value type of k.
func (k Kind) FromJSON(v any) (any, error) {
	if v == nil {
		switch k {
		case KindNullableInt, KindNullableString:
			return nil, nil
		case KindStringList:
			return []string{}, nil
		}
		return nil, eris.Errorf("schema: null value for %s", k)
	}

	switch x := v.(type) {
	case json.Number:
		return k.Parse(x.String())
	case string:
		if k == KindStringList {
			return nil, typeError(k, v)
		}
		return k.Parse(x)
	case bool:
		if k != KindBool {
			return nil, typeError(k, v)
		}
		return x, nil
	case []any:
		if k != KindStringList {
			return nil, typeError(k, v)
		}
		list := make([]string, 0, len(x))
		for _, item := range x {
			s, ok := item.(string)
			if !ok {
				return nil, typeError(k, item)
			}
			list = append(list, s)
		}
		return list, nil
	}
	return nil, typeError(k, v)
}

func (k Kind) layout() string {
	if k == KindDate {
		return model.DateLayout
	}
	return model.TimestampLayout
}

func typeError(k Kind, v any) error {
	return eris.Errorf("schema: %T is not a valid %s value", v, k)
}
