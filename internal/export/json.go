package export

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/city-pulse/internal/schema"
)

// WriteJSON writes rows as an array of flat objects with keys in layout
// order. Null values are written as JSON null and string lists as arrays.
func WriteJSON(w io.Writer, l schema.Layout, rows [][]any) error {
	keys := make([][]byte, len(l.Fields))
	for i, f := range l.Fields {
		keys[i], _ = json.Marshal(f.Name)
	}

	// bufio.Writer errors are sticky and surface from Flush.
	bw := bufio.NewWriter(w)
	bw.WriteString("[")
	for i, row := range rows {
		if len(row) != len(l.Fields) {
			return eris.Errorf("export: %s row has %d values, want %d", l.Name, len(row), len(l.Fields))
		}
		if i > 0 {
			bw.WriteString(",")
		}
		bw.WriteString("\n  {")
		for j, f := range l.Fields {
			v, err := f.Kind.JSONValue(row[j])
			if err != nil {
				return eris.Wrapf(err, "export: %s field %s", l.Name, f.Name)
			}
			data, err := json.Marshal(v)
			if err != nil {
				return eris.Wrapf(err, "export: marshal %s field %s", l.Name, f.Name)
			}
			if j > 0 {
				bw.WriteString(", ")
			}
			bw.Write(keys[j])
			bw.WriteString(": ")
			bw.Write(data)
		}
		bw.WriteString("}")
	}
	if len(rows) > 0 {
		bw.WriteString("\n")
	}
	bw.WriteString("]\n")
	return eris.Wrapf(bw.Flush(), "export: write %s json", l.Name)
}

// ReadJSON reads records written by WriteJSON. Missing keys read as null and
// unknown keys are ignored.
func ReadJSON(r io.Reader, l schema.Layout) ([][]any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var records []map[string]any
	if err := dec.Decode(&records); err != nil {
		return nil, eris.Wrapf(err, "export: decode %s json", l.Name)
	}

	rows := make([][]any, 0, len(records))
	for i, rec := range records {
		row := make([]any, len(l.Fields))
		for j, f := range l.Fields {
			v, err := f.Kind.FromJSON(rec[f.Name])
			if err != nil {
				return nil, eris.Wrapf(err, "export: %s record %d field %s", l.Name, i+1, f.Name)
			}
			row[j] = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}
