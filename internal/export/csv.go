package export

import (
	"encoding/csv"
	"errors"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/city-pulse/internal/schema"
)

// WriteCSV writes a header row followed by rows. Null values are empty cells.
func WriteCSV(w io.Writer, l schema.Layout, rows [][]any) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(l.Header()); err != nil {
		return eris.Wrapf(err, "export: write %s header", l.Name)
	}
	for _, row := range rows {
		cells, err := formatRow(l, row)
		if err != nil {
			return err
		}
		if err := cw.Write(cells); err != nil {
			return eris.Wrapf(err, "export: write %s row", l.Name)
		}
	}
	cw.Flush()
	return eris.Wrapf(cw.Error(), "export: flush %s", l.Name)
}

// ReadCSV reads rows written by WriteCSV. The header must match the layout
// exactly.
func ReadCSV(r io.Reader, l schema.Layout) ([][]any, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(l.Fields)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, eris.Errorf("export: %s is empty", l.Name)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "export: read %s header", l.Name)
	}
	if err := checkHeader(l, header); err != nil {
		return nil, err
	}

	rows := make([][]any, 0)
	for line := 2; ; line++ {
		cells, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "export: read %s line %d", l.Name, line)
		}
		row, err := parseRow(l, cells)
		if err != nil {
			return nil, eris.Wrapf(err, "line %d", line)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
