package export

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/city-pulse/internal/schema"
)

// WriteWorkbook saves tables as one XLSX workbook, one sheet per table named
// after its layout. Cells hold the same text as the CSV export.
func WriteWorkbook(path string, tables []Table) error {
	f := xlsx.NewFile()
	for _, t := range tables {
		sheet, err := f.AddSheet(t.Layout.Name)
		if err != nil {
			return eris.Wrapf(err, "xlsx: add sheet %s", t.Layout.Name)
		}
		addStringRow(sheet, t.Layout.Header())
		for _, row := range t.Rows {
			cells, err := formatRow(t.Layout, row)
			if err != nil {
				return err
			}
			addStringRow(sheet, cells)
		}
	}
	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "xlsx: save %s", path)
	}
	return nil
}

// ReadWorkbook reads every known sheet of a workbook written by
// WriteWorkbook, keyed by sheet name. Unknown sheets are ignored.
func ReadWorkbook(path string) (map[string][][]any, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}

	out := make(map[string][][]any)
	for _, l := range schema.Layouts() {
		sheet, ok := f.Sheet[l.Name]
		if !ok {
			continue
		}
		if len(sheet.Rows) == 0 {
			return nil, eris.Errorf("xlsx: sheet %s is empty", l.Name)
		}
		if err := checkHeader(l, rowToStrings(sheet.Rows[0], len(l.Fields))); err != nil {
			return nil, err
		}
		rows := make([][]any, 0, len(sheet.Rows)-1)
		for i, r := range sheet.Rows[1:] {
			row, err := parseRow(l, rowToStrings(r, len(l.Fields)))
			if err != nil {
				return nil, eris.Wrapf(err, "xlsx: sheet %s row %d", l.Name, i+2)
			}
			rows = append(rows, row)
		}
		out[l.Name] = rows
	}
	return out, nil
}

func addStringRow(sheet *xlsx.Sheet, cells []string) {
	row := sheet.AddRow()
	for _, c := range cells {
		row.AddCell().SetString(c)
	}
}

// rowToStrings pads short rows, since trailing empty cells are not stored.
func rowToStrings(row *xlsx.Row, width int) []string {
	cells := make([]string, max(width, len(row.Cells)))
	for j, cell := range row.Cells {
		cells[j] = cell.Value
	}
	return cells
}
