// Package export writes city datasets to tabular and structured files and
// reads them back. Every format is driven by the schema sheet layouts, so
// cell types come from declared field kinds and never from content sniffing.
package export

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/city-pulse/internal/model"
	"github.com/sells-group/city-pulse/internal/schema"
)

// Table is one sheet layout with its encoded rows.
type Table struct {
	Layout schema.Layout
	Rows   [][]any
}

// Tabulate encodes every collection of ds in load order.
func Tabulate(ds *model.Dataset) []Table {
	return []Table{
		{schema.RegionSheet.Layout, schema.RegionSheet.Rows(ds.Regions)},
		{schema.BrandSheet.Layout, schema.BrandSheet.Rows(ds.Brands)},
		{schema.DiningSheet.Layout, schema.DiningSheet.Rows(ds.DiningVenues)},
		{schema.LeisureSheet.Layout, schema.LeisureSheet.Rows(ds.LeisureVenues)},
		{schema.SignalSheet.Layout, schema.SignalSheet.Rows(ds.Signals)},
		{schema.AlertSheet.Layout, schema.AlertSheet.Rows(ds.Alerts)},
	}
}

// Assemble decodes rows keyed by sheet name into a dataset. Missing sheets
// yield empty collections.
func Assemble(rows map[string][][]any) (*model.Dataset, error) {
	var ds model.Dataset
	var err error
	if ds.Regions, err = schema.RegionSheet.Parse(rows[schema.TableRegions]); err != nil {
		return nil, eris.Wrap(err, "export: assemble")
	}
	if ds.Brands, err = schema.BrandSheet.Parse(rows[schema.TableBrands]); err != nil {
		return nil, eris.Wrap(err, "export: assemble")
	}
	if ds.DiningVenues, err = schema.DiningSheet.Parse(rows[schema.TableDiningVenues]); err != nil {
		return nil, eris.Wrap(err, "export: assemble")
	}
	if ds.LeisureVenues, err = schema.LeisureSheet.Parse(rows[schema.TableLeisureVenues]); err != nil {
		return nil, eris.Wrap(err, "export: assemble")
	}
	if ds.Signals, err = schema.SignalSheet.Parse(rows[schema.TableSignals]); err != nil {
		return nil, eris.Wrap(err, "export: assemble")
	}
	if ds.Alerts, err = schema.AlertSheet.Parse(rows[schema.TableAlerts]); err != nil {
		return nil, eris.Wrap(err, "export: assemble")
	}
	return &ds, nil
}

// formatRow renders one row as text cells.
func formatRow(l schema.Layout, row []any) ([]string, error) {
	if len(row) != len(l.Fields) {
		return nil, eris.Errorf("export: %s row has %d values, want %d", l.Name, len(row), len(l.Fields))
	}
	cells := make([]string, len(row))
	for i, f := range l.Fields {
		s, err := f.Kind.Format(row[i])
		if err != nil {
			return nil, eris.Wrapf(err, "export: %s field %s", l.Name, f.Name)
		}
		cells[i] = s
	}
	return cells, nil
}

// parseRow types text cells by field kind.
func parseRow(l schema.Layout, cells []string) ([]any, error) {
	if len(cells) != len(l.Fields) {
		return nil, eris.Errorf("export: %s row has %d cells, want %d", l.Name, len(cells), len(l.Fields))
	}
	row := make([]any, len(cells))
	for i, f := range l.Fields {
		v, err := f.Kind.Parse(cells[i])
		if err != nil {
			return nil, eris.Wrapf(err, "export: %s field %s", l.Name, f.Name)
		}
		row[i] = v
	}
	return row, nil
}

func checkHeader(l schema.Layout, header []string) error {
	want := l.Header()
	if len(header) != len(want) {
		return eris.Errorf("export: %s header has %d columns, want %d", l.Name, len(header), len(want))
	}
	for i := range want {
		if header[i] != want[i] {
			return eris.Errorf("export: %s header column %d is %q, want %q", l.Name, i+1, header[i], want[i])
		}
	}
	return nil
}
