package export

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/city-pulse/internal/model"
	"github.com/sells-group/city-pulse/internal/schema"
)

// Format is a file export format.
type Format string

// Supported export formats.
const (
	FormatCSV       Format = "csv"
	FormatJSON      Format = "json"
	FormatXLSX      Format = "xlsx"
	FormatShapefile Format = "shp"
)

// AllFormats lists every file format in write order.
var AllFormats = []Format{FormatCSV, FormatJSON, FormatXLSX, FormatShapefile}

// ErrUnknownFormat means a format name is not supported.
var ErrUnknownFormat = eris.New("export: unknown format")

// ParseFormat validates a single format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllFormats {
		if f == known {
			return f, nil
		}
	}
	return "", eris.Wrapf(ErrUnknownFormat, "%q", s)
}

// WorkbookFile is the name of the XLSX export within a directory.
const WorkbookFile = "city.xlsx"

// ManifestFile is the name of the run manifest within a directory.
const ManifestFile = "manifest.json"

// Manifest describes one export run.
type Manifest struct {
	RunID       string         `json:"run_id"`
	GeneratedAt time.Time      `json:"generated_at"`
	Seed        uint64         `json:"seed"`
	Counts      map[string]int `json:"counts"`
	Files       []string       `json:"files"`
}

// WriteDir writes ds to dir in each format and finishes with manifest.json.
// Counts and Files of m are filled in; the other fields are kept.
func WriteDir(dir string, ds *model.Dataset, formats []Format, m Manifest) (*Manifest, error) {
	log := zap.L().With(zap.String("component", "export.dir"), zap.String("dir", dir))

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "export: create %s", dir)
	}

	tables := Tabulate(ds)
	m.Counts = ds.Counts()
	m.Files = nil
	for _, f := range formats {
		var files []string
		var err error
		switch f {
		case FormatCSV:
			files, err = writeEach(dir, tables, ".csv", WriteCSV)
		case FormatJSON:
			files, err = writeEach(dir, tables, ".json", WriteJSON)
		case FormatXLSX:
			path := filepath.Join(dir, WorkbookFile)
			err = WriteWorkbook(path, tables)
			files = []string{path}
		case FormatShapefile:
			files, err = WriteShapefiles(dir, ds)
		default:
			err = eris.Wrapf(ErrUnknownFormat, "%q", f)
		}
		if err != nil {
			return nil, err
		}
		for _, path := range files {
			m.Files = append(m.Files, filepath.Base(path))
		}
		log.Info("exported dataset", zap.String("format", string(f)), zap.Int("files", len(files)))
	}

	if err := writeManifest(filepath.Join(dir, ManifestFile), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func writeEach(dir string, tables []Table, ext string, write func(io.Writer, schema.Layout, [][]any) error) ([]string, error) {
	paths := make([]string, 0, len(tables))
	for _, t := range tables {
		path := filepath.Join(dir, t.Layout.Name+ext)
		if err := writeFile(path, func(w io.Writer) error { return write(w, t.Layout, t.Rows) }); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	if err := write(f); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	return eris.Wrapf(f.Close(), "export: close %s", path)
}

func writeManifest(path string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return eris.Wrap(err, "export: marshal manifest")
	}
	return eris.Wrapf(os.WriteFile(path, append(data, '\n'), 0o644), "export: write %s", path)
}

// ReadManifest reads the manifest of an export directory.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, eris.Wrap(err, "export: read manifest")
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrap(err, "export: decode manifest")
	}
	return &m, nil
}

// ReadDir loads a dataset from the CSV, JSON, or XLSX files of dir. Missing
// per-table files yield empty collections.
func ReadDir(dir string, f Format) (*model.Dataset, error) {
	var rows map[string][][]any
	var err error
	switch f {
	case FormatCSV:
		rows, err = readEach(dir, ".csv", ReadCSV)
	case FormatJSON:
		rows, err = readEach(dir, ".json", ReadJSON)
	case FormatXLSX:
		rows, err = ReadWorkbook(filepath.Join(dir, WorkbookFile))
	default:
		return nil, eris.Wrapf(ErrUnknownFormat, "cannot read %q", f)
	}
	if err != nil {
		return nil, err
	}
	return Assemble(rows)
}

func readEach(dir, ext string, read func(io.Reader, schema.Layout) ([][]any, error)) (map[string][][]any, error) {
	out := make(map[string][][]any)
	for _, l := range schema.Layouts() {
		path := filepath.Join(dir, l.Name+ext)
		rows, err := readFile(path, l, read)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[l.Name] = rows
	}
	return out, nil
}

func readFile(path string, l schema.Layout, read func(io.Reader, schema.Layout) ([][]any, error)) ([][]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck
	rows, err := read(f, l)
	if err != nil {
		return nil, eris.Wrapf(err, "export: read %s", path)
	}
	return rows, nil
}

// ConvertDir converts every <table>.csv in src into <table>.json in dst,
// typed by the sheet layouts. Tables without a CSV file are skipped. It
// returns the record count per converted table.
func ConvertDir(src, dst string) (map[string]int, error) {
	log := zap.L().With(zap.String("component", "export.convert"))

	if err := os.MkdirAll(dst, 0o755); err != nil {
		return nil, eris.Wrapf(err, "export: create %s", dst)
	}

	counts := make(map[string]int)
	for _, l := range schema.Layouts() {
		in := filepath.Join(src, l.Name+".csv")
		rows, err := readFile(in, l, ReadCSV)
		if errors.Is(err, fs.ErrNotExist) {
			log.Debug("no csv for table", zap.String("table", l.Name))
			continue
		}
		if err != nil {
			return nil, err
		}

		out := filepath.Join(dst, l.Name+".json")
		if err := writeFile(out, func(w io.Writer) error { return WriteJSON(w, l, rows) }); err != nil {
			return nil, err
		}
		counts[l.Name] = len(rows)
		log.Info("converted table", zap.String("table", l.Name), zap.Int("records", len(rows)), zap.String("file", out))
	}
	if len(counts) == 0 {
		return nil, eris.Errorf("export: no table csv files in %s", src)
	}
	return counts, nil
}
