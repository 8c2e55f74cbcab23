package main

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/city-pulse/internal/analytics"
	"github.com/sells-group/city-pulse/internal/export"
	"github.com/sells-group/city-pulse/internal/model"
	"github.com/sells-group/city-pulse/internal/store"
)

var (
	reportFrom string
	reportFull bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the city temperature index and hourly trend as JSON",
	Long:  "Reads the configured store, or an export directory with --from, and prints analytics as JSON. --full prints every view.",
	RunE: func(cmd *cobra.Command, args []string) error {
		src, closeFn, err := reportSource(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		rep, err := analytics.NewReporter(src).Report(cmd.Context())
		if err != nil {
			return err
		}
		return writeReport(cmd.OutOrStdout(), rep, reportFull)
	},
}

func reportSource(cmd *cobra.Command) (store.Reader, func(), error) {
	if reportFrom != "" {
		ds, err := readExportDir(reportFrom)
		if err != nil {
			return nil, nil, err
		}
		return store.NewMemory(ds), func() {}, nil
	}

	if err := cfg.Validate("db"); err != nil {
		return nil, nil, err
	}
	st, err := initStore(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		st.Close() //nolint:errcheck
	}
	return st, closeFn, nil
}

// readExportDir loads JSON records when present and falls back to CSV.
func readExportDir(dir string) (*model.Dataset, error) {
	for _, f := range []export.Format{export.FormatJSON, export.FormatCSV, export.FormatXLSX} {
		ds, err := export.ReadDir(dir, f)
		if err != nil {
			continue
		}
		if len(ds.Regions) > 0 {
			return ds, nil
		}
	}
	return nil, eris.Errorf("report: no readable export in %s", dir)
}

func writeReport(w io.Writer, rep *analytics.Report, full bool) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if full {
		return eris.Wrap(enc.Encode(rep), "report: encode")
	}
	return eris.Wrap(enc.Encode(struct {
		Temperature analytics.Temperature   `json:"temperature"`
		Trend       []analytics.HourlyPoint `json:"trend"`
	}{rep.Temperature, rep.Trend}), "report: encode")
}

func init() {
	reportCmd.Flags().StringVar(&reportFrom, "from", "", "read an export directory instead of the store")
	reportCmd.Flags().BoolVar(&reportFull, "full", false, "print every analytics view")
	rootCmd.AddCommand(reportCmd)
}
