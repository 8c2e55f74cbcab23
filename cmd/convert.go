package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/city-pulse/internal/export"
	"github.com/sells-group/city-pulse/internal/schema"
)

var convertOut string

var convertCmd = &cobra.Command{
	Use:   "convert <csv-dir>",
	Short: "Convert exported CSV tables to JSON records",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dst := convertOut
		if dst == "" {
			dst = args[0]
		}
		counts, err := export.ConvertDir(args[0], dst)
		if err != nil {
			return err
		}
		for _, table := range schema.LoadOrder {
			if n, ok := counts[table]; ok {
				fmt.Fprintf(cmd.OutOrStdout(), "%s.json: %d records\n", table, n)
			}
		}
		return nil
	},
}

func init() {
	convertCmd.Flags().StringVarP(&convertOut, "out", "o", "", "output directory (default: the input directory)")
	rootCmd.AddCommand(convertCmd)
}
