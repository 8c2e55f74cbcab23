package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/city-pulse/internal/config"
)

var cfg *config.Config

var (
	configFile  string
	driverFlag  string
	logLevelArg string
)

var rootCmd = &cobra.Command{
	Use:   "city-pulse",
	Short: "Synthetic city dataset generator and dashboard analytics",
	Long:  "Generates a synthetic city of regions, dining and leisure venues, hourly signals, and alerts. The dataset is loaded into PostGIS or SQLite or exported to files, and chart-ready analytics are served over HTTP.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.LoadFile(configFile)
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		applyGlobalFlags(cmd, c)
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}
		zap.L().Debug("config loaded",
			zap.String("command", cmd.Name()),
			zap.String("driver", cfg.Store.Driver),
			zap.String("config_file", configFile),
		)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

// applyGlobalFlags lets --driver and --log-level win over file and env.
func applyGlobalFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("driver") {
		c.Store.Driver = driverFlag
	}
	if flags.Changed("log-level") {
		c.Log.Level = logLevelArg
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "YAML config file (default ./config.yaml if present)")
	pf.StringVar(&driverFlag, "driver", "", "store driver: postgres or sqlite")
	pf.StringVar(&logLevelArg, "log-level", "", "debug, info, warn, or error")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
