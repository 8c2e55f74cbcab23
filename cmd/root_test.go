package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/city-pulse/internal/config"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"generate", "migrate", "convert", "report", "serve"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "city-pulse", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestGenerateCommand_Flags(t *testing.T) {
	for _, name := range []string{"format", "clear", "seed", "dining", "leisure", "days", "alerts", "batch-size", "profile", "out"} {
		assert.NotNil(t, generateCmd.Flags().Lookup(name), "generate should have --%s", name)
	}
	clearFlag := generateCmd.Flags().Lookup("clear")
	require.NotNil(t, clearFlag)
	assert.Equal(t, "false", clearFlag.DefValue)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestReportCommand_Flags(t *testing.T) {
	assert.NotNil(t, reportCmd.Flags().Lookup("from"))
	assert.NotNil(t, reportCmd.Flags().Lookup("full"))
}

func TestConvertCommand_RequiresDir(t *testing.T) {
	assert.Error(t, convertCmd.Args(convertCmd, nil))
	assert.NoError(t, convertCmd.Args(convertCmd, []string{"data"}))
}

func TestRootCommand_PersistentFlags(t *testing.T) {
	for _, name := range []string{"config", "driver", "log-level"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), "root should have --%s", name)
	}
}

func TestApplyGlobalFlags(t *testing.T) {
	c := &config.Config{
		Store: config.StoreConfig{Driver: "postgres"},
		Log:   config.LogConfig{Level: "info"},
	}

	cmd := &cobra.Command{Use: "generate"}
	cmd.Flags().StringVar(&driverFlag, "driver", "", "")
	cmd.Flags().StringVar(&logLevelArg, "log-level", "", "")

	applyGlobalFlags(cmd, c)
	assert.Equal(t, "postgres", c.Store.Driver)

	require.NoError(t, cmd.Flags().Set("driver", "sqlite"))
	require.NoError(t, cmd.Flags().Set("log-level", "debug"))
	applyGlobalFlags(cmd, c)
	assert.Equal(t, "sqlite", c.Store.Driver)
	assert.Equal(t, "debug", c.Log.Level)
}
