// Command audiopilot finds mixers on the local network and runs the
// spectrum feed and auto-EQ against one of them.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/audiopilot/audiopilot/config"
	"github.com/audiopilot/audiopilot/logging"
)

var (
	configPath string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:           "audiopilot",
	Short:         "Mixer RTA monitoring and adaptive EQ",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Override the configured log format (json or console)")
	rootCmd.AddCommand(discoverCmd, runCmd, simulateCmd)
}

// setup loads the configuration and builds the logger from it.
func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "audiopilot:", err)
		os.Exit(1)
	}
}
