package main

import (
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/audiopilot/audiopilot/internal/mixersim"
)

var (
	simListen   string
	simInterval time.Duration
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a simulated mixer that streams a synthetic RTA",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		m, err := mixersim.Listen(simListen, mixersim.Options{MeterInterval: simInterval, Logger: logger})
		if err != nil {
			return err
		}
		logger.Info("simulated mixer listening", zap.String("addr", m.Addr().String()))

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return m.Serve(ctx)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simListen, "listen", ":10023", "Address to answer on")
	simulateCmd.Flags().DurationVar(&simInterval, "interval", 50*time.Millisecond, "Time between meter frames")
}
