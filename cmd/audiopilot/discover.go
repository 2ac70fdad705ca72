package main

import (
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var discoverSubnets []string

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Sweep the configured subnets for mixers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		subnets := cfg.Discovery.Subnets
		if len(discoverSubnets) > 0 {
			subnets = discoverSubnets
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		mixers, err := cfg.Scanner(logger).Mixers(ctx, subnets)
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "IP\tINFO")
		for _, m := range mixers {
			fmt.Fprintf(w, "%s\t%s\n", m.IP, m.Info)
		}
		w.Flush()
		if len(mixers) == 0 && err == nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "no mixers found")
		}
		return err
	},
}

func init() {
	discoverCmd.Flags().StringSliceVarP(&discoverSubnets, "subnet", "s", nil, "Subnet prefix to sweep, e.g. 192.168.1 (repeatable)")
}
