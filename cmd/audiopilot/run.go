package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/audiopilot/audiopilot/plotstream"
	"github.com/audiopilot/audiopilot/session"
)

var (
	runMixer   string
	runChannel int
	runProfile string
	runAutoEQ  bool
	runPlot    string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to a mixer, stream its RTA and optionally run the auto-EQ",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		if runMixer != "" {
			cfg.Mixer.IP = runMixer
		}
		if runChannel != 0 {
			cfg.Mixer.Channel = runChannel
		}
		if runProfile != "" {
			cfg.AutoEQ.Profile = runProfile
		}
		if runPlot != "" {
			cfg.Plot.Addr = runPlot
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		ip := cfg.Mixer.IP
		if ip == "" {
			mixers, err := cfg.Scanner(logger).Mixers(ctx, cfg.Discovery.Subnets)
			if err != nil {
				return err
			}
			if len(mixers) == 0 {
				return errors.New("no mixer found; set mixer.ip or --mixer")
			}
			ip = mixers[0].IP
			logger.Info("using first mixer found", zap.String("ip", ip), zap.String("info", mixers[0].Info))
		}

		s, err := session.ChooseMixer(ctx, ip, cfg.Session(logger))
		if err != nil {
			return err
		}
		defer s.Close()

		if ch := cfg.Mixer.Channel; ch != 0 {
			if err := s.SelectChannel(ch); err != nil {
				return err
			}
			if runAutoEQ {
				if err := s.StartAutoEQ(cfg.AutoEQ.Profile); err != nil {
					return err
				}
			}
		} else if runAutoEQ {
			return fmt.Errorf("--autoeq needs a channel: %w", session.ErrNoChannel)
		}

		g, ctx := errgroup.WithContext(ctx)
		if cfg.Plot.Addr != "" {
			plot := plotstream.New(s.Feed(), logger)
			g.Go(func() error { return plot.ListenAndServe(ctx, cfg.Plot.Addr) })
		}
		g.Go(func() error {
			report(ctx, s, logger)
			return nil
		})
		return g.Wait()
	},
}

func init() {
	runCmd.Flags().StringVarP(&runMixer, "mixer", "m", "", "Mixer IP; discovered when empty")
	runCmd.Flags().IntVar(&runChannel, "channel", 0, "Channel to analyse (1-32)")
	runCmd.Flags().StringVarP(&runProfile, "profile", "p", "", "Auto-EQ profile")
	runCmd.Flags().BoolVar(&runAutoEQ, "autoeq", false, "Run the auto-EQ on the channel")
	runCmd.Flags().StringVar(&runPlot, "plot", "", "Serve the plot stream on this address, e.g. :8080")
}

// report logs the channel state and ingest counters every few seconds.
func report(ctx context.Context, s *session.Session, logger *zap.Logger) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		st := s.Channel()
		frames, rejected := s.Ingest().Stats()
		fields := []zap.Field{
			zap.Int("channel", st.Number),
			zap.Uint64("frames", frames),
			zap.Uint64("rejected", rejected),
			zap.Uint64("feed_drops", s.Feed().Drops()),
			zap.Bool("autoeq", s.AutoEQRunning()),
			zap.Bool("muted", st.Muted),
		}
		if st.HaveFader {
			fields = append(fields, zap.Float64("fader_db", st.FaderDB))
		}
		if st.HaveTrim {
			fields = append(fields, zap.Float64("trim_db", st.TrimDB))
		}
		logger.Info("status", fields...)
	}
}
