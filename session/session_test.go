package session

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/audiopilot/audiopilot/autoeq"
	"github.com/audiopilot/audiopilot/codec"
	"github.com/audiopilot/audiopilot/internal/mixersim"
)

func startSession(t *testing.T) (*Session, *mixersim.Mixer) {
	t.Helper()
	sim, err := mixersim.Listen("127.0.0.1:0", mixersim.Options{MeterInterval: 10 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	simCtx, stopSim := context.WithCancel(context.Background())
	go func() { _ = sim.Serve(simCtx) }()

	cfg := DefaultConfig()
	cfg.Port = sim.Addr().(*net.UDPAddr).Port
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.Keeper = fastKeeper()
	cfg.EQ = autoeq.Options{Period: 10 * time.Millisecond}

	s, err := ChooseMixer(context.Background(), "127.0.0.1", cfg)
	if err != nil {
		stopSim()
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close() = %v", err)
		}
		stopSim()
		sim.Close()
	})
	return s, sim
}

func TestSession_StreamsSpectrum(t *testing.T) {
	s, sim := startSession(t)

	waitFor(t, "subscription", func() bool { return sim.Subscribers() == 1 })
	waitFor(t, "info probe", func() bool { return len(sim.Received(codec.AddrInfo)) == 1 })

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	snap, err := s.Feed().Next(ctx)
	if err != nil {
		t.Fatalf("no spectrum frame: %v", err)
	}
	if len(snap.Bins) != 100 {
		t.Errorf("snapshot has %d bins, want 100", len(snap.Bins))
	}
	if frames, _ := s.Ingest().Stats(); frames == 0 {
		t.Error("ingest counted no frames")
	}
	if s.ID.String() == "" {
		t.Error("session has no ID")
	}
}

func TestSession_ChannelAndAutoEQ(t *testing.T) {
	s, sim := startSession(t)

	if err := s.StartAutoEQ(autoeq.MidPitch); !errors.Is(err, ErrNoChannel) {
		t.Errorf("StartAutoEQ() before SelectChannel = %v, want ErrNoChannel", err)
	}
	if err := s.SetMute(true); !errors.Is(err, ErrNoChannel) {
		t.Errorf("SetMute() before SelectChannel = %v, want ErrNoChannel", err)
	}
	if err := s.SelectChannel(0); !errors.Is(err, codec.ErrChannelRange) {
		t.Errorf("SelectChannel(0) = %v", err)
	}

	sim.Set(codec.FaderAddress(3), float32(0.75))
	sim.Set(codec.TrimAddress(3), float32(0.5))
	if err := s.SelectChannel(3); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "rta source", func() bool {
		msgs := sim.Received(codec.AddrSetRTASource)
		return len(msgs) == 1 && msgs[0].Arguments[0] == int32(2)
	})
	waitFor(t, "fader and trim", func() bool {
		st := s.Channel()
		return st.HaveFader && st.HaveTrim
	})
	if st := s.Channel(); st.Number != 3 || st.FaderDB != 0 || st.TrimDB != 0 {
		t.Errorf("Channel() = %+v", st)
	}

	if err := s.StartAutoEQ("Whistle"); !errors.Is(err, autoeq.ErrInvalidProfile) {
		t.Errorf("StartAutoEQ(unknown) = %v", err)
	}
	if err := s.StartAutoEQ(autoeq.MidPitch); err != nil {
		t.Fatal(err)
	}
	if !s.AutoEQRunning() {
		t.Error("auto-EQ not running")
	}
	waitFor(t, "eq commands", func() bool { return len(sim.Received(codec.EQAddress(3, 1))) > 0 })

	s.StopAutoEQ()
	if s.AutoEQRunning() {
		t.Error("auto-EQ still running")
	}

	if err := s.SetMute(true); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "mute", func() bool {
		v, ok := sim.Param(codec.MuteAddress(3))
		return ok && v == int32(0)
	})
	if !s.Channel().Muted {
		t.Error("Channel().Muted = false after SetMute(true)")
	}
}

func TestSession_SwitchChannelWhileRunning(t *testing.T) {
	s, sim := startSession(t)

	if err := s.SelectChannel(1); err != nil {
		t.Fatal(err)
	}
	if err := s.StartAutoEQ(autoeq.HighPitch); err != nil {
		t.Fatal(err)
	}
	if err := s.SelectChannel(7); err != nil {
		t.Fatal(err)
	}
	if !s.AutoEQRunning() {
		t.Fatal("auto-EQ stopped on channel change")
	}
	waitFor(t, "eq on new channel", func() bool {
		for band := 1; band <= codec.NumEQBands; band++ {
			if len(sim.Received(codec.EQAddress(7, band))) > 0 {
				return true
			}
		}
		return false
	})
}

func TestSession_StartWhileRunningKeepsProfile(t *testing.T) {
	s, sim := startSession(t)

	if err := s.SelectChannel(2); err != nil {
		t.Fatal(err)
	}
	if err := s.StartAutoEQ(autoeq.LowPitch); err != nil {
		t.Fatal(err)
	}
	if err := s.StartAutoEQ(autoeq.HighPitch); err != nil {
		t.Fatalf("StartAutoEQ() while running = %v, want nil", err)
	}
	if profile, ok := s.AutoEQProfile(); !ok || profile != autoeq.LowPitch {
		t.Errorf("AutoEQProfile() = %q, %v, want %q, true", profile, ok, autoeq.LowPitch)
	}

	if err := s.SelectChannel(4); err != nil {
		t.Fatal(err)
	}
	if profile, ok := s.AutoEQProfile(); !ok || profile != autoeq.LowPitch {
		t.Errorf("AutoEQProfile() after channel change = %q, %v, want %q, true", profile, ok, autoeq.LowPitch)
	}
	waitFor(t, "eq on channel 4", func() bool {
		return len(sim.Received(codec.EQAddress(4, 1))) > 0
	})

	s.StopAutoEQ()
	if _, ok := s.AutoEQProfile(); ok {
		t.Error("AutoEQProfile() reports a profile after StopAutoEQ()")
	}
}

func TestChooseMixer_BadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.Keeper.RenewInterval = time.Hour
	if _, err := ChooseMixer(context.Background(), "127.0.0.1", cfg); !errors.Is(err, ErrRenewInterval) {
		t.Errorf("ChooseMixer() = %v, want ErrRenewInterval", err)
	}
}
