// Package session ties one mixer to the rest of the module. A Session owns
// the UDP socket shared by outgoing commands and incoming replies, keeps the
// mixer streaming RTA data, feeds that data into a spectrum store and runs
// the auto-EQ engine for the selected channel.
package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/audiopilot/audiopilot/autoeq"
	"github.com/audiopilot/audiopilot/codec"
	"github.com/audiopilot/audiopilot/osc"
	"github.com/audiopilot/audiopilot/spectrum"
)

// ErrNoChannel is returned by operations that need a selected channel.
var ErrNoChannel = errors.New("session: no channel selected")

// Config describes how to reach a mixer and what to run against it.
type Config struct {
	// Port is the mixer's control port.
	Port int
	// ListenAddr is the local address of the session socket. Replies and
	// meter data arrive on the same socket commands leave from.
	ListenAddr string
	GainOffset float64
	Keeper     KeeperConfig
	EQ         autoeq.Options
	Logger     *zap.Logger
}

// DefaultConfig returns the settings for a console on its standard port.
func DefaultConfig() Config {
	return Config{
		Port:       10023,
		ListenAddr: ":10024",
		GainOffset: spectrum.DefaultGainOffset,
		Keeper:     DefaultKeeperConfig(),
	}
}

// Session is a live connection to one mixer.
type Session struct {
	ID uuid.UUID

	mixer  net.Addr
	conn   net.PacketConn
	client *osc.Client
	logger *zap.Logger

	store  *spectrum.Store
	feed   *spectrum.Feed
	ingest *spectrum.Ingest
	engine *autoeq.Engine
	keeper *Keeper

	cancel context.CancelFunc
	served chan error

	mu    sync.Mutex
	state ChannelState
}

// ChooseMixer opens a session to the mixer at ip. The session runs until
// Close is called or ctx ends.
func ChooseMixer(ctx context.Context, ip string, cfg Config) (*Session, error) {
	if cfg.Port == 0 {
		cfg.Port = DefaultConfig().Port
	}
	if cfg.Keeper == (KeeperConfig{}) {
		cfg.Keeper = DefaultKeeperConfig()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	mixer, err := net.ResolveUDPAddr("udp", net.JoinHostPort(ip, strconv.Itoa(cfg.Port)))
	if err != nil {
		return nil, fmt.Errorf("session: resolving mixer: %w", err)
	}
	conn, err := net.ListenPacket("udp", cfg.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("session: opening socket: %w", err)
	}

	id := uuid.New()
	logger = logger.With(zap.String("session", id.String()), zap.String("mixer", mixer.String()))
	client := osc.NewClient(conn, mixer)

	keeper, err := NewKeeper(client, cfg.Keeper, logger)
	if err != nil {
		conn.Close()
		return nil, err
	}

	store := spectrum.NewStore(nil)
	feed := spectrum.NewFeed()
	eqOpts := cfg.EQ
	eqOpts.Logger = logger

	s := &Session{
		ID:     id,
		mixer:  mixer,
		conn:   conn,
		client: client,
		logger: logger.With(zap.String("component", "session")),
		store:  store,
		feed:   feed,
		ingest: spectrum.NewIngest(store, feed, cfg.GainOffset, logger),
		engine: autoeq.New(store, client, eqOpts),
		keeper: keeper,
		served: make(chan error, 1),
	}

	d := &osc.Dispatcher{Default: osc.MethodFunc(s.handleParameter)}
	if err := d.AddMethod(cfg.Keeper.MeterAlias, s.ingest); err != nil {
		conn.Close()
		return nil, err
	}
	if err := d.AddMethodFunc(codec.AddrInfo, s.handleInfo); err != nil {
		conn.Close()
		return nil, err
	}

	ctx, s.cancel = context.WithCancel(ctx)
	srv := &osc.Server{Dispatcher: d, Logger: logger}
	go func() { s.served <- srv.Serve(conn) }()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	keeper.Run(ctx)
	if err := client.Send(codec.InfoProbe()); err != nil {
		s.logger.Warn("info probe failed", zap.Error(err))
	}
	s.logger.Info("session opened", zap.String("local", conn.LocalAddr().String()))
	return s, nil
}

// MixerAddr returns the mixer's address.
func (s *Session) MixerAddr() net.Addr { return s.mixer }

// LocalAddr returns the address of the session socket.
func (s *Session) LocalAddr() net.Addr { return s.conn.LocalAddr() }

// Store returns the spectrum store filled from the mixer's RTA.
func (s *Session) Store() *spectrum.Store { return s.store }

// Feed returns the newest-wins feed of spectrum snapshots.
func (s *Session) Feed() *spectrum.Feed { return s.feed }

// Ingest returns the meter ingest, for its counters.
func (s *Session) Ingest() *spectrum.Ingest { return s.ingest }

// Profiles lists the auto-EQ profiles StartAutoEQ accepts.
func (s *Session) Profiles() []string { return s.engine.Profiles() }

// SelectChannel points the RTA at channel and starts monitoring it. The
// spectrum history of the previous channel is dropped. A running auto-EQ
// moves to the new channel.
func (s *Session) SelectChannel(channel int) error {
	msg, err := codec.SetRTASource(channel)
	if err != nil {
		return err
	}
	if err := s.client.Send(msg); err != nil {
		return fmt.Errorf("session: selecting channel %d: %w", channel, err)
	}

	s.mu.Lock()
	s.state = ChannelState{Number: channel}
	s.mu.Unlock()

	s.store.Reset()
	s.keeper.Monitor(channel)

	if profile, _, ok := s.engine.Active(); ok {
		s.engine.Stop()
		if err := s.engine.Start(profile, channel); err != nil {
			return err
		}
	}
	s.logger.Info("channel selected", zap.Int("channel", channel))
	return nil
}

// StartAutoEQ runs the auto-EQ on the selected channel with the named
// profile. While the auto-EQ is already running it does nothing; stop it
// first to change the profile.
func (s *Session) StartAutoEQ(profile string) error {
	s.mu.Lock()
	channel := s.state.Number
	s.mu.Unlock()
	if channel == 0 {
		return ErrNoChannel
	}
	return s.engine.Start(profile, channel)
}

// AutoEQProfile returns the profile the running auto-EQ applies. ok is false
// when it is stopped.
func (s *Session) AutoEQProfile() (profile string, ok bool) {
	profile, _, ok = s.engine.Active()
	return profile, ok
}

// StopAutoEQ stops the auto-EQ. The EQ settings already sent stay on the
// mixer.
func (s *Session) StopAutoEQ() {
	s.engine.Stop()
}

// AutoEQRunning reports whether the auto-EQ loop is active.
func (s *Session) AutoEQRunning() bool {
	return s.engine.Running()
}

// SetMute switches the selected channel off or back on.
func (s *Session) SetMute(muted bool) error {
	s.mu.Lock()
	channel := s.state.Number
	s.mu.Unlock()
	if channel == 0 {
		return ErrNoChannel
	}

	msg, err := codec.Mute(channel, muted)
	if err != nil {
		return err
	}
	if err := s.client.Send(msg); err != nil {
		return fmt.Errorf("session: muting channel %d: %w", channel, err)
	}
	s.mu.Lock()
	if s.state.Number == channel {
		s.state.Muted = muted
	}
	s.mu.Unlock()
	return nil
}

// Close stops the auto-EQ and the keeper and closes the socket.
func (s *Session) Close() error {
	s.engine.Stop()
	s.cancel()
	s.keeper.Wait()

	select {
	case err := <-s.served:
		s.served <- err
		if err != nil {
			return err
		}
	case <-time.After(time.Second):
		return fmt.Errorf("session: receive loop did not stop")
	}
	s.logger.Info("session closed")
	return nil
}

func (s *Session) handleInfo(msg *osc.Message) {
	s.logger.Info("mixer identified", zap.String("info", msg.String()))
}
