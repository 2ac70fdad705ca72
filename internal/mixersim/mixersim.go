// Package mixersim is a small stand-in for a networked mixer. It answers
// info probes and parameter queries, honours RTA subscriptions by streaming
// meter blobs, and records every message it receives.
package mixersim

import (
	"context"
	"errors"
	"math"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/audiopilot/audiopilot/codec"
	"github.com/audiopilot/audiopilot/osc"
	"github.com/audiopilot/audiopilot/spectrum"
)

// Options describe the simulated console.
type Options struct {
	// Info is returned, as string arguments, to info probes.
	Info []string
	// MeterInterval is the time between two meter blobs sent to each
	// subscriber. Zero disables streaming.
	MeterInterval time.Duration
	// Spectrum returns the dB value of every RTA frequency for frame n.
	// Nil produces a slowly moving tilt.
	Spectrum func(n int) []float64
	Logger   *zap.Logger
}

// Mixer is a running simulator.
type Mixer struct {
	conn   net.PacketConn
	opts   Options
	logger *zap.Logger

	mu       sync.Mutex
	received []*osc.Message
	subs     map[string]net.Addr
	params   map[string]interface{}
}

// Listen opens the simulator's socket on addr.
func Listen(addr string, opts Options) (*Mixer, error) {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, err
	}
	if opts.Info == nil {
		opts.Info = []string{conn.LocalAddr().(*net.UDPAddr).IP.String(), "SIM-01", "X32", "4.06"}
	}
	if opts.Spectrum == nil {
		opts.Spectrum = tilt
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mixer{
		conn:   conn,
		opts:   opts,
		logger: logger.With(zap.String("component", "mixersim")),
		subs:   make(map[string]net.Addr),
		params: make(map[string]interface{}),
	}, nil
}

// Addr is the address the simulator listens on.
func (m *Mixer) Addr() net.Addr { return m.conn.LocalAddr() }

// Close stops Serve.
func (m *Mixer) Close() error { return m.conn.Close() }

// Serve answers requests until ctx ends or the socket is closed.
func (m *Mixer) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { m.conn.Close() })
	defer stop()

	if m.opts.MeterInterval > 0 {
		go m.stream(ctx)
	}

	srv := &osc.Server{}
	for {
		msg, from, err := srv.ReceivePacket(m.conn)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			if errors.Is(err, osc.ErrMalformed) {
				continue
			}
			return err
		}
		m.handle(msg, from)
	}
}

func (m *Mixer) handle(msg *osc.Message, from net.Addr) {
	m.mu.Lock()
	m.received = append(m.received, msg)
	m.mu.Unlock()

	switch msg.Address {
	case codec.AddrInfo:
		args := make([]interface{}, len(m.opts.Info))
		for i, s := range m.opts.Info {
			args[i] = s
		}
		m.reply(osc.NewMessage(codec.AddrInfo, args...), from)
	case codec.AddrRemote:
	case codec.AddrBatchSubscribe:
		m.mu.Lock()
		m.subs[from.String()] = from
		m.mu.Unlock()
	default:
		if len(msg.Arguments) > 0 {
			m.mu.Lock()
			m.params[msg.Address] = msg.Arguments[0]
			m.mu.Unlock()
			return
		}
		m.mu.Lock()
		v, ok := m.params[msg.Address]
		m.mu.Unlock()
		if ok {
			m.reply(osc.NewMessage(msg.Address, v), from)
		}
	}
}

// Set presets a parameter so later queries for addr are answered.
func (m *Mixer) Set(addr string, value interface{}) {
	m.mu.Lock()
	m.params[addr] = value
	m.mu.Unlock()
}

// Param returns the last value written to addr.
func (m *Mixer) Param(addr string) (interface{}, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.params[addr]
	return v, ok
}

// Received returns the messages received for addr, or all of them when addr
// is empty.
func (m *Mixer) Received(addr string) []*osc.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*osc.Message
	for _, msg := range m.received {
		if addr == "" || msg.Address == addr {
			out = append(out, msg)
		}
	}
	return out
}

// Subscribers returns how many clients asked for meter data.
func (m *Mixer) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

func (m *Mixer) reply(msg *osc.Message, to net.Addr) {
	data, err := msg.MarshalBinary()
	if err != nil {
		m.logger.Warn("encoding reply", zap.Error(err))
		return
	}
	if _, err := m.conn.WriteTo(data, to); err != nil {
		m.logger.Debug("sending reply", zap.String("to", to.String()), zap.Error(err))
	}
}

func (m *Mixer) stream(ctx context.Context) {
	ticker := time.NewTicker(m.opts.MeterInterval)
	defer ticker.Stop()
	for n := 0; ; n++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		values := append([]float64{0, 0}, m.opts.Spectrum(n)...)
		msg := osc.NewMessage(codec.AddrMeters, codec.EncodeMeterBlob(values, spectrum.DefaultGainOffset))

		m.mu.Lock()
		subs := make([]net.Addr, 0, len(m.subs))
		for _, a := range m.subs {
			subs = append(subs, a)
		}
		m.mu.Unlock()
		for _, a := range subs {
			m.reply(msg, a)
		}
	}
}

// tilt is a pink-ish slope with a resonance wandering through the mids.
func tilt(n int) []float64 {
	out := make([]float64, len(spectrum.Frequencies))
	centre := 500 + 400*math.Sin(float64(n)/20)
	for i, f := range spectrum.Frequencies {
		v := -30 - 6*math.Log2(f/100)
		v += 12 * math.Exp(-math.Pow(math.Log2(f/centre), 2)*4)
		out[i] = math.Max(spectrum.Floor, math.Min(0, v))
	}
	return out
}
