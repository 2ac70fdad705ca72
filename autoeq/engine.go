// Package autoeq drives a channel's parametric EQ from the live RTA picture.
// Every cycle it looks at each band's slice of the spectrum, picks the bin to
// correct, sizes the correction from the active vocal profile and sends one
// EQ command per band.
package autoeq

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/audiopilot/audiopilot/codec"
	"github.com/audiopilot/audiopilot/osc"
	"github.com/audiopilot/audiopilot/spectrum"
)

var (
	// ErrInvalidProfile is returned by Start for an unknown profile name.
	ErrInvalidProfile = errors.New("autoeq: unknown profile")
	// ErrInvalidChannel is returned by Start for a channel outside 1..32.
	ErrInvalidChannel = errors.New("autoeq: channel out of range")
)

const (
	// DefaultPeriod is the time between two cycles.
	DefaultPeriod = 300 * time.Millisecond
	// DefaultSimilarity is how close, in dB, a bin must come to the target
	// peak to count as part of the same resonance.
	DefaultSimilarity = 5.0
	// Flat is the level the gain curves treat as neutral.
	Flat = -45.0
)

// Sender delivers commands to the mixer.
type Sender interface {
	Send(packet osc.Packet) error
}

// Options tune an Engine. Zero values select the defaults.
type Options struct {
	Period     time.Duration
	Similarity float64
	Bands      []Band
	Profiles   map[string]Profile
	Logger     *zap.Logger
}

// Engine runs the correction loop for one channel at a time.
type Engine struct {
	store      *spectrum.Store
	sender     Sender
	period     time.Duration
	similarity float64
	bands      []Band
	profiles   map[string]Profile
	logger     *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	profile string
	channel int
}

// New returns an idle engine reading from store and sending through sender.
func New(store *spectrum.Store, sender Sender, opts Options) *Engine {
	e := &Engine{
		store:      store,
		sender:     sender,
		period:     opts.Period,
		similarity: opts.Similarity,
		bands:      opts.Bands,
		profiles:   opts.Profiles,
		logger:     opts.Logger,
	}
	if e.period <= 0 {
		e.period = DefaultPeriod
	}
	if e.similarity <= 0 {
		e.similarity = DefaultSimilarity
	}
	if e.bands == nil {
		e.bands = DefaultBands()
	}
	if e.profiles == nil {
		e.profiles = DefaultProfiles()
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	e.logger = e.logger.With(zap.String("component", "autoeq"))
	return e
}

// Start begins correcting channel with the named profile. Starting an engine
// that is already running does nothing.
func (e *Engine) Start(profile string, channel int) error {
	if _, ok := e.profiles[profile]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidProfile, profile)
	}
	if err := codec.CheckChannel(channel); err != nil {
		return fmt.Errorf("%w: %d", ErrInvalidChannel, channel)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.done = make(chan struct{})
	e.profile, e.channel = profile, channel
	go e.loop(ctx, profile, channel, e.done)

	e.logger.Info("auto-eq started", zap.String("profile", profile), zap.Int("channel", channel))
	return nil
}

// Stop ends the loop and waits for the cycle in flight to finish.
func (e *Engine) Stop() {
	e.mu.Lock()
	cancel, done := e.cancel, e.done
	profile, channel := e.profile, e.channel
	e.cancel, e.done = nil, nil
	e.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	e.logger.Info("auto-eq stopped", zap.String("profile", profile), zap.Int("channel", channel))
}

// Profiles returns the names of the profiles the engine accepts, sorted.
func (e *Engine) Profiles() []string {
	names := make([]string, 0, len(e.profiles))
	for name := range e.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Running reports whether the loop is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cancel != nil
}

// Active returns the profile and channel of the running loop. ok is false
// when the engine is idle.
func (e *Engine) Active() (profile string, channel int, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.profile, e.channel, e.cancel != nil
}

func (e *Engine) loop(ctx context.Context, profile string, channel int, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(e.period)
	defer ticker.Stop()
	for {
		e.RunCycle(profile, channel)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunCycle performs one pass over all bands and returns the number of EQ
// commands sent.
func (e *Engine) RunCycle(profile string, channel int) int {
	p, ok := e.profiles[profile]
	if !ok {
		return 0
	}

	sent := 0
	for _, b := range e.bands {
		m, ok := p.Multipliers[b.Name]
		if !ok {
			continue
		}
		bins := e.store.Range(b.Low, b.High)
		target, ok := pickTarget(bins, m > 0)
		if !ok {
			continue
		}

		var gain float64
		if m > 0 {
			gain = CalculateBoostGain(target.peak, m)
		} else {
			gain = CalculateGain(target.peak, m)
		}
		q := e.CalculateQ(b, bins, target.peak)

		freq := b.Frequencies.Nearest(target.freq)
		gainID := GainTable.Nearest(gain).ID
		qID := ClosestQID(q)

		msg, err := codec.EQBand(channel, b.Index, freq.ID, gainID, qID)
		if err != nil {
			e.logger.Warn("building eq command", zap.String("band", b.Name), zap.Error(err))
			continue
		}
		if err := e.sender.Send(msg); err != nil {
			e.logger.Warn("sending eq command", zap.String("band", b.Name), zap.Error(err))
			continue
		}
		sent++
		e.logger.Debug("eq band set",
			zap.String("band", b.Name),
			zap.Float64("target_hz", target.freq),
			zap.Float64("target_db", target.peak),
			zap.Float64("gain_db", gain),
			zap.Float64("q", q))
	}
	return sent
}

type target struct {
	freq float64
	peak float64
}

// peaks returns, for every bin with a sample above the floor, its frequency
// and its highest such sample.
func peaks(bins []spectrum.Bin) (freqs, values []float64) {
	for _, b := range bins {
		above := aboveFloor(b.Samples)
		if len(above) == 0 {
			continue
		}
		freqs = append(freqs, b.Freq)
		values = append(values, floats.Max(above))
	}
	return freqs, values
}

func aboveFloor(samples []float64) []float64 {
	var out []float64
	for _, s := range samples {
		if s > spectrum.Floor {
			out = append(out, s)
		}
	}
	return out
}

// pickTarget returns the loudest bin for a cut, or the quietest for a boost.
func pickTarget(bins []spectrum.Bin, boost bool) (target, bool) {
	freqs, values := peaks(bins)
	if len(values) == 0 {
		return target{}, false
	}
	i := floats.MaxIdx(values)
	if boost {
		i = floats.MinIdx(values)
	}
	return target{freq: freqs[i], peak: values[i]}, true
}

// CalculateGain returns the cut, in dB, for a bin peaking at db. It grows
// linearly with the distance above Flat.
func CalculateGain(db, multiplier float64) float64 {
	return round2((db - Flat) / 10 * multiplier)
}

// CalculateBoostGain returns the lift, in dB, for a bin peaking at db: the
// natural log of its distance above 2·Flat, scaled by multiplier.
func CalculateBoostGain(db, multiplier float64) float64 {
	x := (db - Flat) - 2*Flat
	if x <= 0 {
		return 0
	}
	return round2(math.Log(x) * multiplier)
}

// CalculateQ widens the band as more of its bins come within the similarity
// window of peak. Every bin with data counts towards the band, floor readings
// included, so a lone spike over a silent band gets a Q close to QMax. It
// returns NaN when the band has no data.
func (e *Engine) CalculateQ(b Band, bins []spectrum.Bin, peak float64) float64 {
	tracked, similar := 0, 0
	for _, bin := range bins {
		if len(bin.Samples) == 0 {
			continue
		}
		tracked++
		for _, s := range bin.Samples {
			if math.Abs(s-peak) <= e.similarity {
				similar++
				break
			}
		}
	}
	if tracked == 0 {
		return math.NaN()
	}
	return round2(b.QMax - float64(similar)/float64(tracked)*(b.QMax-b.QMin))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
