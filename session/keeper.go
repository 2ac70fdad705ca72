package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/audiopilot/audiopilot/codec"
	"github.com/audiopilot/audiopilot/osc"
)

// Sender delivers packets to the mixer.
type Sender interface {
	Send(packet osc.Packet) error
}

// KeeperConfig sets the cadence of the keepalive and subscription loops.
type KeeperConfig struct {
	KeepaliveInterval time.Duration `yaml:"keepalive_interval"`
	// RenewInterval must be shorter than SubscriptionLifetime, the time the
	// mixer keeps streaming after the last subscribe.
	RenewInterval        time.Duration `yaml:"renew_interval"`
	SubscriptionLifetime time.Duration `yaml:"subscription_lifetime"`

	MeterAlias   string `yaml:"meter_alias"`
	MeterBank    string `yaml:"meter_bank"`
	UpdateFactor int32  `yaml:"update_factor"`
}

// DefaultKeeperConfig returns the cadence the console expects.
func DefaultKeeperConfig() KeeperConfig {
	return KeeperConfig{
		KeepaliveInterval:    3 * time.Second,
		RenewInterval:        9 * time.Second,
		SubscriptionLifetime: 10 * time.Second,
		MeterAlias:           codec.AddrMeters,
		MeterBank:            codec.AddrRTABank,
		UpdateFactor:         99,
	}
}

// ErrRenewInterval is returned when subscriptions would lapse between
// renewals.
var ErrRenewInterval = errors.New("session: renew interval must be shorter than the subscription lifetime")

// Validate checks the intervals.
func (c KeeperConfig) Validate() error {
	if c.KeepaliveInterval <= 0 || c.RenewInterval <= 0 || c.SubscriptionLifetime <= 0 {
		return fmt.Errorf("session: keeper intervals must be positive")
	}
	if c.RenewInterval >= c.SubscriptionLifetime {
		return fmt.Errorf("%w: %v >= %v", ErrRenewInterval, c.RenewInterval, c.SubscriptionLifetime)
	}
	if c.MeterAlias == "" || c.MeterBank == "" {
		return fmt.Errorf("session: meter alias and bank are required")
	}
	return nil
}

// Keeper keeps the mixer in remote mode and the meter subscription alive.
type Keeper struct {
	sender  Sender
	cfg     KeeperConfig
	logger  *zap.Logger
	monitor atomic.Int32
	wg      sync.WaitGroup
}

// NewKeeper validates cfg and returns an idle keeper.
func NewKeeper(sender Sender, cfg KeeperConfig, logger *zap.Logger) (*Keeper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Keeper{
		sender: sender,
		cfg:    cfg,
		logger: logger.With(zap.String("component", "keeper")),
	}, nil
}

// Monitor makes every keepalive also query the fader and trim of channel.
// Zero turns the queries off.
func (k *Keeper) Monitor(channel int) {
	k.monitor.Store(int32(channel))
}

// Run starts the keepalive and subscription loops. Both stop when ctx is
// canceled.
func (k *Keeper) Run(ctx context.Context) {
	k.wg.Add(2)
	go k.every(ctx, k.cfg.KeepaliveInterval, false, k.keepalive)
	go k.every(ctx, k.cfg.RenewInterval, true, k.subscribe)
}

// Wait blocks until both loops have exited.
func (k *Keeper) Wait() {
	k.wg.Wait()
}

func (k *Keeper) every(ctx context.Context, d time.Duration, now bool, fn func()) {
	defer k.wg.Done()

	if now {
		fn()
	}
	ticker := time.NewTicker(d)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

func (k *Keeper) keepalive() {
	k.send(codec.Keepalive())
	if ch := int(k.monitor.Load()); ch != 0 {
		k.send(codec.FaderQuery(ch))
		k.send(codec.TrimQuery(ch))
	}
}

func (k *Keeper) subscribe() {
	k.send(codec.BatchSubscribe(k.cfg.MeterAlias, k.cfg.MeterBank, k.cfg.UpdateFactor))
}

func (k *Keeper) send(msg *osc.Message) {
	if err := k.sender.Send(msg); err != nil {
		k.logger.Warn("send failed, retrying next tick", zap.String("address", msg.Address), zap.Error(err))
	}
}
